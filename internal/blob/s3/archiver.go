package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

// Archiver moves tick history older than the retention window out of the hot
// store and into object storage as JSONL. Pruning only happens after the
// upload succeeded, so a failed upload leaves the rows where they were.
type Archiver struct {
	writer    domain.BlobWriter
	ticks     domain.TickStore
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver keeping retention worth of ticks hot.
func NewArchiver(writer domain.BlobWriter, ticks domain.TickStore, retention time.Duration, logger *slog.Logger) *Archiver {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Archiver{
		writer:    writer,
		ticks:     ticks,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveOnce uploads and prunes everything past retention, returning the
// number of rows moved.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-a.retention)

	ticks, err := a.ticks.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive: list ticks: %w", err)
	}
	if len(ticks) == 0 {
		return 0, nil
	}

	payload, err := marshalJSONL(ticks)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive: marshal: %w", err)
	}

	key := archiveKey(cutoff)
	if err := a.writer.Put(ctx, key, payload, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive: upload: %w", err)
	}

	deleted, err := a.ticks.DeleteBefore(ctx, cutoff)
	if err != nil {
		// The archive object exists, the hot rows do not go away; the next
		// run re-archives them under a new key rather than losing data.
		return 0, fmt.Errorf("s3blob: archive: prune: %w", err)
	}

	a.logger.InfoContext(ctx, "tick history archived",
		slog.String("key", key),
		slog.Int("archived", len(ticks)),
		slog.Int64("pruned", deleted),
	)
	return deleted, nil
}

// Run archives on the given interval until the context ends.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

func archiveKey(cutoff time.Time) string {
	return fmt.Sprintf("archive/ticks/%s-%d.jsonl", cutoff.Format("2006-01-02"), cutoff.Unix())
}

func marshalJSONL(ticks []domain.Tick) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range ticks {
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
