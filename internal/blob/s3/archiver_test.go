package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

type memBlobWriter struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func (m *memBlobWriter) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objs == nil {
		m.objs = make(map[string][]byte)
	}
	m.objs[key] = append([]byte(nil), data...)
	return nil
}

type archiveTickStore struct {
	old     []domain.Tick
	deleted bool
}

func (s *archiveTickStore) SaveTicks(context.Context, []domain.Tick) error { return nil }

func (s *archiveTickStore) QueryRange(context.Context, string, time.Time, time.Time) ([]domain.Tick, error) {
	return nil, nil
}

func (s *archiveTickStore) QueryCandles(context.Context, string, time.Time, time.Time) ([]domain.Candle, error) {
	return nil, nil
}

func (s *archiveTickStore) ListBefore(context.Context, time.Time) ([]domain.Tick, error) {
	return s.old, nil
}

func (s *archiveTickStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	s.deleted = true
	return int64(len(s.old)), nil
}

func testTicks(n int) []domain.Tick {
	ticks := make([]domain.Tick, n)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range ticks {
		ticks[i] = domain.Tick{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			VenueID:   "binance",
			Symbol:    "BTC/USDT",
			Price:     50000 + float64(i),
			Bid:       49999,
			Ask:       50001,
		}
	}
	return ticks
}

func TestArchiveOnceUploadsThenPrunes(t *testing.T) {
	store := &archiveTickStore{old: testTicks(3)}
	writer := &memBlobWriter{}
	arch := NewArchiver(writer, store, 24*time.Hour, slog.New(slog.DiscardHandler))

	n, err := arch.ArchiveOnce(context.Background())
	if err != nil {
		t.Fatalf("ArchiveOnce: %v", err)
	}
	if n != 3 {
		t.Fatalf("pruned %d rows, want 3", n)
	}
	if !store.deleted {
		t.Fatal("hot rows not pruned")
	}
	if len(writer.objs) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(writer.objs))
	}

	for _, data := range writer.objs {
		sc := bufio.NewScanner(bytes.NewReader(data))
		lines := 0
		for sc.Scan() {
			var tick domain.Tick
			if err := json.Unmarshal(sc.Bytes(), &tick); err != nil {
				t.Fatalf("line %d not valid JSON: %v", lines, err)
			}
			lines++
		}
		if lines != 3 {
			t.Fatalf("archive has %d lines, want 3", lines)
		}
	}
}

func TestArchiveOnceNothingToDo(t *testing.T) {
	writer := &memBlobWriter{}
	arch := NewArchiver(writer, &archiveTickStore{}, 24*time.Hour, slog.New(slog.DiscardHandler))
	n, err := arch.ArchiveOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("got n=%d err=%v, want 0 and nil", n, err)
	}
	if len(writer.objs) != 0 {
		t.Fatal("uploaded an object for an empty batch")
	}
}

func TestArchiveOnceKeepsRowsWhenUploadFails(t *testing.T) {
	store := &archiveTickStore{old: testTicks(2)}
	writer := &memBlobWriter{err: errors.New("bucket gone")}
	arch := NewArchiver(writer, store, 24*time.Hour, slog.New(slog.DiscardHandler))

	if _, err := arch.ArchiveOnce(context.Background()); err == nil {
		t.Fatal("want upload error")
	}
	if store.deleted {
		t.Fatal("rows pruned despite failed upload")
	}
}
