package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossvenue/arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore on the opportunities
// table.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, symbol, buy_venue, sell_venue,
	buy_price, sell_price, buy_fee, sell_fee, withdrawal_fee,
	gross_profit, total_fees, net_profit, profit_pct, detected_at`

// Insert records a detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (` + opportunityCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue,
		opp.BuyPrice, opp.SellPrice, opp.BuyFee, opp.SellFee, opp.WithdrawalFee,
		opp.GrossProfit, opp.TotalFees, opp.NetProfit, opp.ProfitPct, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity: %w", err)
	}
	return nil
}

// ListRecent returns the newest opportunities first, up to limit.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + opportunityCols + `
		FROM opportunities
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		if err := rows.Scan(
			&o.ID, &o.Symbol, &o.BuyVenue, &o.SellVenue,
			&o.BuyPrice, &o.SellPrice, &o.BuyFee, &o.SellFee, &o.WithdrawalFee,
			&o.GrossProfit, &o.TotalFees, &o.NetProfit, &o.ProfitPct, &o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
