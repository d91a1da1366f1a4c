package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StatsRepository serves counters straight from SQL without loading rows.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) CountByStatus(ctx context.Context, status, ownerID string) (int64, error) {
	query := `SELECT COUNT(*) FROM liquidation_requests WHERE status = $1`
	args := []interface{}{status}
	if ownerID != "" {
		query += ` AND user_id = $2`
		args = append(args, ownerID)
	}

	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count by status query: %w", err)
	}
	return n, nil
}
