package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

var analyticsTables = map[string]string{
	"users":   "users",
	"courses": "courses",
	"orders":  "orders",
}

// CreatedSince returns creation timestamps of entity rows newer than since.
func (r *AnalyticsRepository) CreatedSince(ctx context.Context, entity string, since time.Time) ([]time.Time, error) {
	table, ok := analyticsTables[entity]
	if !ok {
		return nil, fmt.Errorf("unknown analytics entity %q", entity)
	}

	rows, err := r.pool.Query(ctx, `SELECT created_at FROM `+table+` WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
