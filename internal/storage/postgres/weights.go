// internal/storage/postgres/weights.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exchange-matcher/internal/matching"

	"github.com/jmoiron/sqlx"
)

// WeightStore keeps the single current weight vector in matching_weights
// (row id 1) as a JSON object keyed by factor name.
type WeightStore struct {
	db *sqlx.DB
}

func NewWeightStore(db *sqlx.DB) *WeightStore {
	return &WeightStore{db: db}
}

func (s *WeightStore) Load(ctx context.Context) (matching.Weights, *time.Time, bool, error) {
	var row struct {
		Weights       []byte       `db:"weights"`
		LastOptimized sql.NullTime `db:"last_optimized"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT weights, last_optimized FROM matching_weights WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return matching.Weights{}, nil, false, nil
	}
	if err != nil {
		return matching.Weights{}, nil, false, fmt.Errorf("load weights: %w", err)
	}

	var w matching.Weights
	if err := json.Unmarshal(row.Weights, &w); err != nil {
		return matching.Weights{}, nil, false, fmt.Errorf("decode weights: %w", err)
	}

	var last *time.Time
	if row.LastOptimized.Valid {
		t := row.LastOptimized.Time
		last = &t
	}
	return w, last, true, nil
}

func (s *WeightStore) Save(ctx context.Context, w matching.Weights, at time.Time) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matching_weights (id, weights, last_optimized)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET weights = EXCLUDED.weights, last_optimized = EXCLUDED.last_optimized`,
		data, at)
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}
