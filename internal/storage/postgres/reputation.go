// internal/storage/postgres/reputation.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"exchange-matcher/internal/matching"

	"github.com/jmoiron/sqlx"
)

// ReputationStore reads user_reputation. Users without a row get the
// neutral defaults.
type ReputationStore struct {
	db *sqlx.DB
}

func NewReputationStore(db *sqlx.DB) *ReputationStore {
	return &ReputationStore{db: db}
}

func (s *ReputationStore) Rating(ctx context.Context, userID string) (float64, error) {
	return s.column(ctx, "rating", userID, matching.DefaultRating)
}

func (s *ReputationStore) Trust(ctx context.Context, userID string) (float64, error) {
	return s.column(ctx, "trust_score", userID, matching.DefaultTrust)
}

func (s *ReputationStore) column(ctx context.Context, column, userID string, fallback float64) (float64, error) {
	var v sql.NullFloat64
	err := s.db.GetContext(ctx, &v, `SELECT `+column+` FROM user_reputation WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("read %s for %s: %w", column, userID, err)
	}
	if !v.Valid {
		return fallback, nil
	}
	return v.Float64, nil
}
