// internal/storage/postgres/matches.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exchange-matcher/internal/matching"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const matchColumns = `id, listing_id, matched_listing_id, score, reasons, factors, status, created_at, feedback_at`

type matchRow struct {
	ID               string         `db:"id"`
	ListingID        string         `db:"listing_id"`
	MatchedListingID string         `db:"matched_listing_id"`
	Score            float64        `db:"score"`
	Reasons          pq.StringArray `db:"reasons"`
	Factors          pq.StringArray `db:"factors"`
	Status           string         `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	FeedbackAt       sql.NullTime   `db:"feedback_at"`
}

// toMatch drops factor tags it cannot parse; the optimizer then falls back
// to the reasons for that row.
func (r matchRow) toMatch() matching.Match {
	m := matching.Match{
		ID:               r.ID,
		ListingID:        r.ListingID,
		MatchedListingID: r.MatchedListingID,
		Score:            r.Score,
		Reasons:          []string(r.Reasons),
		Status:           matching.MatchStatus(r.Status),
		CreatedAt:        r.CreatedAt,
	}
	for _, name := range r.Factors {
		if f, err := matching.ParseFactor(name); err == nil {
			m.Factors = append(m.Factors, f)
		}
	}
	if r.FeedbackAt.Valid {
		t := r.FeedbackAt.Time
		m.FeedbackAt = &t
	}
	return m
}

func factorNames(factors []matching.Factor) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = f.String()
	}
	return out
}

// MatchStore persists matches in exchange_matches.
type MatchStore struct {
	db    *sqlx.DB
	newID func() string
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db, newID: uuid.NewString}
}

// Store inserts m unless a row with the same listing pair and status exists,
// in which case the existing id is returned. Concurrent writers for the same
// key are serialized on a transaction-scoped advisory lock, so only one of
// them inserts.
func (s *MatchStore) Store(ctx context.Context, m matching.Match) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin store match: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, matchLockKey(m)); err != nil {
		return "", fmt.Errorf("lock match key: %w", err)
	}

	var existing string
	err = tx.GetContext(ctx, &existing, `
		SELECT id FROM exchange_matches
		WHERE listing_id = $1 AND matched_listing_id = $2 AND status = $3
		LIMIT 1`, m.ListingID, m.MatchedListingID, string(m.Status))
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit store match: %w", err)
		}
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("lookup match: %w", err)
	}

	id := m.ID
	if id == "" {
		id = s.newID()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO exchange_matches
			(id, listing_id, matched_listing_id, score, reasons, factors, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, m.ListingID, m.MatchedListingID, m.Score,
		pq.Array(m.Reasons), pq.Array(factorNames(m.Factors)),
		string(m.Status), m.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit store match: %w", err)
	}
	return id, nil
}

func matchLockKey(m matching.Match) string {
	return "exchange_matches:" + m.ListingID + ":" + m.MatchedListingID + ":" + string(m.Status)
}

func (s *MatchStore) UpdateStatus(ctx context.Context, id string, status matching.MatchStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE exchange_matches SET status = $2, feedback_at = $3 WHERE id = $1`,
		id, string(status), at)
	if err != nil {
		return fmt.Errorf("update match %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", matching.ErrMatchNotFound, id)
	}
	return nil
}

func (s *MatchStore) Get(ctx context.Context, id string) (*matching.Match, error) {
	var row matchRow
	err := s.db.GetContext(ctx, &row, `SELECT `+matchColumns+` FROM exchange_matches WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", matching.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	m := row.toMatch()
	return &m, nil
}

// ListByStatus returns matches in any of statuses created at or after since.
func (s *MatchStore) ListByStatus(ctx context.Context, statuses []matching.MatchStatus, since time.Time) ([]matching.Match, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	var rows []matchRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+matchColumns+`
		FROM exchange_matches
		WHERE status = ANY($1::text[]) AND created_at >= $2
		ORDER BY created_at`, pq.Array(names), since)
	if err != nil {
		return nil, fmt.Errorf("list matches by status: %w", err)
	}

	out := make([]matching.Match, len(rows))
	for i, r := range rows {
		out[i] = r.toMatch()
	}
	return out, nil
}
