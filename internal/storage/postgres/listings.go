// internal/storage/postgres/listings.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"exchange-matcher/internal/matching"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const listingColumns = `id, owner_id, kind, categories, title, description, keywords, item_condition,
	estimated_value, lat, lng, urgent, eco_points, carbon_saved, status`

type listingRow struct {
	ID             string          `db:"id"`
	OwnerID        string          `db:"owner_id"`
	Kind           string          `db:"kind"`
	Categories     pq.StringArray  `db:"categories"`
	Title          string          `db:"title"`
	Description    sql.NullString  `db:"description"`
	Keywords       pq.StringArray  `db:"keywords"`
	Condition      sql.NullString  `db:"item_condition"`
	EstimatedValue sql.NullFloat64 `db:"estimated_value"`
	Lat            sql.NullFloat64 `db:"lat"`
	Lng            sql.NullFloat64 `db:"lng"`
	Urgent         bool            `db:"urgent"`
	EcoPoints      float64         `db:"eco_points"`
	CarbonSaved    float64         `db:"carbon_saved"`
	Status         string          `db:"status"`
}

func (r listingRow) toListing() matching.Listing {
	l := matching.Listing{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Kind:        matching.Kind(r.Kind),
		Categories:  []string(r.Categories),
		Title:       r.Title,
		Description: r.Description.String,
		Keywords:    []string(r.Keywords),
		Condition:   matching.Condition(r.Condition.String),
		Urgent:      r.Urgent,
		EcoPoints:   r.EcoPoints,
		CarbonSaved: r.CarbonSaved,
		Status:      matching.ListingStatus(r.Status),
	}
	if r.EstimatedValue.Valid {
		v := r.EstimatedValue.Float64
		l.EstimatedValue = &v
	}
	if r.Lat.Valid && r.Lng.Valid {
		l.Location = &matching.GeoPoint{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
	}
	return l
}

// ListingStore reads the exchange_listings table.
type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

func (s *ListingStore) GetListing(ctx context.Context, id string) (*matching.Listing, error) {
	var row listingRow
	err := s.db.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM exchange_listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", matching.ErrListingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	l := row.toListing()
	return &l, nil
}

// QueryCandidates applies the coarse filters in SQL. Urgent and recent
// listings come first so the bound keeps the most relevant rows.
func (s *ListingStore) QueryCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.Listing, error) {
	kinds := make([]string, len(q.Kinds))
	for i, k := range q.Kinds {
		kinds[i] = string(k)
	}

	var rows []listingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+`
		FROM exchange_listings
		WHERE id <> $1
		  AND (NOT $2 OR status = 'active')
		  AND (cardinality($3::text[]) = 0 OR kind = ANY($3::text[]))
		  AND (cardinality($4::text[]) = 0 OR categories && $4::text[])
		ORDER BY urgent DESC, created_at DESC
		LIMIT $5`,
		q.ExcludeID, q.ActiveOnly, pq.Array(kinds), pq.Array(q.Categories), q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return toListings(rows), nil
}

func (s *ListingStore) ListActive(ctx context.Context, afterID string, limit int) ([]matching.Listing, error) {
	var rows []listingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+`
		FROM exchange_listings
		WHERE status = 'active' AND id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active listings: %w", err)
	}
	return toListings(rows), nil
}

func toListings(rows []listingRow) []matching.Listing {
	out := make([]matching.Listing, len(rows))
	for i, r := range rows {
		out[i] = r.toListing()
	}
	return out
}
