// internal/matching/store.go
package matching

import (
	"context"
	"errors"
	"time"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrInvalidStatus     = errors.New("invalid match status")
	ErrInvalidTransition = errors.New("invalid match status transition")
)

// CandidateQuery describes the coarse pre-filter a ListingStore applies
// before scoring. Empty Kinds or Categories disable that filter.
type CandidateQuery struct {
	Kinds      []Kind
	Categories []string
	ExcludeID  string
	ActiveOnly bool
	Limit      int
}

// ListingStore is the read side of the listing catalogue.
type ListingStore interface {
	GetListing(ctx context.Context, id string) (*Listing, error)
	QueryCandidates(ctx context.Context, q CandidateQuery) ([]Listing, error)
	// ListActive returns up to limit active listings with ids strictly
	// greater than afterID, ordered by id. An empty afterID starts at the
	// beginning.
	ListActive(ctx context.Context, afterID string, limit int) ([]Listing, error)
}

// GeoService computes great-circle distances.
type GeoService interface {
	DistanceKm(lat1, lng1, lat2, lng2 float64) float64
}

// ReputationService resolves per-user rating (0-5) and trust (0-100).
type ReputationService interface {
	Rating(ctx context.Context, userID string) (float64, error)
	Trust(ctx context.Context, userID string) (float64, error)
}

// MatchStore persists matches. Store must be idempotent on
// (ListingID, MatchedListingID, Status) and return the existing id.
type MatchStore interface {
	Store(ctx context.Context, m Match) (string, error)
	UpdateStatus(ctx context.Context, id string, status MatchStatus, at time.Time) error
	Get(ctx context.Context, id string) (*Match, error)
	ListByStatus(ctx context.Context, statuses []MatchStatus, since time.Time) ([]Match, error)
}

// WeightConfigStore persists the single current weight vector.
type WeightConfigStore interface {
	Load(ctx context.Context) (w Weights, lastOptimized *time.Time, found bool, err error)
	Save(ctx context.Context, w Weights, at time.Time) error
}

// Notifier is told about freshly stored matches.
type Notifier interface {
	MatchesStored(ctx context.Context, source Listing, matches []Match) error
}
