// internal/matching/selector.go
package matching

import (
	"context"
	"fmt"
)

const DefaultCandidateLimit = 50

// Selector fetches a bounded set of plausible counterparties for a listing.
type Selector struct {
	store ListingStore
	limit int
}

func NewSelector(store ListingStore, limit int) *Selector {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Selector{store: store, limit: limit}
}

// Candidates returns up to the configured bound of active listings other than
// source whose kind complements source's kind. The category filter is a soft
// pre-filter only; order is unspecified.
func (s *Selector) Candidates(ctx context.Context, source *Listing) ([]Listing, error) {
	kinds := ComplementaryKinds(source.Kind)

	rows, err := s.store.QueryCandidates(ctx, CandidateQuery{
		Kinds:      kinds,
		Categories: source.Categories,
		ExcludeID:  source.ID,
		ActiveOnly: true,
		Limit:      s.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query candidates for %s: %w", source.ID, err)
	}

	out := make([]Listing, 0, len(rows))
	for _, c := range rows {
		if c.ID == source.ID || !c.IsActive() {
			continue
		}
		if len(kinds) > 0 && !containsKind(kinds, c.Kind) {
			continue
		}
		if len(source.Categories) > 0 && !c.HasCategory(source.Categories) {
			continue
		}
		out = append(out, c)
		if len(out) == s.limit {
			break
		}
	}
	return out, nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
