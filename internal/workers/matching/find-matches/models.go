// internal/workers/matching/find-matches/models.go
package findmatches

import "exchange-matcher/internal/matching"

type Input struct {
	ListingID string            `json:"listingId"`
	Limit     int               `json:"limit"`
	Filters   *matching.Filters `json:"filters,omitempty"`
	Persist   bool              `json:"persist"`
}

type Output struct {
	ListingID string        `json:"listingId"`
	Matches   []MatchResult `json:"matches"`
	Count     int           `json:"count"`
}

// MatchResult is one ranked counterparty. MatchID is set only when the
// results were persisted.
type MatchResult struct {
	MatchID   string   `json:"matchId,omitempty"`
	ListingID string   `json:"listingId"`
	OwnerID   string   `json:"ownerId"`
	Title     string   `json:"title,omitempty"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
	Factors   []string `json:"factors"`
}

func factorNames(fs []matching.Factor) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
