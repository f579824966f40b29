// internal/workers/matching/batch-find-matches/models.go
package batchfindmatches

type Input struct {
	ListingIDs []string `json:"listingIds"`
	Limit      int      `json:"limit"`
}

type Output struct {
	Results map[string][]MatchResult `json:"results"`
	// Count is the number of matches across every listing.
	Count int `json:"count"`
}

type MatchResult struct {
	ListingID string   `json:"listingId"`
	OwnerID   string   `json:"ownerId"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
}
