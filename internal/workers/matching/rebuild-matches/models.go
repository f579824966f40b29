// internal/workers/matching/rebuild-matches/models.go
package rebuildmatches

type Input struct {
	PageSize int `json:"pageSize"`
}

type Output struct {
	ListingsProcessed int `json:"listingsProcessed"`
	MatchesStored     int `json:"matchesStored"`
	Failures          int `json:"failures"`
}
