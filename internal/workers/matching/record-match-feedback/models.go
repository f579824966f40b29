// internal/workers/matching/record-match-feedback/models.go
package recordmatchfeedback

import "time"

type Input struct {
	MatchID string `json:"matchId"`
	Status  string `json:"status"`
}

type Output struct {
	MatchID          string    `json:"matchId"`
	ListingID        string    `json:"listingId"`
	MatchedListingID string    `json:"matchedListingId"`
	Status           string    `json:"status"`
	FeedbackAt       time.Time `json:"feedbackAt"`
}
