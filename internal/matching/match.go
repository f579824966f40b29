// internal/matching/match.go
package matching

import (
	"fmt"
	"time"
)

// MatchStatus is the lifecycle state of a persisted match.
type MatchStatus string

const (
	MatchSuggested     MatchStatus = "suggested"
	MatchInterested    MatchStatus = "interested"
	MatchContacted     MatchStatus = "contacted"
	MatchCompleted     MatchStatus = "completed"
	MatchNotInterested MatchStatus = "not_interested"
)

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchSuggested:  {MatchInterested, MatchContacted, MatchCompleted, MatchNotInterested},
	MatchInterested: {MatchContacted, MatchCompleted, MatchNotInterested},
	MatchContacted:  {MatchCompleted, MatchNotInterested},
}

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchSuggested, MatchInterested, MatchContacted, MatchCompleted, MatchNotInterested:
		return true
	}
	return false
}

// Successful reports whether the status counts as a positive outcome for
// weight optimization.
func (s MatchStatus) Successful() bool {
	return s == MatchContacted || s == MatchCompleted
}

// CanTransition reports whether a match in status s may move to next.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseMatchStatus validates a raw status string.
func ParseMatchStatus(raw string) (MatchStatus, error) {
	s := MatchStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Match is a scored pairing of two listings.
type Match struct {
	ID               string      `json:"id"`
	ListingID        string      `json:"listingId"`
	MatchedListingID string      `json:"matchedListingId"`
	Score            float64     `json:"score"`
	Reasons          []string    `json:"reasons"`
	Factors          []Factor    `json:"factors"`
	Status           MatchStatus `json:"status"`
	CreatedAt        time.Time   `json:"createdAt"`
	FeedbackAt       *time.Time  `json:"feedbackAt,omitempty"`
}

// Result is one ranked candidate returned by the ranker.
type Result struct {
	Listing   Listing      `json:"listing"`
	Score     float64      `json:"score"`
	Reasons   []string     `json:"reasons"`
	Factors   []Factor     `json:"factors"`
	Breakdown FactorScores `json:"breakdown"`
}

// NewMatch builds a suggested match from a ranked result.
func NewMatch(source Listing, r Result, now time.Time) Match {
	return Match{
		ListingID:        source.ID,
		MatchedListingID: r.Listing.ID,
		Score:            r.Score,
		Reasons:          append([]string(nil), r.Reasons...),
		Factors:          append([]Factor(nil), r.Factors...),
		Status:           MatchSuggested,
		CreatedAt:        now.UTC(),
	}
}
