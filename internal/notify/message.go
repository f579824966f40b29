// Package notify tells downstream channels about freshly stored matches.
package notify

import (
	"time"

	"exchange-matcher/internal/matching"
)

// EventMatchSuggested is the event type attached to every message.
const EventMatchSuggested = "match.suggested"

// Message is the JSON body published for one stored match.
type Message struct {
	Event            string    `json:"event"`
	MatchID          string    `json:"matchId"`
	ListingID        string    `json:"listingId"`
	ListingOwnerID   string    `json:"listingOwnerId"`
	MatchedListingID string    `json:"matchedListingId"`
	Score            float64   `json:"score"`
	Reasons          []string  `json:"reasons"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newMessage(source matching.Listing, m matching.Match) Message {
	return Message{
		Event:            EventMatchSuggested,
		MatchID:          m.ID,
		ListingID:        m.ListingID,
		ListingOwnerID:   source.OwnerID,
		MatchedListingID: m.MatchedListingID,
		Score:            m.Score,
		Reasons:          m.Reasons,
		CreatedAt:        m.CreatedAt,
	}
}

// aboveThreshold keeps matches scoring at least minScore.
func aboveThreshold(matches []matching.Match, minScore float64) []matching.Match {
	out := make([]matching.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score >= minScore {
			out = append(out, m)
		}
	}
	return out
}
