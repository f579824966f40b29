// internal/matching/listing.go
package matching

import "strings"

// Kind is the exchange type of a listing.
type Kind string

const (
	KindGiveAway Kind = "give_away"
	KindExchange Kind = "exchange"
	KindLending  Kind = "lending"
	KindRequest  Kind = "request"
)

// complementaryKinds lists which kinds can satisfy a listing of the key kind.
var complementaryKinds = map[Kind][]Kind{
	KindGiveAway: {KindRequest},
	KindExchange: {KindExchange, KindRequest},
	KindLending:  {KindRequest},
	KindRequest:  {KindGiveAway, KindExchange, KindLending},
}

// ComplementaryKinds returns the kinds that pair with k, or nil when k has no
// entry (callers then skip kind filtering).
func ComplementaryKinds(k Kind) []Kind {
	kinds, ok := complementaryKinds[k]
	if !ok {
		return nil
	}
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Condition is the declared state of the item.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionLikeNew     Condition = "like_new"
	ConditionGood        Condition = "good"
	ConditionFair        Condition = "fair"
	ConditionNeedsRepair Condition = "needs_repair"
)

// Ordinal maps the condition onto 1 (needs_repair) .. 5 (new). Unknown or
// empty conditions are treated as good.
func (c Condition) Ordinal() int {
	switch Condition(strings.ToLower(strings.TrimSpace(string(c)))) {
	case ConditionNew:
		return 5
	case ConditionLikeNew:
		return 4
	case ConditionFair:
		return 2
	case ConditionNeedsRepair:
		return 1
	default:
		return 3
	}
}

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingExpired   ListingStatus = "expired"
	ListingCompleted ListingStatus = "completed"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Listing is an exchange post. Optional attributes use pointers so absence
// stays distinguishable from zero.
type Listing struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"ownerId"`
	Kind           Kind          `json:"kind"`
	Categories     []string      `json:"categories,omitempty"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Keywords       []string      `json:"keywords,omitempty"`
	Condition      Condition     `json:"condition,omitempty"`
	EstimatedValue *float64      `json:"estimatedValue,omitempty"`
	Location       *GeoPoint     `json:"location,omitempty"`
	Urgent         bool          `json:"urgent"`
	EcoPoints      float64       `json:"ecoPoints"`
	CarbonSaved    float64       `json:"carbonSaved"`
	Status         ListingStatus `json:"status"`
}

func (l *Listing) IsActive() bool {
	return l.Status == ListingActive
}

// Value returns the estimated value, 0 when absent.
func (l *Listing) Value() float64 {
	if l.EstimatedValue == nil || *l.EstimatedValue < 0 {
		return 0
	}
	return *l.EstimatedValue
}

// HasCategory reports whether the listing carries any of the given labels.
func (l *Listing) HasCategory(labels []string) bool {
	for _, c := range l.Categories {
		for _, want := range labels {
			if c == want {
				return true
			}
		}
	}
	return false
}
