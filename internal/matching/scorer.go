// internal/matching/scorer.go
package matching

import "math"

const (
	maxProximityKm     = 50.0
	neutralProximity   = 0.5
	neutralValueRange  = 0.7
	impactNormalizer   = 100.0
	urgentScore        = 1.0
	nonUrgentScore     = 0.5
	semanticBoostScale = 0.1

	DefaultRating = 3.0
	DefaultTrust  = 50.0
)

// Reputation is an owner's rating (0-5) and trust score (0-100).
type Reputation struct {
	Rating float64 `json:"rating"`
	Trust  float64 `json:"trust"`
}

func DefaultReputation() Reputation {
	return Reputation{Rating: DefaultRating, Trust: DefaultTrust}
}

// Breakdown is the full scoring outcome for one pair.
type Breakdown struct {
	// Raw holds the unboosted sub-scores, each in [0,1].
	Raw FactorScores
	// Boosted holds the sub-scores after the semantic boost; entries may exceed 1.
	Boosted  FactorScores
	Semantic float64
	Score    float64
	Reasons  []string
	Factors  []Factor
}

// Scorer computes pairwise compatibility. It holds no mutable state and is
// safe for concurrent use.
type Scorer struct {
	geo GeoService
}

func NewScorer(geo GeoService) *Scorer {
	if geo == nil {
		geo = Haversine{}
	}
	return &Scorer{geo: geo}
}

// Score rates b as a counterparty for a under the weight vector w.
func (s *Scorer) Score(a, b *Listing, repA, repB Reputation, w Weights) Breakdown {
	var raw FactorScores
	raw[FactorCategoryMatch] = CategoryMatch(a, b)
	raw[FactorLocationProximity] = s.LocationProximity(a, b)
	raw[FactorEnvironmentalImpact] = EnvironmentalImpact(a, b)
	raw[FactorUserCompatibility] = UserCompatibility(a, b, repA, repB)
	raw[FactorItemCondition] = ItemCondition(a, b)
	raw[FactorValueRange] = ValueRange(a, b)
	raw[FactorUrgency] = Urgency(a, b)

	semantic := SemanticSimilarity(a, b)
	boosted := raw
	if semantic > 0 {
		// Uniform additive boost on every factor, applied before weighting.
		for i := range boosted {
			boosted[i] += semantic * semanticBoostScale
		}
	}

	var total float64
	for i, v := range boosted {
		total += w[i] * v
	}

	bd := Breakdown{
		Raw:      raw,
		Boosted:  boosted,
		Semantic: semantic,
		Score:    clamp01(total),
	}
	for _, r := range explain(raw, a.Urgent || b.Urgent) {
		bd.Reasons = append(bd.Reasons, r.text)
		bd.Factors = append(bd.Factors, r.factor)
	}
	return bd
}

// CategoryMatch is the Jaccard similarity of the category label sets.
func CategoryMatch(a, b *Listing) float64 {
	return jaccard(stringSet(a.Categories), stringSet(b.Categories))
}

// LocationProximity falls off linearly to 0 at 50km. Missing coordinates on
// either side give a neutral 0.5.
func (s *Scorer) LocationProximity(a, b *Listing) float64 {
	if a.Location == nil || b.Location == nil {
		return neutralProximity
	}
	d := s.geo.DistanceKm(a.Location.Lat, a.Location.Lng, b.Location.Lat, b.Location.Lng)
	return math.Max(0, 1-d/maxProximityKm)
}

// EnvironmentalImpact sums both listings' eco-points and carbon savings,
// scaled by 1/100 and capped at 1.
func EnvironmentalImpact(a, b *Listing) float64 {
	total := nonNegative(a.EcoPoints) + nonNegative(b.EcoPoints) +
		nonNegative(a.CarbonSaved) + nonNegative(b.CarbonSaved)
	return math.Min(1, total/impactNormalizer)
}

// UserCompatibility blends the owners' average rating and trust. A pair owned
// by the same user scores 0.
func UserCompatibility(a, b *Listing, repA, repB Reputation) float64 {
	if a.OwnerID == b.OwnerID {
		return 0
	}
	avgRating := (repA.Rating + repB.Rating) / 2
	avgTrust := (repA.Trust + repB.Trust) / 2
	return clamp01(0.6*(avgRating/5) + 0.4*(avgTrust/100))
}

// ItemCondition compares condition ordinals: identical conditions score 1,
// new vs needs_repair scores 0.
func ItemCondition(a, b *Listing) float64 {
	diff := math.Abs(float64(a.Condition.Ordinal() - b.Condition.Ordinal()))
	return math.Max(0, 1-diff/4)
}

// ValueRange is the ratio of the smaller to the larger estimated value. Free
// or unvalued items are treated as broadly compatible.
func ValueRange(a, b *Listing) float64 {
	v1, v2 := a.Value(), b.Value()
	if v1 == 0 || v2 == 0 {
		return neutralValueRange
	}
	return math.Min(v1, v2) / math.Max(v1, v2)
}

func Urgency(a, b *Listing) float64 {
	if a.Urgent || b.Urgent {
		return urgentScore
	}
	return nonUrgentScore
}

// SemanticSimilarity is the Jaccard similarity of the extracted keyword sets.
func SemanticSimilarity(a, b *Listing) float64 {
	return jaccard(ExtractKeywords(a), ExtractKeywords(b))
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
