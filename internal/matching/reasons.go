// internal/matching/reasons.go
package matching

const (
	ReasonPerfectCategory   = "Perfect category match"
	ReasonSimilarCategories = "Similar categories"
	ReasonVeryClose         = "Very close location"
	ReasonNearby            = "Nearby location"
	ReasonHighImpact        = "High environmental impact"
	ReasonHighlyRated       = "Highly rated users"
	ReasonUrgent            = "Urgent exchange"
)

// reasonFactors attributes legacy reason strings to the factor that produced
// them. Only used for matches stored without factor tags.
var reasonFactors = map[string]Factor{
	ReasonPerfectCategory:   FactorCategoryMatch,
	ReasonSimilarCategories: FactorCategoryMatch,
	ReasonVeryClose:         FactorLocationProximity,
	ReasonNearby:            FactorLocationProximity,
	ReasonHighImpact:        FactorEnvironmentalImpact,
	ReasonHighlyRated:       FactorUserCompatibility,
	ReasonUrgent:            FactorUrgency,
}

// FactorForReason maps a reason string back to its factor.
func FactorForReason(reason string) (Factor, bool) {
	f, ok := reasonFactors[reason]
	return f, ok
}

type reason struct {
	text   string
	factor Factor
}

// explain derives the human-readable reasons for a breakdown, in fixed
// order, each tagged with the factor that triggered it.
func explain(scores FactorScores, urgent bool) []reason {
	var out []reason

	switch cat := scores[FactorCategoryMatch]; {
	case cat > 0.8:
		out = append(out, reason{ReasonPerfectCategory, FactorCategoryMatch})
	case cat > 0.5:
		out = append(out, reason{ReasonSimilarCategories, FactorCategoryMatch})
	}

	switch loc := scores[FactorLocationProximity]; {
	case loc > 0.8:
		out = append(out, reason{ReasonVeryClose, FactorLocationProximity})
	case loc > 0.5:
		out = append(out, reason{ReasonNearby, FactorLocationProximity})
	}

	if scores[FactorEnvironmentalImpact] > 0.7 {
		out = append(out, reason{ReasonHighImpact, FactorEnvironmentalImpact})
	}
	if scores[FactorUserCompatibility] > 0.8 {
		out = append(out, reason{ReasonHighlyRated, FactorUserCompatibility})
	}
	if urgent {
		out = append(out, reason{ReasonUrgent, FactorUrgency})
	}
	return out
}
