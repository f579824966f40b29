// internal/matching/factors.go
package matching

import (
	"encoding/json"
	"fmt"
	"math"
)

// Factor identifies one of the scoring dimensions.
type Factor int

const (
	FactorCategoryMatch Factor = iota
	FactorLocationProximity
	FactorEnvironmentalImpact
	FactorUserCompatibility
	FactorItemCondition
	FactorValueRange
	FactorUrgency

	NumFactors
)

var factorNames = [NumFactors]string{
	FactorCategoryMatch:       "category_match",
	FactorLocationProximity:   "location_proximity",
	FactorEnvironmentalImpact: "environmental_impact",
	FactorUserCompatibility:   "user_compatibility",
	FactorItemCondition:       "item_condition",
	FactorValueRange:          "value_range",
	FactorUrgency:             "urgency",
}

// AllFactors returns every factor in declaration order.
func AllFactors() []Factor {
	out := make([]Factor, NumFactors)
	for i := range out {
		out[i] = Factor(i)
	}
	return out
}

func (f Factor) Valid() bool {
	return f >= 0 && f < NumFactors
}

func (f Factor) String() string {
	if !f.Valid() {
		return fmt.Sprintf("factor(%d)", int(f))
	}
	return factorNames[f]
}

// ParseFactor resolves a snake_case factor name.
func ParseFactor(name string) (Factor, error) {
	for i, n := range factorNames {
		if n == name {
			return Factor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", name)
}

func (f Factor) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid factor %d", int(f))
	}
	return json.Marshal(f.String())
}

func (f *Factor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseFactor(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FactorScores holds one sub-score per factor.
type FactorScores [NumFactors]float64

func (s FactorScores) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toMap())
}

func (s FactorScores) toMap() map[string]float64 {
	m := make(map[string]float64, NumFactors)
	for i, v := range s {
		m[factorNames[i]] = v
	}
	return m
}

// Weights is the per-factor importance vector. A normalized vector sums to 1.
type Weights [NumFactors]float64

// DefaultWeights returns the built-in weight vector.
func DefaultWeights() Weights {
	return Weights{
		FactorCategoryMatch:       0.25,
		FactorLocationProximity:   0.20,
		FactorEnvironmentalImpact: 0.15,
		FactorUserCompatibility:   0.15,
		FactorItemCondition:       0.10,
		FactorValueRange:          0.10,
		FactorUrgency:             0.05,
	}
}

func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Normalize rescales w to sum to 1. Negative and NaN entries count as zero; a
// vector with nothing positive left falls back to DefaultWeights.
func (w Weights) Normalize() Weights {
	var out Weights
	var sum float64
	for i, v := range w {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
			sum += v
		}
	}
	if sum <= 0 {
		return DefaultWeights()
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Map returns the vector keyed by factor name.
func (w Weights) Map() map[string]float64 {
	return FactorScores(w).toMap()
}

func (w Weights) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Map())
}

// UnmarshalJSON accepts an object keyed by factor name. Unknown keys are
// ignored and missing factors keep their default weight.
func (w *Weights) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := DefaultWeights()
	for name, v := range raw {
		f, err := ParseFactor(name)
		if err != nil {
			continue
		}
		out[f] = v
	}
	*w = out
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
