// internal/workers/matching/optimize-weights/models.go
package optimizeweights

import (
	"time"

	"exchange-matcher/internal/matching"
)

// Input carries no fields; the pass always runs over the configured
// lookback window.
type Input struct{}

type Output struct {
	Skipped         bool                  `json:"skipped"`
	SampleSize      int                   `json:"sampleSize"`
	Weights         matching.Weights      `json:"weights"`
	PreviousWeights matching.Weights      `json:"previousWeights"`
	Rates           matching.FactorScores `json:"rates"`
	RanAt           time.Time             `json:"ranAt"`
}
