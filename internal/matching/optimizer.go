// internal/matching/optimizer.go
package matching

import (
	"context"
	"fmt"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/metrics"
)

// OptimizerConfig holds the adjustment heuristic's parameters. The defaults
// reproduce the historical behaviour; none of them has a statistical basis.
type OptimizerConfig struct {
	Lookback       time.Duration `mapstructure:"lookback"`
	MinSamples     int           `mapstructure:"min_samples"`
	HighRate       float64       `mapstructure:"high_rate"`
	LowRate        float64       `mapstructure:"low_rate"`
	IncreaseFactor float64       `mapstructure:"increase_factor"`
	DecreaseFactor float64       `mapstructure:"decrease_factor"`
	MaxWeight      float64       `mapstructure:"max_weight"`
	MinWeight      float64       `mapstructure:"min_weight"`
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Lookback:       90 * 24 * time.Hour,
		MinSamples:     10,
		HighRate:       0.7,
		LowRate:        0.3,
		IncreaseFactor: 1.1,
		DecreaseFactor: 0.9,
		MaxWeight:      0.4,
		MinWeight:      0.05,
	}
}

// withDefaults returns DefaultOptimizerConfig for the zero value. Any other
// config is used as given, so zero thresholds and floors stay meaningful.
func (c OptimizerConfig) withDefaults() OptimizerConfig {
	if c == (OptimizerConfig{}) {
		return DefaultOptimizerConfig()
	}
	return c
}

// OptimizationResult reports one optimizer pass.
type OptimizationResult struct {
	Skipped    bool         `json:"skipped"`
	SampleSize int          `json:"sampleSize"`
	Rates      FactorScores `json:"rates"`
	Before     Weights      `json:"before"`
	After      Weights      `json:"after"`
	RanAt      time.Time    `json:"ranAt"`
}

// Optimizer nudges the weight vector towards factors that show up in
// successful matches.
type Optimizer struct {
	config  OptimizerConfig
	matches MatchStore
	weights *WeightStore
	logger  logger.Logger
}

func NewOptimizer(config OptimizerConfig, matches MatchStore, weights *WeightStore, log logger.Logger) *Optimizer {
	return &Optimizer{
		config:  config.withDefaults(),
		matches: matches,
		weights: weights,
		logger:  log.Named("optimizer"),
	}
}

func (o *Optimizer) Config() OptimizerConfig {
	return o.config
}

// Run performs one optimization pass as of now. The pass starts from the
// persisted vector, so passes made by other processes are built upon rather
// than overwritten. Too few successful matches in the lookback window is a
// skip, not an error.
func (o *Optimizer) Run(ctx context.Context, now time.Time) (OptimizationResult, error) {
	before, err := o.weights.Load(ctx)
	result := OptimizationResult{Before: before, After: before, RanAt: now.UTC()}
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		return result, err
	}

	since := now.Add(-o.config.Lookback)
	successful, err := o.matches.ListByStatus(ctx, []MatchStatus{MatchContacted, MatchCompleted}, since)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("list successful matches: %w", err)
	}
	result.SampleSize = len(successful)

	if len(successful) < o.config.MinSamples {
		result.Skipped = true
		metrics.OptimizerRuns.WithLabelValues("skipped").Inc()
		o.logger.Info("not enough successful matches, skipping", map[string]interface{}{
			"sampleSize": len(successful),
			"minSamples": o.config.MinSamples,
		})
		return result, nil
	}

	result.Rates = SuccessRates(successful)
	proposed := o.Adjust(before, result.Rates)

	after, err := o.weights.Replace(ctx, proposed, now)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		return result, err
	}
	result.After = after

	for _, f := range AllFactors() {
		metrics.FactorWeight.WithLabelValues(f.String()).Set(after[f])
	}
	metrics.OptimizerRuns.WithLabelValues("applied").Inc()

	o.logger.Info("weights optimized", map[string]interface{}{
		"sampleSize": len(successful),
		"before":     before.Map(),
		"after":      after.Map(),
	})
	return result, nil
}

// Adjust applies the threshold rule to each factor weight and renormalizes.
func (o *Optimizer) Adjust(w Weights, rates FactorScores) Weights {
	c := o.config
	out := w
	for i, rate := range rates {
		switch {
		case rate > c.HighRate:
			out[i] = min(out[i]*c.IncreaseFactor, c.MaxWeight)
		case rate < c.LowRate:
			out[i] = max(out[i]*c.DecreaseFactor, c.MinWeight)
		}
	}
	return out.Normalize()
}

// SuccessRates counts, per factor, how often it was credited across matches
// divided by the number of matches. Structured factor tags are preferred;
// untagged rows fall back to their reason strings, and reasons that map to no
// factor are skipped. Two reasons of the same factor on one match both count.
func SuccessRates(matches []Match) FactorScores {
	var rates FactorScores
	if len(matches) == 0 {
		return rates
	}

	var counts [NumFactors]int
	for _, m := range matches {
		if len(m.Factors) > 0 {
			for _, f := range m.Factors {
				if f.Valid() {
					counts[f]++
				}
			}
			continue
		}
		for _, r := range m.Reasons {
			if f, ok := FactorForReason(r); ok {
				counts[f]++
			}
		}
	}

	total := float64(len(matches))
	for i, n := range counts {
		rates[i] = float64(n) / total
	}
	return rates
}
