// internal/matching/engine.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/metrics"
)

// Engine ties ranking to match persistence and feedback.
type Engine struct {
	ranker    *Ranker
	optimizer *Optimizer
	listings  ListingStore
	matches   MatchStore
	notifier  Notifier
	logger    logger.Logger
	now       func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithNotifier sets the channel told about newly stored matches.
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	ranker *Ranker,
	optimizer *Optimizer,
	listings ListingStore,
	matches MatchStore,
	log logger.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		ranker:    ranker,
		optimizer: optimizer,
		listings:  listings,
		matches:   matches,
		logger:    log.Named("engine"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Ranker() *Ranker {
	return e.ranker
}

func (e *Engine) Optimizer() *Optimizer {
	return e.optimizer
}

// Listing loads a listing from the engine's store. The second return is
// false when the listing does not exist.
func (e *Engine) Listing(ctx context.Context, id string) (*Listing, bool, error) {
	l, err := e.listings.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, true, nil
}

// GenerateMatches ranks the listing and persists every result as a suggested
// match. A store failure aborts and is returned; matches already written
// stay written and are reported in the returned slice.
func (e *Engine) GenerateMatches(ctx context.Context, listingID string, limit int) ([]Match, error) {
	source, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return []Match{}, nil
		}
		return nil, fmt.Errorf("get listing %s: %w", listingID, err)
	}
	results, err := e.ranker.FindMatches(ctx, source, limit)
	if err != nil {
		return nil, err
	}
	return e.StoreResults(ctx, *source, results)
}

// StoreResults persists ranked results for source and notifies on success.
func (e *Engine) StoreResults(ctx context.Context, source Listing, results []Result) ([]Match, error) {
	now := e.now()
	stored := make([]Match, 0, len(results))
	for _, r := range results {
		m := NewMatch(source, r, now)
		id, err := e.matches.Store(ctx, m)
		if err != nil {
			return stored, fmt.Errorf("store match %s->%s: %w", source.ID, r.Listing.ID, err)
		}
		m.ID = id
		stored = append(stored, m)
	}
	metrics.MatchesStored.Add(float64(len(stored)))

	if e.notifier != nil && len(stored) > 0 {
		if err := e.notifier.MatchesStored(ctx, source, stored); err != nil {
			// Matches are already persisted; a notification miss is not fatal.
			e.logger.Warn("match notification failed", map[string]interface{}{
				"listingId": source.ID,
				"matches":   len(stored),
				"error":     err,
			})
		}
	}
	return stored, nil
}

// RecordFeedback moves a match to status and stamps the feedback time.
func (e *Engine) RecordFeedback(ctx context.Context, matchID string, status MatchStatus) (*Match, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	m, err := e.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, status)
	}

	at := e.now().UTC()
	if err := e.matches.UpdateStatus(ctx, matchID, status, at); err != nil {
		return nil, fmt.Errorf("update match %s: %w", matchID, err)
	}
	m.Status = status
	m.FeedbackAt = &at

	e.logger.Info("match feedback recorded", map[string]interface{}{
		"matchId": matchID,
		"status":  string(status),
	})
	return m, nil
}

// RebuildStats summarizes a catalogue rebuild.
type RebuildStats struct {
	ListingsProcessed int `json:"listingsProcessed"`
	MatchesStored     int `json:"matchesStored"`
	Failures          int `json:"failures"`
}

// RebuildAll pages through every active listing and regenerates its
// matches. A failing listing is logged and counted, and the rebuild moves on.
func (e *Engine) RebuildAll(ctx context.Context, pageSize, limit int) (RebuildStats, error) {
	var stats RebuildStats
	if pageSize <= 0 {
		pageSize = 100
	}

	for after := ""; ; {
		page, err := e.listings.ListActive(ctx, after, pageSize)
		if err != nil {
			return stats, fmt.Errorf("list active listings after %q: %w", after, err)
		}
		for i := range page {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.ListingsProcessed++

			results, err := e.ranker.FindMatches(ctx, &page[i], limit)
			if err == nil {
				var stored []Match
				stored, err = e.StoreResults(ctx, page[i], results)
				stats.MatchesStored += len(stored)
			}
			if err != nil {
				stats.Failures++
				e.logger.Error("rebuild failed for listing", map[string]interface{}{
					"listingId": page[i].ID,
					"error":     err,
				})
			}
		}
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	e.logger.Info("match rebuild completed", map[string]interface{}{
		"listingsProcessed": stats.ListingsProcessed,
		"matchesStored":     stats.MatchesStored,
		"failures":          stats.Failures,
	})
	return stats, nil
}

// RefreshWeights reloads the persisted weight vector so this process scores
// with passes made elsewhere.
func (e *Engine) RefreshWeights(ctx context.Context) (Weights, error) {
	return e.ranker.Weights().Load(ctx)
}

// Optimize runs one weight optimization pass.
func (e *Engine) Optimize(ctx context.Context) (OptimizationResult, error) {
	return e.optimizer.Run(ctx, e.now())
}
