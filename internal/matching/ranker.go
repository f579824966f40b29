// internal/matching/ranker.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/metrics"
)

const (
	// MinScore is the fixed acceptance threshold; results must score strictly above it.
	MinScore     = 0.3
	DefaultLimit = 10
)

// Filters are post-hoc constraints for FindMatchesFiltered. Zero values
// disable the corresponding filter.
type Filters struct {
	MaxDistanceKm  float64  `json:"maxDistanceKm,omitempty"`
	MinScore       float64  `json:"minScore,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	MinOwnerRating float64  `json:"minOwnerRating,omitempty"`
}

func (f Filters) empty() bool {
	return f.MaxDistanceKm <= 0 && f.MinScore <= 0 && len(f.Categories) == 0 && f.MinOwnerRating <= 0
}

// RankerConfig tunes the ranking pass.
type RankerConfig struct {
	DefaultLimit int
	// Parallelism bounds the goroutines scoring candidates of a single pass.
	Parallelism int
}

// Ranker scores candidates against a source listing and orders them.
type Ranker struct {
	config     RankerConfig
	listings   ListingStore
	selector   *Selector
	scorer     *Scorer
	weights    *WeightStore
	reputation ReputationService
	logger     logger.Logger
}

func NewRanker(
	config RankerConfig,
	listings ListingStore,
	selector *Selector,
	scorer *Scorer,
	weights *WeightStore,
	reputation ReputationService,
	log logger.Logger,
) *Ranker {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultLimit
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	return &Ranker{
		config:     config,
		listings:   listings,
		selector:   selector,
		scorer:     scorer,
		weights:    weights,
		reputation: reputation,
		logger:     log.Named("ranker"),
	}
}

// Weights exposes the live weight vector used for scoring.
func (r *Ranker) Weights() *WeightStore {
	return r.weights
}

type ranked struct {
	Result
	ownerRating float64
}

// FindMatches returns at most limit candidates scoring above MinScore, best first.
func (r *Ranker) FindMatches(ctx context.Context, source *Listing, limit int) ([]Result, error) {
	metrics.MatchRequests.WithLabelValues("plain").Inc()
	limit = r.limitOrDefault(limit)

	rows, err := r.rank(ctx, source)
	if err != nil {
		return nil, err
	}
	return truncate(rows, limit), nil
}

// FindMatchesByID loads the source listing first. Unknown ids yield an empty
// result rather than an error.
func (r *Ranker) FindMatchesByID(ctx context.Context, id string, limit int) ([]Result, error) {
	source, err := r.listings.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			r.logger.Debug("source listing not found", map[string]interface{}{"listingId": id})
			return []Result{}, nil
		}
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	return r.FindMatches(ctx, source, limit)
}

// FindMatchesFiltered ranks twice the requested number of candidates,
// applies f, then truncates to limit.
func (r *Ranker) FindMatchesFiltered(ctx context.Context, source *Listing, limit int, f Filters) ([]Result, error) {
	metrics.MatchRequests.WithLabelValues("filtered").Inc()
	limit = r.limitOrDefault(limit)

	rows, err := r.rank(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(rows) > 2*limit {
		rows = rows[:2*limit]
	}
	if f.empty() {
		return truncate(rows, limit), nil
	}

	kept := rows[:0]
	for _, row := range rows {
		if f.accepts(row) {
			kept = append(kept, row)
		}
	}
	return truncate(kept, limit), nil
}

// BatchFindMatches runs FindMatchesByID independently for each id.
func (r *Ranker) BatchFindMatches(ctx context.Context, ids []string, limit int) (map[string][]Result, error) {
	metrics.MatchRequests.WithLabelValues("batch").Inc()
	out := make(map[string][]Result, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if _, done := out[id]; done {
			continue
		}
		results, err := r.FindMatchesByID(ctx, id, limit)
		if err != nil {
			return out, err
		}
		out[id] = results
	}
	return out, nil
}

func (f Filters) accepts(row ranked) bool {
	if f.MinScore > 0 && row.Score < f.MinScore {
		return false
	}
	if f.MaxDistanceKm > 0 {
		// Distance is estimated from the proximity sub-score, not recomputed.
		approxKm := (1 - row.Breakdown[FactorLocationProximity]) * maxProximityKm
		if approxKm > f.MaxDistanceKm {
			return false
		}
	}
	if len(f.Categories) > 0 && !row.Listing.HasCategory(f.Categories) {
		return false
	}
	if f.MinOwnerRating > 0 && row.ownerRating < f.MinOwnerRating {
		return false
	}
	return true
}

func (r *Ranker) rank(ctx context.Context, source *Listing) ([]ranked, error) {
	if source == nil || source.ID == "" {
		return []ranked{}, nil
	}
	start := time.Now()
	defer func() { metrics.RankingDuration.Observe(time.Since(start).Seconds()) }()

	candidates, err := r.selector.Candidates(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []ranked{}, nil
	}

	reps := r.reputations(ctx, source, candidates)
	weights := r.weights.Snapshot()
	sourceRep := reps[source.OwnerID]

	scored := make([]*ranked, len(candidates))
	r.forEach(len(candidates), func(i int) {
		c := &candidates[i]
		candRep := reps[c.OwnerID]
		bd := r.scorer.Score(source, c, sourceRep, candRep, weights)
		metrics.MatchScores.Observe(bd.Score)
		if bd.Score <= MinScore {
			return
		}
		scored[i] = &ranked{
			Result: Result{
				Listing:   *c,
				Score:     bd.Score,
				Reasons:   bd.Reasons,
				Factors:   bd.Factors,
				Breakdown: bd.Raw,
			},
			ownerRating: candRep.Rating,
		}
	})
	metrics.CandidatesScored.Add(float64(len(candidates)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]ranked, 0, len(scored))
	for _, s := range scored {
		if s != nil {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	r.logger.Debug("ranking completed", map[string]interface{}{
		"listingId":  source.ID,
		"candidates": len(candidates),
		"accepted":   len(out),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return out, nil
}

// forEach runs fn for every index on at most Parallelism goroutines.
func (r *Ranker) forEach(n int, fn func(i int)) {
	workers := r.config.Parallelism
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		idx <- i
	}
	close(idx)
	wg.Wait()
}

// reputations resolves each distinct owner once. Lookup failures fall back to
// the default rating and trust.
func (r *Ranker) reputations(ctx context.Context, source *Listing, candidates []Listing) map[string]Reputation {
	out := make(map[string]Reputation, len(candidates)+1)
	resolve := func(userID string) {
		if _, ok := out[userID]; ok {
			return
		}
		out[userID] = r.lookupReputation(ctx, userID)
	}
	resolve(source.OwnerID)
	for i := range candidates {
		resolve(candidates[i].OwnerID)
	}
	return out
}

func (r *Ranker) lookupReputation(ctx context.Context, userID string) Reputation {
	rep := DefaultReputation()
	if r.reputation == nil || userID == "" {
		return rep
	}
	if rating, err := r.reputation.Rating(ctx, userID); err != nil {
		r.logger.Warn("rating lookup failed, using default", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	} else {
		rep.Rating = rating
	}
	if trust, err := r.reputation.Trust(ctx, userID); err != nil {
		r.logger.Warn("trust lookup failed, using default", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	} else {
		rep.Trust = trust
	}
	return rep
}

func (r *Ranker) limitOrDefault(limit int) int {
	if limit <= 0 {
		return r.config.DefaultLimit
	}
	return limit
}

func truncate(rows []ranked, limit int) []Result {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]Result, len(rows))
	for i := range rows {
		out[i] = rows[i].Result
	}
	return out
}
