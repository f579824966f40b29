// Package memory holds in-memory implementations of the matching store
// interfaces, used by worker tests and local runs without infrastructure.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"exchange-matcher/internal/matching"
)

type ListingStore struct {
	mu    sync.RWMutex
	byID  map[string]matching.Listing
	order []string
}

func NewListingStore(listings ...matching.Listing) *ListingStore {
	s := &ListingStore{byID: map[string]matching.Listing{}}
	for _, l := range listings {
		s.Put(l)
	}
	return s
}

// Put inserts or replaces a listing.
func (s *ListingStore) Put(l matching.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.byID[l.ID] = l
}

func (s *ListingStore) GetListing(_ context.Context, id string) (*matching.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", matching.ErrListingNotFound, id)
	}
	return &l, nil
}

func (s *ListingStore) QueryCandidates(_ context.Context, q matching.CandidateQuery) ([]matching.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []matching.Listing
	for _, id := range s.order {
		l := s.byID[id]
		if l.ID == q.ExcludeID || (q.ActiveOnly && !l.IsActive()) {
			continue
		}
		if len(q.Kinds) > 0 && !kindIn(q.Kinds, l.Kind) {
			continue
		}
		if len(q.Categories) > 0 && !l.HasCategory(q.Categories) {
			continue
		}
		out = append(out, l)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *ListingStore) ListActive(_ context.Context, afterID string, limit int) ([]matching.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []matching.Listing
	for _, l := range s.byID {
		if l.IsActive() && l.ID > afterID {
			active = append(active, l)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active[:min(limit, len(active))], nil
}

func kindIn(kinds []matching.Kind, k matching.Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// MatchStore assigns sequential ids m-1, m-2, ...
type MatchStore struct {
	mu      sync.Mutex
	matches map[string]matching.Match
	seq     int
}

func NewMatchStore(existing ...matching.Match) *MatchStore {
	s := &MatchStore{matches: map[string]matching.Match{}}
	for _, m := range existing {
		if m.ID == "" {
			s.seq++
			m.ID = fmt.Sprintf("m-%d", s.seq)
		}
		s.matches[m.ID] = m
	}
	return s
}

func (s *MatchStore) Store(_ context.Context, m matching.Match) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.matches {
		if existing.ListingID == m.ListingID && existing.MatchedListingID == m.MatchedListingID && existing.Status == m.Status {
			return id, nil
		}
	}
	s.seq++
	m.ID = fmt.Sprintf("m-%d", s.seq)
	s.matches[m.ID] = m
	return m.ID, nil
}

func (s *MatchStore) UpdateStatus(_ context.Context, id string, status matching.MatchStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("%w: %s", matching.ErrMatchNotFound, id)
	}
	m.Status = status
	m.FeedbackAt = &at
	s.matches[id] = m
	return nil
}

func (s *MatchStore) Get(_ context.Context, id string) (*matching.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", matching.ErrMatchNotFound, id)
	}
	return &m, nil
}

func (s *MatchStore) ListByStatus(_ context.Context, statuses []matching.MatchStatus, since time.Time) ([]matching.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []matching.Match
	for _, m := range s.matches {
		if m.CreatedAt.Before(since) {
			continue
		}
		for _, st := range statuses {
			if m.Status == st {
				out = append(out, m)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// All returns every stored match ordered by id.
func (s *MatchStore) All() []matching.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]matching.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type WeightStore struct {
	mu            sync.Mutex
	weights       *matching.Weights
	lastOptimized *time.Time
}

func NewWeightStore() *WeightStore {
	return &WeightStore{}
}

func (s *WeightStore) Load(context.Context) (matching.Weights, *time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weights == nil {
		return matching.Weights{}, nil, false, nil
	}
	return *s.weights, s.lastOptimized, true, nil
}

func (s *WeightStore) Save(_ context.Context, w matching.Weights, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = &w
	s.lastOptimized = &at
	return nil
}

// ReputationStore serves fixed values; unknown users get the defaults.
type ReputationStore struct {
	Ratings     map[string]float64
	TrustScores map[string]float64
}

func (s *ReputationStore) Rating(_ context.Context, userID string) (float64, error) {
	if r, ok := s.Ratings[userID]; ok {
		return r, nil
	}
	return matching.DefaultRating, nil
}

func (s *ReputationStore) Trust(_ context.Context, userID string) (float64, error) {
	if t, ok := s.TrustScores[userID]; ok {
		return t, nil
	}
	return matching.DefaultTrust, nil
}
