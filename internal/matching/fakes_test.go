package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type memListings struct {
	byID     map[string]Listing
	order    []string
	queryErr error
	queries  []CandidateQuery
	cursors  []string
	// onList runs after each ListActive page is cut.
	onList func(afterID string)
}

func newMemListings(ls ...Listing) *memListings {
	m := &memListings{byID: map[string]Listing{}}
	for _, l := range ls {
		m.byID[l.ID] = l
		m.order = append(m.order, l.ID)
	}
	return m
}

func (m *memListings) GetListing(_ context.Context, id string) (*Listing, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
	}
	return &l, nil
}

// QueryCandidates returns every stored listing and leaves filtering to the
// selector, like a lossy backend would.
func (m *memListings) QueryCandidates(_ context.Context, q CandidateQuery) ([]Listing, error) {
	m.queries = append(m.queries, q)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]Listing, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *memListings) ListActive(_ context.Context, afterID string, limit int) ([]Listing, error) {
	var active []Listing
	for _, l := range m.byID {
		if l.IsActive() && l.ID > afterID {
			active = append(active, l)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	m.cursors = append(m.cursors, afterID)
	page := active[:min(limit, len(active))]
	if m.onList != nil {
		m.onList(afterID)
	}
	return page, nil
}

type memReputation struct {
	ratings map[string]float64
	trust   map[string]float64
	err     error

	mu    sync.Mutex
	calls map[string]int
}

func (m *memReputation) Rating(_ context.Context, userID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[userID]++
	if m.err != nil {
		return 0, m.err
	}
	if r, ok := m.ratings[userID]; ok {
		return r, nil
	}
	return DefaultRating, nil
}

func (m *memReputation) Trust(_ context.Context, userID string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if t, ok := m.trust[userID]; ok {
		return t, nil
	}
	return DefaultTrust, nil
}

type memMatches struct {
	mu       sync.Mutex
	matches  map[string]*Match
	seq      int
	storeErr error
	listErr  error
}

func newMemMatches(ms ...Match) *memMatches {
	store := &memMatches{matches: map[string]*Match{}}
	for i := range ms {
		m := ms[i]
		if m.ID == "" {
			store.seq++
			m.ID = fmt.Sprintf("m-%d", store.seq)
		}
		store.matches[m.ID] = &m
	}
	return store
}

func (s *memMatches) Store(_ context.Context, m Match) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return "", s.storeErr
	}
	for id, existing := range s.matches {
		if existing.ListingID == m.ListingID && existing.MatchedListingID == m.MatchedListingID && existing.Status == m.Status {
			return id, nil
		}
	}
	s.seq++
	m.ID = fmt.Sprintf("m-%d", s.seq)
	s.matches[m.ID] = &m
	return m.ID, nil
}

func (s *memMatches) UpdateStatus(_ context.Context, id string, status MatchStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	m.Status = status
	m.FeedbackAt = &at
	return nil
}

func (s *memMatches) Get(_ context.Context, id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMatches) ListByStatus(_ context.Context, statuses []MatchStatus, since time.Time) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Match
	for _, m := range s.matches {
		if m.CreatedAt.Before(since) {
			continue
		}
		for _, st := range statuses {
			if m.Status == st {
				out = append(out, *m)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memWeightConfig struct {
	weights Weights
	last    *time.Time
	found   bool
	saveErr error
	loadErr error
	saves   int
}

func (m *memWeightConfig) Load(context.Context) (Weights, *time.Time, bool, error) {
	if m.loadErr != nil {
		return Weights{}, nil, false, m.loadErr
	}
	return m.weights, m.last, m.found, nil
}

func (m *memWeightConfig) Save(_ context.Context, w Weights, at time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.weights, m.found = w, true
	m.last = &at
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) MatchesStored(ctx context.Context, source Listing, matches []Match) error {
	args := m.Called(ctx, source, matches)
	return args.Error(0)
}
