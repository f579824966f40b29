// Package workertest builds an in-memory matching engine and Zeebe job
// fixtures for the worker handler tests.
package workertest

import (
	"encoding/json"
	"testing"
	"time"

	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/matching"
	"exchange-matcher/internal/storage/memory"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
)

// Now is the fixed clock every fixture engine runs on.
var Now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

var berlin = &matching.GeoPoint{Lat: 52.5200, Lng: 13.4050}

// Catalogue seeds listing "a" (a give-away in electronics) together with two
// requests that match it ("b" best, then "c") and several that do not.
func Catalogue() *memory.ListingStore {
	return memory.NewListingStore(
		matching.Listing{ID: "a", OwnerID: "u1", Kind: matching.KindGiveAway, Categories: []string{"electronics"},
			Condition: matching.ConditionGood, EcoPoints: 20, Location: berlin, Status: matching.ListingActive},
		matching.Listing{ID: "b", OwnerID: "u2", Kind: matching.KindRequest, Categories: []string{"electronics"},
			Condition: matching.ConditionGood, EcoPoints: 10, Status: matching.ListingActive},
		matching.Listing{ID: "c", OwnerID: "u3", Kind: matching.KindRequest, Categories: []string{"electronics"},
			Condition: matching.ConditionNeedsRepair, EcoPoints: 10, Status: matching.ListingActive},
		matching.Listing{ID: "d", OwnerID: "u4", Kind: matching.KindGiveAway, Categories: []string{"electronics"},
			Status: matching.ListingActive},
		matching.Listing{ID: "e", OwnerID: "u5", Kind: matching.KindRequest, Categories: []string{"electronics"},
			Status: matching.ListingExpired},
		matching.Listing{ID: "f", OwnerID: "u6", Kind: matching.KindRequest, Categories: []string{"furniture"},
			Status: matching.ListingActive},
	)
}

// Fixture bundles an engine with the stores behind it.
type Fixture struct {
	Engine   *matching.Engine
	Listings *memory.ListingStore
	Matches  *memory.MatchStore
	Weights  *matching.WeightStore
}

// NewFixture wires an engine over the catalogue and the given matches.
func NewFixture(t testing.TB, matches ...matching.Match) *Fixture {
	t.Helper()
	log := loggertest.New(t)
	listings := Catalogue()
	store := memory.NewMatchStore(matches...)
	weights := matching.NewWeightStore(memory.NewWeightStore())

	ranker := matching.NewRanker(
		matching.RankerConfig{Parallelism: 2},
		listings,
		matching.NewSelector(listings, 0),
		matching.NewScorer(matching.Haversine{}),
		weights,
		&memory.ReputationStore{},
		log,
	)
	optimizer := matching.NewOptimizer(matching.OptimizerConfig{}, store, weights, log)
	engine := matching.NewEngine(ranker, optimizer, listings, store, log,
		matching.WithClock(func() time.Time { return Now }))

	return &Fixture{Engine: engine, Listings: listings, Matches: store, Weights: weights}
}

// Job wraps variables into an activated job of taskType.
func Job(taskType string, variables interface{}) entities.Job {
	raw, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                100,
		Type:               taskType,
		ProcessInstanceKey: 1000,
		BpmnProcessId:      "exchange-matching",
		ElementId:          "Activity_" + taskType,
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(raw),
	}}
}
