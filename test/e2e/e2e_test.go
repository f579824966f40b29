//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exchange-matcher/internal/app"
	"exchange-matcher/internal/common/camunda"
	"exchange-matcher/internal/common/config"
	"exchange-matcher/internal/common/database"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/matching"
	"exchange-matcher/internal/storage/postgres"
	"exchange-matcher/internal/storage/search"
	fm "exchange-matcher/internal/workers/matching/find-matches"
	"exchange-matcher/migrations"
)

var zeebe *camunda.Client

func TestMain(m *testing.M) {
	var err error
	zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	code := m.Run()

	zeebe.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	// Always target the local docker-compose stack.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"

	log := logger.NewZapAdapter(zap.NewNop())

	require.NoError(t, zeebe.HealthCheck(ctx), "zeebe topology request failed")
	require.NoError(t, migrations.Up(cfg.Database.Postgres.MigrateURL()))

	infra, err := app.Connect(ctx, cfg, app.ConnectOptions{
		Elasticsearch: true,
		Redis:         true,
		Attempts:      3,
		InitialDelay:  time.Second,
	}, log)
	require.NoError(t, err)
	defer infra.Close()

	seedListings(t, infra.DB)

	engine, err := app.BuildEngine(ctx, cfg, app.EngineDeps{
		DB:    infra.DB,
		Redis: infra.Redis.Client,
	}, log)
	require.NoError(t, err)

	t.Run("generate and feedback", func(t *testing.T) {
		stored, err := engine.GenerateMatches(ctx, "e2e-give", 10)
		require.NoError(t, err)
		require.NotEmpty(t, stored)
		assert.Equal(t, "e2e-req-1", stored[0].MatchedListingID)

		m, err := engine.RecordFeedback(ctx, stored[0].ID, matching.MatchInterested)
		require.NoError(t, err)
		assert.Equal(t, matching.MatchInterested, m.Status)
	})

	t.Run("find-matches worker", func(t *testing.T) {
		h := fm.NewHandler(fm.LoadConfig(), engine, observability.NewNoop(), log)
		out, err := h.Execute(ctx, &fm.Input{ListingID: "e2e-give", Limit: 5})
		require.NoError(t, err)
		assert.Positive(t, out.Count)
	})

	t.Run("optimize", func(t *testing.T) {
		res, err := engine.Optimize(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, res.After.Sum(), 1e-9)
	})

	t.Run("elasticsearch candidates", func(t *testing.T) {
		index := cfg.Database.Elasticsearch.ListingIndex + "_e2e"
		require.NoError(t, infra.Elastic.EnsureIndex(ctx, index, database.ListingIndexMapping))

		src := postgres.NewListingStore(infra.DB)
		dst := search.NewListingStore(infra.Elastic.Client, index)
		active, err := src.ListActive(ctx, "", 100)
		require.NoError(t, err)
		for _, l := range active {
			require.NoError(t, dst.IndexListing(ctx, l))
		}

		require.Eventually(t, func() bool {
			got, err := dst.GetListing(ctx, "e2e-req-1")
			return err == nil && got.OwnerID == "e2e-u2"
		}, 10*time.Second, 500*time.Millisecond)
	})
}

func seedListings(t *testing.T, db *sqlx.DB) {
	t.Helper()
	stmts := []string{
		`DELETE FROM exchange_matches WHERE listing_id LIKE 'e2e-%'`,
		`INSERT INTO exchange_listings (id, owner_id, kind, categories, title, item_condition, lat, lng, eco_points, status)
		 VALUES ('e2e-give', 'e2e-u1', 'give_away', '{electronics}', 'Laptop', 'good', 52.52, 13.405, 20, 'active')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO exchange_listings (id, owner_id, kind, categories, title, item_condition, lat, lng, eco_points, status)
		 VALUES ('e2e-req-1', 'e2e-u2', 'request', '{electronics}', 'Need a laptop', 'good', 52.53, 13.41, 10, 'active')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO exchange_listings (id, owner_id, kind, categories, title, item_condition, eco_points, status)
		 VALUES ('e2e-req-2', 'e2e-u3', 'request', '{electronics}', 'Any old laptop', 'needs_repair', 10, 'active')
		 ON CONFLICT (id) DO NOTHING`,
	}
	for _, q := range stmts {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
}
