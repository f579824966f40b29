// internal/app/engine.go
package app

import (
	"context"
	"fmt"

	"exchange-matcher/internal/common/aws"
	"exchange-matcher/internal/common/config"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/matching"
	"exchange-matcher/internal/notify"
	"exchange-matcher/internal/storage/cache"
	"exchange-matcher/internal/storage/postgres"
	"exchange-matcher/internal/storage/search"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// EngineDeps are the connections BuildEngine draws on. Elastic is required
// only for the elasticsearch candidate backend; Redis and Notifier are
// optional.
type EngineDeps struct {
	DB       *sqlx.DB
	Elastic  *elasticsearch.Client
	Redis    redis.Cmdable
	Notifier matching.Notifier
}

// BuildEngine assembles the matching engine from configuration. The
// persisted weight vector is loaded before the engine is returned; a load
// failure keeps the defaults and is only logged.
func BuildEngine(ctx context.Context, cfg *config.Config, deps EngineDeps, log logger.Logger) (*matching.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("postgres connection is required")
	}

	var listings matching.ListingStore
	switch cfg.Matching.CandidateBackend {
	case config.BackendElasticsearch:
		if deps.Elastic == nil {
			return nil, fmt.Errorf("candidate backend %q needs an elasticsearch client", cfg.Matching.CandidateBackend)
		}
		listings = search.NewListingStore(deps.Elastic, cfg.Database.Elasticsearch.ListingIndex)
	case config.BackendPostgres, "":
		listings = postgres.NewListingStore(deps.DB)
	default:
		return nil, fmt.Errorf("unknown candidate backend %q", cfg.Matching.CandidateBackend)
	}

	var reputation matching.ReputationService = postgres.NewReputationStore(deps.DB)
	if deps.Redis != nil {
		reputation = cache.NewReputationCache(reputation, deps.Redis, cfg.Matching.ReputationCacheTTL, log)
	}

	matches := postgres.NewMatchStore(deps.DB)
	weights := matching.NewWeightStore(postgres.NewWeightStore(deps.DB))
	if w, err := weights.Load(ctx); err != nil {
		log.Warn("could not load persisted weights, using defaults", map[string]interface{}{"error": err})
	} else {
		log.Info("weights loaded", map[string]interface{}{"weights": w.Map()})
	}

	ranker := matching.NewRanker(
		matching.RankerConfig{
			DefaultLimit: cfg.Matching.DefaultLimit,
			Parallelism:  cfg.Matching.Parallelism,
		},
		listings,
		matching.NewSelector(listings, cfg.Matching.CandidateLimit),
		matching.NewScorer(matching.Haversine{}),
		weights,
		reputation,
		log,
	)
	optimizer := matching.NewOptimizer(cfg.Optimizer.Params, matches, weights, log)

	var opts []matching.EngineOption
	if deps.Notifier != nil {
		opts = append(opts, matching.WithNotifier(deps.Notifier))
	}
	return matching.NewEngine(ranker, optimizer, listings, matches, log, opts...), nil
}

// BuildNotifier connects every enabled notification channel. It returns a
// nil Notifier when none is enabled. The returned func closes the channels.
func BuildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (matching.Notifier, func(), error) {
	var channels []notify.Channel
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	n := cfg.Notifications

	if n.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, n.SNS.Region)
		if err != nil {
			return nil, cleanup, err
		}
		channels = append(channels, notify.NewSNSNotifier(client, n.SNS.TopicARN, n.MinScore, log))
	}

	if n.NATS.Enabled {
		natsCfg := notify.DefaultNATSConfig()
		natsCfg.URL = n.NATS.URL
		if cfg.App.Name != "" {
			natsCfg.Name = cfg.App.Name
		}
		nc, err := notify.Connect(natsCfg, log)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := nc.Drain(); err != nil {
				log.Warn("nats drain failed", map[string]interface{}{"error": err})
			}
		})
		channels = append(channels, notify.NewNATSNotifier(nc, n.NATS.SubjectPrefix, n.MinScore))
	}

	if len(channels) == 0 {
		return nil, cleanup, nil
	}
	log.Info("match notifications enabled", map[string]interface{}{"channels": len(channels)})
	return notify.NewFanout(log, channels...), cleanup, nil
}
