// internal/app/infra.go
package app

import (
	"context"
	"errors"
	"time"

	"exchange-matcher/internal/common/config"
	"exchange-matcher/internal/common/database"
	"exchange-matcher/internal/common/logger"

	"github.com/jmoiron/sqlx"
)

// Infrastructure holds the shared backing-service connections. Elastic and
// Redis are nil when the configuration does not call for them.
type Infrastructure struct {
	Postgres *database.PostgresClient
	DB       *sqlx.DB
	Elastic  *database.ElasticsearchClient
	Redis    *database.RedisClient
}

// ConnectOptions controls which optional services Connect dials.
type ConnectOptions struct {
	Elasticsearch bool
	Redis         bool
	Attempts      int
	InitialDelay  time.Duration
}

// Connect dials postgres and, when asked, Elasticsearch and Redis, retrying
// each with exponential backoff.
func Connect(ctx context.Context, cfg *config.Config, opts ConnectOptions, log logger.Logger) (*Infrastructure, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 10
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	infra := &Infrastructure{}

	err := RetryWithBackoff(ctx, func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		infra.Postgres = pg
		return nil
	}, opts.Attempts, opts.InitialDelay, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	infra.DB = sqlx.NewDb(infra.Postgres.DB, "postgres")
	log.Info("PostgreSQL connected", nil)

	if opts.Elasticsearch {
		err := RetryWithBackoff(ctx, func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(); err != nil {
				return err
			}
			infra.Elastic = es
			return nil
		}, opts.Attempts, opts.InitialDelay, log, "Elasticsearch connection")
		if err != nil {
			infra.Close()
			return nil, err
		}
		log.Info("Elasticsearch connected", nil)
	}

	if opts.Redis {
		err := RetryWithBackoff(ctx, func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			infra.Redis = rc
			return nil
		}, opts.Attempts, opts.InitialDelay, log, "Redis connection")
		if err != nil {
			infra.Close()
			return nil, err
		}
		log.Info("Redis connected", nil)
	}

	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.Postgres != nil {
		errs = append(errs, i.Postgres.Close())
	}
	return errors.Join(errs...)
}
