package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: exchange
    user: matcher
    password: ${TEST_MATCHER_DB_PASSWORD}
workers:
  find-matches:
    enabled: true
`

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_MATCHER_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "exchange_listings", cfg.Database.Elasticsearch.ListingIndex)

	assert.Equal(t, 50, cfg.Matching.CandidateLimit)
	assert.Equal(t, 10, cfg.Matching.DefaultLimit)
	assert.Equal(t, BackendPostgres, cfg.Matching.CandidateBackend)
	assert.Equal(t, 10*time.Minute, cfg.Matching.ReputationCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Matching.WeightsRefresh)

	assert.Equal(t, 7*24*time.Hour, cfg.Optimizer.Interval)
	assert.Equal(t, 90*24*time.Hour, cfg.Optimizer.Params.Lookback)
	assert.Equal(t, 10, cfg.Optimizer.Params.MinSamples)
	assert.Equal(t, 0.4, cfg.Optimizer.Params.MaxWeight)

	wc := cfg.Workers["find-matches"]
	assert.True(t, wc.Enabled)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 30000, wc.Timeout)

	assert.Equal(t, "matches.suggested", cfg.Notifications.NATS.SubjectPrefix)
	assert.Equal(t, ":8080", cfg.Metrics.Address)
}

func TestLoadFromFile_OptimizerOverrides(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+`
optimizer:
  enabled: true
  interval: 24h
  lookback: 720h
  min_samples: 25
  high_rate: 0.8
  increase_factor: 1.2
`))
	require.NoError(t, err)

	assert.True(t, cfg.Optimizer.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Optimizer.Interval)
	assert.Equal(t, 720*time.Hour, cfg.Optimizer.Params.Lookback)
	assert.Equal(t, 25, cfg.Optimizer.Params.MinSamples)
	assert.Equal(t, 0.8, cfg.Optimizer.Params.HighRate)
	assert.Equal(t, 1.2, cfg.Optimizer.Params.IncreaseFactor)
	assert.Equal(t, 0.3, cfg.Optimizer.Params.LowRate)
}

func TestLoadFromFile_OptimizerExplicitZeroKept(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+`
optimizer:
  low_rate: 0
  min_weight: 0
`))
	require.NoError(t, err)

	assert.Zero(t, cfg.Optimizer.Params.LowRate)
	assert.Zero(t, cfg.Optimizer.Params.MinWeight)
	assert.Equal(t, 0.7, cfg.Optimizer.Params.HighRate)
	assert.Equal(t, 0.9, cfg.Optimizer.Params.DecreaseFactor)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name:    "unknown backend",
			extra:   "matching:\n  candidate_backend: mongo\n",
			wantErr: "candidate_backend",
		},
		{
			name:    "elasticsearch backend without addresses",
			extra:   "matching:\n  candidate_backend: elasticsearch\n",
			wantErr: "elasticsearch",
		},
		{
			name:    "inverted optimizer rates",
			extra:   "optimizer:\n  high_rate: 0.2\n  low_rate: 0.5\n",
			wantErr: "low_rate",
		},
		{
			name:    "negative lookback",
			extra:   "optimizer:\n  lookback: -1h\n",
			wantErr: "lookback",
		},
		{
			name:    "decrease factor above one",
			extra:   "optimizer:\n  decrease_factor: 1.5\n",
			wantErr: "decrease_factor",
		},
		{
			name:    "sns without topic",
			extra:   "notifications:\n  sns:\n    enabled: true\n",
			wantErr: "topic_arn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, minimalYAML+tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingBroker(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "database:\n  postgres:\n    host: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker_address")
}

func TestPostgresConfig_URLs(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, Database: "exchange", User: "u", Password: "p", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=exchange sslmode=require", p.GetDSN())
	assert.Equal(t, "postgres://u:p@db:5433/exchange?sslmode=require", p.MigrateURL())
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"rebuild-matches": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "rebuild-matches"))
	assert.True(t, IsWorkerEnabled(cfg, "find-matches"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "find-matches").Timeout)
}
