// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"exchange-matcher/internal/matching"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over
// it and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// DATABASE_POSTGRES_HOST overrides database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	setOptimizerDefaults(v)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setOptimizerDefaults registers the optimizer parameters as viper defaults
// so that an explicit zero in the file (low_rate: 0 disables decreases) is
// kept instead of being mistaken for an unset key.
func setOptimizerDefaults(v *viper.Viper) {
	d := matching.DefaultOptimizerConfig()
	v.SetDefault("optimizer.lookback", d.Lookback)
	v.SetDefault("optimizer.min_samples", d.MinSamples)
	v.SetDefault("optimizer.high_rate", d.HighRate)
	v.SetDefault("optimizer.low_rate", d.LowRate)
	v.SetDefault("optimizer.increase_factor", d.IncreaseFactor)
	v.SetDefault("optimizer.decrease_factor", d.DecreaseFactor)
	v.SetDefault("optimizer.max_weight", d.MaxWeight)
	v.SetDefault("optimizer.min_weight", d.MinWeight)
}

// loadEnvFile loads the first .env found from the working directory upwards.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		if val := os.Getenv("MATCH_TOPIC_ARN"); val != "" {
			cfg.Notifications.SNS.TopicARN = val
		}
	}
	if cfg.Notifications.NATS.URL == "" {
		if val := os.Getenv("NATS_URL"); val != "" {
			cfg.Notifications.NATS.URL = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL != "" {
		cfg.Database.Elasticsearch.Addresses = []string{cfg.Database.Elasticsearch.URL}
	}
	if cfg.Database.Elasticsearch.ListingIndex == "" {
		cfg.Database.Elasticsearch.ListingIndex = "exchange_listings"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.Matching.CandidateLimit == 0 {
		cfg.Matching.CandidateLimit = matching.DefaultCandidateLimit
	}
	if cfg.Matching.DefaultLimit == 0 {
		cfg.Matching.DefaultLimit = matching.DefaultLimit
	}
	if cfg.Matching.Parallelism == 0 {
		cfg.Matching.Parallelism = 4
	}
	if cfg.Matching.CandidateBackend == "" {
		cfg.Matching.CandidateBackend = BackendPostgres
	}
	if cfg.Matching.ReputationCacheTTL == 0 {
		cfg.Matching.ReputationCacheTTL = 10 * time.Minute
	}
	if cfg.Matching.WeightsRefresh == 0 {
		cfg.Matching.WeightsRefresh = 5 * time.Minute
	}

	if cfg.Optimizer.Interval == 0 {
		cfg.Optimizer.Interval = 7 * 24 * time.Hour
	}
	if cfg.Rebuild.Interval == 0 {
		cfg.Rebuild.Interval = 24 * time.Hour
	}
	if cfg.Rebuild.PageSize == 0 {
		cfg.Rebuild.PageSize = 100
	}

	if cfg.Notifications.MinScore == 0 {
		cfg.Notifications.MinScore = 0.7
	}
	if cfg.Notifications.NATS.SubjectPrefix == "" {
		cfg.Notifications.NATS.SubjectPrefix = "matches.suggested"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.Matching.CandidateBackend {
	case BackendPostgres:
	case BackendElasticsearch:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch backend")
		}
	default:
		return fmt.Errorf("matching.candidate_backend must be %q or %q, got %q",
			BackendPostgres, BackendElasticsearch, cfg.Matching.CandidateBackend)
	}

	p := cfg.Optimizer.Params
	if p.Lookback <= 0 || p.MinSamples < 1 {
		return fmt.Errorf("optimizer.lookback and optimizer.min_samples must be positive")
	}
	if p.LowRate < 0 || p.MinWeight < 0 || p.MaxWeight <= 0 || p.MaxWeight > 1 {
		return fmt.Errorf("optimizer rates and weight bounds must lie within [0, 1]")
	}
	if p.IncreaseFactor < 1 || p.DecreaseFactor <= 0 || p.DecreaseFactor > 1 {
		return fmt.Errorf("optimizer.increase_factor must be >= 1 and optimizer.decrease_factor within (0, 1]")
	}
	if cfg.Optimizer.Params.LowRate >= cfg.Optimizer.Params.HighRate {
		return fmt.Errorf("optimizer.low_rate must be below optimizer.high_rate")
	}
	if cfg.Optimizer.Params.MinWeight >= cfg.Optimizer.Params.MaxWeight {
		return fmt.Errorf("optimizer.min_weight must be below optimizer.max_weight")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.NATS.Enabled && cfg.Notifications.NATS.URL == "" {
		return fmt.Errorf("notifications.nats.url is required when nats is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
