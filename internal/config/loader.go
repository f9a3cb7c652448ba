package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "autocrm.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("AUTOCRM_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AUTOCRM_PORT")
	setString(&cfg.Server.CORSOrigin, "AUTOCRM_CORS_ORIGIN")
	setString(&cfg.Server.BaseURL, "AUTOCRM_BASE_URL")
	setDuration(&cfg.Server.RunTimeout, "AUTOCRM_RUN_TIMEOUT")
	setInt(&cfg.Server.MaxConcurrentRuns, "AUTOCRM_MAX_CONCURRENT_RUNS")

	// Store
	setString(&cfg.Store.Driver, "AUTOCRM_STORE")
	setString(&cfg.Store.Driver, "DATABASE_TYPE")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AUTOCRM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AUTOCRM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AUTOCRM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AUTOCRM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "AUTOCRM_PG_HEALTH_CHECK")
	setString(&cfg.SQLite.Path, "AUTOCRM_SQLITE_PATH")

	setString(&cfg.NATS.URL, "NATS_URL")

	// LLM
	setString(&cfg.LLM.Provider, "AUTOCRM_LLM_PROVIDER")
	setString(&cfg.LLM.URL, "LITELLM_URL")
	setString(&cfg.LLM.APIKey, "AUTOCRM_LLM_API_KEY")
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "litellm":
			setString(&cfg.LLM.APIKey, "LITELLM_MASTER_KEY")
		case "openai":
			setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
	setString(&cfg.LLM.Model, "AUTOCRM_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "AUTOCRM_LLM_TIMEOUT")
	setInt(&cfg.LLM.MaxRetries, "AUTOCRM_LLM_MAX_RETRIES")
	setDuration(&cfg.LLM.RetryDelay, "AUTOCRM_LLM_RETRY_DELAY")

	setString(&cfg.Logging.Level, "AUTOCRM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AUTOCRM_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AUTOCRM_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "AUTOCRM_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AUTOCRM_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "AUTOCRM_RATE_RPS")
	setInt(&cfg.Rate.Burst, "AUTOCRM_RATE_BURST")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "AUTOCRM_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "AUTOCRM_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "AUTOCRM_CACHE_L2_TTL")

	setString(&cfg.Idempotency.Bucket, "AUTOCRM_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "AUTOCRM_IDEMPOTENCY_TTL")

	setFloat64(&cfg.Approval.Ceiling, "AUTOCRM_APPROVAL_CEILING")
	setString(&cfg.Approval.KeyHash, "AUTOCRM_APPROVER_KEY_HASH")

	setBool(&cfg.MCP.Enabled, "AUTOCRM_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "AUTOCRM_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "AUTOCRM_MCP_API_KEY")

	setString(&cfg.Notify.SlackWebhookURL, "AUTOCRM_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "AUTOCRM_DISCORD_WEBHOOK_URL")

	setBool(&cfg.OTel.Enabled, "AUTOCRM_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "AUTOCRM_OTEL_INSECURE")
	setFloat64(&cfg.OTel.SampleRate, "AUTOCRM_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver %q must be postgres, sqlite or memory", cfg.Store.Driver)
	}
	switch cfg.LLM.Provider {
	case "litellm":
		if cfg.LLM.URL == "" {
			return errors.New("llm.url is required for litellm")
		}
	case "openai":
	default:
		return fmt.Errorf("llm.provider %q must be litellm or openai", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if cfg.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}
	if cfg.Server.MaxConcurrentRuns < 0 {
		return errors.New("server.max_concurrent_runs must be >= 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Approval.Ceiling <= 0 {
		return errors.New("approval.ceiling must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
