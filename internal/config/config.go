package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the core runtime's typed configuration, decoded from environment
// variables via envdecode tags with YAML file override support.
type Config struct {
	NodeAgentAddr string `env:"NODE_AGENT_ADDR,default=:7001"`
	CustomerAddr  string `env:"CUSTOMER_API_ADDR,default=:7002"`
	OpsAddr       string `env:"OPS_ADDR,default=:7003"`
	MarketAddr    string `env:"MARKET_CALLBACK_ADDR,default=:7004"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`

	ChainWSEndpoint string `env:"CHAIN_WS_ENDPOINT"`
	ChainID         string `env:"CHAIN_ID"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY"`

	MarketplaceBaseURL string `env:"MARKETPLACE_BASE_URL"`
	CoreSigningKey     string `env:"CORE_SIGNING_KEY"` // base64 ed25519 private key; generated if absent

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	HeartbeatStaleAfter time.Duration `env:"HEARTBEAT_STALE_AFTER,default=90s"`
	HeartbeatOfflineAfter time.Duration `env:"HEARTBEAT_OFFLINE_AFTER,default=10m"`

	OutboxFlushInterval time.Duration `env:"OUTBOX_FLUSH_INTERVAL,default=5s"`
	OutboxMaxAttempts   int           `env:"OUTBOX_MAX_ATTEMPTS,default=10"`
	OutboxRetentionDays int           `env:"OUTBOX_RETENTION_DAYS,default=30"`

	// IdempotencyBucket is the time-bucket width used when deriving
	// outbox idempotency keys: retries within the same bucket collapse
	// onto the same key (spec §6 default is one hour).
	IdempotencyBucket time.Duration `env:"IDEMPOTENCY_BUCKET,default=1h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Timeouts bundles the default request/dial/idle timeouts used when wiring
// HTTP servers and clients across the runtime.
type Timeouts struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	DialTimeout  time.Duration
}

// DefaultTimeouts returns the runtime's baseline HTTP timeout set.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		DialTimeout:  5 * time.Second,
	}
}

// Load decodes Config from the environment, having first loaded a .env file
// if present (ignored if absent — production deployments set real env vars).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("config: decode env: %w", err)
	}
	return &cfg, nil
}

// LoadFile merges YAML file overrides onto an environment-decoded Config.
// Values present in the file win; absent fields keep their env/default value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	overlay := *cfg
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	*cfg = overlay
	return nil
}

// LoadConfigFile dispatches to LoadFile by extension; main() uses this so
// operators can pass either .yaml or .yml without a separate flag.
func LoadConfigFile(path string, cfg *Config) error {
	ext := strings.ToLower(path)
	if strings.HasSuffix(ext, ".yaml") || strings.HasSuffix(ext, ".yml") {
		return LoadFile(path, cfg)
	}
	return fmt.Errorf("config: unsupported config file extension: %s", path)
}
