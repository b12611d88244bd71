package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"apeguard/pkg/domain"
	strutil "apeguard/pkg/platform/strings"
)

// EnvPrefix namespaces every environment override, e.g. APEGUARD_SERVER_ADDR.
const EnvPrefix = "APEGUARD"

// Config is the process configuration, read from an optional YAML file and
// overridden by environment variables.
type Config struct {
	Server     Server      `mapstructure:"server"`
	Log        Log         `mapstructure:"log"`
	Redis      RedisConfig `mapstructure:"redis"`
	Postgres   Postgres    `mapstructure:"postgres"`
	Kafka      Kafka       `mapstructure:"kafka"`
	Audit      Audit       `mapstructure:"audit"`
	Tracing    Tracing     `mapstructure:"tracing"`
	Governance Governance  `mapstructure:"governance"`
	// Deployer is the identity that creates and seeds the registries.
	Deployer string `mapstructure:"deployer"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	JWTSigningKey   string        `mapstructure:"jwt_signing_key"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	JWTAudience     string        `mapstructure:"jwt_audience"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig enables snapshot persistence when URL is set.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Postgres enables the audit table when DSN is set.
type Postgres struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Kafka enables the audit stream when Brokers is non-empty. The stream is
// skipped for BreakerCooldown after BreakerThreshold consecutive failures.
type Kafka struct {
	Brokers          []string      `mapstructure:"brokers"`
	Topic            string        `mapstructure:"topic"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type Audit struct {
	Buffer int `mapstructure:"buffer"`
}

type Tracing struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Governance names the timelock identity that gate registries are handed
// over to, and the proposer allowed to schedule and execute approved
// proposals. An empty timelock leaves the deployer in control.
type Governance struct {
	Timelock string `mapstructure:"timelock"`
	Proposer string `mapstructure:"proposer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	// Use a default for development - should be overridden in production
	v.SetDefault("server.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("server.jwt_issuer", "apeguard")
	v.SetDefault("server.jwt_audience", "apeguard-api")
	v.SetDefault("server.token_ttl", time.Hour)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "apeguard.audit")
	v.SetDefault("kafka.breaker_threshold", 5)
	v.SetDefault("kafka.breaker_cooldown", 30*time.Second)
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("governance.timelock", "")
	v.SetDefault("governance.proposer", "")
	v.SetDefault("deployer", "")
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = strutil.SplitList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the identities and required settings.
func (c Config) Validate() error {
	if c.Deployer == "" {
		return errors.New("deployer identity is required")
	}
	if _, err := domain.ParseAddress(c.Deployer); err != nil {
		return fmt.Errorf("deployer: %w", err)
	}
	if c.Governance.Timelock != "" {
		if _, err := domain.ParseAddress(c.Governance.Timelock); err != nil {
			return fmt.Errorf("governance.timelock: %w", err)
		}
	}
	if c.Governance.Proposer != "" {
		if _, err := domain.ParseAddress(c.Governance.Proposer); err != nil {
			return fmt.Errorf("governance.proposer: %w", err)
		}
		if c.Governance.Timelock == "" {
			return errors.New("governance.proposer requires governance.timelock")
		}
	}
	if c.Server.JWTSigningKey == "" {
		return errors.New("server.jwt_signing_key is required")
	}
	if c.Audit.Buffer < 1 {
		return errors.New("audit.buffer must be positive")
	}
	return nil
}

// DeployerAddress returns the parsed deployer identity.
func (c Config) DeployerAddress() domain.Address {
	addr, _ := domain.ParseAddress(c.Deployer)
	return addr
}

// TimelockAddress returns the parsed timelock identity and whether one is
// configured.
func (c Config) TimelockAddress() (domain.Address, bool) {
	if c.Governance.Timelock == "" {
		return domain.ZeroAddress, false
	}
	addr, err := domain.ParseAddress(c.Governance.Timelock)
	return addr, err == nil
}

// ProposerAddress returns the parsed proposer identity and whether one is
// configured.
func (c Config) ProposerAddress() (domain.Address, bool) {
	if c.Governance.Proposer == "" {
		return domain.ZeroAddress, false
	}
	addr, err := domain.ParseAddress(c.Governance.Proposer)
	return addr, err == nil
}
