package config

import (
	"fmt"
	"time"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// URL providers.
const (
	ProviderJitsi   = "jitsi"
	ProviderLiveKit = "livekit"
)

// Config holds service configuration values.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Messages MessagesConfig `mapstructure:"messages" yaml:"messages"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// StartRateLimit caps call starts per user per minute. Zero disables the limit.
	StartRateLimit int `mapstructure:"start_rate_limit" yaml:"start_rate_limit"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "console" for human-readable output or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	SQLitePath    string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN   string        `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	MongoURI      string        `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database" yaml:"mongo_database"`
	MaxOpenConns  int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnTimeout   time.Duration `mapstructure:"conn_timeout" yaml:"conn_timeout"`
}

// RedisConfig configures the optional directory cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// ProviderConfig selects the media provider that hosts calls.
type ProviderConfig struct {
	Name             string        `mapstructure:"name" yaml:"name"`
	JitsiBaseURL     string        `mapstructure:"jitsi_base_url" yaml:"jitsi_base_url"`
	LiveKitURL       string        `mapstructure:"livekit_url" yaml:"livekit_url"`
	LiveKitAPIKey    string        `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret string        `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`
	LiveKitTokenTTL  time.Duration `mapstructure:"livekit_token_ttl" yaml:"livekit_token_ttl"`
}

// MessagesConfig controls the call announcement messages.
type MessagesConfig struct {
	ReadReceipts bool `mapstructure:"read_receipts" yaml:"read_receipts"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			StartRateLimit:    30,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Storage: StorageConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "videoconf.db",
			MongoDatabase: "videoconf",
			MaxOpenConns:  25,
			MaxIdleConns:  25,
			ConnTimeout:   5 * time.Second,
		},
		Redis: RedisConfig{TTL: time.Minute},
		Auth: AuthConfig{
			JWTIssuer: "videoconf",
			TokenTTL:  24 * time.Hour,
		},
		Provider: ProviderConfig{
			Name:            ProviderJitsi,
			JitsiBaseURL:    "https://jitsi.rocket.chat",
			LiveKitURL:      "ws://localhost:7880",
			LiveKitTokenTTL: time.Hour,
		},
	}
}

// Validate checks that the selected backends are fully configured.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for driver %q", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for driver %q", c.Storage.Driver)
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return fmt.Errorf("storage.mongo_uri and storage.mongo_database are required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Provider.Name {
	case ProviderJitsi:
	case ProviderLiveKit:
		if c.Provider.LiveKitAPIKey == "" || c.Provider.LiveKitAPISecret == "" {
			return fmt.Errorf("provider.livekit_api_key and provider.livekit_api_secret are required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}
