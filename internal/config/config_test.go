package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(&logger, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":7000"
  shutdown_timeout: 9s
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/videoconf
provider:
  name: livekit
messages:
  read_receipts: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("VIDEOCONF_SERVER_ADDR", ":9999")
	t.Setenv("VIDEOCONF_AUTH_JWT_SECRET", "from-env")
	t.Setenv("VIDEOCONF_REDIS_TTL", "90s")

	cfg, _, err := Load(&logger, path)
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Server.Addr)
	require.Equal(t, 9*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, Default().Server.ReadHeaderTimeout, cfg.Server.ReadHeaderTimeout)
	require.Equal(t, DriverPostgres, cfg.Storage.Driver)
	require.Equal(t, "postgres://localhost/videoconf", cfg.Storage.PostgresDSN)
	require.Equal(t, ProviderLiveKit, cfg.Provider.Name)
	require.True(t, cfg.Messages.ReadReceipts)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
	require.Equal(t, 90*time.Second, cfg.Redis.TTL)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, _, err := Load(&logger, path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Auth.JWTSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(*Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "oracle" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, true},
		{"mongo without uri", func(c *Config) { c.Storage.Driver = DriverMongo }, true},
		{"mongo", func(c *Config) {
			c.Storage.Driver = DriverMongo
			c.Storage.MongoURI = "mongodb://localhost:27017"
		}, false},
		{"livekit without keys", func(c *Config) { c.Provider.Name = ProviderLiveKit }, true},
		{"unknown provider", func(c *Config) { c.Provider.Name = "zoom" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
