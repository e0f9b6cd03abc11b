package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/auth"
	"github.com/vovakirdan/videoconf/internal/callengine"
	"github.com/vovakirdan/videoconf/internal/callengine/jitsi"
	"github.com/vovakirdan/videoconf/internal/callengine/livekit"
	"github.com/vovakirdan/videoconf/internal/config"
	"github.com/vovakirdan/videoconf/internal/core"
	"github.com/vovakirdan/videoconf/internal/service/conference"
	"github.com/vovakirdan/videoconf/internal/service/messages"
	"github.com/vovakirdan/videoconf/internal/store"
	"github.com/vovakirdan/videoconf/internal/store/cache"
	"github.com/vovakirdan/videoconf/internal/store/mongo"
	"github.com/vovakirdan/videoconf/internal/store/sqlstore"
	transporthttp "github.com/vovakirdan/videoconf/internal/transport/http"
)

// App wires together storage, services and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	var (
		rooms store.RoomDirectory = st
		users store.UserDirectory = st
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Open(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = rdb
		dir := cache.NewDirectory(st, st, rdb, cfg.Redis.TTL, logger)
		rooms, users = dir, dir
		logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("directory cache enabled")
	}

	provider, err := newProvider(cfg.Provider)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	logger.Info().Str("provider", cfg.Provider.Name).Msg("url provider initialized")

	hub := core.NewHub(logger)
	linker := messages.NewService(st, st, messages.Config{ReadReceipts: cfg.Messages.ReadReceipts}, logger)

	svc := conference.NewService(conference.Deps{
		Rooms:    rooms,
		Users:    users,
		Calls:    st,
		Messages: linker,
		Provider: provider,
		Notifier: hub,
	}, logger)

	router := transporthttp.NewRouter(transporthttp.Deps{
		Conference:     svc,
		Hub:            hub,
		JWT:            JWTConfig(cfg.Auth),
		StartRateLimit: cfg.Server.StartRateLimit,
	}, logger)

	a.hub = hub
	a.server = transporthttp.NewServer(cfg.Server, router)
	return a, nil
}

// JWTConfig converts the auth section into token settings.
func JWTConfig(cfg config.AuthConfig) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
}

// OpenStore opens the configured backend and brings its schema or indexes up to date.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		var (
			st  *sqlstore.SQLStore
			err error
		)
		if cfg.Driver == config.DriverSQLite {
			st, err = sqlstore.NewSQLite(cfg.SQLitePath)
		} else {
			st, err = sqlstore.NewPostgres(ctx, cfg.PostgresDSN, sqlstore.PoolConfig{
				MaxOpenConns: cfg.MaxOpenConns,
				MaxIdleConns: cfg.MaxIdleConns,
				PingTimeout:  cfg.ConnTimeout,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Msg("database initialized")
		return st, nil

	case config.DriverMongo:
		st, err := mongo.Dial(ctx, mongo.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.ConnTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Str("database", cfg.MongoDatabase).Msg("database initialized")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newProvider(cfg config.ProviderConfig) (callengine.Provider, error) {
	switch cfg.Name {
	case config.ProviderJitsi:
		return jitsi.New(cfg.JitsiBaseURL), nil
	case config.ProviderLiveKit:
		return livekit.New(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL, cfg.LiveKitTokenTTL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
