// Package cache provides a redis read-through cache for room and user lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/store"
)

const keyPrefix = "videoconf:"

// Config controls redis client behavior.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PingTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.TTL <= 0 {
		out.TTL = time.Minute
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 20
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// Open initializes a redis client and validates connectivity via PING.
func Open(ctx context.Context, cfg Config) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := newClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func newClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
}

// Directory wraps a room and user directory with a redis read-through cache.
// Redis failures are logged and fall through to the backing directory.
// Misses of the backing directory are never cached.
// Rooms and users are owned by the chat product and entries are never
// invalidated, so the TTL is the only freshness bound.
type Directory struct {
	rooms store.RoomDirectory
	users store.UserDirectory
	rdb   redis.Cmdable
	ttl   time.Duration
	log   *zerolog.Logger
}

// NewDirectory creates a caching directory.
func NewDirectory(rooms store.RoomDirectory, users store.UserDirectory, rdb redis.Cmdable, ttl time.Duration, log *zerolog.Logger) *Directory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Directory{rooms: rooms, users: users, rdb: rdb, ttl: ttl, log: log}
}

// GetRoomProjection returns the cached projection or loads it from the backing directory.
func (d *Directory) GetRoomProjection(ctx context.Context, roomID string) (*store.RoomProjection, error) {
	key := keyPrefix + "room:" + roomID

	var room store.RoomProjection
	if d.lookup(ctx, key, &room) {
		return &room, nil
	}

	loaded, err := d.rooms.GetRoomProjection(ctx, roomID)
	if err != nil {
		return nil, err
	}
	d.remember(ctx, key, loaded)
	return loaded, nil
}

// GetUserIdentity returns the cached identity or loads it from the backing directory.
func (d *Directory) GetUserIdentity(ctx context.Context, userID string) (*store.UserIdentity, error) {
	key := keyPrefix + "user:" + userID

	var user store.UserIdentity
	if d.lookup(ctx, key, &user) {
		return &user, nil
	}

	loaded, err := d.users.GetUserIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.remember(ctx, key, loaded)
	return loaded, nil
}

func (d *Directory) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return false
	}
	return true
}

func (d *Directory) remember(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.rdb.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

var (
	_ store.RoomDirectory = (*Directory)(nil)
	_ store.UserDirectory = (*Directory)(nil)
)
