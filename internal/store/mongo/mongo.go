// Package mongo implements store.Store on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/videoconf/internal/store"
)

// Collection names.
const (
	usersColName    = "users"
	roomsColName    = "rooms"
	messagesColName = "messages"
	callsColName    = "video_conference"
)

const defaultTimeout = 10 * time.Second

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store implements store.Store on a mongo database.
type Store struct {
	cli *mongoLib.Client
	db  *mongoLib.Database
	now func() time.Time
}

var (
	connectMongo = func(ctx context.Context, opts *options.ClientOptions) (*mongoLib.Client, error) {
		return mongoLib.Connect(ctx, opts)
	}
	pingMongo = func(ctx context.Context, cli *mongoLib.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
)

// Dial connects to mongo and verifies the primary is reachable.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(100)

	cli, err := connectMongo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := pingMongo(ctx, cli); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return New(cli, cli.Database(cfg.Database)), nil
}

// New wraps an existing client and database.
func New(cli *mongoLib.Client, db *mongoLib.Database) *Store {
	return &Store{cli: cli, db: db, now: time.Now}
}

// EnsureIndexes creates the indexes the store relies on. It is safe to run repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for col, models := range indexModels() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.cli == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return s.cli.Disconnect(ctx)
}

func (s *Store) users() *mongoLib.Collection    { return s.db.Collection(usersColName) }
func (s *Store) rooms() *mongoLib.Collection    { return s.db.Collection(roomsColName) }
func (s *Store) messages() *mongoLib.Collection { return s.db.Collection(messagesColName) }
func (s *Store) calls() *mongoLib.Collection    { return s.db.Collection(callsColName) }

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

var _ store.Store = (*Store)(nil)
