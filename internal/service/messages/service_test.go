package messages

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/store"
	"github.com/vovakirdan/videoconf/internal/store/sqlstore"
)

func setupTestService(t *testing.T, cfg Config) (*Service, *sqlstore.SQLStore) {
	t.Helper()

	st, err := sqlstore.NewSQLiteWithSetup(":memory:", func(db *sql.DB) error {
		return sqlstore.ApplySchema(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	room := store.RoomProjection{ID: "r1", Type: store.RoomTypeChannel, Name: "general"}
	if err := st.CreateRoom(context.Background(), &room); err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	logger := zerolog.Nop()
	return NewService(st, st, cfg, &logger), st
}

func TestCreate(t *testing.T) {
	svc, st := setupTestService(t, Config{ReadReceipts: true})
	ctx := context.Background()
	author := store.UserIdentity{ID: "u1", Username: "alice", Name: "Alice"}

	id, err := svc.Create(ctx, store.MessageTypeConferenceStarted, "r1", author, &store.VideoConfPayload{Title: "Standup"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	msg, err := st.GetMessage(ctx, id)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if msg.Type != store.MessageTypeConferenceStarted || msg.Groupable || !msg.Unread {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Author.ID != "u1" || msg.Author.Username != "alice" {
		t.Errorf("unexpected author: %+v", msg.Author)
	}
	if msg.VideoConf == nil || msg.VideoConf.Title != "Standup" {
		t.Errorf("expected video conf title, got %+v", msg.VideoConf)
	}

	if n, _ := st.RoomMessageCount(ctx, "r1"); n != 1 {
		t.Errorf("expected counter 1, got %d", n)
	}
}

func TestCreateWithoutReadReceipts(t *testing.T) {
	svc, st := setupTestService(t, Config{})
	ctx := context.Background()

	id, err := svc.Create(ctx, store.MessageTypeDirectCalling, "r1", store.UserIdentity{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	msg, _ := st.GetMessage(ctx, id)
	if msg.Unread {
		t.Error("message must not be unread when read receipts are off")
	}
	if msg.VideoConf != nil {
		t.Errorf("expected no payload, got %+v", msg.VideoConf)
	}
}

func TestCreateUnknownRoomPropagates(t *testing.T) {
	svc, _ := setupTestService(t, Config{})

	_, err := svc.Create(context.Background(), store.MessageTypeDirectCalling, "missing", store.UserIdentity{ID: "u1"}, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from counter, got %v", err)
	}
}

func TestChangeType(t *testing.T) {
	svc, st := setupTestService(t, Config{})
	ctx := context.Background()

	id, err := svc.Create(ctx, store.MessageTypeDirectCalling, "r1", store.UserIdentity{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.ChangeType(ctx, id, store.MessageTypeDirectMissed); err != nil {
		t.Fatalf("ChangeType failed: %v", err)
	}
	msg, _ := st.GetMessage(ctx, id)
	if msg.Type != store.MessageTypeDirectMissed {
		t.Errorf("expected missed, got %s", msg.Type)
	}

	if err := svc.ChangeType(ctx, "missing", store.MessageTypeDirectMissed); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
