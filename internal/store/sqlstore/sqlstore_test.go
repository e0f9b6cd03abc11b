package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/videoconf/internal/store"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	s, err := NewSQLiteWithSetup(":memory:", func(db *sql.DB) error {
		return ApplySchema(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLStore, id, username string) store.UserIdentity {
	t.Helper()

	u := store.UserIdentity{ID: id, Username: username, Name: username + " name"}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
	return u
}

func TestRoomProjection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	room := store.RoomProjection{ID: "r1", Type: store.RoomTypeDirect, Name: "dm", UserIDs: []string{"u2", "u1"}}
	if err := s.CreateRoom(ctx, &room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	got, err := s.GetRoomProjection(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRoomProjection failed: %v", err)
	}
	if got.Type != store.RoomTypeDirect || got.Name != "dm" {
		t.Errorf("unexpected room: %+v", got)
	}
	if len(got.UserIDs) != 2 || got.UserIDs[0] != "u2" || got.UserIDs[1] != "u1" {
		t.Errorf("expected member order [u2 u1], got %v", got.UserIDs)
	}

	if _, err := s.GetRoomProjection(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserIdentity(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesAndCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room := store.RoomProjection{ID: "r1", Type: store.RoomTypeChannel, Name: "general"}
	if err := s.CreateRoom(ctx, &room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	id, err := s.CreateMessage(ctx, &store.Message{
		RoomID:    "r1",
		Type:      store.MessageTypeConferenceStarted,
		Author:    store.MessageAuthor{ID: "u1", Username: "alice"},
		Unread:    true,
		VideoConf: &store.VideoConfPayload{CallID: "c1", Title: "Standup"},
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	if err := s.IncRoomMessageCount(ctx, "r1", 1); err != nil {
		t.Fatalf("IncRoomMessageCount failed: %v", err)
	}
	if n, _ := s.RoomMessageCount(ctx, "r1"); n != 1 {
		t.Errorf("expected msg_count 1, got %d", n)
	}
	if err := s.IncRoomMessageCount(ctx, "nope", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown room, got %v", err)
	}

	if err := s.SetMessageType(ctx, id, store.MessageTypeDirectMissed); err != nil {
		t.Fatalf("SetMessageType failed: %v", err)
	}
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if msg.Type != store.MessageTypeDirectMissed {
		t.Errorf("expected missed type, got %s", msg.Type)
	}
	if !msg.Unread || msg.Groupable {
		t.Errorf("unexpected flags: unread=%v groupable=%v", msg.Unread, msg.Groupable)
	}
	if msg.VideoConf == nil || msg.VideoConf.Title != "Standup" || msg.VideoConf.CallID != "c1" {
		t.Errorf("unexpected video conf payload: %+v", msg.VideoConf)
	}
}

func TestCallLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := store.UserIdentity{ID: "u1", Username: "alice", Name: "Alice"}
	bob := store.UserIdentity{ID: "u2", Username: "bob", Name: "Bob"}

	id, err := s.CreateDirectCall(ctx, "r1", alice, bob.ID)
	if err != nil {
		t.Fatalf("CreateDirectCall failed: %v", err)
	}

	call, err := s.GetCall(ctx, id)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if !call.IsDirect() || call.Status != store.CallStatusCalling || call.Callee != "u2" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.URL != "" || len(call.Participants) != 0 || len(call.Messages) != 0 {
		t.Fatalf("expected fresh call, got %+v", call)
	}

	url, err := s.SetCallURL(ctx, id, "https://first")
	if err != nil || url != "https://first" {
		t.Fatalf("SetCallURL first: url=%q err=%v", url, err)
	}
	url, err = s.SetCallURL(ctx, id, "https://second")
	if err != nil || url != "https://first" {
		t.Fatalf("SetCallURL must keep first value: url=%q err=%v", url, err)
	}

	if err := s.SetCallMessage(ctx, id, store.MessageTagStarted, "m1"); err != nil {
		t.Fatalf("SetCallMessage failed: %v", err)
	}
	if err := s.SetCallMessage(ctx, id, store.MessageTagStarted, "m2"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second set, got %v", err)
	}

	for range 3 {
		if err := s.AddCallParticipant(ctx, id, bob); err != nil {
			t.Fatalf("AddCallParticipant failed: %v", err)
		}
	}

	at := time.Now()
	if err := s.SetCallEnded(ctx, id, alice, at); err != nil {
		t.Fatalf("SetCallEnded failed: %v", err)
	}
	if err := s.SetCallEnded(ctx, id, alice, at); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second end, got %v", err)
	}
	if err := s.SetCallEnded(ctx, "missing", alice, at); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	call, err = s.GetCall(ctx, id)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if call.Status != store.CallStatusEnded {
		t.Errorf("expected ended status, got %s", call.Status)
	}
	if call.EndedBy == nil || call.EndedBy.ID != "u1" || call.EndedAt == nil {
		t.Errorf("expected ended by alice, got %+v at %v", call.EndedBy, call.EndedAt)
	}
	if call.Messages[store.MessageTagStarted] != "m1" {
		t.Errorf("expected started message m1, got %v", call.Messages)
	}
	if len(call.Participants) != 1 || call.Participants[0].Name != "Bob" {
		t.Errorf("expected single participant bob, got %+v", call.Participants)
	}
}

func TestGroupCallAndConcurrentParticipants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateGroupCall(ctx, "r1", "Standup", store.UserIdentity{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("CreateGroupCall failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := store.UserIdentity{ID: string(rune('a' + n%5)), Username: "user"}
			if err := s.AddCallParticipant(ctx, id, user); err != nil {
				t.Errorf("AddCallParticipant failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	call, err := s.GetCall(ctx, id)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if !call.IsGroup() || call.Title != "Standup" || call.Callee != "" {
		t.Errorf("unexpected group call: %+v", call)
	}
	if len(call.Participants) != 5 {
		t.Errorf("expected 5 distinct participants, got %d", len(call.Participants))
	}

	if _, err := s.GetCall(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
