package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/auth"
	"github.com/vovakirdan/videoconf/internal/callengine/jitsi"
	"github.com/vovakirdan/videoconf/internal/core"
	"github.com/vovakirdan/videoconf/internal/service/conference"
	"github.com/vovakirdan/videoconf/internal/service/messages"
	"github.com/vovakirdan/videoconf/internal/store"
	"github.com/vovakirdan/videoconf/internal/store/sqlstore"
)

type testEnv struct {
	router http.Handler
	store  *sqlstore.SQLStore
	hub    *core.Hub
	jwt    *auth.JWTConfig
}

// newTestEnv wires an in-memory SQLite store, a running hub and the jitsi provider behind the router.
// Users alice, bob and carol exist; room "dm" is a direct room of alice and bob, "team" a group.
func newTestEnv(t *testing.T, startRateLimit int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlstore.NewSQLiteWithSetup(":memory:", func(db *sql.DB) error {
		return sqlstore.ApplySchema(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	for _, u := range []store.UserIdentity{
		{ID: "alice", Username: "alice", Name: "Alice"},
		{ID: "bob", Username: "bob", Name: "Bob"},
		{ID: "carol", Username: "carol", Name: "Carol"},
	} {
		if err := st.CreateUser(ctx, &u); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}
	for _, r := range []store.RoomProjection{
		{ID: "dm", Type: store.RoomTypeDirect, UserIDs: []string{"alice", "bob"}},
		{ID: "team", Type: store.RoomTypePrivate, Name: "team", FName: "Team", UserIDs: []string{"alice", "bob", "carol"}},
	} {
		if err := st.CreateRoom(ctx, &r); err != nil {
			t.Fatalf("failed to create room: %v", err)
		}
	}

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	hubCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(hubCtx)

	svc := conference.NewService(conference.Deps{
		Rooms:    st,
		Users:    st,
		Calls:    st,
		Messages: messages.NewService(st, st, messages.Config{}, &logger),
		Provider: jitsi.New("https://meet.test"),
		Notifier: hub,
	}, &logger)

	jwtCfg := &auth.JWTConfig{
		Secret: []byte("test-secret"),
		Issuer: "test",
		TTL:    time.Hour,
	}

	router := NewRouter(Deps{
		Conference:     svc,
		Hub:            hub,
		JWT:            jwtCfg,
		StartRateLimit: startRateLimit,
	}, &logger)

	return &testEnv{router: router, store: st, hub: hub, jwt: jwtCfg}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(e.jwt, userID, userID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// do performs an authenticated request as userID; an empty userID sends no token.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d (%s), got %d: %s", want, http.StatusText(want), w.Code, w.Body.String())
	}
}
