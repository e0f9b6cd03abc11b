package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/auth"
	"github.com/vovakirdan/videoconf/internal/core"
	"github.com/vovakirdan/videoconf/internal/proto"
)

const clientEventBuffer = 32

// WSHandler upgrades HTTP connections and streams call events of the authenticated user.
type WSHandler struct {
	hub    *core.Hub
	jwtCfg *auth.JWTConfig
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, jwtCfg *auth.JWTConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, jwtCfg: jwtCfg, log: logger}
}

// authenticate accepts the token as ?token= (browsers cannot set headers on upgrade) or a bearer header.
func (h *WSHandler) authenticate(r *stdhttp.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if bearer, ok := bearerToken(r.Header.Get("Authorization")); ok {
			token = bearer
		}
	}
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return auth.ValidateToken(h.jwtCfg, token)
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	claims, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws unauthorized")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stdhttp.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := core.NewClient(claims.UserID, clientEventBuffer)
	if err := h.hub.RegisterClient(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(client)

	log := h.log.With().Str("client_id", client.ID).Str("user_id", client.UserID).Logger()

	if err := wsjson.Write(ctx, conn, proto.Hello(client.UserID)); err != nil {
		log.Warn().Err(err).Msg("write ws hello")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop drains client frames. The stream is server-push only, so any inbound message is answered with an error.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, log *zerolog.Logger) error {
	for {
		var inbound json.RawMessage
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}
		log.Debug().Int("size", len(inbound)).Msg("ignoring inbound ws message")
		out := proto.FromEvent(core.NewError(core.ErrCodeBadRequest, "event stream is read-only"))
		if err := wsjson.Write(ctx, conn, out); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, proto.FromEvent(event)); err != nil {
				log.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
