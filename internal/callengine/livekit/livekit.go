package livekit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/videoconf/internal/callengine"
	"github.com/vovakirdan/videoconf/internal/store"
)

// DefaultTokenTTL bounds how long a join token stays valid.
const DefaultTokenTTL = time.Hour

// LiveKitEngine implements callengine.Provider using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	tokenTTL  time.Duration
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string, tokenTTL time.Duration) *LiveKitEngine {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		tokenTTL:  tokenTTL,
	}
}

// RoomName derives the LiveKit room for a call: videoconf-{kind}-{callID}.
func RoomName(call *store.CallRecord) string {
	return fmt.Sprintf("videoconf-%s-%s", call.Kind, call.ID)
}

// GenerateURL returns the server URL with the room name as a query parameter.
// LiveKit creates rooms on demand when the first participant connects,
// so nothing is provisioned here.
func (e *LiveKitEngine) GenerateURL(_ context.Context, call *store.CallRecord) (string, error) {
	u, err := url.Parse(e.wsURL)
	if err != nil {
		return "", fmt.Errorf("parse livekit url: %w", err)
	}
	q := u.Query()
	q.Set("room", RoomName(call))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type participantMetadata struct {
	Mic *bool `json:"mic,omitempty"`
	Cam *bool `json:"cam,omitempty"`
}

// CustomizeURL adds a signed access token for user to the call's base URL.
func (e *LiveKitEngine) CustomizeURL(_ context.Context, call *store.CallRecord, user store.UserIdentity, opts callengine.JoinOptions) (string, error) {
	if call.URL == "" {
		return "", fmt.Errorf("customize call %s: %w", call.ID, callengine.ErrURLMissing)
	}
	u, err := url.Parse(call.URL)
	if err != nil {
		return "", fmt.Errorf("parse call url: %w", err)
	}

	q := u.Query()
	room := q.Get("room")
	if room == "" {
		room = RoomName(call)
		q.Set("room", room)
	}

	metadata, err := json.Marshal(participantMetadata{Mic: opts.Mic, Cam: opts.Cam})
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	at.SetVideoGrant(grant).
		SetIdentity(user.ID).
		SetName(callengine.DisplayName(user)).
		SetMetadata(string(metadata)).
		SetValidFor(e.tokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	q.Set("token", token)
	if opts.Mic != nil {
		q.Set("audio", strconv.FormatBool(*opts.Mic))
	}
	if opts.Cam != nil {
		q.Set("video", strconv.FormatBool(*opts.Cam))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Ensure LiveKitEngine implements callengine.Provider
var _ callengine.Provider = (*LiveKitEngine)(nil)
