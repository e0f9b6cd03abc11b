package conference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/videoconf/internal/callengine"
	"github.com/vovakirdan/videoconf/internal/core"
	"github.com/vovakirdan/videoconf/internal/store"
)

// urlResolveTimeout bounds a shared URL generation once it is detached from the leading request.
const urlResolveTimeout = 15 * time.Second

// MessageLinker creates and mutates the chat messages announcing a call.
type MessageLinker interface {
	Create(ctx context.Context, t store.MessageType, roomID string, author store.UserIdentity, videoConf *store.VideoConfPayload) (string, error)
	ChangeType(ctx context.Context, messageID string, t store.MessageType) error
}

// Notifier delivers call events to connected users. Delivery is best-effort.
type Notifier interface {
	Publish(userID string, ev *core.Event) bool
}

// Deps are the collaborators of the orchestrator. Notifier may be nil.
type Deps struct {
	Rooms    store.RoomDirectory
	Users    store.UserDirectory
	Calls    store.CallStore
	Messages MessageLinker
	Provider callengine.Provider
	Notifier Notifier
}

// Service orchestrates the lifecycle of video conferences.
//
// No lock is held across store or provider calls. Set-once fields are
// protected by conditional store updates; singleflight only collapses
// concurrent URL generation for the same call inside this process.
type Service struct {
	rooms    store.RoomDirectory
	users    store.UserDirectory
	calls    store.CallStore
	messages MessageLinker
	provider callengine.Provider
	notifier Notifier

	urls singleflight.Group
	now  func() time.Time
	log  *zerolog.Logger
}

// NewService creates a new conference orchestrator.
func NewService(deps Deps, log *zerolog.Logger) *Service {
	return &Service{
		rooms:    deps.Rooms,
		users:    deps.Users,
		calls:    deps.Calls,
		messages: deps.Messages,
		provider: deps.Provider,
		notifier: deps.Notifier,
		now:      time.Now,
		log:      log,
	}
}

// Start opens a call in roomID on behalf of callerID.
// Direct rooms with at most two members get a ringing 1:1 call; every other
// room gets a group conference titled title, or the room's display name.
func (s *Service) Start(ctx context.Context, callerID, roomID, title string) (Instructions, error) {
	room, err := s.rooms.GetRoomProjection(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}

	if isDirectRoom(room) {
		return s.startDirect(ctx, callerID, roomID, room.UserIDs)
	}

	if title == "" {
		title = room.FName
	}
	if title == "" {
		title = room.Name
	}
	return s.startGroup(ctx, callerID, roomID, title)
}

func isDirectRoom(room *store.RoomProjection) bool {
	return room.Type == store.RoomTypeDirect && len(room.UserIDs) <= 2
}

// pickCallee returns the last member that is not the caller.
func pickCallee(userIDs []string, callerID string) string {
	for i := len(userIDs) - 1; i >= 0; i-- {
		if userIDs[i] != callerID {
			return userIDs[i]
		}
	}
	return ""
}

func (s *Service) startDirect(ctx context.Context, callerID, roomID string, userIDs []string) (Instructions, error) {
	callee := pickCallee(userIDs, callerID)
	if callee == "" {
		return nil, ErrInvalidCallTarget
	}

	caller, err := s.loadUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	callID, err := s.calls.CreateDirectCall(ctx, roomID, *caller, callee)
	if err != nil {
		return nil, fmt.Errorf("create direct call: %w", err)
	}
	log := s.log.With().Str("call_id", callID).Str("room_id", roomID).Logger()

	call := &store.CallRecord{
		ID:        callID,
		RoomID:    roomID,
		Kind:      store.CallKindDirect,
		Status:    store.CallStatusCalling,
		Callee:    callee,
		CreatedBy: *caller,
	}
	if _, err := s.resolveURL(ctx, call); err != nil {
		log.Error().Err(err).Msg("direct call created without url")
		return nil, err
	}

	if err := s.announce(ctx, call, store.MessageTypeDirectCalling, *caller, nil); err != nil {
		log.Error().Err(err).Msg("direct call created without announcement")
		return nil, err
	}

	s.notify(callee, &core.Event{
		Kind: core.EventCallIncoming,
		Call: s.callEvent(call, *caller),
	})

	log.Info().Str("caller_id", callerID).Str("callee_id", callee).Msg("direct call started")
	return DirectInstructions{CallID: callID, Callee: callee}, nil
}

func (s *Service) startGroup(ctx context.Context, callerID, roomID, title string) (Instructions, error) {
	caller, err := s.loadUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	callID, err := s.calls.CreateGroupCall(ctx, roomID, title, *caller)
	if err != nil {
		return nil, fmt.Errorf("create group call: %w", err)
	}
	log := s.log.With().Str("call_id", callID).Str("room_id", roomID).Logger()

	call := &store.CallRecord{
		ID:        callID,
		RoomID:    roomID,
		Kind:      store.CallKindGroup,
		Status:    store.CallStatusCalling,
		Title:     title,
		CreatedBy: *caller,
	}
	if _, err := s.resolveURL(ctx, call); err != nil {
		log.Error().Err(err).Msg("conference created without url")
		return nil, err
	}

	payload := &store.VideoConfPayload{Title: title}
	if err := s.announce(ctx, call, store.MessageTypeConferenceStarted, *caller, payload); err != nil {
		log.Error().Err(err).Msg("conference created without announcement")
		return nil, err
	}

	log.Info().Str("caller_id", callerID).Str("title", title).Msg("conference started")
	return GroupInstructions{CallID: callID}, nil
}

// announce posts the started message and links it to the call.
func (s *Service) announce(ctx context.Context, call *store.CallRecord, t store.MessageType, author store.UserIdentity, payload *store.VideoConfPayload) error {
	msgID, err := s.messages.Create(ctx, t, call.RoomID, author, payload)
	if err != nil {
		return fmt.Errorf("create %s message: %w", t, err)
	}
	if err := s.calls.SetCallMessage(ctx, call.ID, store.MessageTagStarted, msgID); err != nil {
		return fmt.Errorf("link started message: %w", err)
	}
	return nil
}

// Join returns a participant-specific URL for callID and records userID as a
// participant. Joining never changes the call status, and joining an ended
// call still yields a URL.
func (s *Service) Join(ctx context.Context, userID, callID string, opts callengine.JoinOptions) (string, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrCallNotFound
		}
		return "", fmt.Errorf("load call: %w", err)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}

	base, err := s.resolveURL(ctx, call)
	if err != nil {
		return "", err
	}

	resolved := *call
	resolved.URL = base
	url, err := s.provider.CustomizeURL(ctx, &resolved, *user, opts)
	if err != nil {
		return "", fmt.Errorf("customize url: %w", err)
	}

	if !call.HasParticipant(user.ID) {
		if err := s.calls.AddCallParticipant(ctx, call.ID, *user); err != nil {
			return "", fmt.Errorf("add participant: %w", err)
		}
		if call.CreatedBy.ID != user.ID {
			ev := s.callEvent(call, call.CreatedBy)
			ev.UserID = user.ID
			ev.Username = user.Username
			s.notify(call.CreatedBy.ID, &core.Event{Kind: core.EventCallParticipantJoined, Call: ev})
		}
	}

	s.log.Debug().Str("call_id", call.ID).Str("user_id", user.ID).Msg("participant joined")
	return url, nil
}

// resolveURL returns the call's persisted URL, generating and storing one if
// it has none. The value reported by the store wins over the generated one.
func (s *Service) resolveURL(ctx context.Context, call *store.CallRecord) (string, error) {
	if call.URL != "" {
		return call.URL, nil
	}

	v, err, _ := s.urls.Do(call.ID, func() (any, error) {
		// Concurrent joiners share this flight, so it must outlive the leader's request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), urlResolveTimeout)
		defer cancel()

		generated, err := s.provider.GenerateURL(ctx, call)
		if err != nil {
			return "", fmt.Errorf("generate url: %w", err)
		}
		stored, err := s.calls.SetCallURL(ctx, call.ID, generated)
		if err != nil {
			return "", fmt.Errorf("store url: %w", err)
		}
		return stored, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Cancel hangs up a direct call that is still ringing. The announcement is
// turned into a missed-call message and the call is ended by userID.
func (s *Service) Cancel(ctx context.Context, userID, callID string) error {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCallNotFound
		}
		return fmt.Errorf("load call: %w", err)
	}
	if !call.IsDirect() {
		return ErrCallNotFound
	}
	if call.Status != store.CallStatusCalling || call.EndedBy != nil || call.EndedAt != nil {
		return ErrInvalidCallStatus
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	// The message is rewritten before the conditional end so a failed rewrite
	// leaves the call cancelable. Racing cancelers may all rewrite it; the
	// rewrite is idempotent and only one of them ends the call.
	if msgID, ok := call.Messages[store.MessageTagStarted]; ok && msgID != "" {
		if err := s.messages.ChangeType(ctx, msgID, store.MessageTypeDirectMissed); err != nil {
			return fmt.Errorf("mark call missed: %w", err)
		}
	}

	if err := s.calls.SetCallEnded(ctx, call.ID, *user, s.now()); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrInvalidCallStatus
		case errors.Is(err, store.ErrNotFound):
			return ErrCallNotFound
		default:
			return fmt.Errorf("end call: %w", err)
		}
	}

	if call.Callee != "" && call.Callee != user.ID {
		s.notify(call.Callee, &core.Event{Kind: core.EventCallCanceled, Call: s.callEvent(call, *user)})
	}

	s.log.Info().Str("call_id", call.ID).Str("user_id", user.ID).Msg("direct call canceled")
	return nil
}

// Get returns the call record, or nil if no such call exists.
func (s *Service) Get(ctx context.Context, callID string) (*store.CallRecord, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load call: %w", err)
	}
	return call, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*store.UserIdentity, error) {
	user, err := s.users.GetUserIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLoadSelfFailed
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) callEvent(call *store.CallRecord, from store.UserIdentity) *core.CallEvent {
	return &core.CallEvent{
		CallID:       call.ID,
		CallType:     string(call.Kind),
		RoomID:       call.RoomID,
		Title:        call.Title,
		FromUserID:   from.ID,
		FromUsername: from.Username,
		CreatedAt:    s.now().Unix(),
	}
}

func (s *Service) notify(userID string, ev *core.Event) {
	if s.notifier == nil {
		return
	}
	if !s.notifier.Publish(userID, ev) {
		s.log.Debug().Str("user_id", userID).Str("event", ev.Kind.String()).Msg("call event not delivered")
	}
}
