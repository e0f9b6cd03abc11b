package messages

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/store"
)

// Config holds linker settings.
type Config struct {
	// ReadReceipts marks new announcements unread so receipts can be tracked.
	ReadReceipts bool
}

// Service creates and mutates the chat messages that announce calls.
type Service struct {
	messages store.MessageStore
	counter  store.RoomCounter
	cfg      Config
	log      *zerolog.Logger
}

// NewService creates a new message linker.
func NewService(messages store.MessageStore, counter store.RoomCounter, cfg Config, log *zerolog.Logger) *Service {
	return &Service{
		messages: messages,
		counter:  counter,
		cfg:      cfg,
		log:      log,
	}
}

// Create inserts a non-groupable message of type t into roomID and bumps the room message counter.
// videoConf is attached as the structured call payload when non-nil.
func (s *Service) Create(ctx context.Context, t store.MessageType, roomID string, author store.UserIdentity, videoConf *store.VideoConfPayload) (string, error) {
	msg := &store.Message{
		RoomID:    roomID,
		Type:      t,
		Author:    store.MessageAuthor{ID: author.ID, Username: author.Username},
		Groupable: false,
		Unread:    s.cfg.ReadReceipts,
		VideoConf: videoConf,
	}

	id, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	if err := s.counter.IncRoomMessageCount(ctx, roomID, 1); err != nil {
		return "", fmt.Errorf("increment room counter: %w", err)
	}

	s.log.Debug().
		Str("message_id", id).
		Str("room_id", roomID).
		Str("type", string(t)).
		Msg("call message created")

	return id, nil
}

// ChangeType rewrites the type of an existing message in place.
func (s *Service) ChangeType(ctx context.Context, messageID string, t store.MessageType) error {
	if err := s.messages.SetMessageType(ctx, messageID, t); err != nil {
		return fmt.Errorf("change message type: %w", err)
	}
	return nil
}
