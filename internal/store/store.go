package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update did not match the current record state.
	ErrConflict = errors.New("conditional update not applied")
)

// RoomType mirrors the chat room type codes used by the room directory.
type RoomType string

const (
	RoomTypeDirect  RoomType = "d"
	RoomTypePrivate RoomType = "p"
	RoomTypeChannel RoomType = "c"
	RoomTypeLive    RoomType = "l"
)

// RoomProjection is the minimal view of a room needed to start a call.
type RoomProjection struct {
	ID      string
	Type    RoomType
	UserIDs []string
	Name    string
	FName   string // display name, preferred over Name when present
}

// UserIdentity is the display identity of a user as recorded on calls.
type UserIdentity struct {
	ID       string `json:"_id" bson:"_id"`
	Username string `json:"username" bson:"username"`
	Name     string `json:"name" bson:"name"`
}

// CallKind discriminates direct calls from group conferences.
type CallKind string

const (
	CallKindDirect CallKind = "direct"
	CallKindGroup  CallKind = "videoconference"
)

// CallStatus is the lifecycle state of a call. Values only ever increase.
type CallStatus int

const (
	CallStatusCalling CallStatus = iota
	CallStatusStarted
	CallStatusEnded
)

func (s CallStatus) String() string {
	switch s {
	case CallStatusCalling:
		return "calling"
	case CallStatusStarted:
		return "started"
	case CallStatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MessageTag names a lifecycle message linked to a call.
type MessageTag string

const (
	MessageTagStarted MessageTag = "started"
	MessageTagEnded   MessageTag = "ended"
)

// CallRecord is a persisted video conference.
type CallRecord struct {
	ID           string
	RoomID       string
	Kind         CallKind
	Status       CallStatus
	Title        string // group calls only
	URL          string // empty until generated
	Callee       string // direct calls only
	CreatedBy    UserIdentity
	Participants []UserIdentity
	Messages     map[MessageTag]string
	EndedBy      *UserIdentity
	EndedAt      *time.Time
	CreatedAt    time.Time
}

// IsDirect reports whether the record is a direct (1:1) call.
func (c *CallRecord) IsDirect() bool { return c.Kind == CallKindDirect }

// IsGroup reports whether the record is a group conference.
func (c *CallRecord) IsGroup() bool { return c.Kind == CallKindGroup }

// HasParticipant reports whether userID already joined the call.
func (c *CallRecord) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// MessageType is the semantic type of a chat message.
type MessageType string

const (
	MessageTypeDirectCalling     MessageType = "video-direct-calling"
	MessageTypeDirectMissed      MessageType = "video-direct-missed"
	MessageTypeConferenceStarted MessageType = "video-conference-started"
)

// MessageAuthor is the author stamp stored on a message.
type MessageAuthor struct {
	ID       string `json:"_id" bson:"_id"`
	Username string `json:"username" bson:"username"`
}

// VideoConfPayload is the structured call payload attached to announcement messages.
type VideoConfPayload struct {
	CallID string `json:"callId,omitempty" bson:"callId,omitempty"`
	Title  string `json:"title,omitempty" bson:"title,omitempty"`
}

// Message represents a persisted chat message announcing a call.
type Message struct {
	ID        string
	RoomID    string
	Type      MessageType
	Author    MessageAuthor
	Groupable bool
	Unread    bool
	VideoConf *VideoConfPayload
	CreatedAt time.Time
}

// RoomDirectory resolves room projections.
type RoomDirectory interface {
	// GetRoomProjection returns ErrNotFound when the room does not exist.
	GetRoomProjection(ctx context.Context, roomID string) (*RoomProjection, error)
}

// UserDirectory resolves user identities.
type UserDirectory interface {
	// GetUserIdentity returns ErrNotFound when the user does not exist.
	GetUserIdentity(ctx context.Context, userID string) (*UserIdentity, error)
}

// MessageStore handles announcement message persistence.
type MessageStore interface {
	// CreateMessage persists msg and returns its id.
	CreateMessage(ctx context.Context, msg *Message) (string, error)

	// SetMessageType rewrites the type of an existing message.
	SetMessageType(ctx context.Context, messageID string, t MessageType) error
}

// RoomCounter mutates room counters.
type RoomCounter interface {
	// IncRoomMessageCount adds delta to the room message counter.
	IncRoomMessageCount(ctx context.Context, roomID string, delta int) error
}

// CallStore handles call record persistence.
// Every mutation is a targeted partial update of a single record.
type CallStore interface {
	// CreateDirectCall inserts a ringing direct call and returns its id.
	CreateDirectCall(ctx context.Context, roomID string, createdBy UserIdentity, callee string) (string, error)

	// CreateGroupCall inserts a ringing group conference and returns its id.
	CreateGroupCall(ctx context.Context, roomID, title string, createdBy UserIdentity) (string, error)

	// GetCall retrieves a call by id, or ErrNotFound.
	GetCall(ctx context.Context, id string) (*CallRecord, error)

	// SetCallURL stores url only if the call has none yet and returns the persisted url.
	SetCallURL(ctx context.Context, id, url string) (string, error)

	// SetCallMessage links messageID under tag unless the tag is already set.
	SetCallMessage(ctx context.Context, id string, tag MessageTag, messageID string) error

	// AddCallParticipant inserts user into the participant set; repeated calls are no-ops.
	AddCallParticipant(ctx context.Context, id string, user UserIdentity) error

	// SetCallEnded ends a call that is still calling and not yet ended.
	// Returns ErrConflict when the call is not in that state.
	SetCallEnded(ctx context.Context, id string, by UserIdentity, at time.Time) error
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomDirectory
	UserDirectory
	MessageStore
	RoomCounter
	CallStore

	// Close releases the underlying connection.
	Close() error
}
