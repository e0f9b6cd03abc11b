package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventCallIncoming notifies the callee of a ringing direct call.
	EventCallIncoming EventKind = iota
	// EventCallCanceled notifies the callee that the caller hung up before anyone joined.
	EventCallCanceled
	// EventCallParticipantJoined notifies the call creator that someone joined.
	EventCallParticipantJoined
	// EventError notifies a client about a protocol error.
	EventError
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCallIncoming:
		return "call.incoming"
	case EventCallCanceled:
		return "call.canceled"
	case EventCallParticipantJoined:
		return "call.participant_joined"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind  EventKind
	Call  *CallEvent // non-nil for call events
	Error *CoreError
}

// CallEvent holds data specific to call events.
type CallEvent struct {
	CallID       string
	CallType     string // "direct" or "videoconference"
	RoomID       string
	Title        string
	FromUserID   string
	FromUsername string
	UserID       string // the participant, for EventCallParticipantJoined
	Username     string
	CreatedAt    int64 // Unix timestamp
}
