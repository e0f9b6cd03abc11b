package proto

import "github.com/vovakirdan/videoconf/internal/core"

const (
	ProtocolVersion = 1

	OutboundTypeHello = "hello"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// HelloData greets a freshly connected client.
type HelloData struct {
	User     string `json:"user"`
	Protocol int    `json:"protocol"`
}

// EventCall is the payload of every call.* event.
type EventCall struct {
	CallID       string `json:"call_id"`
	CallType     string `json:"call_type"`
	RoomID       string `json:"room_id"`
	Title        string `json:"title,omitempty"`
	FromUserID   string `json:"from_user_id,omitempty"`
	FromUsername string `json:"from_username,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Hello builds the greeting envelope.
func Hello(userID string) Outbound {
	return Outbound{
		Type: OutboundTypeHello,
		Data: HelloData{User: userID, Protocol: ProtocolVersion},
	}
}

// FromEvent converts a core event into its wire envelope.
func FromEvent(ev *core.Event) Outbound {
	if ev.Kind == core.EventError && ev.Error != nil {
		return Outbound{
			Type:  OutboundTypeError,
			Error: &Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	}

	out := Outbound{Type: OutboundTypeEvent, Event: ev.Kind.String()}
	if c := ev.Call; c != nil {
		out.Data = EventCall{
			CallID:       c.CallID,
			CallType:     c.CallType,
			RoomID:       c.RoomID,
			Title:        c.Title,
			FromUserID:   c.FromUserID,
			FromUsername: c.FromUsername,
			UserID:       c.UserID,
			Username:     c.Username,
			CreatedAt:    c.CreatedAt,
		}
	}
	return out
}
