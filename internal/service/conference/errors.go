package conference

import "errors"

// Errors returned by the orchestrator. Each one has a stable code, see Code.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvalidCallTarget = errors.New("no one to call in this room")
	ErrCallNotFound      = errors.New("call not found")
	ErrInvalidCallStatus = errors.New("call is not in a cancelable state")
	ErrLoadSelfFailed    = errors.New("failed to load own user data")
)

// Error codes exposed to clients.
const (
	CodeInvalidRoom       = "invalid-room"
	CodeInvalidCallTarget = "invalid-call-target"
	CodeInvalidCall       = "invalid-call"
	CodeInvalidCallStatus = "invalid-call-status"
	CodeLoadSelfFailed    = "failed-to-load-own-data"
)

// Code returns the client-facing code for err, or "" if err is not an orchestrator error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return CodeInvalidRoom
	case errors.Is(err, ErrInvalidCallTarget):
		return CodeInvalidCallTarget
	case errors.Is(err, ErrCallNotFound):
		return CodeInvalidCall
	case errors.Is(err, ErrInvalidCallStatus):
		return CodeInvalidCallStatus
	case errors.Is(err, ErrLoadSelfFailed):
		return CodeLoadSelfFailed
	default:
		return ""
	}
}
