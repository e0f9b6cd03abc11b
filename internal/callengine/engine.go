package callengine

import (
	"context"
	"errors"

	"github.com/vovakirdan/videoconf/internal/store"
)

// ErrURLMissing is returned when a call has no base URL to customize.
var ErrURLMissing = errors.New("call has no url")

// JoinOptions are per-participant media preferences. A nil field means "not specified".
type JoinOptions struct {
	Mic *bool `json:"mic,omitempty"`
	Cam *bool `json:"cam,omitempty"`
}

// Bool returns a pointer to v, for building JoinOptions.
func Bool(v bool) *bool {
	return &v
}

// Provider abstracts the external media backend that hosts calls.
// Implementations must not mutate the call record they are given.
type Provider interface {
	// GenerateURL produces the base joinable URL for a call.
	GenerateURL(ctx context.Context, call *store.CallRecord) (string, error)

	// CustomizeURL derives a participant-specific URL from the call's base URL.
	CustomizeURL(ctx context.Context, call *store.CallRecord, user store.UserIdentity, opts JoinOptions) (string, error)
}

// DisplayName is the name shown for a participant, falling back to the username.
func DisplayName(user store.UserIdentity) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}
