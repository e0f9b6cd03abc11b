package core

import "github.com/google/uuid"

// Client is one event subscription of a user. A user may hold several.
type Client struct {
	ID     string
	UserID string
	Events chan *Event
}

// NewClient constructs a client with a buffered event channel.
func NewClient(userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan *Event, buffer),
	}
}
