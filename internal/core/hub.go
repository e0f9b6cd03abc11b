package core

import (
	"context"

	"github.com/rs/zerolog"
)

type delivery struct {
	userID string
	event  *Event
}

// Hub fans call events out to the subscriptions of each user.
// All state is owned by the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	publish    chan delivery
	done       chan struct{}
	log        *zerolog.Logger
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(log *zerolog.Logger) *Hub {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and deliveries until ctx is done.
// On exit every client's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, set := range h.clients {
			for c := range set {
				close(c.Events)
			}
		}
		h.clients = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			set, ok := h.clients[c.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.UserID] = set
			}
			set[c] = struct{}{}
			h.log.Debug().Str("user_id", c.UserID).Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			set := h.clients[c.UserID]
			if _, ok := set[c]; !ok {
				continue
			}
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.UserID)
			}
			close(c.Events)
			h.log.Debug().Str("user_id", c.UserID).Str("client_id", c.ID).Msg("client unregistered")
		case d := <-h.publish:
			for c := range h.clients[d.userID] {
				select {
				case c.Events <- d.event:
				default:
					h.log.Warn().Str("user_id", d.userID).Str("event", d.event.Kind.String()).Msg("dropping event for slow client")
				}
			}
		}
	}
}

// RegisterClient subscribes c to events addressed to c.UserID.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes c and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues ev for every subscription of userID.
// Delivery is best-effort: it reports false when the event was dropped.
func (h *Hub) Publish(userID string, ev *Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.publish <- delivery{userID: userID, event: ev}:
		return true
	default:
		h.log.Warn().Str("user_id", userID).Str("event", ev.Kind.String()).Msg("hub backlog full, dropping event")
		return false
	}
}
