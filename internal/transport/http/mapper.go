package http

import (
	"time"

	"github.com/vovakirdan/videoconf/internal/service/conference"
	"github.com/vovakirdan/videoconf/internal/store"
)

// UserResponse is a user identity in API responses.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// CallResponse represents a call in API responses.
type CallResponse struct {
	ID           string            `json:"id"`
	RoomID       string            `json:"room_id"`
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	Title        string            `json:"title,omitempty"`
	URL          string            `json:"url,omitempty"`
	Callee       string            `json:"callee,omitempty"`
	CreatedBy    UserResponse      `json:"created_by"`
	Participants []UserResponse    `json:"participants"`
	Messages     map[string]string `json:"messages,omitempty"`
	EndedBy      *UserResponse     `json:"ended_by,omitempty"`
	EndedAt      *string           `json:"ended_at,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

// InstructionsResponse tells the caller how to proceed after a call start.
type InstructionsResponse struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Callee string `json:"callee,omitempty"`
}

func userToResponse(u store.UserIdentity) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Name: u.Name}
}

// callToResponse converts a store.CallRecord to CallResponse.
func callToResponse(c *store.CallRecord) CallResponse {
	resp := CallResponse{
		ID:           c.ID,
		RoomID:       c.RoomID,
		Type:         string(c.Kind),
		Status:       c.Status.String(),
		Title:        c.Title,
		URL:          c.URL,
		Callee:       c.Callee,
		CreatedBy:    userToResponse(c.CreatedBy),
		Participants: make([]UserResponse, 0, len(c.Participants)),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
	for _, p := range c.Participants {
		resp.Participants = append(resp.Participants, userToResponse(p))
	}
	if len(c.Messages) > 0 {
		resp.Messages = make(map[string]string, len(c.Messages))
		for tag, id := range c.Messages {
			resp.Messages[string(tag)] = id
		}
	}
	if c.EndedBy != nil {
		endedBy := userToResponse(*c.EndedBy)
		resp.EndedBy = &endedBy
	}
	if c.EndedAt != nil {
		endedAt := c.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &endedAt
	}
	return resp
}

func instructionsToResponse(in conference.Instructions) InstructionsResponse {
	resp := InstructionsResponse{Type: string(in.Kind()), CallID: in.ID()}
	if direct, ok := in.(conference.DirectInstructions); ok {
		resp.Callee = direct.Callee
	}
	return resp
}
