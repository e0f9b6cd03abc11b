package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/callengine"
	"github.com/vovakirdan/videoconf/internal/service/conference"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ConferenceHandlers provides HTTP handlers for call management endpoints.
type ConferenceHandlers struct {
	service *conference.Service
	log     *zerolog.Logger
}

// NewConferenceHandlers creates a new conference handlers instance.
func NewConferenceHandlers(svc *conference.Service, logger *zerolog.Logger) *ConferenceHandlers {
	return &ConferenceHandlers{
		service: svc,
		log:     logger,
	}
}

// StartCallRequest is the optional body of a call start.
type StartCallRequest struct {
	Title string `json:"title"`
}

// JoinCallRequest carries the media preferences of a joining user.
type JoinCallRequest struct {
	Mic *bool `json:"mic"`
	Cam *bool `json:"cam"`
}

// JoinCallResponse holds the personalized URL for a participant.
type JoinCallResponse struct {
	URL string `json:"url"`
}

// userID returns the authenticated user or writes a 401.
func (h *ConferenceHandlers) userID(c *gin.Context) (string, bool) {
	uid := c.GetString(ContextKeyUserID)
	if uid == "" {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return "", false
	}
	return uid, true
}

// writeError maps orchestrator errors to HTTP statuses.
func (h *ConferenceHandlers) writeError(c *gin.Context, err error, op string) {
	code := conference.Code(err)
	switch {
	case errors.Is(err, conference.ErrRoomNotFound), errors.Is(err, conference.ErrCallNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: code})
	case errors.Is(err, conference.ErrInvalidCallTarget):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code})
	case errors.Is(err, conference.ErrInvalidCallStatus):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: code})
	case errors.Is(err, conference.ErrLoadSelfFailed):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: code})
	default:
		h.log.Error().Err(err).Str("op", op).Str("path", c.Request.URL.Path).Msg("conference operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// StartCall handles starting a call in a room.
// POST /api/rooms/:id/calls
func (h *ConferenceHandlers) StartCall(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room id required"})
		return
	}

	var req StartCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid start call request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	instructions, err := h.service.Start(c.Request.Context(), uid, roomID, req.Title)
	if err != nil {
		h.writeError(c, err, "start")
		return
	}

	h.log.Info().Str("call_id", instructions.ID()).Str("user_id", uid).Str("room_id", roomID).
		Str("type", string(instructions.Kind())).Msg("call started")
	c.JSON(http.StatusCreated, instructionsToResponse(instructions))
}

// JoinCall handles joining a call.
// POST /api/calls/:id/join
func (h *ConferenceHandlers) JoinCall(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	callID := c.Param("id")
	if callID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "call id required"})
		return
	}

	var req JoinCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid join call request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	url, err := h.service.Join(c.Request.Context(), uid, callID, callengine.JoinOptions{Mic: req.Mic, Cam: req.Cam})
	if err != nil {
		h.writeError(c, err, "join")
		return
	}

	h.log.Debug().Str("call_id", callID).Str("user_id", uid).Msg("call joined")
	c.JSON(http.StatusOK, JoinCallResponse{URL: url})
}

// CancelCall handles canceling a ringing direct call.
// POST /api/calls/:id/cancel
func (h *ConferenceHandlers) CancelCall(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	callID := c.Param("id")
	if callID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "call id required"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), uid, callID); err != nil {
		h.writeError(c, err, "cancel")
		return
	}

	h.log.Info().Str("call_id", callID).Str("user_id", uid).Msg("call canceled")
	c.JSON(http.StatusOK, gin.H{"message": "call canceled"})
}

// GetCall handles retrieving a call by ID.
// GET /api/calls/:id
func (h *ConferenceHandlers) GetCall(c *gin.Context) {
	callID := c.Param("id")
	if callID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "call id required"})
		return
	}

	call, err := h.service.Get(c.Request.Context(), callID)
	if err != nil {
		h.writeError(c, err, "get")
		return
	}
	if call == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "call not found", Code: conference.CodeInvalidCall})
		return
	}

	c.JSON(http.StatusOK, callToResponse(call))
}
