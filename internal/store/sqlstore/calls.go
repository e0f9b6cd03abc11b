package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/videoconf/internal/store"
)

// ==== CallStore implementation ====

// CreateDirectCall inserts a ringing direct call and returns its id.
func (s *SQLStore) CreateDirectCall(ctx context.Context, roomID string, createdBy store.UserIdentity, callee string) (string, error) {
	return s.insertCall(ctx, roomID, store.CallKindDirect, "", sql.NullString{String: callee, Valid: true}, createdBy)
}

// CreateGroupCall inserts a ringing group conference and returns its id.
func (s *SQLStore) CreateGroupCall(ctx context.Context, roomID, title string, createdBy store.UserIdentity) (string, error) {
	return s.insertCall(ctx, roomID, store.CallKindGroup, title, sql.NullString{}, createdBy)
}

func (s *SQLStore) insertCall(ctx context.Context, roomID string, kind store.CallKind, title string, callee sql.NullString, createdBy store.UserIdentity) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO calls (id, room_id, kind, status, title, callee, created_by_id, created_by_username, created_by_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.exec(ctx, query,
		id,
		roomID,
		string(kind),
		int(store.CallStatusCalling),
		title,
		callee,
		createdBy.ID,
		createdBy.Username,
		createdBy.Name,
		s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert call: %w", err)
	}
	return id, nil
}

// GetCall retrieves a call and its participants.
func (s *SQLStore) GetCall(ctx context.Context, id string) (*store.CallRecord, error) {
	query := `
		SELECT id, room_id, kind, status, title, url, callee,
		       created_by_id, created_by_username, created_by_name,
		       started_message_id, ended_message_id,
		       ended_by_id, ended_by_username, ended_by_name, ended_at, created_at
		FROM calls
		WHERE id = ?
	`
	var call store.CallRecord
	var kind string
	var status int
	var url, callee, startedMsg, endedMsg sql.NullString
	var endedByID, endedByUsername, endedByName sql.NullString
	var endedAt sql.NullTime

	err := s.queryRow(ctx, query, id).Scan(
		&call.ID,
		&call.RoomID,
		&kind,
		&status,
		&call.Title,
		&url,
		&callee,
		&call.CreatedBy.ID,
		&call.CreatedBy.Username,
		&call.CreatedBy.Name,
		&startedMsg,
		&endedMsg,
		&endedByID,
		&endedByUsername,
		&endedByName,
		&endedAt,
		&call.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("call %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query call: %w", err)
	}

	call.Kind = store.CallKind(kind)
	call.Status = store.CallStatus(status)
	call.URL = url.String
	call.Callee = callee.String
	call.Messages = make(map[store.MessageTag]string)
	if startedMsg.Valid {
		call.Messages[store.MessageTagStarted] = startedMsg.String
	}
	if endedMsg.Valid {
		call.Messages[store.MessageTagEnded] = endedMsg.String
	}
	if endedByID.Valid {
		call.EndedBy = &store.UserIdentity{
			ID:       endedByID.String,
			Username: endedByUsername.String,
			Name:     endedByName.String,
		}
	}
	if endedAt.Valid {
		t := endedAt.Time
		call.EndedAt = &t
	}

	participants, err := s.listParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	call.Participants = participants

	return &call, nil
}

func (s *SQLStore) listParticipants(ctx context.Context, callID string) ([]store.UserIdentity, error) {
	rows, err := s.query(ctx, `
		SELECT user_id, username, name
		FROM call_participants
		WHERE call_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`, callID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []store.UserIdentity
	for rows.Next() {
		var p store.UserIdentity
		if err := rows.Scan(&p.ID, &p.Username, &p.Name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// SetCallURL stores url only if the call has none yet and returns the persisted url.
func (s *SQLStore) SetCallURL(ctx context.Context, id, url string) (string, error) {
	if _, err := s.exec(ctx, `UPDATE calls SET url = ? WHERE id = ? AND url IS NULL`, url, id); err != nil {
		return "", fmt.Errorf("update call url: %w", err)
	}

	var stored sql.NullString
	err := s.queryRow(ctx, `SELECT url FROM calls WHERE id = ?`, id).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("call %s: %w", id, store.ErrNotFound)
		}
		return "", fmt.Errorf("query call url: %w", err)
	}
	return stored.String, nil
}

// SetCallMessage links messageID under tag unless the tag is already set.
func (s *SQLStore) SetCallMessage(ctx context.Context, id string, tag store.MessageTag, messageID string) error {
	var query string
	switch tag {
	case store.MessageTagStarted:
		query = `UPDATE calls SET started_message_id = ? WHERE id = ? AND started_message_id IS NULL`
	case store.MessageTagEnded:
		query = `UPDATE calls SET ended_message_id = ? WHERE id = ? AND ended_message_id IS NULL`
	default:
		return fmt.Errorf("unknown message tag %q", tag)
	}

	result, err := s.exec(ctx, query, messageID, id)
	if err != nil {
		return fmt.Errorf("update call message: %w", err)
	}
	return s.checkApplied(ctx, result, id)
}

// AddCallParticipant inserts user into the participant set; repeated calls are no-ops.
func (s *SQLStore) AddCallParticipant(ctx context.Context, id string, user store.UserIdentity) error {
	query := `
		INSERT INTO call_participants (call_id, user_id, username, name, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (call_id, user_id) DO NOTHING
	`
	if _, err := s.exec(ctx, query, id, user.ID, user.Username, user.Name, s.timestamp()); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// SetCallEnded ends a call that is still calling and not yet ended.
func (s *SQLStore) SetCallEnded(ctx context.Context, id string, by store.UserIdentity, at time.Time) error {
	query := `
		UPDATE calls
		SET status = ?, ended_by_id = ?, ended_by_username = ?, ended_by_name = ?, ended_at = ?
		WHERE id = ? AND status = ? AND ended_by_id IS NULL AND ended_at IS NULL
	`
	result, err := s.exec(ctx, query,
		int(store.CallStatusEnded),
		by.ID,
		by.Username,
		by.Name,
		at.UTC(),
		id,
		int(store.CallStatusCalling),
	)
	if err != nil {
		return fmt.Errorf("update call ended: %w", err)
	}
	return s.checkApplied(ctx, result, id)
}

// checkApplied distinguishes a missing call from a conditional update that did not match.
func (s *SQLStore) checkApplied(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = s.queryRow(ctx, `SELECT 1 FROM calls WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("call %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("query call: %w", err)
	}
	return fmt.Errorf("call %s: %w", id, store.ErrConflict)
}
