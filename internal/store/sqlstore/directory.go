package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vovakirdan/videoconf/internal/store"
)

// ==== Users and rooms ====

// CreateUser inserts a user identity. An empty ID is replaced by a new UUID.
func (s *SQLStore) CreateUser(ctx context.Context, user *store.UserIdentity) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, username, name, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.exec(ctx, query, user.ID, user.Username, user.Name, s.timestamp()); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserIdentity retrieves the display identity of a user.
func (s *SQLStore) GetUserIdentity(ctx context.Context, userID string) (*store.UserIdentity, error) {
	query := `
		SELECT id, username, name
		FROM users
		WHERE id = ?
	`
	var user store.UserIdentity
	err := s.queryRow(ctx, query, userID).Scan(&user.ID, &user.Username, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// CreateRoom inserts a room and its members in one transaction.
// Member order is preserved in the room projection.
func (s *SQLStore) CreateRoom(ctx context.Context, room *store.RoomProjection) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	query := `
		INSERT INTO rooms (id, type, name, fname, msg_count, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	if _, err := tx.ExecContext(ctx, s.rebind(query), room.ID, string(room.Type), room.Name, room.FName, s.timestamp()); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	memberQuery := s.rebind(`
		INSERT INTO room_members (room_id, user_id, position)
		VALUES (?, ?, ?)
	`)
	for i, uid := range room.UserIDs {
		if _, err := tx.ExecContext(ctx, memberQuery, room.ID, uid, i); err != nil {
			return fmt.Errorf("add member %s: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRoomProjection retrieves the type, member ids and names of a room.
func (s *SQLStore) GetRoomProjection(ctx context.Context, roomID string) (*store.RoomProjection, error) {
	query := `
		SELECT id, type, name, fname
		FROM rooms
		WHERE id = ?
	`
	var room store.RoomProjection
	var roomType string
	err := s.queryRow(ctx, query, roomID).Scan(&room.ID, &roomType, &room.Name, &room.FName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	room.Type = store.RoomType(roomType)

	rows, err := s.query(ctx, `
		SELECT user_id FROM room_members
		WHERE room_id = ?
		ORDER BY position ASC, user_id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		room.UserIDs = append(room.UserIDs, uid)
	}

	return &room, rows.Err()
}

// IncRoomMessageCount adds delta to the room message counter.
func (s *SQLStore) IncRoomMessageCount(ctx context.Context, roomID string, delta int) error {
	result, err := s.exec(ctx, `UPDATE rooms SET msg_count = msg_count + ? WHERE id = ?`, delta, roomID)
	if err != nil {
		return fmt.Errorf("update room counter: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
	}
	return nil
}

// RoomMessageCount returns the current message counter of a room.
func (s *SQLStore) RoomMessageCount(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT msg_count FROM rooms WHERE id = ?`, roomID).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
		}
		return 0, fmt.Errorf("query room counter: %w", err)
	}
	return n, nil
}

// ==== MessageStore implementation ====

// CreateMessage persists msg and returns its id.
func (s *SQLStore) CreateMessage(ctx context.Context, msg *store.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.timestamp()
	}

	var callID, title sql.NullString
	if msg.VideoConf != nil {
		callID = sql.NullString{String: msg.VideoConf.CallID, Valid: msg.VideoConf.CallID != ""}
		title = sql.NullString{String: msg.VideoConf.Title, Valid: true}
	}

	query := `
		INSERT INTO messages (id, room_id, type, author_id, author_username, groupable, unread, video_conf_call_id, video_conf_title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.exec(ctx, query,
		msg.ID,
		msg.RoomID,
		string(msg.Type),
		msg.Author.ID,
		msg.Author.Username,
		msg.Groupable,
		msg.Unread,
		callID,
		title,
		msg.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return msg.ID, nil
}

// SetMessageType rewrites the type of an existing message.
func (s *SQLStore) SetMessageType(ctx context.Context, messageID string, t store.MessageType) error {
	result, err := s.exec(ctx, `UPDATE messages SET type = ? WHERE id = ?`, string(t), messageID)
	if err != nil {
		return fmt.Errorf("update message type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
	}
	return nil
}

// GetMessage retrieves a message by id.
func (s *SQLStore) GetMessage(ctx context.Context, messageID string) (*store.Message, error) {
	query := `
		SELECT id, room_id, type, author_id, author_username, groupable, unread, video_conf_call_id, video_conf_title, created_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var msgType string
	var callID, title sql.NullString
	err := s.queryRow(ctx, query, messageID).Scan(
		&msg.ID,
		&msg.RoomID,
		&msgType,
		&msg.Author.ID,
		&msg.Author.Username,
		&msg.Groupable,
		&msg.Unread,
		&callID,
		&title,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	msg.Type = store.MessageType(msgType)
	if callID.Valid || title.Valid {
		msg.VideoConf = &store.VideoConfPayload{CallID: callID.String, Title: title.String}
	}
	return &msg, nil
}
