package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/videoconf/internal/store"
)

// ==== Users and rooms ====

// CreateUser inserts a user identity. An empty ID is replaced by a new UUID.
func (s *Store) CreateUser(ctx context.Context, user *store.UserIdentity) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserIdentity retrieves the display identity of a user.
func (s *Store) GetUserIdentity(ctx context.Context, userID string) (*store.UserIdentity, error) {
	var user store.UserIdentity
	opts := options.FindOne().SetProjection(bson.M{"_id": 1, "username": 1, "name": 1})
	if err := s.users().FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// CreateRoom inserts a room document.
func (s *Store) CreateRoom(ctx context.Context, room *store.RoomProjection) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	doc := roomDoc{
		ID:        room.ID,
		Type:      string(room.Type),
		UserIDs:   room.UserIDs,
		Name:      room.Name,
		FName:     room.FName,
		CreatedAt: s.timestamp(),
	}
	if _, err := s.rooms().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoomProjection retrieves the type, member ids and names of a room.
func (s *Store) GetRoomProjection(ctx context.Context, roomID string) (*store.RoomProjection, error) {
	var doc roomDoc
	opts := options.FindOne().SetProjection(bson.M{"t": 1, "uids": 1, "name": 1, "fname": 1})
	if err := s.rooms().FindOne(ctx, bson.M{"_id": roomID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return doc.toProjection(), nil
}

// IncRoomMessageCount adds delta to the room message counter.
func (s *Store) IncRoomMessageCount(ctx context.Context, roomID string, delta int) error {
	res, err := s.rooms().UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{"$inc": bson.M{"msgs": delta}})
	if err != nil {
		return fmt.Errorf("inc room counter: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
	}
	return nil
}

// ==== MessageStore implementation ====

// CreateMessage persists msg and returns its id.
func (s *Store) CreateMessage(ctx context.Context, msg *store.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.timestamp()
	}
	if _, err := s.messages().InsertOne(ctx, newMessageDoc(msg)); err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return msg.ID, nil
}

// SetMessageType rewrites the type of an existing message.
func (s *Store) SetMessageType(ctx context.Context, messageID string, t store.MessageType) error {
	res, err := s.messages().UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": bson.M{"t": string(t)}})
	if err != nil {
		return fmt.Errorf("update message type: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
	}
	return nil
}

// GetMessage retrieves a message by id.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*store.Message, error) {
	var doc messageDoc
	if err := s.messages().FindOne(ctx, bson.M{"_id": messageID}).Decode(&doc); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return doc.toMessage(), nil
}

// ==== CallStore implementation ====

// CreateDirectCall inserts a ringing direct call and returns its id.
func (s *Store) CreateDirectCall(ctx context.Context, roomID string, createdBy store.UserIdentity, callee string) (string, error) {
	return s.insertCall(ctx, callDoc{
		RoomID:    roomID,
		Type:      string(store.CallKindDirect),
		Callee:    callee,
		CreatedBy: createdBy,
	})
}

// CreateGroupCall inserts a ringing group conference and returns its id.
func (s *Store) CreateGroupCall(ctx context.Context, roomID, title string, createdBy store.UserIdentity) (string, error) {
	return s.insertCall(ctx, callDoc{
		RoomID:    roomID,
		Type:      string(store.CallKindGroup),
		Title:     title,
		CreatedBy: createdBy,
	})
}

func (s *Store) insertCall(ctx context.Context, doc callDoc) (string, error) {
	doc.ID = uuid.NewString()
	doc.Status = int(store.CallStatusCalling)
	doc.Users = []store.UserIdentity{}
	doc.Messages = map[string]string{}
	doc.CreatedAt = s.timestamp()

	if _, err := s.calls().InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert call: %w", err)
	}
	return doc.ID, nil
}

// GetCall retrieves a call by id.
func (s *Store) GetCall(ctx context.Context, id string) (*store.CallRecord, error) {
	var doc callDoc
	if err := s.calls().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, fmt.Errorf("call %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find call: %w", err)
	}
	return doc.toRecord(), nil
}

// SetCallURL stores url only if the call has none yet and returns the persisted url.
func (s *Store) SetCallURL(ctx context.Context, id, url string) (string, error) {
	if _, err := s.calls().UpdateOne(ctx, urlUnsetFilter(id), bson.M{"$set": bson.M{"url": url}}); err != nil {
		return "", fmt.Errorf("update call url: %w", err)
	}

	var doc struct {
		URL string `bson:"url"`
	}
	opts := options.FindOne().SetProjection(bson.M{"url": 1})
	if err := s.calls().FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return "", fmt.Errorf("call %s: %w", id, store.ErrNotFound)
		}
		return "", fmt.Errorf("find call url: %w", err)
	}
	return doc.URL, nil
}

// SetCallMessage links messageID under tag unless the tag is already set.
func (s *Store) SetCallMessage(ctx context.Context, id string, tag store.MessageTag, messageID string) error {
	update := bson.M{"$set": bson.M{"messages." + string(tag): messageID}}
	res, err := s.calls().UpdateOne(ctx, messageUnsetFilter(id, tag), update)
	if err != nil {
		return fmt.Errorf("update call message: %w", err)
	}
	return s.checkApplied(ctx, res, id)
}

// AddCallParticipant appends user unless a participant with the same id exists.
func (s *Store) AddCallParticipant(ctx context.Context, id string, user store.UserIdentity) error {
	res, err := s.calls().UpdateOne(ctx, participantAbsentFilter(id, user.ID), bson.M{"$push": bson.M{"users": user}})
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if err := s.checkApplied(ctx, res, id); err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}
	return nil
}

// SetCallEnded ends a call that is still calling and not yet ended.
func (s *Store) SetCallEnded(ctx context.Context, id string, by store.UserIdentity, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"status":  int(store.CallStatusEnded),
		"endedBy": by,
		"endedAt": at.UTC(),
	}}
	res, err := s.calls().UpdateOne(ctx, cancelableFilter(id), update)
	if err != nil {
		return fmt.Errorf("update call ended: %w", err)
	}
	return s.checkApplied(ctx, res, id)
}

// checkApplied distinguishes a missing call from a conditional update that did not match.
func (s *Store) checkApplied(ctx context.Context, res *mongoLib.UpdateResult, id string) error {
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.calls().CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count call: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("call %s: %w", id, store.ErrNotFound)
	}
	return fmt.Errorf("call %s: %w", id, store.ErrConflict)
}
