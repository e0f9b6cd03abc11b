package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/videoconf/internal/store"
)

type roomDoc struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"t"`
	UserIDs   []string  `bson:"uids,omitempty"`
	Name      string    `bson:"name,omitempty"`
	FName     string    `bson:"fname,omitempty"`
	Msgs      int       `bson:"msgs"`
	CreatedAt time.Time `bson:"ts"`
}

func (d *roomDoc) toProjection() *store.RoomProjection {
	return &store.RoomProjection{
		ID:      d.ID,
		Type:    store.RoomType(d.Type),
		UserIDs: d.UserIDs,
		Name:    d.Name,
		FName:   d.FName,
	}
}

type messageDoc struct {
	ID        string                  `bson:"_id"`
	RoomID    string                  `bson:"rid"`
	Type      string                  `bson:"t"`
	Author    store.MessageAuthor     `bson:"u"`
	Groupable bool                    `bson:"groupable"`
	Unread    bool                    `bson:"unread,omitempty"`
	VideoConf *store.VideoConfPayload `bson:"videoConf,omitempty"`
	CreatedAt time.Time               `bson:"ts"`
}

func newMessageDoc(msg *store.Message) messageDoc {
	return messageDoc{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Type:      string(msg.Type),
		Author:    msg.Author,
		Groupable: msg.Groupable,
		Unread:    msg.Unread,
		VideoConf: msg.VideoConf,
		CreatedAt: msg.CreatedAt,
	}
}

func (d *messageDoc) toMessage() *store.Message {
	return &store.Message{
		ID:        d.ID,
		RoomID:    d.RoomID,
		Type:      store.MessageType(d.Type),
		Author:    d.Author,
		Groupable: d.Groupable,
		Unread:    d.Unread,
		VideoConf: d.VideoConf,
		CreatedAt: d.CreatedAt,
	}
}

type callDoc struct {
	ID        string               `bson:"_id"`
	RoomID    string               `bson:"rid"`
	Type      string               `bson:"type"`
	Status    int                  `bson:"status"`
	Title     string               `bson:"title,omitempty"`
	URL       string               `bson:"url,omitempty"`
	Callee    string               `bson:"callee,omitempty"`
	CreatedBy store.UserIdentity   `bson:"createdBy"`
	Users     []store.UserIdentity `bson:"users"`
	Messages  map[string]string    `bson:"messages"`
	EndedBy   *store.UserIdentity  `bson:"endedBy,omitempty"`
	EndedAt   *time.Time           `bson:"endedAt,omitempty"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d *callDoc) toRecord() *store.CallRecord {
	rec := &store.CallRecord{
		ID:           d.ID,
		RoomID:       d.RoomID,
		Kind:         store.CallKind(d.Type),
		Status:       store.CallStatus(d.Status),
		Title:        d.Title,
		URL:          d.URL,
		Callee:       d.Callee,
		CreatedBy:    d.CreatedBy,
		Participants: d.Users,
		Messages:     make(map[store.MessageTag]string, len(d.Messages)),
		EndedBy:      d.EndedBy,
		EndedAt:      d.EndedAt,
		CreatedAt:    d.CreatedAt,
	}
	for tag, id := range d.Messages {
		rec.Messages[store.MessageTag(tag)] = id
	}
	return rec
}

// urlUnsetFilter matches a call whose url has never been stored.
func urlUnsetFilter(id string) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"url": bson.M{"$exists": false}},
			bson.M{"url": ""},
		},
	}
}

// messageUnsetFilter matches a call that has no message linked under tag.
func messageUnsetFilter(id string, tag store.MessageTag) bson.M {
	filter := bson.M{"_id": id}
	filter["messages."+string(tag)] = bson.M{"$exists": false}
	return filter
}

// participantAbsentFilter matches a call that does not list userID yet.
func participantAbsentFilter(id, userID string) bson.M {
	return bson.M{
		"_id":       id,
		"users._id": bson.M{"$ne": userID},
	}
}

// cancelableFilter matches a call that is still ringing and was never ended.
func cancelableFilter(id string) bson.M {
	return bson.M{
		"_id":     id,
		"status":  int(store.CallStatusCalling),
		"endedBy": bson.M{"$exists": false},
		"endedAt": bson.M{"$exists": false},
	}
}

func indexModels() map[string][]mongoLib.IndexModel {
	return map[string][]mongoLib.IndexModel{
		usersColName: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		messagesColName: {
			{Keys: bson.D{{Key: "rid", Value: 1}, {Key: "ts", Value: -1}}},
		},
		callsColName: {
			{Keys: bson.D{{Key: "rid", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}
