package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/videoconf/internal/store"
)

func stubMongo(t *testing.T, pingErr error) *int {
	t.Helper()

	oldConnect, oldPing := connectMongo, pingMongo
	connects := 0
	connectMongo = func(ctx context.Context, opts *options.ClientOptions) (*mongoLib.Client, error) {
		connects++
		return mongoLib.NewClient(options.Client().ApplyURI("mongodb://example.com"))
	}
	pingMongo = func(ctx context.Context, cli *mongoLib.Client) error {
		return pingErr
	}
	t.Cleanup(func() {
		connectMongo, pingMongo = oldConnect, oldPing
	})
	return &connects
}

func TestDial(t *testing.T) {
	connects := stubMongo(t, nil)

	s, err := Dial(context.Background(), Config{URI: "mongodb://localhost:27017", Database: "videoconf"})
	require.NoError(t, err)
	require.Equal(t, 1, *connects)
	require.Equal(t, "videoconf", s.db.Name())
	require.Equal(t, callsColName, s.calls().Name())
}

func TestDialValidation(t *testing.T) {
	stubMongo(t, nil)

	_, err := Dial(context.Background(), Config{Database: "videoconf"})
	require.Error(t, err)

	_, err = Dial(context.Background(), Config{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
}

func TestDialPingFailure(t *testing.T) {
	pingErr := errors.New("no primary")
	stubMongo(t, pingErr)

	_, err := Dial(context.Background(), Config{URI: "mongodb://localhost:27017", Database: "videoconf"})
	require.ErrorIs(t, err, pingErr)
}

func TestCallDocToRecord(t *testing.T) {
	ended := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := callDoc{
		ID:        "c1",
		RoomID:    "r1",
		Type:      string(store.CallKindDirect),
		Status:    int(store.CallStatusEnded),
		URL:       "https://meet/c1",
		Callee:    "u2",
		CreatedBy: store.UserIdentity{ID: "u1", Username: "alice"},
		Users:     []store.UserIdentity{{ID: "u2", Username: "bob"}},
		Messages:  map[string]string{"started": "m1"},
		EndedBy:   &store.UserIdentity{ID: "u1"},
		EndedAt:   &ended,
	}

	rec := doc.toRecord()
	require.True(t, rec.IsDirect())
	require.Equal(t, store.CallStatusEnded, rec.Status)
	require.Equal(t, "m1", rec.Messages[store.MessageTagStarted])
	require.True(t, rec.HasParticipant("u2"))
	require.Equal(t, ended, *rec.EndedAt)
}

func TestCallDocRoundTripsThroughBSON(t *testing.T) {
	doc := callDoc{
		ID:       "c1",
		Type:     string(store.CallKindGroup),
		Title:    "Standup",
		Users:    []store.UserIdentity{},
		Messages: map[string]string{},
	}
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	require.Equal(t, "videoconference", m["type"])
	require.NotContains(t, m, "url")
	require.NotContains(t, m, "endedBy")
	require.NotContains(t, m, "endedAt")
}

func TestConditionalFilters(t *testing.T) {
	require.Equal(t, bson.M{"$exists": false}, messageUnsetFilter("c1", store.MessageTagStarted)["messages.started"])
	require.Equal(t, bson.M{"$ne": "u2"}, participantAbsentFilter("c1", "u2")["users._id"])

	cancel := cancelableFilter("c1")
	require.Equal(t, int(store.CallStatusCalling), cancel["status"])
	require.Contains(t, cancel, "endedBy")
	require.Contains(t, cancel, "endedAt")

	or, ok := urlUnsetFilter("c1")["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
}
