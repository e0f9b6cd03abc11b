package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/videoconf/internal/store"
)

func newMockPostgres(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewFromDB(db, DialectPostgres)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func TestRebind(t *testing.T) {
	pg := NewFromDB(nil, DialectPostgres)
	require.Equal(t, "UPDATE calls SET url = $1 WHERE id = $2", pg.rebind("UPDATE calls SET url = ? WHERE id = ?"))

	lite := NewFromDB(nil, DialectSQLite)
	require.Equal(t, "SELECT 1 FROM calls WHERE id = ?", lite.rebind("SELECT 1 FROM calls WHERE id = ?"))
}

func TestPostgresSetCallURL(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE calls SET url = \$1 WHERE id = \$2 AND url IS NULL`).
		WithArgs("https://meet/second", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT url FROM calls WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://meet/first"))

	url, err := s.SetCallURL(context.Background(), "c1", "https://meet/second")
	require.NoError(t, err)
	require.Equal(t, "https://meet/first", url)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetCallEndedConflict(t *testing.T) {
	s, mock := newMockPostgres(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE calls.*SET status = \$1.*WHERE id = \$6 AND status = \$7`).
		WithArgs(int(store.CallStatusEnded), "u1", "alice", "Alice", at, "c1", int(store.CallStatusCalling)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM calls WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	err := s.SetCallEnded(context.Background(), "c1", store.UserIdentity{ID: "u1", Username: "alice", Name: "Alice"}, at)
	require.ErrorIs(t, err, store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIncRoomMessageCountMissingRoom(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE rooms SET msg_count = msg_count \+ \$1 WHERE id = \$2`).
		WithArgs(1, "r404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.IncRoomMessageCount(context.Background(), "r404", 1)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddCallParticipant(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`(?s)INSERT INTO call_participants.*VALUES \(\$1, \$2, \$3, \$4, \$5\).*ON CONFLICT \(call_id, user_id\) DO NOTHING`).
		WithArgs("c1", "u2", "bob", "Bob", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AddCallParticipant(context.Background(), "c1", store.UserIdentity{ID: "u2", Username: "bob", Name: "Bob"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
