package chat

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateMessage(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("m1", "c1", false, "u-1", "hello", StatusSent, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversations SET updated_at = $1 WHERE id = $2")).
		WithArgs(now, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewRepository(db).CreateMessage(context.Background(), &Message{
		ID: "m1", ConversationID: "c1", SenderID: "u-1", Message: "hello",
		Status: StatusSent, CreatedAt: now, UpdatedAt: now,
	})

	req.NoError(err)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_CreateMessage_UnknownConversation(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewRepository(db).CreateMessage(context.Background(), &Message{ID: "m1", ConversationID: "gone"})

	req.ErrorIs(err, ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_GetConversation_NotFound(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM conversations WHERE id = $1")).
		WithArgs("c9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "owner_id", "created_at", "updated_at"}))

	_, err = NewRepository(db).GetConversation(context.Background(), "c9")

	req.ErrorIs(err, ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_ListMessages(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_is_admin", "sender_id", "message", "status", "created_at", "updated_at"}).
		AddRow("m1", "c1", false, "u-1", "hi", "sent", now, now).
		AddRow("m2", "c1", true, "admin-1", "hello", "edited", now.Add(time.Second), now.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE conversation_id = $1 AND status <> 'deleted'")).
		WithArgs("c1").
		WillReturnRows(rows)

	msgs, err := NewRepository(db).ListMessages(context.Background(), "c1")

	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal(StatusEdited, msgs[1].Status)
	req.True(msgs[1].SenderIsAdmin)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_MarkReadAndCountUnread(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (conversation_id, user_id) DO UPDATE")).
		WithArgs("c1", "u-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN conversation_reads")).
		WithArgs("c1", "u-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	repo := NewRepository(db)
	req.NoError(repo.MarkRead(context.Background(), "c1", "u-1", now))
	n, err := repo.CountUnread(context.Background(), "c1", "u-1", false)

	req.NoError(err)
	req.Equal(0, n)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_DeleteConversation_NotFound(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversations WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req.ErrorIs(NewRepository(db).DeleteConversation(context.Background(), "c1"), ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}
