package notification

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRepository_Create(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs("n1", "u-1", "Title", "Body", sqlmock.AnyArg(), "payment", false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db)
	link := "/dashboard/payments"
	err = repo.Create(context.Background(), &Notification{
		ID: "n1", UserID: "u-1", Title: "Title", Body: "Body", Link: &link,
		Type: TypePayment, CreatedAt: now,
	})

	req.NoError(err)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_ListByUser(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "body", "link", "type", "is_read", "created_at"}).
		AddRow("n2", "u-1", "B", "b", nil, "error", false, now).
		AddRow("n1", "u-1", "A", "a", "/dashboard", "payment", true, now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications")).
		WithArgs("u-1").
		WillReturnRows(rows)

	list, err := NewRepository(db).ListByUser(context.Background(), "u-1")

	req.NoError(err)
	req.Len(list, 2)
	req.Nil(list[0].Link)
	req.Equal(TypeError, list[0].Type)
	req.NotNil(list[1].Link)
	req.Equal("/dashboard", *list[1].Link)
	req.True(list[1].IsRead)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_MarkRead_NotFound(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRepository(db).MarkRead(context.Background(), "u-2", "n1")

	req.ErrorIs(err, ErrNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func TestRepository_CountUnread(t *testing.T) {
	req := require.New(t)
	db, mock, err := sqlmock.New()
	req.NoError(err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewRepository(db).CountUnread(context.Background(), "u-1")

	req.NoError(err)
	req.Equal(3, n)
	req.NoError(mock.ExpectationsWereMet())
}
