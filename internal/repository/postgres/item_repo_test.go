package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
)

func permittedTo(userID int64) func(*model.Bucketlist) error {
	return func(b *model.Bucketlist) error {
		if b.UserID != userID {
			return errs.ErrForbidden
		}
		return nil
	}
}

func TestItemRepo_Create_TouchesBucketlist(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", now))
	mock.ExpectQuery(`INSERT INTO items \(bucketlist_id, name, done, date_created, date_modified\) VALUES \(\$1, \$2, \$3, now\(\), now\(\)\)`).
		WithArgs(int64(10), "Visit Peru", false).
		WillReturnRows(pgxmock.NewRows(itemsCols).AddRow(int64(100), int64(10), "Visit Peru", false, now, now))
	mock.ExpectExec(`UPDATE bucketlists SET date_modified=clock_timestamp\(\) WHERE id=\$1`).
		WithArgs(int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	it := &model.Item{Name: "Visit Peru"}
	require.NoError(t, r.Create(context.Background(), 10, it, permittedTo(1)))
	require.Equal(t, int64(100), it.ID)
	require.Equal(t, int64(10), it.BucketlistID)
	require.False(t, it.Done)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Create_ForbiddenWritesNothing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 2, "Bob's", time.Now()))
	mock.ExpectRollback()

	err := r.Create(context.Background(), 10, &model.Item{Name: "x"}, permittedTo(1))
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Create_MissingBucketlist(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := r.Create(context.Background(), 99, &model.Item{Name: "x"}, permittedTo(1))
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Update(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)
	now := time.Now()
	done := true

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", now))
	mock.ExpectQuery(`UPDATE items SET name = COALESCE\(\$3, name\), done = COALESCE\(\$4, done\), date_modified = clock_timestamp\(\) WHERE id=\$1 AND bucketlist_id=\$2`).
		WithArgs(int64(100), int64(10), (*string)(nil), &done).
		WillReturnRows(pgxmock.NewRows(itemsCols).AddRow(int64(100), int64(10), "Visit Peru", true, now, now))
	mock.ExpectExec(`UPDATE bucketlists SET date_modified=clock_timestamp\(\)`).
		WithArgs(int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	it, err := r.Update(context.Background(), 10, 100, model.ItemPatch{Done: &done}, permittedTo(1))
	require.NoError(t, err)
	require.True(t, it.Done)
	require.Equal(t, "Visit Peru", it.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Update_ItemOfAnotherBucketlist(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", time.Now()))
	mock.ExpectQuery(`UPDATE items`).
		WithArgs(int64(555), int64(10), (*string)(nil), (*bool)(nil)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Update(context.Background(), 10, 555, model.ItemPatch{}, permittedTo(1))
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", time.Now()))
	mock.ExpectExec(`DELETE FROM items WHERE id=\$1 AND bucketlist_id=\$2`).
		WithArgs(int64(100), int64(10)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE bucketlists SET date_modified=clock_timestamp\(\)`).
		WithArgs(int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Delete(context.Background(), 10, 100, permittedTo(1)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Delete_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", time.Now()))
	mock.ExpectExec(`DELETE FROM items WHERE id=\$1 AND bucketlist_id=\$2`).
		WithArgs(int64(100), int64(10)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	require.ErrorIs(t, r.Delete(context.Background(), 10, 100, permittedTo(1)), errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_ListByBucketlist(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)
	now := time.Now()

	mock.ExpectBeginTx(readOnlyTx)
	mock.ExpectQuery(`FROM items WHERE bucketlist_id=\$1 ORDER BY id`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(itemsCols))
	mock.ExpectCommit()

	items, err := r.ListByBucketlist(context.Background(), 10, nil)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)

	mock.ExpectBeginTx(readOnlyTx)
	mock.ExpectQuery(`FROM bucketlists WHERE id=\$1`).
		WithArgs(int64(10)).
		WillReturnRows(listRow(10, 1, "Travel", now))
	mock.ExpectQuery(`FROM items WHERE bucketlist_id=\$1 ORDER BY id`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(itemsCols).AddRow(int64(1), int64(10), "a", false, now, now))
	mock.ExpectCommit()

	items, err = r.ListByBucketlist(context.Background(), 10, permittedTo(1))
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
