package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duely/internal/todo"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")

	t.Run("list", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .* FROM todos ORDER BY date ASC, time ASC`).WillReturnError(diskErr)

		_, err := s.List(ctx, todo.Filter{})
		assert.ErrorIs(t, err, diskErr)
		assert.Contains(t, err.Error(), "list todos")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO todos .* ON CONFLICT\(id\) DO UPDATE`).WillReturnError(diskErr)

		td := todo.New("x", todo.Date{Year: 2024, Month: 1, Day: 1}, todo.Clock{}, todo.CategoryDefault)
		td.ID = 3
		err := s.Update(ctx, td)
		assert.ErrorIs(t, err, diskErr)
		assert.Contains(t, err.Error(), "update todo 3")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .* FROM todos WHERE id = \?`).WithArgs(int64(9)).WillReturnError(diskErr)

		_, err := s.Get(ctx, 9)
		assert.ErrorIs(t, err, diskErr)
		assert.NotErrorIs(t, err, todo.ErrNotFound)
	})

	t.Run("corrupt row", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := sqlmock.NewRows(columns).AddRow(1, "bad", "not-a-date", "09:00", "WORK", nil, 0)
		mock.ExpectQuery(`SELECT .* FROM todos`).WillReturnRows(rows)

		_, err := s.List(ctx, todo.Filter{})
		assert.ErrorContains(t, err, "decode todo 1")
	})
}

func TestSearchEscapesWildcards(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM todos WHERE title LIKE \? ESCAPE`).
		WithArgs(`%50\%%`).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := s.Search(context.Background(), "50%")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
