package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerStore_CreateCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions a counter", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery("INSERT INTO dhikar_type \\(group_id, dhikar_topic_id, dhikar_title\\)").
			WithArgs(int64(-1001), int64(4), "Morning").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		counter, err := store.CreateCounter(ctx, -1001, 4, "Morning")
		require.NoError(t, err)
		assert.Equal(t, int64(9), counter.ID)
		assert.Equal(t, "Morning", counter.Title)
	})

	t.Run("duplicate group and topic", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery("INSERT INTO dhikar_type").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_group_topic"})

		_, err := store.CreateCounter(ctx, -1001, 4, "Morning")
		assert.ErrorIs(t, err, ErrCounterExists)
	})

	t.Run("other failures propagate", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery("INSERT INTO dhikar_type").
			WillReturnError(errors.New("read-only transaction"))

		_, err := store.CreateCounter(ctx, -1001, 4, "Morning")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCounterExists)
	})
}

func TestLedgerStore_GetCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery("SELECT id, group_id, dhikar_topic_id, dhikar_title FROM dhikar_type WHERE id = \\$1").
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "dhikar_topic_id", "dhikar_title"}).
				AddRow(9, -1001, 4, "Morning"))

		counter, err := store.GetCounter(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(-1001), counter.GroupID)
		assert.Equal(t, int64(4), counter.TopicID)
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery("SELECT id, group_id, dhikar_topic_id, dhikar_title FROM dhikar_type WHERE id").
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "dhikar_topic_id", "dhikar_title"}))

		_, err := store.GetCounter(ctx, 9)
		assert.ErrorIs(t, err, ErrCounterNotFound)
	})
}

func TestLedgerStore_ListCounters(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery("SELECT id, group_id, dhikar_topic_id, dhikar_title FROM dhikar_type ORDER BY group_id, dhikar_topic_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "dhikar_topic_id", "dhikar_title"}).
			AddRow(1, -1001, 1, "Morning").
			AddRow(2, -1001, 2, "Evening"))

	counters, err := store.ListCounters(context.Background())
	require.NoError(t, err)
	require.Len(t, counters, 2)
	assert.Equal(t, "Evening", counters[1].Title)
}

func TestLedgerStore_RenameCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("renamed", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectExec("UPDATE dhikar_type SET dhikar_title = \\$1 WHERE id = \\$2").
			WithArgs("Evening", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.RenameCounter(ctx, 1, "Evening"))
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectExec("UPDATE dhikar_type").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.RenameCounter(ctx, 1, "Evening"), ErrCounterNotFound)
	})
}

func TestLedgerStore_CounterLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("title and ranked contributors in one transaction", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT t.dhikar_title").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"dhikar_title", "total"}).AddRow("Morning", 150))
		mock.ExpectQuery("SELECT user_id, SUM").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "total"}).AddRow(42, 100).AddRow(43, 50))
		mock.ExpectCommit()

		board, err := store.CounterLeaderboard(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Morning", board.Title)
		require.Len(t, board.Contributors, 2)
		assert.Equal(t, 2, board.Contributors[1].Rank)
		assert.Equal(t, fixedNow, board.GeneratedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing counter", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT t.dhikar_title").
			WillReturnRows(sqlmock.NewRows([]string{"dhikar_title", "total"}))
		mock.ExpectRollback()

		_, err := store.CounterLeaderboard(ctx, 1)
		assert.ErrorIs(t, err, ErrCounterNotFound)
	})
}
