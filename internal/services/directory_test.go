package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Amina Yusuf", DisplayName(1, "Amina", "Yusuf", "amina"))
	assert.Equal(t, "Amina", DisplayName(1, "Amina", "", "amina"))
	assert.Equal(t, "amina", DisplayName(1, "", "", "amina"))
	assert.Equal(t, "User42", DisplayName(42, "", "", ""))
}

func TestUserDirectory_Remember(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	directory := NewUserDirectory(client, time.Hour)

	mock.ExpectSet("dhikr:user:42:name", "Amina", time.Hour).SetVal("OK")
	assert.NoError(t, directory.Remember(ctx, 42, "Amina"))

	assert.NoError(t, directory.Remember(ctx, 42, "  "))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDirectory_Names(t *testing.T) {
	ctx := context.Background()

	t.Run("known and unknown users", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		directory := NewUserDirectory(client, time.Hour)

		mock.ExpectMGet("dhikr:user:1:name", "dhikr:user:2:name").SetVal([]interface{}{"Amina", nil})

		names := directory.Names(ctx, []int64{1, 2})
		assert.Equal(t, map[int64]string{1: "Amina", 2: "User2"}, names)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure falls back", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		directory := NewUserDirectory(client, time.Hour)

		mock.ExpectMGet("dhikr:user:1:name").SetErr(errors.New("connection refused"))

		assert.Equal(t, "User1", directory.Name(ctx, 1))
	})

	t.Run("without redis", func(t *testing.T) {
		directory := NewUserDirectory(nil, time.Hour)
		assert.NoError(t, directory.Remember(ctx, 1, "Amina"))
		assert.Equal(t, "User1", directory.Name(ctx, 1))
	})
}
