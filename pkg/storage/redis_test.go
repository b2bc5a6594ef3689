package storage

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
)

func TestRedisGet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "stratfuse:", 0)

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("stratfuse:weights").SetVal(`{"control":1}`)

		value, err := store.Get(ctx, "weights")
		require.NoError(t, err)
		assert.Equal(t, `{"control":1}`, string(value))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("stratfuse:characteristics:AAPL").RedisNil()

		_, err := store.Get(ctx, "characteristics:AAPL")
		require.ErrorIs(t, err, core.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectGet("stratfuse:weights").SetErr(redis.TxFailedErr)

		_, err := store.Get(ctx, "weights")
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisPut(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "stratfuse:", 0)

	mock.ExpectSet("stratfuse:weights", `{"control":1}`, 0).SetVal("OK")
	require.NoError(t, store.Put(ctx, "weights", []byte(`{"control":1}`)))

	mock.ExpectSet("stratfuse:weights", `{}`, 0).SetErr(redis.TxFailedErr)
	require.Error(t, store.Put(ctx, "weights", []byte(`{}`)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisKeys(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "stratfuse:", 0)

	mock.ExpectScan(0, "stratfuse:characteristics:*", 100).
		SetVal([]string{"stratfuse:characteristics:MSFT"}, 7)
	mock.ExpectScan(7, "stratfuse:characteristics:*", 100).
		SetVal([]string{"stratfuse:characteristics:AAPL"}, 0)

	keys, err := store.Keys(ctx, "characteristics:")
	require.NoError(t, err)
	assert.Equal(t, []string{"characteristics:AAPL", "characteristics:MSFT"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPingRetries(t *testing.T) {
	ctx := context.Background()
	fast := &backoff.Backoff{Min: time.Millisecond, Max: time.Millisecond}

	t.Run("recovers", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(redis.TxFailedErr)
		mock.ExpectPing().SetVal("PONG")

		require.NoError(t, ping(ctx, db, fast))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		for i := 0; i < DialAttempts; i++ {
			mock.ExpectPing().SetErr(redis.TxFailedErr)
		}

		require.ErrorIs(t, ping(ctx, db, fast), redis.TxFailedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
