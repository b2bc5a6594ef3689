package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/raykavin/stratfuse/pkg/core"
)

func newSQLite(t *testing.T) *SQL {
	t.Helper()
	store, err := FromSQLite(filepath.Join(t.TempDir(), "stratfuse.sqlite"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLGetPut(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)

	_, err := store.Get(ctx, "weights")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, store.Put(ctx, "weights", []byte(`{"control":1}`)))
	require.NoError(t, store.Put(ctx, "weights", []byte(`{"pattern":1}`)))

	value, err := store.Get(ctx, "weights")
	require.NoError(t, err)
	assert.Equal(t, `{"pattern":1}`, string(value))
}

func TestSQLKeys(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)

	for _, key := range []string{"characteristics:MSFT", "weights", "characteristics:AAPL"} {
		require.NoError(t, store.Put(ctx, key, []byte("{}")))
	}

	keys, err := store.Keys(ctx, "characteristics:")
	require.NoError(t, err)
	assert.Equal(t, []string{"characteristics:AAPL", "characteristics:MSFT"}, keys)
}
