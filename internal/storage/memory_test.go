package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_SetGetDelete(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))

	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKV_TTLExpiryOnRead(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	current := time.Now()
	kv.now = func() time.Time { return current }

	require.NoError(t, kv.SetTTL(ctx, "k", []byte("v"), time.Minute))

	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKV_GetReturnsCopy(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("abc")))

	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'x'

	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
