package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSlots(t *testing.T, s Slots) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.GetSlot(ctx, "alice/expense")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutSlot(ctx, "alice/expense", []byte(`[1]`)))
	require.NoError(t, s.PutSlot(ctx, "alice/expense", []byte(`[1,2]`)))
	v, ok, err := s.GetSlot(ctx, "alice/expense")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(v))

	require.NoError(t, s.DeleteSlot(ctx, "alice/expense"))
	_, ok, err = s.GetSlot(ctx, "alice/expense")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.DeleteSlot(ctx, "never-written"))
}

func TestSQLiteSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseSlots(t, repo)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestSQLiteSlotsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.PutSlot(context.Background(), "k", []byte("v")))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	v, ok, err := repo.GetSlot(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestMemorySlots(t *testing.T) {
	exerciseSlots(t, NewMemorySlots())
}

func TestMemorySlotsCopyValues(t *testing.T) {
	m := NewMemorySlots()
	buf := []byte("abc")
	require.NoError(t, m.PutSlot(context.Background(), "k", buf))
	buf[0] = 'x'
	v, _, _ := m.GetSlot(context.Background(), "k")
	assert.Equal(t, "abc", string(v))
}
