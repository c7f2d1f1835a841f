package collections

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and list", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "Guides", ""))
		require.NoError(t, store.Create(ctx, "Linux", "guides"))
		assert.ErrorIs(t, store.Create(ctx, "GUIDES", ""), ErrCollectionExists)
		assert.ErrorIs(t, store.Create(ctx, "Orphan", "missing"), ErrUnknownCollection)

		require.NoError(t, store.Add(ctx, "Linux", "/Documentation/guide/setup"))

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Collection{
			{Name: "Guides", Parent: "", Size: 0},
			{Name: "Linux", Parent: "Guides", Size: 1},
		}, list)
	})

	t.Run("members with and without children", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "Guides", ""))
		require.NoError(t, store.Create(ctx, "Linux", "Guides"))
		require.NoError(t, store.Create(ctx, "Other", ""))
		require.NoError(t, store.Add(ctx, "Guides", "/Documentation/intro"))
		require.NoError(t, store.Add(ctx, "Linux", "/Documentation/Guide/Setup"))
		require.NoError(t, store.Add(ctx, "Other", "/Documentation/faq"))

		members, err := store.Members(ctx, []string{"guides"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"/documentation/intro"}, members)

		members, err = store.Members(ctx, []string{"Guides"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"/documentation/guide/setup", "/documentation/intro"}, members)

		members, err = store.Members(ctx, []string{"Guides", "Other", "Unknown"}, false)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("empty collection has no members", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "Empty", ""))
		members, err := store.Members(ctx, []string{"Empty"}, true)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("remove and delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "Parent", ""))
		require.NoError(t, store.Create(ctx, "Child", "Parent"))
		require.NoError(t, store.Add(ctx, "Parent", "/a", "/b"))
		require.NoError(t, store.Remove(ctx, "Parent", "/A"))

		members, err := store.Members(ctx, []string{"Parent"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"/b"}, members)

		require.NoError(t, store.Delete(ctx, "Parent"))
		assert.ErrorIs(t, store.Delete(ctx, "Parent"), ErrUnknownCollection)
		assert.ErrorIs(t, store.Add(ctx, "Parent", "/c"), ErrUnknownCollection)

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Collection{{Name: "Child"}}, list)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store, err := OpenSQLStore(filepath.Join(t.TempDir(), "collections.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}
