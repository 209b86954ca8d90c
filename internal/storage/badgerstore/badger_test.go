package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/internal/storage/storetest"
)

func TestBadgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		store, err := OpenInMemory()
		require.NoError(t, err)
		return store
	})
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)

	owner := storetest.NewIdentity(t)
	group := storetest.NewGroup(owner, owner)
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.CreateExpense(ctx, storetest.NewExpense(t, group, owner, "dinner", "Dinner", 50)))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetGroup(ctx, group.Key)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), got.TotalExpenses)
	assert.Equal(t, uint64(1), got.ExpenseCount)

	expenses, err := store.ListExpensesByGroup(ctx, group.Key)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Dinner", expenses[0].Description)
}
