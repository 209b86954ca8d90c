// Package storetest holds a conformance suite shared by storage.Store
// implementations.
package storetest

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// NewIdentity returns a fresh random identity.
func NewIdentity(t testing.TB) keys.Identity {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id, err := keys.IdentityFromPublicKey(pub)
	require.NoError(t, err)
	return id
}

// NewGroup returns an unsaved group owned by owner with the given members.
func NewGroup(owner keys.Identity, members ...keys.Identity) *models.Group {
	return &models.Group{
		Key:     keys.GroupKey(owner),
		Owner:   owner,
		Members: members,
	}
}

// NewExpense returns an unsaved expense for group keyed by salt.
func NewExpense(t testing.TB, group *models.Group, payer keys.Identity, salt, description string, amount uint64) *models.Expense {
	t.Helper()
	key, err := keys.ExpenseKey(group.Key, []byte(salt))
	require.NoError(t, err)
	return &models.Expense{
		Key:         key,
		GroupKey:    group.Key,
		Payer:       payer,
		Description: description,
		Amount:      amount,
	}
}

// Run exercises a storage.Store implementation. newStore must return an
// empty store; it is closed by the suite.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("CreateGroup then GetGroup round trip", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		bob := NewIdentity(t)
		group := NewGroup(owner, owner, bob)

		require.NoError(t, store.CreateGroup(ctx, group))
		assert.NotZero(t, group.CreatedAt)

		got, err := store.GetGroup(ctx, group.Key)
		require.NoError(t, err)
		assert.Equal(t, group.Key, got.Key)
		assert.Equal(t, owner, got.Owner)
		assert.Equal(t, []keys.Identity{owner, bob}, got.Members)
		assert.Equal(t, group.CreatedAt, got.CreatedAt)
		assert.Zero(t, got.TotalExpenses)
		assert.Zero(t, got.ExpenseCount)
	})

	t.Run("CreateGroup preserves member order", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		members := []keys.Identity{NewIdentity(t), NewIdentity(t), owner, NewIdentity(t)}
		require.NoError(t, store.CreateGroup(ctx, NewGroup(owner, members...)))

		got, err := store.GetGroup(ctx, keys.GroupKey(owner))
		require.NoError(t, err)
		assert.Equal(t, members, got.Members)
	})

	t.Run("CreateGroup with no members", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		require.NoError(t, store.CreateGroup(ctx, NewGroup(owner)))

		got, err := store.GetGroup(ctx, keys.GroupKey(owner))
		require.NoError(t, err)
		assert.Empty(t, got.Members)
	})

	t.Run("CreateGroup rejects duplicate key", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		require.NoError(t, store.CreateGroup(ctx, NewGroup(owner, owner)))

		other := NewIdentity(t)
		err := store.CreateGroup(ctx, NewGroup(owner, other))
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		got, err := store.GetGroup(ctx, keys.GroupKey(owner))
		require.NoError(t, err)
		assert.Equal(t, []keys.Identity{owner}, got.Members)
	})

	t.Run("GetGroup not found", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.GetGroup(ctx, keys.GroupKey(NewIdentity(t)))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListGroups", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		groups, err := store.ListGroups(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)

		a, b := NewIdentity(t), NewIdentity(t)
		require.NoError(t, store.CreateGroup(ctx, NewGroup(a, a)))
		require.NoError(t, store.CreateGroup(ctx, NewGroup(b, b, a)))

		groups, err = store.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)

		byKey := map[keys.Key]*models.Group{}
		for _, g := range groups {
			byKey[g.Key] = g
		}
		assert.Equal(t, []keys.Identity{a}, byKey[keys.GroupKey(a)].Members)
		assert.Equal(t, []keys.Identity{b, a}, byKey[keys.GroupKey(b)].Members)
	})

	t.Run("ListGroups follows stored CreatedAt", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		a, b, c := NewIdentity(t), NewIdentity(t), NewIdentity(t)
		late, early, middle := NewGroup(a, a), NewGroup(b, b), NewGroup(c, c)
		late.CreatedAt, early.CreatedAt, middle.CreatedAt = 3_000, 1_000, 2_000

		for _, g := range []*models.Group{late, early, middle} {
			require.NoError(t, store.CreateGroup(ctx, g))
		}

		groups, err := store.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 3)
		for i, want := range []*models.Group{early, middle, late} {
			assert.Equal(t, want.Key, groups[i].Key, "position %d", i)
			assert.Equal(t, want.CreatedAt, groups[i].CreatedAt, "position %d", i)
		}
	})

	t.Run("CreateExpense bumps group totals", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		group := NewGroup(owner, owner)
		require.NoError(t, store.CreateGroup(ctx, group))

		dinner := NewExpense(t, group, owner, "dinner", "Dinner", 50)
		require.NoError(t, store.CreateExpense(ctx, dinner))
		assert.Equal(t, uint64(0), dinner.Seq)
		assert.NotZero(t, dinner.CreatedAt)

		rent := NewExpense(t, group, owner, "rent", "Rent", 1200)
		require.NoError(t, store.CreateExpense(ctx, rent))
		assert.Equal(t, uint64(1), rent.Seq)

		got, err := store.GetExpense(ctx, dinner.Key)
		require.NoError(t, err)
		assert.Equal(t, dinner, got)

		g, err := store.GetGroup(ctx, group.Key)
		require.NoError(t, err)
		assert.Equal(t, uint64(1250), g.TotalExpenses)
		assert.Equal(t, uint64(2), g.ExpenseCount)

		expenses, err := store.ListExpensesByGroup(ctx, group.Key)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "Dinner", expenses[0].Description)
		assert.Equal(t, "Rent", expenses[1].Description)
	})

	t.Run("CreateExpense rejects duplicate key", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		group := NewGroup(owner, owner)
		require.NoError(t, store.CreateGroup(ctx, group))

		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, group, owner, "bad", "Dinner", 50)))
		err := store.CreateExpense(ctx, NewExpense(t, group, owner, "bad", "Lunch", 20))
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		g, err := store.GetGroup(ctx, group.Key)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), g.TotalExpenses)
		assert.Equal(t, uint64(1), g.ExpenseCount)
	})

	t.Run("CreateExpense on missing group", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		group := NewGroup(owner, owner)
		expense := NewExpense(t, group, owner, "x", "Dinner", 50)

		err := store.CreateExpense(ctx, expense)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.GetExpense(ctx, expense.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CreateExpense rejects total overflow", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		group := NewGroup(owner, owner)
		require.NoError(t, store.CreateGroup(ctx, group))

		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, group, owner, "a", "Big", models.MaxAmount-1)))
		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, group, owner, "b", "One", 1)))

		overflow := NewExpense(t, group, owner, "c", "One more", 1)
		err := store.CreateExpense(ctx, overflow)
		assert.ErrorIs(t, err, storage.ErrTotalOverflow)

		_, err = store.GetExpense(ctx, overflow.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		g, err := store.GetGroup(ctx, group.Key)
		require.NoError(t, err)
		assert.Equal(t, models.MaxAmount, g.TotalExpenses)
		assert.Equal(t, uint64(2), g.ExpenseCount)
	})

	t.Run("ListExpensesByGroup scopes to group", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		a, b := NewIdentity(t), NewIdentity(t)
		groupA, groupB := NewGroup(a, a), NewGroup(b, b)
		require.NoError(t, store.CreateGroup(ctx, groupA))
		require.NoError(t, store.CreateGroup(ctx, groupB))

		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, groupA, a, "1", "A1", 1)))
		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, groupB, b, "1", "B1", 2)))
		require.NoError(t, store.CreateExpense(ctx, NewExpense(t, groupA, a, "2", "A2", 3)))

		expenses, err := store.ListExpensesByGroup(ctx, groupA.Key)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "A1", expenses[0].Description)
		assert.Equal(t, "A2", expenses[1].Description)

		expenses, err = store.ListExpensesByGroup(ctx, keys.GroupKey(NewIdentity(t)))
		require.NoError(t, err)
		assert.Empty(t, expenses)
	})

	t.Run("concurrent CreateExpense with distinct salts", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		owner := NewIdentity(t)
		group := NewGroup(owner, owner)
		require.NoError(t, store.CreateGroup(ctx, group))

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			expense := NewExpense(t, group, owner, fmt.Sprintf("salt-%d", i), "Share", 10)
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.CreateExpense(ctx, expense)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		g, err := store.GetGroup(ctx, group.Key)
		require.NoError(t, err)
		assert.Equal(t, uint64(n), g.ExpenseCount)
		assert.Equal(t, uint64(n*10), g.TotalExpenses)

		expenses, err := store.ListExpensesByGroup(ctx, group.Key)
		require.NoError(t, err)
		require.Len(t, expenses, n)
		for i, e := range expenses {
			assert.Equal(t, uint64(i), e.Seq)
		}
	})
}
