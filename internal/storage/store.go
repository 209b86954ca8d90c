//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

var (
	// ErrNotFound is returned when no record lives at the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a record already lives at the key being created.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrTotalOverflow is returned when appending an expense would push the
	// group's running total past models.MaxAmount.
	ErrTotalOverflow = errors.New("group total overflow")
)

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, Badger, etc.)
// without changing the ledger.
//
// Every create is atomic: it either persists the full record or nothing.
type Store interface {
	// CreateGroup persists a new group at group.Key.
	// Returns ErrAlreadyExists if a group already lives at that key.
	// group.CreatedAt is set by the store when zero.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by key.
	// Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, key keys.Key) (*models.Group, error)

	// ListGroups retrieves all groups, oldest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// CreateExpense persists a new expense and, in the same transaction,
	// assigns expense.Seq from the group's expense count and bumps the
	// group's running totals.
	// Returns ErrNotFound if the group does not exist, ErrAlreadyExists if an
	// expense already lives at expense.Key and ErrTotalOverflow if the
	// group's total would exceed models.MaxAmount.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by key.
	// Returns ErrNotFound if the expense does not exist.
	GetExpense(ctx context.Context, key keys.Key) (*models.Expense, error)

	// ListExpensesByGroup retrieves a group's expenses ordered by Seq.
	ListExpensesByGroup(ctx context.Context, groupKey keys.Key) ([]*models.Expense, error)

	// Close releases any resources held by the store.
	Close() error
}
