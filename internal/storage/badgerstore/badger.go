// Package badgerstore provides a Badger-backed implementation of the
// storage.Store interface.
//
// Layout:
//
//	group:<key>                    -> JSON models.Group
//	expense:<key>                  -> JSON models.Expense
//	group-expense:<group>:<seq>    -> expense key (seq is big-endian)
//	group-created:<ts>:<key>       -> group key (ts is big-endian unix nanos)
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const (
	groupPrefix        = "group:"
	expensePrefix      = "expense:"
	groupExpensePrefix = "group-expense:"
	groupCreatedPrefix = "group-created:"
)

// Store implements storage.Store on top of a Badger database.
type Store struct {
	db *badger.DB

	// writeMu serializes read-modify-write transactions so that concurrent
	// appends to one group never abort with badger.ErrConflict.
	writeMu sync.Mutex
}

// Open opens (or creates) a Badger database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateGroup persists a new group.
func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		key := groupKey(group.Key)
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("group %s: %w", group.Key, storage.ErrAlreadyExists)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check group existence: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set group: %w", err)
		}
		return txn.Set(groupCreatedKey(group.CreatedAt, group.Key), group.Key[:])
	})
}

// GetGroup retrieves a group by key.
func (s *Store) GetGroup(_ context.Context, key keys.Key) (*models.Group, error) {
	var group *models.Group
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		group, err = getGroup(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups retrieves all groups in creation order.
func (s *Store) ListGroups(_ context.Context) ([]*models.Group, error) {
	var groups []*models.Group
	prefix := []byte(groupCreatedPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var key keys.Key
			if err := it.Item().Value(func(v []byte) error {
				copy(key[:], v)
				return nil
			}); err != nil {
				return err
			}

			group, err := getGroup(txn, key)
			if errors.Is(err, storage.ErrNotFound) {
				slog.Warn("Dangling group index entry", "group_key", key)
				continue
			}
			if err != nil {
				return err
			}
			groups = append(groups, group)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, nil
}

// CreateExpense persists a new expense and bumps the group's totals
// atomically.
func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		group, err := getGroup(txn, expense.GroupKey)
		if err != nil {
			return err
		}

		key := expenseKey(expense.Key)
		_, err = txn.Get(key)
		if err == nil {
			return fmt.Errorf("expense %s: %w", expense.Key, storage.ErrAlreadyExists)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check expense existence: %w", err)
		}

		if expense.Amount > models.MaxAmount-group.TotalExpenses {
			return fmt.Errorf("group %s: %w", expense.GroupKey, storage.ErrTotalOverflow)
		}
		expense.Seq = group.ExpenseCount
		group.TotalExpenses += expense.Amount
		group.ExpenseCount++

		expenseData, err := json.Marshal(expense)
		if err != nil {
			return fmt.Errorf("failed to marshal expense: %w", err)
		}
		groupData, err := json.Marshal(group)
		if err != nil {
			return fmt.Errorf("failed to marshal group: %w", err)
		}

		if err := txn.Set(key, expenseData); err != nil {
			return fmt.Errorf("failed to set expense: %w", err)
		}
		if err := txn.Set(groupExpenseKey(expense.GroupKey, expense.Seq), expense.Key[:]); err != nil {
			return fmt.Errorf("failed to index expense: %w", err)
		}
		return txn.Set(groupKey(group.Key), groupData)
	})
}

// GetExpense retrieves an expense by key.
func (s *Store) GetExpense(_ context.Context, key keys.Key) (*models.Expense, error) {
	var expense *models.Expense
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		expense, err = getExpense(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup retrieves a group's expenses ordered by sequence.
func (s *Store) ListExpensesByGroup(_ context.Context, group keys.Key) ([]*models.Expense, error) {
	var expenses []*models.Expense
	prefix := append([]byte(groupExpensePrefix), group[:]...)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var key keys.Key
			if err := it.Item().Value(func(v []byte) error {
				copy(key[:], v)
				return nil
			}); err != nil {
				return err
			}

			expense, err := getExpense(txn, key)
			if err != nil {
				return err
			}
			expenses = append(expenses, expense)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}

	return expenses, nil
}

func getGroup(txn *badger.Txn, key keys.Key) (*models.Group, error) {
	group := &models.Group{}
	if err := getJSON(txn, groupKey(key), group); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("group %s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func getExpense(txn *badger.Txn, key keys.Key) (*models.Expense, error) {
	expense := &models.Expense{}
	if err := getJSON(txn, expenseKey(key), expense); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("expense %s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(data []byte) error {
		return json.Unmarshal(data, v)
	})
}

func groupKey(key keys.Key) []byte {
	return append([]byte(groupPrefix), key[:]...)
}

func expenseKey(key keys.Key) []byte {
	return append([]byte(expensePrefix), key[:]...)
}

func groupExpenseKey(group keys.Key, seq uint64) []byte {
	k := append([]byte(groupExpensePrefix), group[:]...)
	return binary.BigEndian.AppendUint64(k, seq)
}

// groupCreatedKey orders groups by CreatedAt, then by key.
func groupCreatedKey(createdAt int64, group keys.Key) []byte {
	k := binary.BigEndian.AppendUint64([]byte(groupCreatedPrefix), uint64(createdAt))
	return append(k, group[:]...)
}
