package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// CreateExpense persists a new expense and bumps the owning group's totals
// in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total, count int64
	err = tx.QueryRowContext(ctx,
		"SELECT total_expenses, expense_count FROM groups WHERE key = ?",
		expense.GroupKey.String(),
	).Scan(&total, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", expense.GroupKey, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get group totals: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM expenses WHERE key = ?", expense.Key.String()).Scan(&exists)
	if err == nil {
		return fmt.Errorf("expense %s: %w", expense.Key, storage.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}

	if expense.Amount > models.MaxAmount-uint64(total) {
		return fmt.Errorf("group %s: %w", expense.GroupKey, storage.ErrTotalOverflow)
	}
	expense.Seq = uint64(count)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (key, group_key, seq, payer, description, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.Key.String(), expense.GroupKey.String(), int64(expense.Seq), expense.Payer.String(),
		expense.Description, int64(expense.Amount), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE groups SET total_expenses = ?, expense_count = ? WHERE key = ?",
		total+int64(expense.Amount), count+1, expense.GroupKey.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update group totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by key.
func (s *SQLiteStore) GetExpense(ctx context.Context, key keys.Key) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT key, group_key, seq, payer, description, amount, created_at
		 FROM expenses WHERE key = ?`,
		key.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListExpensesByGroup retrieves all expenses of a group ordered by sequence.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupKey keys.Key) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, group_key, seq, payer, description, amount, created_at
		 FROM expenses WHERE group_key = ? ORDER BY seq`,
		groupKey.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		key, groupKey, payer string
		seq, amount          int64
		expense              = &models.Expense{}
	)
	if err := row.Scan(&key, &groupKey, &seq, &payer, &expense.Description, &amount, &expense.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if expense.Key, err = keys.ParseKey(key); err != nil {
		return nil, fmt.Errorf("failed to parse expense key: %w", err)
	}
	if expense.GroupKey, err = keys.ParseKey(groupKey); err != nil {
		return nil, fmt.Errorf("failed to parse group key: %w", err)
	}
	if expense.Payer, err = keys.ParseIdentity(payer); err != nil {
		return nil, fmt.Errorf("failed to parse payer: %w", err)
	}
	expense.Seq = uint64(seq)
	expense.Amount = uint64(amount)
	return expense, nil
}
