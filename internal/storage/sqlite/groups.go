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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateGroup persists a new group and its members in one transaction.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE key = ?", group.Key.String()).Scan(&exists)
	if err == nil {
		return fmt.Errorf("group %s: %w", group.Key, storage.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (key, owner, total_expenses, expense_count, created_at) VALUES (?, ?, ?, ?, ?)",
		group.Key.String(), group.Owner.String(), int64(group.TotalExpenses), int64(group.ExpenseCount), group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i, member := range group.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_key, position, member) VALUES (?, ?, ?)",
			group.Key.String(), i, member.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by key, including its members in order.
func (s *SQLiteStore) GetGroup(ctx context.Context, key keys.Key) (*models.Group, error) {
	return getGroup(ctx, s.db, key)
}

// ListGroups retrieves all groups, oldest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, owner, total_expenses, expense_count, created_at FROM groups ORDER BY created_at, rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, group)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// Members are loaded after the group cursor is closed: the store holds a
	// single connection.
	for _, group := range groups {
		if group.Members, err = getMembers(ctx, s.db, group.Key); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		key, owner   string
		total, count int64
		group        = &models.Group{}
	)
	if err := row.Scan(&key, &owner, &total, &count, &group.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if group.Key, err = keys.ParseKey(key); err != nil {
		return nil, fmt.Errorf("failed to parse group key: %w", err)
	}
	if group.Owner, err = keys.ParseIdentity(owner); err != nil {
		return nil, fmt.Errorf("failed to parse group owner: %w", err)
	}
	group.TotalExpenses = uint64(total)
	group.ExpenseCount = uint64(count)
	return group, nil
}

func getGroup(ctx context.Context, q querier, key keys.Key) (*models.Group, error) {
	group, err := scanGroup(q.QueryRowContext(ctx,
		"SELECT key, owner, total_expenses, expense_count, created_at FROM groups WHERE key = ?",
		key.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if group.Members, err = getMembers(ctx, q, key); err != nil {
		return nil, err
	}
	return group, nil
}

func getMembers(ctx context.Context, q querier, key keys.Key) ([]keys.Identity, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT member FROM group_members WHERE group_key = ? ORDER BY position",
		key.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	members := []keys.Identity{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		member, err := keys.ParseIdentity(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse group member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}
