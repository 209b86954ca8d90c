package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmynk/roomiesplit/internal/calculator"
	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// MaxSaltLength is the longest salt accepted for expense key derivation.
const MaxSaltLength = 32

// maxAmountExponent bounds the decimal exponent of an amount. Anything past
// it is out of range or has more decimal places than can be checked cheaply.
const maxAmountExponent = 19

var maxAmount = decimal.NewFromInt(int64(models.MaxAmount))

// Ledger appends expenses to groups and reports balances.
type Ledger struct {
	store storage.Store
}

// NewLedger creates a Ledger.
func NewLedger(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// ExpenseParams describes an expense to append.
type ExpenseParams struct {
	GroupKey    keys.Key
	Payer       keys.Identity
	Description string
	Amount      decimal.Decimal
	// Salt seeds the expense key. It must be 1..MaxSaltLength bytes.
	Salt []byte
}

// Balances is the outcome of CalculateBalances.
type Balances struct {
	Group   *models.Group
	Members []calculator.MemberBalance
	Debts   []calculator.DebtEdge
}

// AddExpense validates and appends an expense to its group.
//
// Checks run in order and the first failure is returned: the group must
// exist, the payer must be a member, the amount must be a whole number in
// 1..models.MaxAmount, the description must fit models.MaxDescriptionLength
// and the salt must be 1..MaxSaltLength bytes.
func (l *Ledger) AddExpense(ctx context.Context, p ExpenseParams) (*models.Expense, error) {
	group, err := l.groupOrNotFound(ctx, p.GroupKey)
	if err != nil {
		return nil, err
	}

	if !group.HasMember(p.Payer) {
		return nil, newError(NotMember, "%s is not a member of group %s", p.Payer, p.GroupKey)
	}

	amount, err := validateAmount(p.Amount)
	if err != nil {
		return nil, err
	}

	if len(p.Description) > models.MaxDescriptionLength {
		return nil, newError(DescriptionTooLong, "%d bytes, at most %d allowed", len(p.Description), models.MaxDescriptionLength)
	}
	if len(p.Salt) == 0 || len(p.Salt) > MaxSaltLength {
		return nil, newError(InvalidSalt, "salt must be 1..%d bytes, got %d", MaxSaltLength, len(p.Salt))
	}

	key, err := keys.ExpenseKey(p.GroupKey, p.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive expense key: %w", err)
	}

	expense := &models.Expense{
		Key:         key,
		GroupKey:    p.GroupKey,
		Payer:       p.Payer,
		Description: p.Description,
		Amount:      amount,
	}

	if err := l.store.CreateExpense(ctx, expense); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, newError(AlreadyExists, "expense %s already exists", key)
		case errors.Is(err, storage.ErrTotalOverflow):
			return nil, newError(TotalOverflow, "group %s total would exceed %d", p.GroupKey, models.MaxAmount)
		case errors.Is(err, storage.ErrNotFound):
			return nil, newError(GroupNotFound, "group %s", p.GroupKey)
		}
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	slog.Debug("Expense stored", "expense_key", expense.Key, "group_key", expense.GroupKey, "seq", expense.Seq)
	return expense, nil
}

// validateAmount rejects zero, negative, fractional and out-of-range
// amounts. It never rounds or clamps. The exponent is checked before any
// comparison so that inputs like 1e10000000 are never expanded.
func validateAmount(amount decimal.Decimal) (uint64, error) {
	if exp := amount.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return 0, newError(InvalidAmount, "amount exponent %d outside -%d..%d", exp, maxAmountExponent, maxAmountExponent)
	}
	if amount.Sign() <= 0 {
		return 0, newError(InvalidAmount, "amount must be positive")
	}
	if !amount.IsInteger() {
		return 0, newError(InvalidAmount, "amount must be a whole number")
	}
	if amount.GreaterThan(maxAmount) {
		return 0, newError(InvalidAmount, "amount must be at most %d", models.MaxAmount)
	}
	return amount.BigInt().Uint64(), nil
}

// GetExpense resolves an expense by key.
func (l *Ledger) GetExpense(ctx context.Context, key keys.Key) (*models.Expense, error) {
	expense, err := l.store.GetExpense(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ExpenseNotFound, "expense %s", key)
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns a group's expenses in the order they were appended.
func (l *Ledger) ListExpenses(ctx context.Context, groupKey keys.Key) ([]*models.Expense, error) {
	if _, err := l.groupOrNotFound(ctx, groupKey); err != nil {
		return nil, err
	}

	expenses, err := l.store.ListExpensesByGroup(ctx, groupKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// CalculateBalances splits the group's total evenly over its members and
// reports what each member paid, owes and the debts that settle the group.
func (l *Ledger) CalculateBalances(ctx context.Context, groupKey keys.Key) (*Balances, error) {
	group, err := l.groupOrNotFound(ctx, groupKey)
	if err != nil {
		return nil, err
	}
	if len(group.Members) == 0 {
		return nil, newError(NoMembers, "group %s has no members", groupKey)
	}

	expenses, err := l.store.ListExpensesByGroup(ctx, groupKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	members := lo.Map(group.Members, func(m keys.Identity, _ int) string { return m.String() })
	forBalance := lo.Map(expenses, func(e *models.Expense, _ int) calculator.ExpenseForBalance {
		return calculator.ExpenseForBalance{Payer: e.Payer.String(), Amount: e.Amount}
	})

	balances, debts, err := calculator.CalculateGroupBalances(members, forBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate balances: %w", err)
	}

	return &Balances{Group: group, Members: balances, Debts: debts}, nil
}

func (l *Ledger) groupOrNotFound(ctx context.Context, key keys.Key) (*models.Group, error) {
	group, err := l.store.GetGroup(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(GroupNotFound, "group %s", key)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}
