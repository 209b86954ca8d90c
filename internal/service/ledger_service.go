package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmynk/roomiesplit/internal/ledger"
	"github.com/mmynk/roomiesplit/internal/middleware"
	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/pkg/api"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// LedgerService implements the Connect LedgerService.
// Every call expects the caller identity in the context (see middleware.RequireAuth).
type LedgerService struct {
	registry *ledger.Registry
	ledger   *ledger.Ledger
}

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a new LedgerService.
func NewLedgerService(registry *ledger.Registry, l *ledger.Ledger) *LedgerService {
	return &LedgerService{registry: registry, ledger: l}
}

// CreateGroup creates the caller's group.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	creator, ok := middleware.GetIdentity(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}

	slog.Info("CreateGroup request received",
		"creator", creator,
		"members_count", len(req.Msg.Members),
	)

	members := make([]keys.Identity, len(req.Msg.Members))
	for i, m := range req.Msg.Members {
		id, err := keys.ParseIdentity(m)
		if err != nil {
			return nil, invalidArgument(ledger.KindUnknown, fmt.Errorf("member %d: %w", i, err))
		}
		members[i] = id
	}

	group, err := s.registry.CreateGroup(ctx, creator, members)
	if err != nil {
		slog.Warn("CreateGroup failed", "creator", creator, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_key", group.Key, "members_count", len(group.Members))

	return connect.NewResponse(&api.CreateGroupResponse{
		Group: toAPIGroup(group),
	}), nil
}

// GetGroup retrieves a group by key.
func (s *LedgerService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_key", req.Msg.GroupKey)

	key, err := keys.ParseKey(req.Msg.GroupKey)
	if err != nil {
		return nil, invalidArgument(ledger.KindUnknown, err)
	}

	group, err := s.registry.GetGroup(ctx, key)
	if err != nil {
		slog.Warn("GetGroup failed", "group_key", key, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetGroup successful", "group_key", group.Key, "expense_count", group.ExpenseCount)

	return connect.NewResponse(&api.GetGroupResponse{
		Group: toAPIGroup(group),
	}), nil
}

// ListGroups retrieves all groups.
func (s *LedgerService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	slog.Info("ListGroups request received")

	groups, err := s.registry.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{
		Groups: lo.Map(groups, func(g *models.Group, _ int) *api.Group { return toAPIGroup(g) }),
	}), nil
}

// AddExpense appends an expense paid by the caller.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	payer, ok := middleware.GetIdentity(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}

	slog.Info("AddExpense request received",
		"group_key", req.Msg.GroupKey,
		"payer", payer,
	)

	groupKey, err := keys.ParseKey(req.Msg.GroupKey)
	if err != nil {
		return nil, invalidArgument(ledger.KindUnknown, err)
	}

	amount, err := parseAmount(req.Msg.Amount)
	if err != nil {
		return nil, invalidArgument(ledger.InvalidAmount, err)
	}

	salt := []byte(req.Msg.Salt)
	if len(salt) == 0 {
		id := uuid.New()
		salt = id[:]
	}

	expense, err := s.ledger.AddExpense(ctx, ledger.ExpenseParams{
		GroupKey:    groupKey,
		Payer:       payer,
		Description: req.Msg.Description,
		Amount:      amount,
		Salt:        salt,
	})
	if err != nil {
		slog.Warn("AddExpense failed", "group_key", groupKey, "payer", payer, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense added", "expense_key", expense.Key, "group_key", expense.GroupKey, "seq", expense.Seq, "amount", expense.Amount)

	return connect.NewResponse(&api.AddExpenseResponse{
		Expense: toAPIExpense(expense),
	}), nil
}

// maxAmountInput is the longest amount string accepted on the wire.
const maxAmountInput = 64

// parseAmount reads a decimal string exactly. Range and sign checks are
// left to the ledger.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, errEmptyAmount
	}
	if len(s) > maxAmountInput {
		return decimal.Decimal{}, fmt.Errorf("amount is %d bytes, at most %d allowed", len(s), maxAmountInput)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.New("amount is not a decimal number")
	}
	return amount, nil
}

// GetExpense retrieves an expense by key.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	slog.Info("GetExpense request received", "expense_key", req.Msg.ExpenseKey)

	key, err := keys.ParseKey(req.Msg.ExpenseKey)
	if err != nil {
		return nil, invalidArgument(ledger.KindUnknown, err)
	}

	expense, err := s.ledger.GetExpense(ctx, key)
	if err != nil {
		slog.Warn("GetExpense failed", "expense_key", key, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetExpenseResponse{
		Expense: toAPIExpense(expense),
	}), nil
}

// ListExpenses retrieves a group's expenses in append order.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	slog.Info("ListExpenses request received", "group_key", req.Msg.GroupKey)

	groupKey, err := keys.ParseKey(req.Msg.GroupKey)
	if err != nil {
		return nil, invalidArgument(ledger.KindUnknown, err)
	}

	expenses, err := s.ledger.ListExpenses(ctx, groupKey)
	if err != nil {
		slog.Warn("ListExpenses failed", "group_key", groupKey, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ListExpenses successful", "group_key", groupKey, "count", len(expenses))

	return connect.NewResponse(&api.ListExpensesResponse{
		Expenses: lo.Map(expenses, func(e *models.Expense, _ int) *api.Expense { return toAPIExpense(e) }),
	}), nil
}

// GetGroupBalances calculates balances and simplified debts for a group.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	slog.Info("GetGroupBalances request received", "group_key", req.Msg.GroupKey)

	groupKey, err := keys.ParseKey(req.Msg.GroupKey)
	if err != nil {
		return nil, invalidArgument(ledger.KindUnknown, err)
	}

	balances, err := s.ledger.CalculateBalances(ctx, groupKey)
	if err != nil {
		slog.Warn("GetGroupBalances failed", "group_key", groupKey, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetGroupBalances successful",
		"group_key", groupKey,
		"members_count", len(balances.Members),
		"debts_count", len(balances.Debts),
	)

	return connect.NewResponse(&api.GetGroupBalancesResponse{
		MemberBalances: lo.Map(balances.Members, toAPIBalance),
		DebtMatrix:     lo.Map(balances.Debts, toAPIDebt),
	}), nil
}
