package service

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/mmynk/roomiesplit/internal/calculator"
	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/pkg/api"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

func toAPIGroup(group *models.Group) *api.Group {
	return &api.Group{
		Key:           group.Key.String(),
		Owner:         group.Owner.String(),
		Members:       lo.Map(group.Members, func(m keys.Identity, _ int) string { return m.String() }),
		TotalExpenses: strconv.FormatUint(group.TotalExpenses, 10),
		ExpenseCount:  group.ExpenseCount,
		CreatedAt:     group.CreatedAt,
	}
}

func toAPIExpense(expense *models.Expense) *api.Expense {
	return &api.Expense{
		Key:         expense.Key.String(),
		GroupKey:    expense.GroupKey.String(),
		Seq:         expense.Seq,
		Payer:       expense.Payer.String(),
		Description: expense.Description,
		Amount:      strconv.FormatUint(expense.Amount, 10),
		CreatedAt:   expense.CreatedAt,
	}
}

func toAPIBalance(b calculator.MemberBalance, _ int) *api.MemberBalance {
	return &api.MemberBalance{
		Member:     b.Member,
		TotalPaid:  b.TotalPaid,
		FairShare:  b.FairShare,
		NetBalance: b.NetBalance,
	}
}

func toAPIDebt(d calculator.DebtEdge, _ int) *api.DebtEdge {
	return &api.DebtEdge{
		From:   d.From,
		To:     d.To,
		Amount: d.Amount,
	}
}
