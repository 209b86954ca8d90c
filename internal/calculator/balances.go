// Package calculator computes member balances over a group's expenses.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// ErrNoMembers is returned when balances are requested for an empty member list.
var ErrNoMembers = errors.New("group has no members")

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	Payer  string
	Amount uint64
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	Member     string
	TotalPaid  int64 // Total amount paid across all expenses
	FairShare  int64 // This member's share of the group total
	NetBalance int64 // Positive = owed money, Negative = owes money
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount int64
}

// CalculateGroupBalances splits the group total evenly across members and
// compares each member's share with what they paid.
//
// Algorithm:
//   - share = total / len(members); the remainder is handed out one unit at
//     a time to members in list order, so shares always sum to the total
//   - net_balance = total_paid - fair_share
//   - debt matrix: largest debtor pays largest creditor until settled
//
// Payers that are not members are reported after the members with a zero
// share. Balances are returned in member order.
func CalculateGroupBalances(members []string, expenses []ExpenseForBalance) ([]MemberBalance, []DebtEdge, error) {
	if len(members) == 0 {
		return nil, nil, ErrNoMembers
	}

	var total uint64
	paid := make(map[string]int64)
	for _, e := range expenses {
		if e.Amount > math.MaxInt64-total {
			return nil, nil, fmt.Errorf("expense total overflows: %d + %d", total, e.Amount)
		}
		total += e.Amount
		paid[e.Payer] += int64(e.Amount)
	}

	n := uint64(len(members))
	share, remainder := total/n, total%n

	balances := make([]MemberBalance, 0, len(members))
	for i, m := range members {
		fair := share
		if uint64(i) < remainder {
			fair++
		}
		balances = append(balances, MemberBalance{
			Member:    m,
			TotalPaid: paid[m],
			FairShare: int64(fair),
		})
	}

	outsiders := lo.Uniq(lo.FilterMap(expenses, func(e ExpenseForBalance, _ int) (string, bool) {
		return e.Payer, !lo.Contains(members, e.Payer)
	}))
	for _, p := range outsiders {
		balances = append(balances, MemberBalance{Member: p, TotalPaid: paid[p]})
	}

	for i := range balances {
		balances[i].NetBalance = balances[i].TotalPaid - balances[i].FairShare
	}

	return balances, simplifyDebts(balances), nil
}

// simplifyDebts matches debtors with creditors to minimize transactions.
func simplifyDebts(balances []MemberBalance) []DebtEdge {
	type entry struct {
		name   string
		amount int64
	}

	var creditors, debtors []entry
	for _, b := range balances {
		if b.NetBalance > 0 {
			creditors = append(creditors, entry{b.Member, b.NetBalance})
		} else if b.NetBalance < 0 {
			debtors = append(debtors, entry{b.Member, -b.NetBalance})
		}
	}

	// Greedy algorithm: match largest debts with largest credits.
	// Stable sorts keep member order between equal amounts.
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].amount > creditors[j].amount })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].amount > debtors[j].amount })

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		edges = append(edges, DebtEdge{
			From:   debtors[i].name,
			To:     creditors[j].name,
			Amount: amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}

	return edges
}
