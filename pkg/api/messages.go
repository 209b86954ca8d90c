// Package api defines the roomiesplit RPC surface: request and response
// messages plus Connect handlers and clients for LedgerService and
// AuthService.
//
// Keys and identities travel as base58 strings. Amounts travel as decimal
// strings so that clients holding big-number values never lose precision.
package api

// Group is the wire form of a group.
type Group struct {
	Key           string   `json:"key"`
	Owner         string   `json:"owner"`
	Members       []string `json:"members"`
	TotalExpenses string   `json:"total_expenses"`
	ExpenseCount  uint64   `json:"expense_count"`
	CreatedAt     int64    `json:"created_at"`
}

// Expense is the wire form of an expense.
type Expense struct {
	Key         string `json:"key"`
	GroupKey    string `json:"group_key"`
	Seq         uint64 `json:"seq"`
	Payer       string `json:"payer"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	CreatedAt   int64  `json:"created_at"`
}

// MemberBalance is one member's position within a group.
type MemberBalance struct {
	Member     string `json:"member"`
	TotalPaid  int64  `json:"total_paid"`
	FairShare  int64  `json:"fair_share"`
	NetBalance int64  `json:"net_balance"`
}

// DebtEdge is a payment that settles part of the group.
type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// CreateGroupRequest creates the caller's group. The caller is not added to
// Members implicitly.
type CreateGroupRequest struct {
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupKey string `json:"group_key"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// AddExpenseRequest appends an expense paid by the caller. Salt seeds the
// expense key; when empty the server picks a random one.
type AddExpenseRequest struct {
	GroupKey    string `json:"group_key"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Salt        string `json:"salt,omitempty"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseKey string `json:"expense_key"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupKey string `json:"group_key"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetGroupBalancesRequest struct {
	GroupKey string `json:"group_key"`
}

type GetGroupBalancesResponse struct {
	MemberBalances []*MemberBalance `json:"member_balances"`
	DebtMatrix     []*DebtEdge      `json:"debt_matrix"`
}

// LoginRequest proves ownership of Identity by signing LoginMessage(Identity,
// IssuedAt) with its ed25519 key. Signature is base58.
type LoginRequest struct {
	Identity  string `json:"identity"`
	IssuedAt  int64  `json:"issued_at"`
	Signature string `json:"signature"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	Identity string `json:"identity"`
}
