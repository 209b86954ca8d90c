package models

import "github.com/mmynk/roomiesplit/pkg/keys"

// Group is a set of people sharing expenses.
type Group struct {
	// Key is derived from the owner (see keys.GroupKey).
	Key keys.Key `json:"key"`

	// Owner is the identity that created the group.
	Owner keys.Identity `json:"owner"`

	// Members is the ordered member list, stored exactly as given at creation.
	Members []keys.Identity `json:"members"`

	// TotalExpenses is the sum of all expense amounts appended to the group.
	TotalExpenses uint64 `json:"total_expenses"`

	// ExpenseCount is the number of expenses appended to the group.
	ExpenseCount uint64 `json:"expense_count"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// HasMember reports whether id is one of the group's members.
func (g *Group) HasMember(id keys.Identity) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
