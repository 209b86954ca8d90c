package models

import (
	"math"

	"github.com/mmynk/roomiesplit/pkg/keys"
)

// MaxAmount bounds a single expense amount and a group's running total.
const MaxAmount uint64 = math.MaxInt64

// MaxDescriptionLength is the maximum expense description length in bytes.
const MaxDescriptionLength = 64

// Expense is a payment made by one member for the group.
type Expense struct {
	// Key is derived from the group key and a salt (see keys.ExpenseKey).
	Key keys.Key `json:"key"`

	// GroupKey references the owning group.
	GroupKey keys.Key `json:"group_key"`

	// Seq is the group's expense count at the time this expense was appended.
	Seq uint64 `json:"seq"`

	// Payer is the member who paid.
	Payer keys.Identity `json:"payer"`

	// Description is a short label (e.g. "Dinner").
	Description string `json:"description"`

	// Amount is the paid amount in whole units.
	Amount uint64 `json:"amount"`

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64 `json:"created_at"`
}
