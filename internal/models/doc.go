// Package models defines the records kept by the roomiesplit ledger.
//
// # Records
//
//   - Group: an owner and a bounded, ordered list of member identities,
//     plus running totals over the group's expenses.
//   - Expense: a single payment made by a member on behalf of the group.
//
// Both records are addressed by keys derived from identities (see package
// keys) rather than generated IDs, so a client can compute where a record
// lives before it is created. Records are append-only: once created they
// are never updated by callers, only the group's running totals move as
// expenses are appended.
//
// # Amounts
//
// Amounts are whole units stored as uint64 and bounded by MaxAmount, which
// keeps every amount and running total inside the signed 64-bit range used
// by SQL storage and balance arithmetic.
package models
