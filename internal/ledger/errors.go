package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind identifies why a ledger operation was rejected.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	TooManyMembers
	DuplicateMember
	InvalidAmount
	GroupNotFound
	ExpenseNotFound
	NotMember
	DescriptionTooLong
	InvalidSalt
	AlreadyExists
	TotalOverflow
	NoMembers
)

var kindNames = map[ErrorKind]string{
	KindUnknown:        "Unknown",
	TooManyMembers:     "TooManyMembers",
	DuplicateMember:    "DuplicateMember",
	InvalidAmount:      "InvalidAmount",
	GroupNotFound:      "GroupNotFound",
	ExpenseNotFound:    "ExpenseNotFound",
	NotMember:          "NotMember",
	DescriptionTooLong: "DescriptionTooLong",
	InvalidSalt:        "InvalidSalt",
	AlreadyExists:      "AlreadyExists",
	TotalOverflow:      "TotalOverflow",
	NoMembers:          "NoMembers",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a rejected ledger operation.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidAmount)
// holds regardless of detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrTooManyMembers     = &Error{Kind: TooManyMembers}
	ErrDuplicateMember    = &Error{Kind: DuplicateMember}
	ErrInvalidAmount      = &Error{Kind: InvalidAmount}
	ErrGroupNotFound      = &Error{Kind: GroupNotFound}
	ErrExpenseNotFound    = &Error{Kind: ExpenseNotFound}
	ErrNotMember          = &Error{Kind: NotMember}
	ErrDescriptionTooLong = &Error{Kind: DescriptionTooLong}
	ErrInvalidSalt        = &Error{Kind: InvalidSalt}
	ErrAlreadyExists      = &Error{Kind: AlreadyExists}
	ErrTotalOverflow      = &Error{Kind: TotalOverflow}
	ErrNoMembers          = &Error{Kind: NoMembers}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
