package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/roomiesplit/internal/ledger"
	"github.com/mmynk/roomiesplit/pkg/api"
)

var (
	errUnauthenticated = errors.New("caller identity missing")
	errEmptyAmount     = errors.New("amount is required")
)

// kindCodes maps ledger rejections to Connect codes.
var kindCodes = map[ledger.ErrorKind]connect.Code{
	ledger.TooManyMembers:     connect.CodeInvalidArgument,
	ledger.DuplicateMember:    connect.CodeInvalidArgument,
	ledger.InvalidAmount:      connect.CodeInvalidArgument,
	ledger.DescriptionTooLong: connect.CodeInvalidArgument,
	ledger.InvalidSalt:        connect.CodeInvalidArgument,
	ledger.GroupNotFound:      connect.CodeNotFound,
	ledger.ExpenseNotFound:    connect.CodeNotFound,
	ledger.NotMember:          connect.CodePermissionDenied,
	ledger.AlreadyExists:      connect.CodeAlreadyExists,
	ledger.TotalOverflow:      connect.CodeOutOfRange,
	ledger.NoMembers:          connect.CodeFailedPrecondition,
}

// toConnectError converts a ledger error into a Connect error carrying the
// kind in api.ErrorKindHeader. Anything else becomes CodeInternal.
func toConnectError(err error) *connect.Error {
	kind := ledger.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		return connect.NewError(connect.CodeInternal, err)
	}

	connectErr := connect.NewError(code, err)
	connectErr.Meta().Set(api.ErrorKindHeader, kind.String())
	return connectErr
}

// invalidArgument reports malformed input that never reached the ledger,
// tagged with the kind the ledger would have used for the same field.
func invalidArgument(kind ledger.ErrorKind, err error) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)
	if kind != ledger.KindUnknown {
		connectErr.Meta().Set(api.ErrorKindHeader, kind.String())
	}
	return connectErr
}
