package api

import (
	"errors"

	"connectrpc.com/connect"
)

// ErrorKindHeader carries the ledger error kind (e.g. "TooManyMembers") on
// failed responses.
const ErrorKindHeader = "Roomiesplit-Error-Kind"

// ErrorKindOf returns the ledger error kind reported by the server, or ""
// when err carries none.
func ErrorKindOf(err error) string {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return ""
	}
	return connectErr.Meta().Get(ErrorKindHeader)
}
