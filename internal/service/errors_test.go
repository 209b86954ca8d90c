package service

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/roomiesplit/internal/ledger"
	"github.com/mmynk/roomiesplit/pkg/api"
)

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code connect.Code
		kind string
	}{
		{"ledger kind", &ledger.Error{Kind: ledger.NotMember, Detail: "x"}, connect.CodePermissionDenied, "NotMember"},
		{"wrapped ledger kind", fmt.Errorf("outer: %w", ledger.ErrTotalOverflow), connect.CodeOutOfRange, "TotalOverflow"},
		{"plain error", errors.New("disk on fire"), connect.CodeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toConnectError(tt.err)
			if got.Code() != tt.code {
				t.Errorf("code: expected %v, got %v", tt.code, got.Code())
			}
			if kind := got.Meta().Get(api.ErrorKindHeader); kind != tt.kind {
				t.Errorf("kind: expected %q, got %q", tt.kind, kind)
			}
		})
	}
}

func TestKindCodes_CoverEveryKind(t *testing.T) {
	for kind := ledger.TooManyMembers; kind <= ledger.NoMembers; kind++ {
		if _, ok := kindCodes[kind]; !ok {
			t.Errorf("no connect code for %s", kind)
		}
	}
}
