package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mr-tron/base58"

	"github.com/mmynk/roomiesplit/internal/auth"
	"github.com/mmynk/roomiesplit/internal/ledger"
	"github.com/mmynk/roomiesplit/internal/middleware"
	"github.com/mmynk/roomiesplit/internal/storage/sqlite"
	"github.com/mmynk/roomiesplit/pkg/api"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	ledger api.LedgerServiceClient
	auth   api.AuthServiceClient
}

// setupTestServer wires both services over a temp SQLite database the same
// way cmd/server does.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledgerSvc := NewLedgerService(ledger.NewRegistry(store, ledger.DefaultMaxMembers), ledger.NewLedger(store))
	authSvc := NewAuthService(auth.NewSignatureAuthenticator(time.Minute), jwtManager, logger)

	mux := http.NewServeMux()
	mux.Handle(api.NewLedgerServiceHandler(ledgerSvc,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
	))
	mux.Handle(api.NewAuthServiceHandler(authSvc,
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		ledger: api.NewLedgerServiceClient(http.DefaultClient, server.URL),
		auth:   api.NewAuthServiceClient(http.DefaultClient, server.URL),
	}
}

// user is a caller holding an ed25519 key and, after login, a token.
type user struct {
	identity string
	token    string
}

func (s *testServer) newUser(t *testing.T) *user {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	issuedAt := time.Now().Unix()
	identity, sig, err := auth.SignLogin(priv, issuedAt)
	if err != nil {
		t.Fatalf("failed to sign login: %v", err)
	}

	resp, err := s.auth.Login(context.Background(), connect.NewRequest(&api.LoginRequest{
		Identity:  identity.String(),
		IssuedAt:  issuedAt,
		Signature: base58.Encode(sig),
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return &user{identity: identity.String(), token: resp.Msg.Token}
}

func authed[T any](u *user, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.token)
	return req
}

func expectKind(t *testing.T, err error, code connect.Code, kind string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := connect.CodeOf(err); got != code {
		t.Errorf("code: expected %v, got %v (%v)", code, got, err)
	}
	if got := api.ErrorKindOf(err); got != kind {
		t.Errorf("kind: expected %q, got %q", kind, got)
	}
}

func (s *testServer) createGroup(t *testing.T, owner *user, members ...string) *api.Group {
	t.Helper()
	resp, err := s.ledger.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{Members: members}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func TestCreateGroup_OwnerOnly(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)

	group := s.createGroup(t, owner, owner.identity)

	resp, err := s.ledger.GetGroup(context.Background(), authed(owner, &api.GetGroupRequest{GroupKey: group.Key}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}

	got := resp.Msg.Group
	if len(got.Members) != 1 || got.Members[0] != owner.identity {
		t.Errorf("members: expected [%s], got %v", owner.identity, got.Members)
	}
	if got.Owner != owner.identity {
		t.Errorf("owner: expected %s, got %s", owner.identity, got.Owner)
	}
	if got.TotalExpenses != "0" || got.ExpenseCount != 0 {
		t.Errorf("totals: expected 0/0, got %s/%d", got.TotalExpenses, got.ExpenseCount)
	}
	if got.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}
}

func TestCreateGroup_TwentyMembers(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)

	members := make([]string, 20)
	for i := range members {
		members[i] = owner.identity
	}

	_, err := s.ledger.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{Members: members}))
	expectKind(t, err, connect.CodeInvalidArgument, "TooManyMembers")

	// Nothing was written, so a valid group can still be created.
	s.createGroup(t, owner, owner.identity)
}

func TestCreateGroup_Rejections(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	bob := s.newUser(t)

	t.Run("duplicate member", func(t *testing.T) {
		_, err := s.ledger.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{
			Members: []string{owner.identity, bob.identity, owner.identity},
		}))
		expectKind(t, err, connect.CodeInvalidArgument, "DuplicateMember")
	})

	t.Run("malformed member", func(t *testing.T) {
		_, err := s.ledger.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{
			Members: []string{"not-base58-0OIl"},
		}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("second group for same owner", func(t *testing.T) {
		s.createGroup(t, owner, owner.identity, bob.identity)
		_, err := s.ledger.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{
			Members: []string{owner.identity},
		}))
		expectKind(t, err, connect.CodeAlreadyExists, "AlreadyExists")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := s.ledger.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("expected Unauthenticated, got %v", err)
		}
	})
}

func TestAddExpense_Dinner(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	group := s.createGroup(t, owner, owner.identity)

	resp, err := s.ledger.AddExpense(context.Background(), authed(owner, &api.AddExpenseRequest{
		GroupKey:    group.Key,
		Description: "Dinner",
		Amount:      "50",
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	getResp, err := s.ledger.GetExpense(context.Background(), authed(owner, &api.GetExpenseRequest{
		ExpenseKey: resp.Msg.Expense.Key,
	}))
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}

	got := getResp.Msg.Expense
	if got.Description != "Dinner" {
		t.Errorf("description: expected 'Dinner', got '%s'", got.Description)
	}
	if got.Amount != "50" {
		t.Errorf("amount: expected '50', got '%s'", got.Amount)
	}
	if got.Payer != owner.identity {
		t.Errorf("payer: expected %s, got %s", owner.identity, got.Payer)
	}
	if got.GroupKey != group.Key {
		t.Errorf("group key: expected %s, got %s", group.Key, got.GroupKey)
	}
}

func TestAddExpense_ZeroAmount(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	group := s.createGroup(t, owner, owner.identity)

	_, err := s.ledger.AddExpense(context.Background(), authed(owner, &api.AddExpenseRequest{
		GroupKey:    group.Key,
		Description: "Invalid",
		Amount:      "0",
	}))
	expectKind(t, err, connect.CodeInvalidArgument, "InvalidAmount")

	listResp, err := s.ledger.ListExpenses(context.Background(), authed(owner, &api.ListExpensesRequest{GroupKey: group.Key}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(listResp.Msg.Expenses) != 0 {
		t.Errorf("expected no expenses, got %d", len(listResp.Msg.Expenses))
	}
}

func TestAddExpense_Rejections(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	outsider := s.newUser(t)
	group := s.createGroup(t, owner, owner.identity)

	stranger := s.newUser(t)
	foreign := s.createGroup(t, stranger, stranger.identity)

	tests := []struct {
		name   string
		caller *user
		req    *api.AddExpenseRequest
		code   connect.Code
		kind   string
	}{
		{"negative amount", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "-5"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"fractional amount", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "1.5"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"unparsable amount", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "fifty"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"empty amount", owner, &api.AddExpenseRequest{GroupKey: group.Key}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"huge exponent", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "1e10000000"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"huge negative exponent", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "1e-10000000"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"overlong amount", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "1" + strings.Repeat("0", 100)}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"amount past bound", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "9223372036854775808"}, connect.CodeInvalidArgument, "InvalidAmount"},
		{"payer not a member", outsider, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "10"}, connect.CodePermissionDenied, "NotMember"},
		{"owner of another group", owner, &api.AddExpenseRequest{GroupKey: foreign.Key, Amount: "10"}, connect.CodePermissionDenied, "NotMember"},
		{"long description", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "10", Description: string(make([]byte, 65))}, connect.CodeInvalidArgument, "DescriptionTooLong"},
		{"long salt", owner, &api.AddExpenseRequest{GroupKey: group.Key, Amount: "10", Salt: string(make([]byte, 33))}, connect.CodeInvalidArgument, "InvalidSalt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ledger.AddExpense(context.Background(), authed(tt.caller, tt.req))
			expectKind(t, err, tt.code, tt.kind)
			if err != nil && len(err.Error()) > 512 {
				t.Errorf("error message is %d bytes, expected a short detail", len(err.Error()))
			}
		})
	}

	resp, err := s.ledger.GetGroup(context.Background(), authed(owner, &api.GetGroupRequest{GroupKey: group.Key}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.ExpenseCount != 0 {
		t.Errorf("expected no expenses after rejections, got %d", resp.Msg.Group.ExpenseCount)
	}
}

func TestAddExpense_SameSaltTwice(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	group := s.createGroup(t, owner, owner.identity)

	req := &api.AddExpenseRequest{GroupKey: group.Key, Description: "Rent", Amount: "1200", Salt: "2024-05"}
	if _, err := s.ledger.AddExpense(context.Background(), authed(owner, req)); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	_, err := s.ledger.AddExpense(context.Background(), authed(owner, req))
	expectKind(t, err, connect.CodeAlreadyExists, "AlreadyExists")
}

func TestAddExpense_Overflow(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	group := s.createGroup(t, owner, owner.identity)

	if _, err := s.ledger.AddExpense(context.Background(), authed(owner, &api.AddExpenseRequest{
		GroupKey: group.Key,
		Amount:   "9223372036854775807",
	})); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	_, err := s.ledger.AddExpense(context.Background(), authed(owner, &api.AddExpenseRequest{
		GroupKey: group.Key,
		Amount:   "1",
	}))
	expectKind(t, err, connect.CodeOutOfRange, "TotalOverflow")
}

func TestGroupNotFound(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)

	// Valid key shape, never created.
	const unknownKey = "11111111111111111111111111111111"

	_, err := s.ledger.GetGroup(context.Background(), authed(owner, &api.GetGroupRequest{GroupKey: unknownKey}))
	expectKind(t, err, connect.CodeNotFound, "GroupNotFound")

	_, err = s.ledger.AddExpense(context.Background(), authed(owner, &api.AddExpenseRequest{GroupKey: unknownKey, Amount: "0"}))
	expectKind(t, err, connect.CodeNotFound, "GroupNotFound")

	_, err = s.ledger.ListExpenses(context.Background(), authed(owner, &api.ListExpensesRequest{GroupKey: unknownKey}))
	expectKind(t, err, connect.CodeNotFound, "GroupNotFound")

	_, err = s.ledger.GetExpense(context.Background(), authed(owner, &api.GetExpenseRequest{ExpenseKey: unknownKey}))
	expectKind(t, err, connect.CodeNotFound, "ExpenseNotFound")

	_, err = s.ledger.GetGroup(context.Background(), authed(owner, &api.GetGroupRequest{GroupKey: "short"}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for malformed key, got %v", err)
	}
}

func TestGroupBalances(t *testing.T) {
	s := setupTestServer(t)
	alice := s.newUser(t)
	bob := s.newUser(t)
	carol := s.newUser(t)
	group := s.createGroup(t, alice, alice.identity, bob.identity, carol.identity)

	add := func(u *user, amount string) {
		t.Helper()
		if _, err := s.ledger.AddExpense(context.Background(), authed(u, &api.AddExpenseRequest{
			GroupKey: group.Key,
			Amount:   amount,
		})); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
	}
	add(alice, "90")
	add(bob, "30")

	listResp, err := s.ledger.ListExpenses(context.Background(), authed(carol, &api.ListExpensesRequest{GroupKey: group.Key}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(listResp.Msg.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(listResp.Msg.Expenses))
	}
	for i, e := range listResp.Msg.Expenses {
		if e.Seq != uint64(i) {
			t.Errorf("expense %d: expected seq %d, got %d", i, i, e.Seq)
		}
	}

	resp, err := s.ledger.GetGroupBalances(context.Background(), authed(carol, &api.GetGroupBalancesRequest{GroupKey: group.Key}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	// Total 120 over three members: 40 each.
	want := map[string]int64{alice.identity: 50, bob.identity: -10, carol.identity: -40}
	if len(resp.Msg.MemberBalances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(resp.Msg.MemberBalances))
	}
	for _, b := range resp.Msg.MemberBalances {
		if b.FairShare != 40 {
			t.Errorf("%s: expected fair share 40, got %d", b.Member, b.FairShare)
		}
		if b.NetBalance != want[b.Member] {
			t.Errorf("%s: expected net %d, got %d", b.Member, want[b.Member], b.NetBalance)
		}
	}

	var settled int64
	for _, d := range resp.Msg.DebtMatrix {
		if d.To != alice.identity {
			t.Errorf("expected every debt to be owed to alice, got %s -> %s", d.From, d.To)
		}
		settled += d.Amount
	}
	if settled != 50 {
		t.Errorf("expected debts to total 50, got %d", settled)
	}
}

func TestGroupBalances_NoMembers(t *testing.T) {
	s := setupTestServer(t)
	owner := s.newUser(t)
	group := s.createGroup(t, owner)

	_, err := s.ledger.GetGroupBalances(context.Background(), authed(owner, &api.GetGroupBalancesRequest{GroupKey: group.Key}))
	expectKind(t, err, connect.CodeFailedPrecondition, "NoMembers")
}

func TestListGroups(t *testing.T) {
	s := setupTestServer(t)
	alice := s.newUser(t)
	bob := s.newUser(t)

	first := s.createGroup(t, alice, alice.identity)
	second := s.createGroup(t, bob, bob.identity, alice.identity)

	resp, err := s.ledger.ListGroups(context.Background(), authed(alice, &api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(resp.Msg.Groups))
	}

	seen := map[string]bool{}
	for _, g := range resp.Msg.Groups {
		seen[g.Key] = true
	}
	if !seen[first.Key] || !seen[second.Key] {
		t.Errorf("expected both groups listed, got %v", seen)
	}
}

func TestAuth_LoginAndWhoAmI(t *testing.T) {
	s := setupTestServer(t)
	u := s.newUser(t)

	resp, err := s.auth.WhoAmI(context.Background(), authed(u, &api.WhoAmIRequest{}))
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if resp.Msg.Identity != u.identity {
		t.Errorf("identity: expected %s, got %s", u.identity, resp.Msg.Identity)
	}

	_, err = s.auth.WhoAmI(context.Background(), connect.NewRequest(&api.WhoAmIRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated without token, got %v", err)
	}
}

func TestAuth_LoginRejections(t *testing.T) {
	s := setupTestServer(t)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	now := time.Now().Unix()
	identity, sig, err := auth.SignLogin(priv, now)
	if err != nil {
		t.Fatalf("failed to sign login: %v", err)
	}

	tests := []struct {
		name string
		req  *api.LoginRequest
		code connect.Code
	}{
		{"stale", &api.LoginRequest{Identity: identity.String(), IssuedAt: now - 3600, Signature: base58.Encode(sig)}, connect.CodeUnauthenticated},
		{"tampered timestamp", &api.LoginRequest{Identity: identity.String(), IssuedAt: now + 1, Signature: base58.Encode(sig)}, connect.CodeUnauthenticated},
		{"bad identity", &api.LoginRequest{Identity: "abc", IssuedAt: now, Signature: base58.Encode(sig)}, connect.CodeInvalidArgument},
		{"empty signature", &api.LoginRequest{Identity: identity.String(), IssuedAt: now}, connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.auth.Login(context.Background(), connect.NewRequest(tt.req))
			if got := connect.CodeOf(err); got != tt.code {
				t.Errorf("expected %v, got %v (%v)", tt.code, got, err)
			}
		})
	}
}
