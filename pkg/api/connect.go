package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// LedgerServiceName is the fully-qualified name of the LedgerService service.
	LedgerServiceName = "roomiesplit.v1.LedgerService"
	// AuthServiceName is the fully-qualified name of the AuthService service.
	AuthServiceName = "roomiesplit.v1.AuthService"
)

// These constants are the fully-qualified names of the RPCs defined in this package. They're
// exposed at runtime as Spec.Procedure and as the final two segments of the HTTP route.
const (
	// LedgerServiceCreateGroupProcedure is the fully-qualified name of the LedgerService's CreateGroup RPC.
	LedgerServiceCreateGroupProcedure = "/roomiesplit.v1.LedgerService/CreateGroup"
	// LedgerServiceGetGroupProcedure is the fully-qualified name of the LedgerService's GetGroup RPC.
	LedgerServiceGetGroupProcedure = "/roomiesplit.v1.LedgerService/GetGroup"
	// LedgerServiceListGroupsProcedure is the fully-qualified name of the LedgerService's ListGroups RPC.
	LedgerServiceListGroupsProcedure = "/roomiesplit.v1.LedgerService/ListGroups"
	// LedgerServiceAddExpenseProcedure is the fully-qualified name of the LedgerService's AddExpense RPC.
	LedgerServiceAddExpenseProcedure = "/roomiesplit.v1.LedgerService/AddExpense"
	// LedgerServiceGetExpenseProcedure is the fully-qualified name of the LedgerService's GetExpense RPC.
	LedgerServiceGetExpenseProcedure = "/roomiesplit.v1.LedgerService/GetExpense"
	// LedgerServiceListExpensesProcedure is the fully-qualified name of the LedgerService's ListExpenses RPC.
	LedgerServiceListExpensesProcedure = "/roomiesplit.v1.LedgerService/ListExpenses"
	// LedgerServiceGetGroupBalancesProcedure is the fully-qualified name of the LedgerService's GetGroupBalances RPC.
	LedgerServiceGetGroupBalancesProcedure = "/roomiesplit.v1.LedgerService/GetGroupBalances"
	// AuthServiceLoginProcedure is the fully-qualified name of the AuthService's Login RPC.
	AuthServiceLoginProcedure = "/roomiesplit.v1.AuthService/Login"
	// AuthServiceWhoAmIProcedure is the fully-qualified name of the AuthService's WhoAmI RPC.
	AuthServiceWhoAmIProcedure = "/roomiesplit.v1.AuthService/WhoAmI"
)

// handlerOptions puts the JSON codec ahead of caller options.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// clientOptions puts the JSON codec ahead of caller options.
func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// LedgerServiceClient is a client for the roomiesplit.v1.LedgerService service.
type LedgerServiceClient interface {
	// CreateGroup creates the caller's group.
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	// GetGroup fetches a group by key.
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	// ListGroups lists every group.
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	// AddExpense appends an expense paid by the caller.
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	// GetExpense fetches an expense by key.
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	// ListExpenses lists a group's expenses in append order.
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	// GetGroupBalances reports per-member balances and the debts that settle the group.
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
}

// NewLedgerServiceClient constructs a client for the roomiesplit.v1.LedgerService service.
//
// The URL supplied here should be the base URL for the Connect server (for example,
// http://api.acme.com or https://acme.com/grpc).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ledgerServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, CreateGroupResponse](
			httpClient,
			baseURL+LedgerServiceCreateGroupProcedure,
			opts...,
		),
		getGroup: connect.NewClient[GetGroupRequest, GetGroupResponse](
			httpClient,
			baseURL+LedgerServiceGetGroupProcedure,
			opts...,
		),
		listGroups: connect.NewClient[ListGroupsRequest, ListGroupsResponse](
			httpClient,
			baseURL+LedgerServiceListGroupsProcedure,
			opts...,
		),
		addExpense: connect.NewClient[AddExpenseRequest, AddExpenseResponse](
			httpClient,
			baseURL+LedgerServiceAddExpenseProcedure,
			opts...,
		),
		getExpense: connect.NewClient[GetExpenseRequest, GetExpenseResponse](
			httpClient,
			baseURL+LedgerServiceGetExpenseProcedure,
			opts...,
		),
		listExpenses: connect.NewClient[ListExpensesRequest, ListExpensesResponse](
			httpClient,
			baseURL+LedgerServiceListExpensesProcedure,
			opts...,
		),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](
			httpClient,
			baseURL+LedgerServiceGetGroupBalancesProcedure,
			opts...,
		),
	}
}

// ledgerServiceClient implements LedgerServiceClient.
type ledgerServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addExpense       *connect.Client[AddExpenseRequest, AddExpenseResponse]
	getExpense       *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

// CreateGroup calls roomiesplit.v1.LedgerService.CreateGroup.
func (c *ledgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

// GetGroup calls roomiesplit.v1.LedgerService.GetGroup.
func (c *ledgerServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

// ListGroups calls roomiesplit.v1.LedgerService.ListGroups.
func (c *ledgerServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

// AddExpense calls roomiesplit.v1.LedgerService.AddExpense.
func (c *ledgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

// GetExpense calls roomiesplit.v1.LedgerService.GetExpense.
func (c *ledgerServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

// ListExpenses calls roomiesplit.v1.LedgerService.ListExpenses.
func (c *ledgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

// GetGroupBalances calls roomiesplit.v1.LedgerService.GetGroupBalances.
func (c *ledgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// LedgerServiceHandler is an implementation of the roomiesplit.v1.LedgerService service.
type LedgerServiceHandler interface {
	// CreateGroup creates the caller's group.
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	// GetGroup fetches a group by key.
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	// ListGroups lists every group.
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	// AddExpense appends an expense paid by the caller.
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	// GetExpense fetches an expense by key.
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	// ListExpenses lists a group's expenses in append order.
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	// GetGroupBalances reports per-member balances and the debts that settle the group.
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation. It returns the
// path on which to mount the handler and the handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	ledgerServiceCreateGroupHandler := connect.NewUnaryHandler(
		LedgerServiceCreateGroupProcedure,
		svc.CreateGroup,
		opts...,
	)
	ledgerServiceGetGroupHandler := connect.NewUnaryHandler(
		LedgerServiceGetGroupProcedure,
		svc.GetGroup,
		opts...,
	)
	ledgerServiceListGroupsHandler := connect.NewUnaryHandler(
		LedgerServiceListGroupsProcedure,
		svc.ListGroups,
		opts...,
	)
	ledgerServiceAddExpenseHandler := connect.NewUnaryHandler(
		LedgerServiceAddExpenseProcedure,
		svc.AddExpense,
		opts...,
	)
	ledgerServiceGetExpenseHandler := connect.NewUnaryHandler(
		LedgerServiceGetExpenseProcedure,
		svc.GetExpense,
		opts...,
	)
	ledgerServiceListExpensesHandler := connect.NewUnaryHandler(
		LedgerServiceListExpensesProcedure,
		svc.ListExpenses,
		opts...,
	)
	ledgerServiceGetGroupBalancesHandler := connect.NewUnaryHandler(
		LedgerServiceGetGroupBalancesProcedure,
		svc.GetGroupBalances,
		opts...,
	)
	return "/roomiesplit.v1.LedgerService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceCreateGroupProcedure:
			ledgerServiceCreateGroupHandler.ServeHTTP(w, r)
		case LedgerServiceGetGroupProcedure:
			ledgerServiceGetGroupHandler.ServeHTTP(w, r)
		case LedgerServiceListGroupsProcedure:
			ledgerServiceListGroupsHandler.ServeHTTP(w, r)
		case LedgerServiceAddExpenseProcedure:
			ledgerServiceAddExpenseHandler.ServeHTTP(w, r)
		case LedgerServiceGetExpenseProcedure:
			ledgerServiceGetExpenseHandler.ServeHTTP(w, r)
		case LedgerServiceListExpensesProcedure:
			ledgerServiceListExpensesHandler.ServeHTTP(w, r)
		case LedgerServiceGetGroupBalancesProcedure:
			ledgerServiceGetGroupBalancesHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// AuthServiceClient is a client for the roomiesplit.v1.AuthService service.
type AuthServiceClient interface {
	// Login exchanges a signed login message for a bearer token.
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	// WhoAmI returns the identity behind the bearer token.
	WhoAmI(context.Context, *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error)
}

// NewAuthServiceClient constructs a client for the roomiesplit.v1.AuthService service.
//
// The URL supplied here should be the base URL for the Connect server (for example,
// http://api.acme.com or https://acme.com/grpc).
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &authServiceClient{
		login: connect.NewClient[LoginRequest, LoginResponse](
			httpClient,
			baseURL+AuthServiceLoginProcedure,
			opts...,
		),
		whoAmI: connect.NewClient[WhoAmIRequest, WhoAmIResponse](
			httpClient,
			baseURL+AuthServiceWhoAmIProcedure,
			opts...,
		),
	}
}

// authServiceClient implements AuthServiceClient.
type authServiceClient struct {
	login  *connect.Client[LoginRequest, LoginResponse]
	whoAmI *connect.Client[WhoAmIRequest, WhoAmIResponse]
}

// Login calls roomiesplit.v1.AuthService.Login.
func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

// WhoAmI calls roomiesplit.v1.AuthService.WhoAmI.
func (c *authServiceClient) WhoAmI(ctx context.Context, req *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error) {
	return c.whoAmI.CallUnary(ctx, req)
}

// AuthServiceHandler is an implementation of the roomiesplit.v1.AuthService service.
type AuthServiceHandler interface {
	// Login exchanges a signed login message for a bearer token.
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	// WhoAmI returns the identity behind the bearer token.
	WhoAmI(context.Context, *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler from the service implementation. It returns the
// path on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	authServiceLoginHandler := connect.NewUnaryHandler(
		AuthServiceLoginProcedure,
		svc.Login,
		opts...,
	)
	authServiceWhoAmIHandler := connect.NewUnaryHandler(
		AuthServiceWhoAmIProcedure,
		svc.WhoAmI,
		opts...,
	)
	return "/roomiesplit.v1.AuthService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AuthServiceLoginProcedure:
			authServiceLoginHandler.ServeHTTP(w, r)
		case AuthServiceWhoAmIProcedure:
			authServiceWhoAmIHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
