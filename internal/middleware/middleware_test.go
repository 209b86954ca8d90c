package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomiesplit/internal/auth"
	"github.com/mmynk/roomiesplit/pkg/api"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// echoAuthService answers WhoAmI with the identity from the context.
type echoAuthService struct{}

func (echoAuthService) Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, nil)
}

func (echoAuthService) WhoAmI(ctx context.Context, _ *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return connect.NewResponse(&api.WhoAmIResponse{}), nil
	}
	return connect.NewResponse(&api.WhoAmIResponse{Identity: identity.String()}), nil
}

func newIdentity(t *testing.T) keys.Identity {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	id, err := keys.IdentityFromPublicKey(pub)
	require.NoError(t, err)
	return id
}

func startServer(t *testing.T, interceptors ...connect.Interceptor) api.AuthServiceClient {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := api.NewAuthServiceHandler(echoAuthService{}, connect.WithInterceptors(interceptors...))
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return api.NewAuthServiceClient(http.DefaultClient, server.URL)
}

func whoAmI(t *testing.T, client api.AuthServiceClient, authorization string) (*api.WhoAmIResponse, error) {
	t.Helper()
	req := connect.NewRequest(&api.WhoAmIRequest{})
	if authorization != "" {
		req.Header().Set("Authorization", authorization)
	}
	resp, err := client.WhoAmI(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	client := startServer(t, RequireAuth(jwtManager), LoggingInterceptor())

	id := newIdentity(t)
	token, _, err := jwtManager.Generate(id)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		msg, err := whoAmI(t, client, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, id.String(), msg.Identity)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := whoAmI(t, client, "")
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		_, err := whoAmI(t, client, "Basic "+token)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("foreign token", func(t *testing.T) {
		other, _, err := auth.NewJWTManager(strings.Repeat("x", 32), time.Hour).Generate(id)
		require.NoError(t, err)
		_, err = whoAmI(t, client, "Bearer "+other)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	client := startServer(t, OptionalAuth(jwtManager))

	id := newIdentity(t)
	token, _, err := jwtManager.Generate(id)
	require.NoError(t, err)

	msg, err := whoAmI(t, client, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), msg.Identity)

	msg, err = whoAmI(t, client, "")
	require.NoError(t, err)
	assert.Empty(t, msg.Identity)

	msg, err = whoAmI(t, client, "Bearer garbage")
	require.NoError(t, err)
	assert.Empty(t, msg.Identity)
}

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	client := startServer(t, metrics.Interceptor(), RequireAuth(jwtManager))

	token, _, err := jwtManager.Generate(newIdentity(t))
	require.NoError(t, err)

	_, err = whoAmI(t, client, "Bearer "+token)
	require.NoError(t, err)
	_, err = whoAmI(t, client, "")
	require.Error(t, err)
	_, err = whoAmI(t, client, "")
	require.Error(t, err)

	procedure := api.AuthServiceWhoAmIProcedure
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(procedure, "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(procedure, "unauthenticated")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.latency))
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetrics(reg)
	second := NewMetrics(reg)

	assert.Same(t, first.requests, second.requests)
	assert.Same(t, first.latency, second.latency)
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), api.ErrorKindHeader)
}
