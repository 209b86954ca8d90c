package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mr-tron/base58"

	"github.com/mmynk/roomiesplit/internal/auth"
	"github.com/mmynk/roomiesplit/internal/middleware"
	"github.com/mmynk/roomiesplit/pkg/api"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

var errInvalidLogin = errors.New("invalid login")

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Login verifies a signed login message and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "identity", req.Msg.Identity)

	identity, err := keys.ParseIdentity(req.Msg.Identity)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	signature, err := base58.Decode(req.Msg.Signature)
	if err != nil || len(signature) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidSignature)
	}

	if err := s.authenticator.Authenticate(ctx, identity, req.Msg.IssuedAt, signature); err != nil {
		s.logger.Warn("Login failed", "identity", identity, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidLogin)
	}

	token, expiresAt, err := s.jwtManager.Generate(identity)
	if err != nil {
		s.logger.Error("Failed to generate token", "identity", identity, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Logged in successfully", "identity", identity)
	return connect.NewResponse(&api.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}), nil
}

// WhoAmI returns the identity behind the bearer token.
func (s *AuthService) WhoAmI(ctx context.Context, req *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	s.logger.Info("WhoAmI request", "identity", identity)
	return connect.NewResponse(&api.WhoAmIResponse{Identity: identity.String()}), nil
}
