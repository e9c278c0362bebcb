package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/norahq/nora/internal/auth"
	"github.com/norahq/nora/internal/middleware"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	users         auth.UserStorage
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, users auth.UserStorage, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		users:         users,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

func (s *AuthService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.AuthServiceRegisterProcedure, s.RegisterUser, opts)
	handle(mux, api.AuthServiceLoginProcedure, s.Login, opts)
	handle(mux, api.AuthServiceMeProcedure, s.Me, opts)
}

// RegisterUser creates a new user account.
func (s *AuthService) RegisterUser(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	username := strings.TrimSpace(req.Msg.Username)
	s.logger.Info("Register request", "username", username)

	if username == "" || req.Msg.Password == "" {
		return nil, toConnectError(storage.Validationf("username and password are required"))
	}

	user, err := s.authenticator.Register(ctx, username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "username", username, "error", err)
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			return nil, toConnectError(&storage.Error{Code: storage.CodeConflict, Message: err.Error()})
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, toConnectError(&storage.Error{Code: storage.CodeValidation, Message: err.Error()})
		}
		return nil, toConnectError(err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&api.RegisterResponse{
		ID:       user.ID,
		Username: user.Username,
		Status:   api.StatusUserCreated,
	}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	username := strings.TrimSpace(req.Msg.Username)
	s.logger.Info("Login request", "username", username)

	if username == "" || req.Msg.Password == "" {
		return nil, toConnectError(storage.Validationf("username and password are required"))
	}

	user, err := s.authenticator.Authenticate(ctx, username, req.Msg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "username", username)
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
		}
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return connect.NewResponse(&api.LoginResponse{
		Token:    token,
		Username: user.Username,
	}), nil
}

// Me returns the currently authenticated user's information.
func (s *AuthService) Me(ctx context.Context, req *connect.Request[api.MeRequest]) (*connect.Response[api.MeResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, toConnectError(storage.NotFound(storage.KindUser, userID))
		}
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.MeResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}), nil
}
