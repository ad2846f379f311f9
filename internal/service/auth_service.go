package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Login outcomes reported to metrics.
const (
	loginSucceeded = "success"
	loginFailed    = "failure"
	loginThrottled = "throttled"
)

// AuthToken is the result of a successful login.
type AuthToken struct {
	Token     string
	OwnerID   string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and token verification.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	limiter    *LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Limiter    *LoginLimiter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a user account. The email must not already exist.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicateEmail()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.storageError("lookup user", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, s.storageError("create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	s.publish(ctx, events.Event{Type: events.EventUserRegistered, OwnerID: user.ID})
	return user, nil
}

// FindByEmail returns the user or nil when none exists.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError("lookup user", err)
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown emails and
// wrong passwords yield the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthToken, error) {
	if s.limiter.Blocked(ctx, email) {
		s.metrics.RecordLogin(loginThrottled)
		return nil, apperrors.NewTooManyAttempts()
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		auth.BurnCompare(password)
		return nil, s.loginFailed(ctx, email)
	case err != nil:
		return nil, s.storageError("lookup user", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed(ctx, email)
	}

	token, exp, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.limiter.Reset(ctx, email)
	s.metrics.RecordLogin(loginSucceeded)
	return &AuthToken{Token: token, OwnerID: user.ID, ExpiresAt: exp}, nil
}

// Verify resolves a bearer token to its owner id.
func (s *AuthService) Verify(token string) (string, error) {
	ownerID, err := s.tokens.ParseToken(token)
	switch {
	case err == nil:
		return ownerID, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return "", apperrors.NewExpiredToken()
	default:
		return "", apperrors.NewInvalidToken("invalid token")
	}
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	s.limiter.RecordFailure(ctx, email)
	s.metrics.RecordLogin(loginFailed)
	return apperrors.NewInvalidCredentials()
}

func (s *AuthService) storageError(op string, err error) error {
	s.logger.Error("user store failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageUnavailable(err)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
