package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

// ErrDatabase wraps storage failures during sign-up. The wording is matched
// by FriendlyMessage.
var ErrDatabase = errors.New("Database error saving new user")

type ServiceAPI interface {
	SignUp(ctx context.Context, dto SignUpDTO) (*Session, error)
	SignIn(ctx context.Context, dto LoginDTO) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshTokens(ctx context.Context, refreshToken string) (*Session, error)
	Authenticate(ctx context.Context, accessToken string) (*User, error)
}

// StateChangeFunc receives session events: events.EventTypeSignedIn or
// events.EventTypeSignedOut.
type StateChangeFunc func(ctx context.Context, event events.SessionEvent) error

type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	revocations    RevocationStore
	bus            *events.EventBus
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, revocations RevocationStore, bus *events.EventBus, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		revocations:    revocations,
		bus:            bus,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

func (s *Service) SignUp(ctx context.Context, dto SignUpDTO) (*Session, error) {
	dto = dto.Normalized()
	if appErr := dto.Validate(); appErr != nil {
		s.logger.Warn("sign up validation failed", "error", appErr, "email", dto.Email)
		return nil, appErr
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	userID, err := s.repo.CreateUser(ctx, dto.Email, dto.FullName, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			s.logger.Warn("sign up rejected: email already registered", "email", dto.Email)
			return nil, ErrAlreadyRegistered
		}
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.logger.Info("user signed up", "user_id", userID, "email", dto.Email)
	return s.startSession(ctx, userID, dto.Email, dto.FullName)
}

func (s *Service) SignIn(ctx context.Context, dto LoginDTO) (*Session, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("failed to load credentials", "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("sign in rejected: password mismatch", "user_id", creds.UserID)
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, creds.UserID, creds.Email, creds.FullName)
}

func (s *Service) startSession(ctx context.Context, userID, email, fullName string) (*Session, error) {
	tokens, err := s.issueTokens(userID, email)
	if err != nil {
		s.logger.Error("failed to issue tokens", "error", err, "user_id", userID)
		return nil, err
	}

	if s.bus != nil {
		event := events.NewSessionEvent(events.EventTypeSignedIn, userID, email, fullName)
		if err := s.bus.PublishSync(ctx, event); err != nil {
			s.logger.Error("sign in subscriber failed", "error", err, "user_id", userID)
			return nil, err
		}
	}

	return &Session{
		AuthTokens: tokens,
		User:       SessionUser{ID: userID, Email: email, FullName: fullName},
	}, nil
}

func (s *Service) issueTokens(userID, email string) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// SignOut revokes the access token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.validateAccess(ctx, accessToken)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("failed to revoke token", "error", err, "user_id", claims.UserID)
		return err
	}

	if s.bus != nil {
		event := events.NewSessionEvent(events.EventTypeSignedOut, claims.UserID, claims.Email, "")
		if err := s.bus.PublishSync(ctx, event); err != nil {
			s.logger.Warn("sign out subscriber failed", "error", err, "user_id", claims.UserID)
		}
	}

	s.logger.Info("user signed out", "user_id", claims.UserID)
	return nil
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check refresh token revocation", "error", err)
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	tokens, err := s.issueTokens(claims.UserID, claims.Email)
	if err != nil {
		return nil, err
	}

	// a refresh token is single use
	if err := s.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Warn("failed to retire refresh token", "error", err, "user_id", claims.UserID)
	}

	return &Session{
		AuthTokens: tokens,
		User:       SessionUser{ID: claims.UserID, Email: claims.Email},
	}, nil
}

// Authenticate resolves a bearer token to the caller, including the role
// stored on their profile.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.validateAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("failed to load authenticated user", "error", err, "user_id", claims.UserID)
		return nil, err
	}
	return user, nil
}

func (s *Service) validateAccess(ctx context.Context, accessToken string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check token revocation", "error", err)
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events and returns
// a function that removes both registrations.
func (s *Service) OnAuthStateChange(fn StateChangeFunc) events.Unsubscribe {
	if s.bus == nil {
		return func() {}
	}

	handler := func(ctx context.Context, e events.Event) error {
		se, ok := e.(events.SessionEvent)
		if !ok {
			return nil
		}
		return fn(ctx, se)
	}

	signedIn := s.bus.Subscribe(events.EventTypeSignedIn, handler)
	signedOut := s.bus.Subscribe(events.EventTypeSignedOut, handler)
	return func() {
		signedIn()
		signedOut()
	}
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
