package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/core/events"
	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*profileDatamodel.Profile, error)
	// Create inserts the profile unless one with the same id already exists.
	Create(ctx context.Context, p *profileDatamodel.Profile) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(ctx context.Context, id string) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(p), nil
}

// GetOrCreate returns the caller's profile, creating a plain user profile on
// first access.
func (s *Service) GetOrCreate(ctx context.Context, userID, email, fullName string) (*Profile, error) {
	existing, err := s.repo.GetByID(ctx, userID)
	if err == nil {
		return FromDataModel(existing), nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to load profile", "error", err, "user_id", userID)
		return nil, err
	}

	p := &profileDatamodel.Profile{
		ID:       userID,
		FullName: DisplayName(fullName, email),
		Email:    email,
		Role:     string(auth.RoleUser),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create profile", "error", err, "user_id", userID)
		return nil, err
	}

	created, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile created", "user_id", userID, "role", created.Role)
	return FromDataModel(created), nil
}

// HandleSessionEvent is subscribed to identity state changes and makes sure
// every signed-in user has a profile.
func (s *Service) HandleSessionEvent(ctx context.Context, event events.SessionEvent) error {
	if event.EventType() != events.EventTypeSignedIn {
		return nil
	}
	_, err := s.GetOrCreate(ctx, event.UserID, event.Email, event.FullName)
	return err
}
