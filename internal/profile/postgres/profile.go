package postgres

import (
	"context"
	"errors"

	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
	"github.com/frahmantamala/liquidation-portal/internal/profile"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) profile.RepositoryAPI {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profileDatamodel.Profile, error) {
	var p profileDatamodel.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create is idempotent so concurrent first sign-ins do not fail.
func (r *ProfileRepository) Create(ctx context.Context, p *profileDatamodel.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(p).Error
}
