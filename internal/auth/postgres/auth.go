package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	userDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreateUser(ctx context.Context, email, fullName, passwordHash string) (string, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return "", err
	}
	if existing > 0 {
		return "", auth.ErrAlreadyRegistered
	}

	u := &userDatamodel.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", auth.ErrAlreadyRegistered
		}
		return "", err
	}
	return u.ID, nil
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
	}, nil
}

// GetUserByID resolves the role from user_profiles; callers without a profile
// yet are plain users.
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	query := `SELECT u.id, u.email, COALESCE(p.role, 'user')
	          FROM users u
	          LEFT JOIN user_profiles p ON p.id = u.id
	          WHERE u.id = ?`

	var (
		user auth.User
		role string
	)
	row := r.db.WithContext(ctx).Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	user.Role = auth.ParseRole(role)
	return &user, nil
}
