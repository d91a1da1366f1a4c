package profile

import (
	"errors"
	"strings"
	"time"

	profileDatamodel "github.com/frahmantamala/liquidation-portal/internal/core/datamodel/profile"
)

const DefaultDisplayName = "User"

type Profile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department *string   `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var ErrNotFound = errors.New("profile not found")

// DisplayName picks the name for a lazily created profile: the sign-up
// metadata name, else the email local part, else "User".
func DisplayName(fullName, email string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return DefaultDisplayName
}

func ToDataModel(p *Profile) *profileDatamodel.Profile {
	return &profileDatamodel.Profile{
		ID:         p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Role:       p.Role,
		Department: p.Department,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func FromDataModel(p *profileDatamodel.Profile) *Profile {
	return &Profile{
		ID:         p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Role:       p.Role,
		Department: p.Department,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
