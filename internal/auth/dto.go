package auth

import (
	"strings"

	errors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/core/common/validation"
)

const MinPasswordLength = 6

type SignUpDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Validate mirrors the sign-up form rules: a plausible email, a password of at
// least six characters and a non-empty name.
func (d SignUpDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).
		RequiredWithMessage("Invalid email address", errors.ErrCodeInvalidEmail).
		Email()
	v.Field("password", d.Password).
		MinLengthWithMessage(MinPasswordLength, "Password should be at least 6 characters", errors.ErrCodeWeakPassword)
	v.Field("full_name", d.FullName).
		RequiredWithMessage("Full name is required", errors.ErrCodeValidationFailed)
	return v.Validate()
}

func (d SignUpDTO) Normalized() SignUpDTO {
	d.Email = normalizeEmail(d.Email)
	d.FullName = strings.TrimSpace(d.FullName)
	return d
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	return v.Validate()
}
