package auth

import (
	"context"
	"log/slog"
	"net/http"
)

type RoleAuthorizer interface {
	HasRole(ctx context.Context, role Role, allowed ...Role) (bool, error)
}

type RBACAuthorization struct {
	authorizer RoleAuthorizer
	logger     *slog.Logger
}

func NewRBACAuthorization(authorizer RoleAuthorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		authorizer: authorizer,
		logger:     logger,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, allowed ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			ra.logger.Warn("authorization check failed: user not found in context")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		hasAccess, err := ra.authorizer.HasRole(r.Context(), user.Role, allowed...)
		if err != nil {
			ra.logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !hasAccess {
			ra.logger.WarnContext(r.Context(), "access denied: insufficient role",
				"user_id", user.ID,
				"role", user.Role,
				"allowed_roles", allowed)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, allowed...)
	}
}

// RequireReviewer guards status changes: approvers and admins only.
func (ra *RBACAuthorization) RequireReviewer() func(http.Handler) http.Handler {
	return ra.Middleware(RoleApprover, RoleAdmin)
}
