package profile

import (
	"context"
	"net/http"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
)

type ServiceAPI interface {
	GetOrCreate(ctx context.Context, userID, email, fullName string) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetCurrentProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Log(r).Error("GetCurrentProfile: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := h.Service.GetOrCreate(r.Context(), user.ID, user.Email, "")
	if err != nil {
		h.Log(r).Error("GetCurrentProfile: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}
