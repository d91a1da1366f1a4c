package analytics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
	"github.com/frahmantamala/liquidation-portal/pkg/logger"
)

type ServiceAPI interface {
	Report(ctx context.Context, actor *auth.User, days int, category string) (*Report, error)
	Export(ctx context.Context, actor *auth.User, days int, category string) ([]byte, string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("GetReport: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	report, err := h.Service.Report(r.Context(), user, days, r.URL.Query().Get("category"))
	if err != nil {
		h.Log(r).Error("GetReport: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Export: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	data, filename, err := h.Service.Export(r.Context(), user, days, r.URL.Query().Get("category"))
	if err != nil {
		h.Log(r).Error("Export: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteFile(w, spreadsheet.ContentType, filename, data)
}
