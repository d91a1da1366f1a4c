package liquidation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
	"github.com/frahmantamala/liquidation-portal/pkg/logger"
	"github.com/go-chi/chi"
)

const maxImportSize = 10 << 20

type ServiceAPI interface {
	Store
	Get(ctx context.Context, actor *auth.User, id string) (*Request, error)
	Create(ctx context.Context, actor *auth.User, form *Form) (*Request, error)
	Update(ctx context.Context, actor *auth.User, id string, form *Form) (*Request, error)
	PendingCount(ctx context.Context, actor *auth.User) (int64, error)
	Import(ctx context.Context, actor *auth.User, records []map[string]string) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	now     func() time.Time
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		now:         time.Now,
	}
}

// openTable loads the caller's rows and applies the list query parameters.
func (h *Handler) openTable(r *http.Request, user *auth.User) (*Table, error) {
	filter, sort, err := parseListQuery(r)
	if err != nil {
		return nil, err
	}
	table := NewTable(h.Service, user).WithClock(h.now)
	if err := table.Refresh(r.Context()); err != nil {
		return nil, err
	}
	table.SetFilter(filter)
	table.SetSort(sort)
	return table, nil
}

func parseListQuery(r *http.Request) (Filter, Sort, error) {
	q := r.URL.Query()
	date, err := ParseDateSpan(q.Get("date"))
	if err != nil {
		return Filter{}, Sort{}, err
	}
	sort, err := ParseSort(q.Get("sort"), q.Get("order"))
	if err != nil {
		return Filter{}, Sort{}, err
	}
	return Filter{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Date:     date,
	}, sort, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("List: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	table, err := h.openTable(r, user)
	if err != nil {
		h.Log(r).Error("List: failed to load rows", "error", err)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResult{
		Rows:       table.Visible(),
		Total:      len(table.Rows()),
		Categories: table.Categories(),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Get: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	req, err := h.Service.Get(r.Context(), user, id)
	if err != nil {
		h.Log(r).Error("Get: service error", "error", err, "liquidation_id", id)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Create: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto FormDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Log(r).Error("Create: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Create(r.Context(), user, dto.ToForm())
	if err != nil {
		h.Log(r).Error("Create: service error", "error", err)
		h.writeError(w, err)
		return
	}

	h.Log(r).Info("Create: liquidation request created", "liquidation_id", req.ID)
	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Update: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto FormDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Log(r).Error("Update: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	req, err := h.Service.Update(r.Context(), user, id, dto.ToForm())
	if err != nil {
		h.Log(r).Error("Update: service error", "error", err, "liquidation_id", id)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

// UpdateField commits a single inline edit through the list view so the
// editable-field and reviewer rules apply.
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("UpdateField: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto FieldUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Log(r).Error("UpdateField: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	id := chi.URLParam(r, "id")
	table := NewTable(h.Service, user).WithClock(h.now)
	if err := table.Refresh(r.Context()); err != nil {
		h.Log(r).Error("UpdateField: failed to load rows", "error", err)
		h.writeError(w, err)
		return
	}
	if err := table.BeginEdit(id, dto.Field); err != nil {
		h.writeError(w, err)
		return
	}
	table.SetEditValue(dto.Value)

	updated, err := table.CommitEdit(r.Context())
	if err != nil {
		h.Log(r).Error("UpdateField: commit failed", "error", err, "liquidation_id", id, "field", dto.Field)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("BulkUpdateStatus: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BulkStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Log(r).Error("BulkUpdateStatus: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	table, err := h.openTable(r, user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	table.Select(dto.IDs...)

	n, err := table.BulkSetStatus(r.Context(), Status(dto.Status))
	if err != nil {
		h.Log(r).Error("BulkUpdateStatus: service error", "error", err)
		h.writeError(w, err)
		return
	}

	h.Log(r).Info("BulkUpdateStatus: statuses updated", "count", n, "status", dto.Status)
	h.WriteJSON(w, http.StatusOK, BulkResult{Affected: n, Rows: table.Visible()})
}

func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("BulkDelete: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BulkDeleteDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Log(r).Error("BulkDelete: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	table, err := h.openTable(r, user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	table.Select(dto.IDs...)

	n, err := table.BulkDelete(r.Context())
	if err != nil {
		h.Log(r).Error("BulkDelete: service error", "error", err)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BulkResult{Affected: n, Rows: table.Visible()})
}

// Export downloads the currently filtered rows as a workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Export: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	table, err := h.openTable(r, user)
	if err != nil {
		h.Log(r).Error("Export: failed to load rows", "error", err)
		h.writeError(w, err)
		return
	}

	data, err := ExportWorkbook(table.Visible())
	if err != nil {
		h.Log(r).Error("Export: failed to build workbook", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	h.WriteFile(w, spreadsheet.ContentType, ExportFilename(h.now()), data)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Import: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		h.Log(r).Error("Import: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	records, err := spreadsheet.ReadFirstSheet(file)
	if err != nil {
		h.Log(r).Error("Import: unreadable workbook", "error", err)
		h.WriteError(w, http.StatusBadRequest, "Failed to import Excel file")
		return
	}

	n, err := h.Service.Import(r.Context(), user, records)
	if err != nil {
		h.Log(r).Error("Import: service error", "error", err)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]int{"imported": n})
}

func (h *Handler) PendingCount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("PendingCount: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := h.Service.PendingCount(r.Context(), user)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		h.WriteAppError(w, appErr)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		h.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrEmptySelection), errors.Is(err, ErrInvalidSortKey),
		errors.Is(err, ErrInvalidDateSpan), errors.Is(err, ErrNoEditSession):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.HandleServiceError(w, err)
	}
}
