package receipt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
	"github.com/frahmantamala/liquidation-portal/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Submit(ctx context.Context, actor *auth.User, itemID, filename string, content []byte) (*Upload, error)
	Status(actor *auth.User, itemID string) (*Upload, error)
	MaxFileSize() int64
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

// Upload accepts a multipart body with item_id and file fields and queues
// the upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("Upload: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	maxSize := h.Service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+(1<<20))
	if err := r.ParseMultipartForm(maxSize); err != nil {
		h.Log(r).Error("Upload: invalid multipart body", "error", err)
		h.writeError(w, ErrFileTooLarge)
		return
	}

	itemID := r.FormValue("item_id")
	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		h.Log(r).Error("Upload: failed to read file", "error", err)
		h.WriteError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	state, err := h.Service.Submit(r.Context(), user, itemID, header.Filename, content)
	if err != nil {
		h.Log(r).Error("Upload: rejected", "error", err, "item_id", itemID)
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, state)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Log(r).Error("GetStatus: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	state, err := h.Service.Status(user, chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		h.WriteAppError(w, apperrors.NewValidationFieldError("file", err.Error(), apperrors.ErrCodeUnsupportedFile))
	case errors.Is(err, ErrFileTooLarge):
		h.WriteAppError(w, apperrors.NewValidationFieldError("file", err.Error(), apperrors.ErrCodeFileTooLarge))
	case errors.Is(err, ErrEmptyFile):
		h.WriteAppError(w, apperrors.NewValidationFieldError("file", err.Error(), apperrors.ErrCodeValidationFailed))
	case errors.Is(err, ErrItemRequired):
		h.WriteAppError(w, apperrors.NewValidationFieldError("item_id", err.Error(), apperrors.ErrCodeValidationFailed))
	case errors.Is(err, auth.ErrForbidden):
		h.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrUploadNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrShuttingDown):
		h.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.HandleServiceError(w, err)
	}
}
