package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/gateway/middleware"
	"github.com/saransh1220/talentbook/internal/modules/media/domain"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/internal/shared/utils"
)

type MediaService interface {
	RequestUpload(ctx context.Context, userID uuid.UUID, req domain.UploadRequest) (*domain.UploadTicket, error)
	ConfirmUpload(ctx context.Context, userID uuid.UUID, key string) (*domain.Object, error)
}

type MediaHandler struct {
	service MediaService
	log     logging.Logger
}

func NewMediaHandler(service MediaService, log logging.Logger) *MediaHandler {
	return &MediaHandler{
		service: service,
		log:     logging.OrDefault(log).With("component", "media.http"),
	}
}

type confirmRequest struct {
	Key string `json:"key"`
}

// RequestUpload issues a presigned PUT URL under the caller's key prefix.
func (h *MediaHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req domain.UploadRequest
	if err := decode(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ticket, err := h.service.RequestUpload(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *MediaHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req confirmRequest
	if err := decode(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	obj, err := h.service.ConfirmUpload(r.Context(), userID, req.Key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, obj)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, domain.ErrForeignKey):
		utils.WriteError(w, http.StatusForbidden, "object does not belong to caller", nil)
	case errors.Is(err, domain.ErrObjectNotFound):
		utils.WriteError(w, http.StatusNotFound, "object not found", nil)
	case errors.Is(err, domain.ErrTooLarge):
		utils.WriteError(w, http.StatusRequestEntityTooLarge, "object exceeds size limit", err)
	default:
		h.log.Error("media request failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
