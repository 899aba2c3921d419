package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/gateway/middleware"
	"github.com/saransh1220/talentbook/internal/modules/notification/application"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/websocket"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/internal/shared/utils"
)

const MaxListLimit = 100

// NotificationService is the read-state side of application.NotificationService.
type NotificationService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type Announcer interface {
	Announce(ctx context.Context, a application.Announcement) ([]*domain.Notification, error)
}

type NotificationHandler struct {
	service   NotificationService
	announcer Announcer
	hub       *websocket.Hub
	log       logging.Logger
}

func NewNotificationHandler(service NotificationService, announcer Announcer, hub *websocket.Hub, log logging.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		announcer: announcer,
		hub:       hub,
		log:       logging.OrDefault(log).With("component", "notification.http"),
	}
}

// Subscribe upgrades the request to a websocket bound to the caller.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	websocket.ServeWs(h.hub, w, r, userID)
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid query", err)
		return
	}

	items, err := h.service.ListForUser(r.Context(), userID, opts)
	if err != nil {
		h.writeServiceError(w, "list notifications", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": items})
}

func parseListOptions(r *http.Request) (domain.ListOptions, error) {
	q := r.URL.Query()
	opts := domain.ListOptions{Limit: domain.DefaultListLimit}

	if l := q.Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			return opts, errors.New("limit must be a positive integer")
		}
		opts.Limit = min(v, MaxListLimit)
	}
	if u := q.Get("unread"); u != "" {
		v, err := strconv.ParseBool(u)
		if err != nil {
			return opts, errors.New("unread must be true or false")
		}
		opts.UnreadOnly = v
	}
	return opts, nil
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "unread count", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkAsRead answers 204 whether or not a row changed, so it never reveals
// whether another user's notification exists.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	notificationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	if err := h.service.MarkRead(r.Context(), notificationID, userID); err != nil {
		h.writeServiceError(w, "mark read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	if err := h.service.MarkAllRead(r.Context(), userID); err != nil {
		h.writeServiceError(w, "mark all read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Announce fans an admin announcement out to its recipients. In partial batch
// mode a response may carry both created items and per-item errors.
func (h *NotificationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req application.Announcement
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.announcer.Announce(r.Context(), req)
	if err != nil && len(created) == 0 {
		h.writeServiceError(w, "announce", err)
		return
	}

	body := map[string]any{"data": created}
	if err != nil {
		body["errors"] = itemErrors(err)
		h.log.Warn("announcement partially delivered", "created", len(created), "error", err)
	}
	utils.WriteJSON(w, http.StatusCreated, body)
}

func itemErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	errs := joined.Unwrap()
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func (h *NotificationHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if fields, ok := validationFields(err); ok {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}
	h.log.Error("notification request failed", "op", op, "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
}

// validationFields merges every ValidationError joined into err. Items of a
// partial batch are keyed "[index].field" like atomic batches. ok is false when
// any part of err is not a validation failure.
func validationFields(err error) (map[string]string, bool) {
	parts := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts = joined.Unwrap()
	}

	fields := map[string]string{}
	for _, part := range parts {
		var ve *domain.ValidationError
		if !errors.As(part, &ve) {
			return nil, false
		}
		prefix := ""
		var item *application.ItemError
		if errors.As(part, &item) {
			prefix = fmt.Sprintf("[%d].", item.Index)
		}
		for f, msg := range ve.Fields {
			fields[prefix+f] = msg
		}
	}
	return fields, len(fields) > 0
}
