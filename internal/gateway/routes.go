package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saransh1220/talentbook/internal/gateway/middleware"
	media_http "github.com/saransh1220/talentbook/internal/modules/media/interfaces/http"
	notification_http "github.com/saransh1220/talentbook/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/talentbook/internal/shared/utils"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	NotificationHandler *notification_http.NotificationHandler
	// MediaHandler is nil when the media flow is disabled.
	MediaHandler *media_http.MediaHandler
	// Health reports readiness of backing stores; nil means always healthy.
	Health         func(ctx context.Context) error
	AllowedOrigins string
}

// SetupRoutes builds the mux and wraps it with CORS and request metrics.
func SetupRoutes(config RouterConfig) http.Handler {
	r := NewRouter(config.AuthMiddleware)

	r.HandleFunc("GET /health", healthHandler(config.Health))
	r.Handle("GET /metrics", promhttp.Handler())

	n := config.NotificationHandler
	r.Authed("GET /notifications", n.ListNotifications)
	r.Authed("GET /notifications/unread-count", n.UnreadCount)
	r.Authed("PATCH /notifications/{id}/read", n.MarkAsRead)
	r.Authed("PATCH /notifications/read-all", n.MarkAllAsRead)
	r.Authed("GET /ws", n.Subscribe)
	r.WithRole("POST /admin/notifications/announcements", n.Announce, middleware.RoleAdmin)

	if m := config.MediaHandler; m != nil {
		r.WithRole("POST /media/uploads", m.RequestUpload, middleware.RoleTalent)
		r.WithRole("POST /media/uploads/confirm", m.ConfirmUpload, middleware.RoleTalent)
	}

	return middleware.PrometheusMiddleware(middleware.CORSMiddleware(r.Mux(), config.AllowedOrigins))
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				utils.WriteError(w, http.StatusServiceUnavailable, "unhealthy", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
