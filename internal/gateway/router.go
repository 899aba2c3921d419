package gateway

import (
	"net/http"

	"github.com/saransh1220/talentbook/internal/gateway/middleware"
)

// Router wraps http.ServeMux with helpers for authenticated and role-gated routes.
type Router struct {
	mux  *http.ServeMux
	auth *middleware.AuthMiddleware
}

func NewRouter(auth *middleware.AuthMiddleware) *Router {
	return &Router{
		mux:  http.NewServeMux(),
		auth: auth,
	}
}

// Mux returns the underlying http.ServeMux
func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

// Authed registers handler behind RequireAuth.
func (r *Router) Authed(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, r.auth.RequireAuth(handler))
}

// WithRole registers handler behind RequireAuth and RequireRole(roles...).
func (r *Router) WithRole(pattern string, handler http.HandlerFunc, roles ...string) {
	r.mux.Handle(pattern, r.auth.RequireAuth(middleware.RequireRole(roles...)(handler)))
}
