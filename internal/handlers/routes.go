package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// Public
	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// WebSocket (admin); no request timeout on the long-lived connection
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)
		r.Use(h.Auth.RequireAdmin)
		if h.WS != nil {
			r.Get("/ws", h.WS)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(h.Auth.RequireAuthAPI)

		// Delegate API
		r.Post("/api/register", h.handleRegister)
		r.Get("/api/me", h.handleMe)
		r.Get("/api/me/badge.png", h.handleBadge)
		r.Get("/api/committees", h.handleListCommittees)

		// Admin API
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(h.Auth.RequireAdmin)

			// Delegates
			r.Get("/delegates", h.handleListDelegates)
			r.Get("/delegates/{id}", h.handleGetDelegate)
			r.Put("/delegates/{id}/payment", h.handleSetPayment)
			r.Post("/payments/bulk", h.handleBulkPayment)

			// Seats
			r.Put("/delegates/{id}/seat", h.handleAssignSeat)
			r.Delete("/delegates/{id}/seat", h.handleUnassignSeat)
			r.Get("/delegates/{id}/suggestion", h.handleSuggestSeat)

			// Rosters
			r.Get("/rosters/committees/{id}", h.handleCommitteeRoster)
			r.Get("/rosters/countries", h.handleCountryRoster)
			r.Get("/summary", h.handleSummary)

			// Notifications
			r.Post("/notifications/assignments", h.handleNotifyAssignments)
			r.Post("/notifications/custom", h.handleNotifyCustom)
			r.Get("/mail", h.handleListMail)
		})
	})

	return r
}
