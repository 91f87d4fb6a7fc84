package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/munreg/internal/auth"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/mailqueue"
	"github.com/abrezinsky/munreg/internal/services"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the service layer the handlers call into
type Services struct {
	Catalog       services.CatalogServicer
	Registrations services.RegistrationServicer
	Allocator     services.SeatAllocatorServicer
	Rosters       services.RosterServicer
	Notifier      services.NotifierServicer
	Badges        services.BadgeServicer
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Services
	Mail    mailqueue.Lister
	Auth    *auth.Auth
	Log     logger.Logger
	Health  Pinger
	Metrics http.Handler
	WS      http.HandlerFunc
}

// New creates a new Handlers instance. mail, health, metrics and ws may be
// nil; the matching routes then answer 404 (or skip the health probe).
func New(log logger.Logger, svc Services, authn *auth.Auth, mail mailqueue.Lister, health Pinger, metrics http.Handler, ws http.HandlerFunc) *Handlers {
	return &Handlers{
		Services: svc,
		Mail:     mail,
		Auth:     authn,
		Log:      log,
		Health:   health,
		Metrics:  metrics,
		WS:       ws,
	}
}

// identity returns the authenticated caller. Routes using it sit behind
// RequireAuthAPI, so a missing identity is a wiring bug.
func identity(r *http.Request) *auth.Identity {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return &auth.Identity{}
	}
	return id
}
