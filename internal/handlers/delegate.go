package handlers

import (
	"net/http"
	"strconv"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/services"
)

// ==================== Health ====================

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.Log.Warn("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	respondOK(w, HealthResponse{Status: "ok"})
}

// ==================== Delegate ====================

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	caller := identity(r)
	result, err := h.Registrations.Register(r.Context(), caller.ID, caller.Email, services.RegistrationRequest{
		Profile:     req.Profile,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if result.Created {
		respondCreated(w, result.Registration)
		return
	}
	respondOK(w, result.Registration)
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	caller := identity(r)
	reg, err := h.Registrations.GetRegistration(r.Context(), caller.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := MeResponse{Registration: reg, IsAdmin: caller.Admin}
	if seat, ok := reg.AssignedSeat(); ok {
		resp.Seat = &seat
		resp.CommitteeName = services.MissingCommitteeName
		committee, err := h.Catalog.GetCommittee(r.Context(), seat.CommitteeID)
		switch {
		case err == nil:
			resp.CommitteeName = committee.Name
		case !errors.IsKind(err, errors.ErrNotFound):
			h.respondError(w, r, err)
			return
		}
	}
	respondOK(w, resp)
}

func (h *Handlers) handleBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.Badges.Badge(r.Context(), identity(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(badge.PNG)))
	w.Header().Set("X-Badge-Code", badge.Code)
	w.WriteHeader(http.StatusOK)
	w.Write(badge.PNG)
}

func (h *Handlers) handleListCommittees(w http.ResponseWriter, r *http.Request) {
	committees, err := h.Catalog.ListCommittees(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, committees)
}
