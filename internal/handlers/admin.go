package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/services"
)

const (
	defaultMailLimit = 50
	maxMailLimit     = 500
)

// ==================== Delegates ====================

func (h *Handlers) handleListDelegates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.RegistrationFilter{
		PaymentStatus:    models.PaymentStatus(q.Get("payment")),
		AssignmentStatus: models.AssignmentStatus(q.Get("assignment")),
		CommitteeID:      q.Get("committee"),
		DelegateType:     q.Get("type"),
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		h.respondError(w, r, BadRequest("Invalid payment filter"))
		return
	}
	if filter.AssignmentStatus != "" && filter.AssignmentStatus != models.Assigned && filter.AssignmentStatus != models.Unassigned {
		h.respondError(w, r, BadRequest("Invalid assignment filter"))
		return
	}

	regs, err := h.Registrations.ListRegistrations(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, DelegatesResponse{Delegates: regs, Count: len(regs)})
}

func (h *Handlers) handleGetDelegate(w http.ResponseWriter, r *http.Request) {
	reg, err := h.Registrations.GetRegistration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, reg)
}

func (h *Handlers) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	reg, err := h.Registrations.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, reg)
}

func (h *Handlers) handleBulkPayment(w http.ResponseWriter, r *http.Request) {
	var req BulkPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Registrations.BulkSetPaymentStatus(r.Context(), req.DelegateIDs, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

// ==================== Seats ====================

func (h *Handlers) handleAssignSeat(w http.ResponseWriter, r *http.Request) {
	var req SeatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Allocator.AssignSeat(r.Context(), chi.URLParam(r, "id"), req.CommitteeID, req.Country)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleUnassignSeat(w http.ResponseWriter, r *http.Request) {
	result, err := h.Allocator.UnassignSeat(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleSuggestSeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	seat, err := h.Allocator.SuggestSeat(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, SuggestionResponse{DelegateID: id, Seat: seat})
}

// ==================== Rosters ====================

func (h *Handlers) handleCommitteeRoster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.Rosters.RosterByCommittee(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, CommitteeRosterResponse{CommitteeID: id, Delegates: entries})
}

func (h *Handlers) handleCountryRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Rosters.RosterByCountry(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, roster)
}

func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Rosters.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, summary)
}

// ==================== Notifications ====================

func (h *Handlers) handleNotifyAssignments(w http.ResponseWriter, r *http.Request) {
	result, err := h.Notifier.NotifyAllAssigned(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondAccepted(w, result)
}

func (h *Handlers) handleNotifyCustom(w http.ResponseWriter, r *http.Request) {
	var req CustomMailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Notifier.SendCustom(r.Context(), services.CustomMessage{
		Group:   req.Group,
		Subject: req.Subject,
		HTML:    req.HTML,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondAccepted(w, result)
}

func (h *Handlers) handleListMail(w http.ResponseWriter, r *http.Request) {
	if h.Mail == nil {
		h.respondError(w, r, NotFound("Mail listing is not available for this queue"))
		return
	}
	limit, err := parseLimit(r, defaultMailLimit, maxMailLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	messages, err := h.Mail.List(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if messages == nil {
		messages = []models.MailMessage{}
	}
	respondOK(w, MailResponse{Messages: messages})
}
