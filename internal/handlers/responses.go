package handlers

import (
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/services"
)

// MeResponse is the delegate's view of their own registration
type MeResponse struct {
	Registration  *models.Registration `json:"registration"`
	Seat          *models.Seat         `json:"seat"`
	CommitteeName string               `json:"committee_name,omitempty"`
	IsAdmin       bool                 `json:"is_admin"`
}

// DelegatesResponse lists registrations
type DelegatesResponse struct {
	Delegates []models.Registration `json:"delegates"`
	Count     int                   `json:"count"`
}

// SuggestionResponse is the first admissible preference
type SuggestionResponse struct {
	DelegateID string      `json:"delegate_id"`
	Seat       models.Seat `json:"seat"`
}

// CommitteeRosterResponse is the seated delegates of one committee
type CommitteeRosterResponse struct {
	CommitteeID string                 `json:"committee_id"`
	Delegates   []services.RosterEntry `json:"delegates"`
}

// MailResponse lists queued mail
type MailResponse struct {
	Messages []models.MailMessage `json:"messages"`
}

// HealthResponse is the health probe body
type HealthResponse struct {
	Status string `json:"status"`
}
