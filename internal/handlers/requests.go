package handlers

import "github.com/abrezinsky/munreg/internal/models"

// RegisterRequest is the delegate's registration form
type RegisterRequest struct {
	Profile     models.Profile      `json:"profile"`
	Preferences []models.Preference `json:"preferences"`
}

// PaymentRequest sets a delegate's payment status
type PaymentRequest struct {
	Status models.PaymentStatus `json:"status"`
}

// BulkPaymentRequest sets the payment status of many delegates
type BulkPaymentRequest struct {
	DelegateIDs []string             `json:"delegate_ids"`
	Status      models.PaymentStatus `json:"status"`
}

// SeatRequest names the seat to assign
type SeatRequest struct {
	CommitteeID string `json:"committee_id"`
	Country     string `json:"country"`
}

// CustomMailRequest is an admin-composed mail to a recipient group
type CustomMailRequest struct {
	Group   string `json:"group"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
