package models

import "time"

// PaymentStatus is the payment gate consumed by the seat allocator
type PaymentStatus string

const (
	PaymentUnverified PaymentStatus = "Unverified"
	PaymentVerified   PaymentStatus = "Verified"
)

// Valid reports whether p is a known payment status
func (p PaymentStatus) Valid() bool {
	return p == PaymentUnverified || p == PaymentVerified
}

// AssignmentStatus tracks whether a delegate holds a seat
type AssignmentStatus string

const (
	Unassigned AssignmentStatus = "Unassigned"
	Assigned   AssignmentStatus = "Assigned"
)

// MaxPreferences is the number of ranked seat preferences a delegate may submit
const MaxPreferences = 3

// Committee is one entry of the committee catalog. Countries is the seat inventory.
type Committee struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Countries []string `json:"countries" yaml:"countries"`
}

// HasCountry reports whether country is one of the committee's seats
func (c Committee) HasCountry(country string) bool {
	for _, cc := range c.Countries {
		if cc == country {
			return true
		}
	}
	return false
}

// Seat is one assignable (committee, country) slot
type Seat struct {
	CommitteeID string `json:"committee_id"`
	Country     string `json:"country"`
}

// Preference is a ranked desired seat submitted by a delegate
type Preference struct {
	Order       int    `json:"order"`
	CommitteeID string `json:"committee_id"`
	Country     string `json:"country"`
}

// Seat returns the seat the preference names
func (p Preference) Seat() Seat {
	return Seat{CommitteeID: p.CommitteeID, Country: p.Country}
}

// Profile holds the personal data collected by the registration form
type Profile struct {
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Gender        string `json:"gender,omitempty"`
	DelegateType  string `json:"delegate_type,omitempty"`
	Affiliation   string `json:"affiliation,omitempty"`
	Position      string `json:"position,omitempty"`
	Department    string `json:"department,omitempty"`
	MatricNumber  string `json:"matric_num,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	Zipcode       string `json:"zipcode,omitempty"`
	MUNExperience string `json:"mun_experience,omitempty"`
	Advert        string `json:"advert,omitempty"`
	TShirtSize    string `json:"tshirt_size,omitempty"`
	Diet          string `json:"diet,omitempty"`
	Medical       string `json:"medical,omitempty"`
	Referral      string `json:"referral,omitempty"`
}

// Registration is the delegate registration record. ID is the delegate's
// authentication identity.
type Registration struct {
	ID                  string           `json:"id"`
	Email               string           `json:"email"`
	Profile             Profile          `json:"profile"`
	Preferences         []Preference     `json:"preferences"`
	PaymentStatus       PaymentStatus    `json:"payment_status"`
	AssignmentStatus    AssignmentStatus `json:"assignment_status"`
	AssignedCommitteeID *string          `json:"assigned_committee_id"`
	AssignedCountry     *string          `json:"assigned_country"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// AssignedSeat returns the held seat, or false if the delegate is unassigned
func (r Registration) AssignedSeat() (Seat, bool) {
	if r.AssignmentStatus != Assigned || r.AssignedCommitteeID == nil || r.AssignedCountry == nil {
		return Seat{}, false
	}
	return Seat{CommitteeID: *r.AssignedCommitteeID, Country: *r.AssignedCountry}, true
}

// MailMessage is an outbound mail request handed to the mail queue
type MailMessage struct {
	ID            string            `json:"id"`
	RecipientRefs []string          `json:"recipient_refs"`
	TemplateName  string            `json:"template_name"`
	TemplateData  map[string]string `json:"template_data"`
	CreatedAt     time.Time         `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
