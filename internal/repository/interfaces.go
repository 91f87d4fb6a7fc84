package repository

import (
	"context"

	"github.com/abrezinsky/munreg/internal/models"
)

// CommitteeRepository defines committee catalog operations
type CommitteeRepository interface {
	GetCommittee(ctx context.Context, id string) (*models.Committee, error)
	ListCommittees(ctx context.Context) ([]models.Committee, error)
	ReplaceCommittees(ctx context.Context, committees []models.Committee) error
}

// RegistrationRepository defines delegate registration operations.
// ConditionalUpdate is the only write path for payment and assignment fields.
type RegistrationRepository interface {
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
	UpsertRegistration(ctx context.Context, input RegistrationInput) (created bool, err error)
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch Patch) error
	CountAssigned(ctx context.Context) (int, error)
}

// MailRepository defines the outbound mail outbox
type MailRepository interface {
	InsertMail(ctx context.Context, msg models.MailMessage) error
	ListMail(ctx context.Context, limit int) ([]models.MailMessage, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	CommitteeRepository
	RegistrationRepository
	MailRepository
}

// RegistrationInput carries the delegate-editable part of a registration.
// Status fields are never part of it.
type RegistrationInput struct {
	ID          string
	Email       string
	Profile     models.Profile
	Preferences []models.Preference
}

// Patch describes a change to a registration's status fields. Assign and
// Unassign are mutually exclusive.
type Patch struct {
	Assign        *models.Seat
	Unassign      bool
	PaymentStatus *models.PaymentStatus
}

// AssignPatch is a Patch that binds the registration to seat
func AssignPatch(seat models.Seat) Patch {
	return Patch{Assign: &seat}
}

// UnassignPatch is a Patch that releases the registration's seat
func UnassignPatch() Patch {
	return Patch{Unassign: true}
}

// PaymentPatch is a Patch that sets the payment status
func PaymentPatch(status models.PaymentStatus) Patch {
	return Patch{PaymentStatus: &status}
}

// Validate checks the patch is non-empty and internally consistent
func (p Patch) Validate() error {
	if p.Assign != nil && p.Unassign {
		return ErrInvalidPatch
	}
	if p.Assign == nil && !p.Unassign && p.PaymentStatus == nil {
		return ErrEmptyPatch
	}
	return nil
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
