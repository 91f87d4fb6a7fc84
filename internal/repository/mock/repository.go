package mock

import (
	"context"

	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ConditionalUpdateError = errors.New("database error")
//	svc := services.NewAllocator(log, mockRepo, nil, services.AllocatorOptions{})
//	_, err := svc.AssignSeat(ctx, "d1", "unsc", "USA")
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Committee Errors =====
	GetCommitteeError      error
	ListCommitteesError    error
	ReplaceCommitteesError error

	// ===== Registration Errors =====
	GetRegistrationError    error
	ListRegistrationsError  error
	UpsertRegistrationError error
	ConditionalUpdateError  error
	CountAssignedError      error

	// ===== Mail Errors =====
	InsertMailError error
	ListMailError   error

	// BeforeConditionalUpdate runs ahead of every ConditionalUpdate call that
	// is not short-circuited by ConditionalUpdateError. Tests use it to slip a
	// competing write in between a read and the conditional write.
	BeforeConditionalUpdate func(ctx context.Context, id string, expectedVersion int64, patch repository.Patch)

	// ConditionalUpdateCalls counts ConditionalUpdate invocations
	ConditionalUpdateCalls int
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Committee Methods =====

func (m *Repository) GetCommittee(ctx context.Context, id string) (*models.Committee, error) {
	if m.GetCommitteeError != nil {
		return nil, m.GetCommitteeError
	}
	return m.FullRepository.GetCommittee(ctx, id)
}

func (m *Repository) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	if m.ListCommitteesError != nil {
		return nil, m.ListCommitteesError
	}
	return m.FullRepository.ListCommittees(ctx)
}

func (m *Repository) ReplaceCommittees(ctx context.Context, committees []models.Committee) error {
	if m.ReplaceCommitteesError != nil {
		return m.ReplaceCommitteesError
	}
	return m.FullRepository.ReplaceCommittees(ctx, committees)
}

// ===== Registration Methods =====

func (m *Repository) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	if m.GetRegistrationError != nil {
		return nil, m.GetRegistrationError
	}
	return m.FullRepository.GetRegistration(ctx, id)
}

func (m *Repository) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	if m.ListRegistrationsError != nil {
		return nil, m.ListRegistrationsError
	}
	return m.FullRepository.ListRegistrations(ctx)
}

func (m *Repository) UpsertRegistration(ctx context.Context, input repository.RegistrationInput) (bool, error) {
	if m.UpsertRegistrationError != nil {
		return false, m.UpsertRegistrationError
	}
	return m.FullRepository.UpsertRegistration(ctx, input)
}

func (m *Repository) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch repository.Patch) error {
	m.ConditionalUpdateCalls++
	if m.ConditionalUpdateError != nil {
		return m.ConditionalUpdateError
	}
	if m.BeforeConditionalUpdate != nil {
		m.BeforeConditionalUpdate(ctx, id, expectedVersion, patch)
	}
	return m.FullRepository.ConditionalUpdate(ctx, id, expectedVersion, patch)
}

func (m *Repository) CountAssigned(ctx context.Context) (int, error) {
	if m.CountAssignedError != nil {
		return 0, m.CountAssignedError
	}
	return m.FullRepository.CountAssigned(ctx)
}

// ===== Mail Methods =====

func (m *Repository) InsertMail(ctx context.Context, msg models.MailMessage) error {
	if m.InsertMailError != nil {
		return m.InsertMailError
	}
	return m.FullRepository.InsertMail(ctx, msg)
}

func (m *Repository) ListMail(ctx context.Context, limit int) ([]models.MailMessage, error) {
	if m.ListMailError != nil {
		return nil, m.ListMailError
	}
	return m.FullRepository.ListMail(ctx, limit)
}

// Ensure Repository implements FullRepository
var _ repository.FullRepository = (*Repository)(nil)
