package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/alitto/pond/v2"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// DefaultProfileCountry is filled in when a delegate leaves country blank
const DefaultProfileCountry = "Nigeria"

// RegistrationService handles delegate registration records and payment status
type RegistrationService struct {
	log         logger.Logger
	repo        repository.RegistrationRepository
	metrics     *metrics.Metrics
	maxAttempts int
	workers     int
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(log logger.Logger, repo repository.RegistrationRepository, m *metrics.Metrics, maxAttempts, workers int) *RegistrationService {
	if workers <= 0 {
		workers = 4
	}
	return &RegistrationService{log: log, repo: repo, metrics: m, maxAttempts: maxAttempts, workers: workers}
}

// RegistrationRequest is what a delegate submits
type RegistrationRequest struct {
	Profile     models.Profile      `json:"profile"`
	Preferences []models.Preference `json:"preferences"`
}

// RegistrationResult is the stored record plus whether it was new
type RegistrationResult struct {
	Registration *models.Registration `json:"registration"`
	Created      bool                 `json:"created"`
}

// RegistrationFilter narrows ListRegistrations. Empty fields match everything.
type RegistrationFilter struct {
	PaymentStatus    models.PaymentStatus
	AssignmentStatus models.AssignmentStatus
	CommitteeID      string
	DelegateType     string
}

// Matches reports whether reg passes the filter
func (f RegistrationFilter) Matches(reg models.Registration) bool {
	if f.PaymentStatus != "" && reg.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.AssignmentStatus != "" && reg.AssignmentStatus != f.AssignmentStatus {
		return false
	}
	if f.CommitteeID != "" {
		seat, ok := reg.AssignedSeat()
		if !ok || seat.CommitteeID != f.CommitteeID {
			return false
		}
	}
	if f.DelegateType != "" && !strings.EqualFold(reg.Profile.DelegateType, f.DelegateType) {
		return false
	}
	return true
}

// BulkFailure names one record a batch could not update
type BulkFailure struct {
	DelegateID string `json:"delegate_id"`
	Error      string `json:"error"`
}

// BulkPaymentResult reports a batch payment update. Batches are not atomic.
type BulkPaymentResult struct {
	Updated []string      `json:"updated"`
	Failed  []BulkFailure `json:"failed"`
}

// NormalizePreferences drops entries with an empty committee or country,
// enforces the preference limit and unique orders 1..3, and sorts by order.
func NormalizePreferences(prefs []models.Preference) ([]models.Preference, error) {
	kept := make([]models.Preference, 0, len(prefs))
	for _, p := range prefs {
		p.CommitteeID = strings.TrimSpace(p.CommitteeID)
		p.Country = strings.TrimSpace(p.Country)
		if p.CommitteeID == "" || p.Country == "" {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) > models.MaxPreferences {
		return nil, errors.Validationf("at most %d preferences allowed, got %d", models.MaxPreferences, len(kept))
	}

	orders := make(map[int]bool, len(kept))
	for _, p := range kept {
		if p.Order < 1 || p.Order > models.MaxPreferences {
			return nil, errors.Validationf("preference order must be between 1 and %d, got %d", models.MaxPreferences, p.Order)
		}
		if orders[p.Order] {
			return nil, errors.Validationf("preference order %d used twice", p.Order)
		}
		orders[p.Order] = true
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Order < kept[j].Order })
	return kept, nil
}

// Register creates or updates the delegate's registration. Payment and
// assignment status survive a resubmission.
func (s *RegistrationService) Register(ctx context.Context, delegateID, email string, req RegistrationRequest) (*RegistrationResult, error) {
	delegateID = strings.TrimSpace(delegateID)
	if delegateID == "" {
		return nil, ErrMissingDelegateID
	}
	prefs, err := NormalizePreferences(req.Preferences)
	if err != nil {
		return nil, err
	}

	profile := req.Profile
	profile.Name = strings.TrimSpace(profile.Name)
	if strings.TrimSpace(profile.Country) == "" {
		profile.Country = DefaultProfileCountry
	}

	created, err := s.repo.UpsertRegistration(ctx, repository.RegistrationInput{
		ID:          delegateID,
		Email:       strings.TrimSpace(email),
		Profile:     profile,
		Preferences: prefs,
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	reg, err := s.repo.GetRegistration(ctx, delegateID)
	if err != nil {
		return nil, notFoundOr(err, "delegate %s not found", delegateID)
	}

	if created {
		s.log.Info("delegate registered", logger.KeyDelegateID, delegateID, "preferences", len(prefs))
	} else {
		s.log.Info("delegate registration updated", logger.KeyDelegateID, delegateID, "preferences", len(prefs))
	}
	return &RegistrationResult{Registration: reg, Created: created}, nil
}

// GetRegistration returns one registration
func (s *RegistrationService) GetRegistration(ctx context.Context, delegateID string) (*models.Registration, error) {
	reg, err := s.repo.GetRegistration(ctx, delegateID)
	if err != nil {
		return nil, notFoundOr(err, "delegate %s not found", delegateID)
	}
	return reg, nil
}

// ListRegistrations returns the registrations matching filter
func (s *RegistrationService) ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]models.Registration, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	out := make([]models.Registration, 0, len(regs))
	for _, reg := range regs {
		if filter.Matches(reg) {
			out = append(out, reg)
		}
	}
	return out, nil
}

// SetPaymentStatus changes a delegate's payment status through the
// conditional write. Setting the current status is a no-op. Marking a
// delegate unverified does not release a held seat.
func (s *RegistrationService) SetPaymentStatus(ctx context.Context, delegateID string, status models.PaymentStatus) (*models.Registration, error) {
	if !status.Valid() {
		return nil, errors.Validationf("unknown payment status %q", status)
	}

	loop := casLoop{log: s.log, repo: s.repo, metrics: s.metrics, maxAttempts: s.maxAttempts, operation: "payment"}
	reg, changed, err := loop.run(ctx, delegateID, func(ctx context.Context, reg *models.Registration) (*repository.Patch, error) {
		if reg.PaymentStatus == status {
			return nil, nil
		}
		patch := repository.PaymentPatch(status)
		return &patch, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("payment status changed", logger.KeyDelegateID, delegateID, "payment_status", string(status))
	}
	return reg, nil
}

// BulkSetPaymentStatus applies SetPaymentStatus to each delegate on a worker
// pool. Each record is its own conditional write.
func (s *RegistrationService) BulkSetPaymentStatus(ctx context.Context, delegateIDs []string, status models.PaymentStatus) (*BulkPaymentResult, error) {
	if !status.Valid() {
		return nil, errors.Validationf("unknown payment status %q", status)
	}
	if len(delegateIDs) == 0 {
		return nil, errors.Validation("no delegates given")
	}

	pool := pond.NewPool(s.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	result := &BulkPaymentResult{Updated: []string{}, Failed: []BulkFailure{}}
	var mu sync.Mutex
	for _, id := range delegateIDs {
		id := id
		group.Submit(func() {
			_, err := s.SetPaymentStatus(groupCtx, id, status)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("bulk payment update failed", logger.KeyDelegateID, id, logger.KeyError, err)
				result.Failed = append(result.Failed, BulkFailure{DelegateID: id, Error: err.Error()})
				return
			}
			result.Updated = append(result.Updated, id)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Internal(err)
	}

	sort.Strings(result.Updated)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].DelegateID < result.Failed[j].DelegateID })
	return result, nil
}
