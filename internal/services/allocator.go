package services

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// Broadcaster defines the interface for pushing seat changes to live clients
type Broadcaster interface {
	BroadcastSeatChange(delegateID string, seat, previous *models.Seat)
}

// AssignmentNotifier is told about every committed seat transition
type AssignmentNotifier interface {
	AssignmentChanged(ctx context.Context, result AssignmentResult)
}

// AllocatorRepository defines the repository methods needed by Allocator
type AllocatorRepository interface {
	repository.RegistrationRepository
	GetCommittee(ctx context.Context, id string) (*models.Committee, error)
}

// AllocatorOptions tunes the allocator
type AllocatorOptions struct {
	MaxAttempts int
}

// Allocator binds verified delegates to free seats
type Allocator struct {
	log         logger.Logger
	repo        AllocatorRepository
	metrics     *metrics.Metrics
	maxAttempts int
	notifier    AssignmentNotifier
	broadcaster Broadcaster
}

// NewAllocator creates a new Allocator
func NewAllocator(log logger.Logger, repo AllocatorRepository, m *metrics.Metrics, opts AllocatorOptions) *Allocator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Allocator{log: log, repo: repo, metrics: m, maxAttempts: opts.MaxAttempts}
}

// SetNotifier sets who is told about committed transitions
func (a *Allocator) SetNotifier(n AssignmentNotifier) {
	a.notifier = n
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (a *Allocator) SetBroadcaster(b Broadcaster) {
	a.broadcaster = b
}

// AssignmentResult describes the outcome of an assign or unassign call.
// Previous is the seat held before the call, nil if none.
type AssignmentResult struct {
	Registration  *models.Registration `json:"registration"`
	Seat          *models.Seat         `json:"seat"`
	CommitteeName string               `json:"committee_name,omitempty"`
	Previous      *models.Seat         `json:"previous_seat"`
	Changed       bool                 `json:"changed"`
}

func (a *Allocator) loop(operation string) casLoop {
	return casLoop{log: a.log, repo: a.repo, metrics: a.metrics, maxAttempts: a.maxAttempts, operation: operation}
}

// AssignSeat binds the delegate to (committeeID, country). Checks run in
// order: delegate exists, seat exists in the catalog, payment verified,
// seat free. Asking for the seat the delegate already holds succeeds
// without writing. A re-assignment releases the old seat in the same write.
func (a *Allocator) AssignSeat(ctx context.Context, delegateID, committeeID, country string) (*AssignmentResult, error) {
	seat := models.Seat{CommitteeID: committeeID, Country: country}
	var committee *models.Committee
	var previous *models.Seat

	reg, changed, err := a.loop("assign").run(ctx, delegateID, func(ctx context.Context, reg *models.Registration) (*repository.Patch, error) {
		previous = nil
		if held, ok := reg.AssignedSeat(); ok {
			previous = &held
		}

		c, err := a.repo.GetCommittee(ctx, committeeID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, errors.InvalidSeatf("committee %s does not exist", committeeID)
			}
			return nil, errors.Internal(err)
		}
		if !c.HasCountry(country) {
			return nil, errors.InvalidSeatf("committee %s has no seat for %s", committeeID, country)
		}
		committee = c

		if reg.PaymentStatus != models.PaymentVerified {
			return nil, errors.PaymentNotVerifiedf("delegate %s has not been verified for payment", delegateID)
		}

		regs, err := a.repo.ListRegistrations(ctx)
		if err != nil {
			return nil, errors.Internal(err)
		}
		holder, taken := Occupancy(regs)[seat]
		if taken {
			if holder == delegateID {
				return nil, nil
			}
			return nil, errors.SeatTakenf("%s in %s is already held by another delegate", country, committeeID)
		}

		patch := repository.AssignPatch(seat)
		return &patch, nil
	})
	if err != nil {
		a.metrics.ObserveSeatOperation("assign", outcomeLabel(err))
		a.log.Info("seat assignment rejected",
			append(logger.SeatArgs(delegateID, committeeID, country), "kind", errors.KindOf(err).String())...)
		return nil, err
	}

	result := AssignmentResult{
		Registration:  reg,
		Seat:          &seat,
		CommitteeName: committee.Name,
		Previous:      previous,
		Changed:       changed,
	}
	if !changed {
		a.metrics.ObserveSeatOperation("assign", "unchanged")
		return &result, nil
	}

	a.metrics.ObserveSeatOperation("assign", "assigned")
	if previous != nil {
		a.log.Info("delegate reassigned",
			append(logger.SeatArgs(delegateID, committeeID, country),
				logger.KeyPreviousCommittee, previous.CommitteeID, logger.KeyPreviousCountry, previous.Country)...)
	} else {
		a.log.Info("seat assigned", logger.SeatArgs(delegateID, committeeID, country)...)
	}
	a.publish(ctx, result)
	return &result, nil
}

// UnassignSeat releases the delegate's seat. Unassigning an unassigned
// delegate succeeds without writing.
func (a *Allocator) UnassignSeat(ctx context.Context, delegateID string) (*AssignmentResult, error) {
	var previous *models.Seat

	reg, changed, err := a.loop("unassign").run(ctx, delegateID, func(ctx context.Context, reg *models.Registration) (*repository.Patch, error) {
		held, ok := reg.AssignedSeat()
		if !ok {
			previous = nil
			return nil, nil
		}
		previous = &held
		patch := repository.UnassignPatch()
		return &patch, nil
	})
	if err != nil {
		a.metrics.ObserveSeatOperation("unassign", outcomeLabel(err))
		return nil, err
	}

	result := AssignmentResult{Registration: reg, Previous: previous, Changed: changed}
	if !changed {
		a.metrics.ObserveSeatOperation("unassign", "unchanged")
		return &result, nil
	}

	a.metrics.ObserveSeatOperation("unassign", "unassigned")
	a.log.Info("seat released", logger.SeatArgs(delegateID, previous.CommitteeID, previous.Country)...)
	a.publish(ctx, result)
	return &result, nil
}

// SuggestSeat returns the delegate's highest ranked preference that is in
// the catalog and free. It never writes.
func (a *Allocator) SuggestSeat(ctx context.Context, delegateID string) (models.Seat, error) {
	reg, err := a.repo.GetRegistration(ctx, delegateID)
	if err != nil {
		return models.Seat{}, notFoundOr(err, "delegate %s not found", delegateID)
	}

	regs, err := a.repo.ListRegistrations(ctx)
	if err != nil {
		return models.Seat{}, errors.Internal(err)
	}
	held := Occupancy(regs)

	prefs := append([]models.Preference(nil), reg.Preferences...)
	sortPreferences(prefs)
	for _, p := range prefs {
		c, err := a.repo.GetCommittee(ctx, p.CommitteeID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				continue
			}
			return models.Seat{}, errors.Internal(err)
		}
		if !c.HasCountry(p.Country) {
			continue
		}
		if seatAvailableTo(held, p.Seat(), delegateID) {
			return p.Seat(), nil
		}
	}
	return models.Seat{}, errors.NoPreferenceAvailablef("none of delegate %s's preferences are available", delegateID)
}

func (a *Allocator) publish(ctx context.Context, result AssignmentResult) {
	if a.broadcaster != nil {
		a.broadcaster.BroadcastSeatChange(result.Registration.ID, result.Seat, result.Previous)
	}
	if a.notifier != nil && result.Seat != nil {
		a.notifier.AssignmentChanged(ctx, result)
	}
}

// outcomeLabel turns an error into a metrics label
func outcomeLabel(err error) string {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return errors.KindOf(err).String()
}

func sortPreferences(prefs []models.Preference) {
	sort.SliceStable(prefs, func(i, j int) bool { return prefs[i].Order < prefs[j].Order })
}
