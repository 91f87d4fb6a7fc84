package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// planFunc inspects the freshly read registration and returns the patch to
// apply, or nil when nothing needs to change.
type planFunc func(ctx context.Context, reg *models.Registration) (*repository.Patch, error)

// casLoop runs read-plan-write against one registration until the
// conditional write lands, the plan rejects, or attempts run out.
type casLoop struct {
	log         logger.Logger
	repo        repository.RegistrationRepository
	metrics     *metrics.Metrics
	maxAttempts int
	operation   string
}

// run returns the registration as written (or as read, for a no-op) and
// whether a write happened.
func (l casLoop) run(ctx context.Context, id string, plan planFunc) (*models.Registration, bool, error) {
	attempts := l.maxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		reg, err := l.repo.GetRegistration(ctx, id)
		if err != nil {
			return nil, false, notFoundOr(err, "delegate %s not found", id)
		}

		patch, err := plan(ctx, reg)
		if err != nil {
			return nil, false, err
		}
		if patch == nil {
			return reg, false, nil
		}

		err = l.repo.ConditionalUpdate(ctx, id, reg.Version, *patch)
		switch {
		case err == nil:
			return applyPatch(*reg, *patch), true, nil
		case stderrors.Is(err, repository.ErrVersionConflict), stderrors.Is(err, repository.ErrSeatOccupied):
			l.metrics.IncWriteRetry(l.operation)
			l.log.Debug("conditional write lost, retrying",
				logger.KeyOperation, l.operation, logger.KeyDelegateID, id, logger.KeyAttempt, attempt, "reason", err.Error())
			continue
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, false, errors.NotFoundf("delegate %s not found", id)
		default:
			return nil, false, errors.Internal(err)
		}
	}

	l.log.Warn("conditional write attempts exhausted", logger.KeyOperation, l.operation, logger.KeyDelegateID, id, "attempts", attempts)
	return nil, false, errors.Conflictf("delegate %s kept changing; gave up after %d attempts", id, attempts)
}

// applyPatch mirrors a committed patch onto the registration that was read
func applyPatch(reg models.Registration, patch repository.Patch) *models.Registration {
	reg.Version++
	reg.UpdatedAt = time.Now().UTC()
	if patch.PaymentStatus != nil {
		reg.PaymentStatus = *patch.PaymentStatus
	}
	switch {
	case patch.Assign != nil:
		committeeID, country := patch.Assign.CommitteeID, patch.Assign.Country
		reg.AssignmentStatus = models.Assigned
		reg.AssignedCommitteeID = &committeeID
		reg.AssignedCountry = &country
	case patch.Unassign:
		reg.AssignmentStatus = models.Unassigned
		reg.AssignedCommitteeID = nil
		reg.AssignedCountry = nil
	}
	return &reg
}
