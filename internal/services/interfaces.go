package services

import (
	"context"

	"github.com/abrezinsky/munreg/internal/models"
)

// CatalogServicer defines the interface for committee catalog operations
type CatalogServicer interface {
	ListCommittees(ctx context.Context) ([]models.Committee, error)
	GetCommittee(ctx context.Context, id string) (*models.Committee, error)
	Seed(ctx context.Context, committees []models.Committee, force bool) (*SeedResult, error)
}

// RegistrationServicer defines the interface for registration and payment operations
type RegistrationServicer interface {
	Register(ctx context.Context, delegateID, email string, req RegistrationRequest) (*RegistrationResult, error)
	GetRegistration(ctx context.Context, delegateID string) (*models.Registration, error)
	ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]models.Registration, error)
	SetPaymentStatus(ctx context.Context, delegateID string, status models.PaymentStatus) (*models.Registration, error)
	BulkSetPaymentStatus(ctx context.Context, delegateIDs []string, status models.PaymentStatus) (*BulkPaymentResult, error)
}

// SeatAllocatorServicer defines the interface for seat assignment operations
type SeatAllocatorServicer interface {
	AssignSeat(ctx context.Context, delegateID, committeeID, country string) (*AssignmentResult, error)
	UnassignSeat(ctx context.Context, delegateID string) (*AssignmentResult, error)
	SuggestSeat(ctx context.Context, delegateID string) (models.Seat, error)
	SetNotifier(n AssignmentNotifier)
	SetBroadcaster(b Broadcaster)
}

// RosterServicer defines the interface for assignment query views
type RosterServicer interface {
	RosterByCommittee(ctx context.Context, committeeID string) ([]RosterEntry, error)
	RosterByCountry(ctx context.Context) (map[string][]CountryRosterEntry, error)
	Summary(ctx context.Context) (*Summary, error)
}

// NotifierServicer defines the interface for mail notification operations
type NotifierServicer interface {
	AssignmentNotifier
	NotifyAllAssigned(ctx context.Context) (*NotifyResult, error)
	SendCustom(ctx context.Context, msg CustomMessage) (*CustomResult, error)
	Close()
}

// BadgeServicer defines the interface for seat badges
type BadgeServicer interface {
	Badge(ctx context.Context, delegateID string) (*Badge, error)
}

// Ensure concrete types implement interfaces
var (
	_ CatalogServicer       = (*CatalogService)(nil)
	_ RegistrationServicer  = (*RegistrationService)(nil)
	_ SeatAllocatorServicer = (*Allocator)(nil)
	_ RosterServicer        = (*RosterService)(nil)
	_ NotifierServicer      = (*Notifier)(nil)
	_ BadgeServicer         = (*BadgeService)(nil)
)
