package services

import (
	"context"
	"sort"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// MissingCommitteeName labels roster entries whose committee left the catalog
const MissingCommitteeName = "N/A"

// RosterServiceRepository defines the repository methods needed by RosterService
type RosterServiceRepository interface {
	repository.CommitteeRepository
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
}

// RosterService answers who sits where. Every call reads current state.
type RosterService struct {
	log  logger.Logger
	repo RosterServiceRepository
}

// NewRosterService creates a new RosterService
func NewRosterService(log logger.Logger, repo RosterServiceRepository) *RosterService {
	return &RosterService{log: log, repo: repo}
}

// RosterEntry is one seated delegate of a committee
type RosterEntry struct {
	DelegateID string `json:"delegate_id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
}

// CountryRosterEntry is one seated delegate representing a country
type CountryRosterEntry struct {
	DelegateID    string `json:"delegate_id"`
	Name          string `json:"name"`
	CommitteeID   string `json:"committee_id"`
	CommitteeName string `json:"committee_name"`
}

// CommitteeFill is the seat usage of one committee
type CommitteeFill struct {
	CommitteeID string `json:"committee_id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Filled      int    `json:"filled"`
}

// Summary is the admin dashboard overview
type Summary struct {
	Delegates  int             `json:"delegates"`
	Verified   int             `json:"verified"`
	Unverified int             `json:"unverified"`
	Assigned   int             `json:"assigned"`
	Unassigned int             `json:"unassigned"`
	Committees []CommitteeFill `json:"committees"`
}

// RosterByCommittee lists the delegates seated in committeeID, sorted by country
func (s *RosterService) RosterByCommittee(ctx context.Context, committeeID string) ([]RosterEntry, error) {
	if _, err := s.repo.GetCommittee(ctx, committeeID); err != nil {
		return nil, notFoundOr(err, "committee %s not found", committeeID)
	}

	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	entries := []RosterEntry{}
	for _, reg := range regs {
		seat, ok := reg.AssignedSeat()
		if !ok || seat.CommitteeID != committeeID {
			continue
		}
		entries = append(entries, RosterEntry{DelegateID: reg.ID, Name: reg.Profile.Name, Country: seat.Country})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Country != entries[j].Country {
			return entries[i].Country < entries[j].Country
		}
		return entries[i].DelegateID < entries[j].DelegateID
	})
	return entries, nil
}

// RosterByCountry groups every seated delegate by country label. The same
// label in two committees lands in one group.
func (s *RosterService) RosterByCountry(ctx context.Context) (map[string][]CountryRosterEntry, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	names, err := committeeNames(ctx, s.repo)
	if err != nil {
		return nil, err
	}

	byCountry := map[string][]CountryRosterEntry{}
	for _, reg := range regs {
		seat, ok := reg.AssignedSeat()
		if !ok {
			continue
		}
		name, found := names[seat.CommitteeID]
		if !found {
			name = MissingCommitteeName
		}
		byCountry[seat.Country] = append(byCountry[seat.Country], CountryRosterEntry{
			DelegateID:    reg.ID,
			Name:          reg.Profile.Name,
			CommitteeID:   seat.CommitteeID,
			CommitteeName: name,
		})
	}
	for _, entries := range byCountry {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].CommitteeID != entries[j].CommitteeID {
				return entries[i].CommitteeID < entries[j].CommitteeID
			}
			return entries[i].DelegateID < entries[j].DelegateID
		})
	}
	return byCountry, nil
}

// Summary counts delegates by status and seats by committee
func (s *RosterService) Summary(ctx context.Context) (*Summary, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	committees, err := s.repo.ListCommittees(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	summary := &Summary{Delegates: len(regs), Committees: make([]CommitteeFill, 0, len(committees))}
	for _, reg := range regs {
		if reg.PaymentStatus == models.PaymentVerified {
			summary.Verified++
		} else {
			summary.Unverified++
		}
		if reg.AssignmentStatus == models.Assigned {
			summary.Assigned++
		} else {
			summary.Unassigned++
		}
	}

	held := Occupancy(regs)
	for _, c := range committees {
		fill := CommitteeFill{CommitteeID: c.ID, Name: c.Name, Capacity: len(c.Countries)}
		for _, country := range c.Countries {
			if _, taken := held[models.Seat{CommitteeID: c.ID, Country: country}]; taken {
				fill.Filled++
			}
		}
		summary.Committees = append(summary.Committees, fill)
	}
	return summary, nil
}
