package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/services"
)

// seatAll registers verified delegates and seats them
func seatAll(t *testing.T, f *fixture, seats map[string]models.Seat) {
	t.Helper()
	ctx := context.Background()
	for id, seat := range seats {
		f.delegate(t, id, true)
		if _, err := f.alloc.AssignSeat(ctx, id, seat.CommitteeID, seat.Country); err != nil {
			t.Fatalf("AssignSeat(%s) failed: %v", id, err)
		}
	}
}

func TestRosterByCommittee_SortedByCountry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seatAll(t, f, map[string]models.Seat{
		"d1": {CommitteeID: "unsc", Country: "USA"},
		"d2": {CommitteeID: "unsc", Country: "France"},
		"d3": {CommitteeID: "disec", Country: "Nigeria"},
	})
	f.delegate(t, "waiting", true)

	roster, err := f.rosters.RosterByCommittee(ctx, "unsc")
	if err != nil {
		t.Fatalf("RosterByCommittee failed: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(roster))
	}
	if roster[0].Country != "France" || roster[0].DelegateID != "d2" {
		t.Errorf("expected France first, got %+v", roster[0])
	}
	if roster[1].Name != "Delegate d1" {
		t.Errorf("expected delegate name carried, got %q", roster[1].Name)
	}

	empty, err := f.rosters.RosterByCommittee(ctx, "disec")
	if err != nil || len(empty) != 1 {
		t.Errorf("expected one disec entry, got %v (%v)", empty, err)
	}

	_, err = f.rosters.RosterByCommittee(ctx, "nope")
	expectKind(t, err, errors.ErrNotFound)
}

// TestRosterByCountry_CoMinglesCommittees tests that the same country label
// in two committees forms one group
func TestRosterByCountry_CoMinglesCommittees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.catalog.Seed(ctx, []models.Committee{
		{ID: "unsc", Name: "Security Council", Countries: []string{"USA", "Nigeria"}},
		{ID: "disec", Name: "Disarmament", Countries: []string{"Nigeria"}},
	}, false); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	seatAll(t, f, map[string]models.Seat{
		"d1": {CommitteeID: "unsc", Country: "Nigeria"},
		"d2": {CommitteeID: "disec", Country: "Nigeria"},
		"d3": {CommitteeID: "unsc", Country: "USA"},
	})

	byCountry, err := f.rosters.RosterByCountry(ctx)
	if err != nil {
		t.Fatalf("RosterByCountry failed: %v", err)
	}
	nigeria := byCountry["Nigeria"]
	if len(nigeria) != 2 {
		t.Fatalf("expected 2 Nigeria delegates, got %d", len(nigeria))
	}
	if nigeria[0].CommitteeName != "Disarmament" || nigeria[1].CommitteeName != "Security Council" {
		t.Errorf("unexpected committee names %+v", nigeria)
	}
	if len(byCountry["USA"]) != 1 {
		t.Errorf("expected 1 USA delegate, got %d", len(byCountry["USA"]))
	}
}

func TestRosterByCountry_MissingCommittee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seatAll(t, f, map[string]models.Seat{"d1": {CommitteeID: "unsc", Country: "USA"}})

	if _, err := f.catalog.Seed(ctx, []models.Committee{{ID: "who", Countries: []string{"Ghana"}}}, true); err != nil {
		t.Fatalf("forced Seed failed: %v", err)
	}

	byCountry, err := f.rosters.RosterByCountry(ctx)
	if err != nil {
		t.Fatalf("RosterByCountry failed: %v", err)
	}
	if got := byCountry["USA"][0].CommitteeName; got != services.MissingCommitteeName {
		t.Errorf("expected %q, got %q", services.MissingCommitteeName, got)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seatAll(t, f, map[string]models.Seat{
		"d1": {CommitteeID: "unsc", Country: "USA"},
		"d2": {CommitteeID: "disec", Country: "Ghana"},
	})
	f.delegate(t, "paid", true)
	f.delegate(t, "unpaid", false)

	summary, err := f.rosters.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Delegates != 4 || summary.Verified != 3 || summary.Unverified != 1 {
		t.Errorf("unexpected payment counts %+v", summary)
	}
	if summary.Assigned != 2 || summary.Unassigned != 2 {
		t.Errorf("unexpected assignment counts %+v", summary)
	}
	if len(summary.Committees) != 2 {
		t.Fatalf("expected 2 committees, got %d", len(summary.Committees))
	}
	unsc := summary.Committees[0]
	if unsc.CommitteeID != "unsc" || unsc.Capacity != 2 || unsc.Filled != 1 {
		t.Errorf("unexpected unsc fill %+v", unsc)
	}
}
