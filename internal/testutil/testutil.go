package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SampleCatalog is the two-committee catalog used across service and handler tests
func SampleCatalog() []models.Committee {
	return []models.Committee{
		{ID: "unsc", Name: "Security Council", Countries: []string{"USA", "France"}},
		{ID: "disec", Name: "Disarmament and International Security", Countries: []string{"Nigeria", "Ghana"}},
	}
}

// SeedCatalog writes SampleCatalog into repo
func SeedCatalog(t *testing.T, repo repository.CommitteeRepository) {
	t.Helper()
	if err := repo.ReplaceCommittees(context.Background(), SampleCatalog()); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

// CreateDelegate registers a delegate with the given preferences and,
// when verified is set, marks the payment verified.
func CreateDelegate(t *testing.T, repo repository.RegistrationRepository, id string, verified bool, prefs ...models.Preference) *models.Registration {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.UpsertRegistration(ctx, repository.RegistrationInput{
		ID:          id,
		Email:       id + "@example.com",
		Profile:     models.Profile{Name: "Delegate " + id, Country: "Nigeria", DelegateType: "student"},
		Preferences: prefs,
	}); err != nil {
		t.Fatalf("failed to create delegate %s: %v", id, err)
	}

	reg, err := repo.GetRegistration(ctx, id)
	if err != nil {
		t.Fatalf("failed to read delegate %s: %v", id, err)
	}
	if verified {
		if err := repo.ConditionalUpdate(ctx, id, reg.Version, repository.PaymentPatch(models.PaymentVerified)); err != nil {
			t.Fatalf("failed to verify delegate %s: %v", id, err)
		}
		reg, err = repo.GetRegistration(ctx, id)
		if err != nil {
			t.Fatalf("failed to reread delegate %s: %v", id, err)
		}
	}
	return reg
}

// Pref builds a preference
func Pref(order int, committeeID, country string) models.Preference {
	return models.Preference{Order: order, CommitteeID: committeeID, Country: country}
}
