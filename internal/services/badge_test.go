package services_test

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/services"
)

func TestBadgeCode_Format(t *testing.T) {
	code := services.BadgeCode("d1", models.Seat{CommitteeID: "unsc", Country: "USA"})

	if !regexp.MustCompile(`^[2-9A-HJKMNP-Z]{2}-[2-9A-HJKMNP-Z]{3}$`).MatchString(code) {
		t.Errorf("unexpected badge code format %q", code)
	}
	if again := services.BadgeCode("d1", models.Seat{CommitteeID: "unsc", Country: "USA"}); again != code {
		t.Error("expected badge code to be deterministic")
	}
	if other := services.BadgeCode("d1", models.Seat{CommitteeID: "unsc", Country: "France"}); other == code {
		t.Error("expected different seats to give different codes")
	}
}

func TestBadge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := services.NewBadgeService(logger.Discard(), f.repo)
	f.delegate(t, "d1", true)

	_, err := svc.Badge(ctx, "d1")
	expectKind(t, err, errors.ErrNotFound)

	if _, err := f.alloc.AssignSeat(ctx, "d1", "unsc", "USA"); err != nil {
		t.Fatalf("AssignSeat failed: %v", err)
	}
	badge, err := svc.Badge(ctx, "d1")
	if err != nil {
		t.Fatalf("Badge failed: %v", err)
	}
	if !bytes.HasPrefix(badge.PNG, []byte("\x89PNG")) {
		t.Error("expected PNG image")
	}
	if badge.Seat.Country != "USA" {
		t.Errorf("unexpected seat %+v", badge.Seat)
	}

	_, err = svc.Badge(ctx, "ghost")
	expectKind(t, err, errors.ErrNotFound)
}
