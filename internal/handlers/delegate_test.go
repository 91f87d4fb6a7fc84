package handlers_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/abrezinsky/munreg/internal/handlers"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/testutil"
)

func TestDelegateRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/me", "/api/me/badge.png", "/api/committees"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		expectError(t, rec, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)
	}

	rec := s.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	expectError(t, rec, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)
}

func TestRegister_CreateThenUpdate(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "d1")

	body := handlers.RegisterRequest{
		Profile: models.Profile{Name: "Ada", DelegateType: "student"},
		Preferences: []models.Preference{
			testutil.Pref(2, "disec", "Ghana"),
			testutil.Pref(1, "unsc", "USA"),
		},
	}
	rec := s.do(t, http.MethodPost, "/api/register", tok, body)
	expectStatus(t, rec, http.StatusCreated)

	var reg models.Registration
	decode(t, rec, &reg)
	if reg.ID != "d1" || reg.Email != "d1@example.com" {
		t.Errorf("expected identity from token, got id=%q email=%q", reg.ID, reg.Email)
	}
	if reg.PaymentStatus != models.PaymentUnverified || reg.AssignmentStatus != models.Unassigned {
		t.Errorf("expected default statuses, got %s/%s", reg.PaymentStatus, reg.AssignmentStatus)
	}
	if reg.Profile.Country != "Nigeria" {
		t.Errorf("expected default profile country, got %q", reg.Profile.Country)
	}
	if len(reg.Preferences) != 2 || reg.Preferences[0].Order != 1 {
		t.Errorf("expected preferences sorted by order, got %+v", reg.Preferences)
	}

	body.Profile.Name = "Ada Lovelace"
	rec = s.do(t, http.MethodPost, "/api/register", tok, body)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &reg)
	if reg.Profile.Name != "Ada Lovelace" {
		t.Errorf("expected updated name, got %q", reg.Profile.Name)
	}
}

func TestRegister_TooManyPreferences(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/register", s.token(t, "d1"), handlers.RegisterRequest{
		Preferences: []models.Preference{
			testutil.Pref(1, "unsc", "USA"),
			testutil.Pref(2, "unsc", "France"),
			testutil.Pref(3, "disec", "Ghana"),
			testutil.Pref(3, "disec", "Nigeria"),
		},
	})
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "d1")

	rec := s.do(t, http.MethodGet, "/api/me", tok, nil)
	expectError(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)

	s.delegate(t, "d1", true)
	rec = s.do(t, http.MethodGet, "/api/me", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	var me handlers.MeResponse
	decode(t, rec, &me)
	if me.Seat != nil || me.IsAdmin {
		t.Errorf("expected unseated non-admin, got %+v", me)
	}

	rec = s.do(t, http.MethodPut, "/api/admin/delegates/d1/seat", s.adminToken(t), handlers.SeatRequest{CommitteeID: "unsc", Country: "France"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/me", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &me)
	if me.Seat == nil || *me.Seat != (models.Seat{CommitteeID: "unsc", Country: "France"}) {
		t.Fatalf("expected seat unsc/France, got %+v", me.Seat)
	}
	if me.CommitteeName != "Security Council" {
		t.Errorf("expected committee name, got %q", me.CommitteeName)
	}
}

func TestBadge(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "d1")
	s.delegate(t, "d1", true)

	rec := s.do(t, http.MethodGet, "/api/me/badge.png", tok, nil)
	expectError(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)

	rec = s.do(t, http.MethodPut, "/api/admin/delegates/d1/seat", s.adminToken(t), handlers.SeatRequest{CommitteeID: "disec", Country: "Ghana"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/me/badge.png", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG body")
	}
	if rec.Header().Get("X-Badge-Code") == "" {
		t.Error("expected badge code header")
	}
}

func TestListCommittees(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/committees", s.token(t, "d1"), nil)
	expectStatus(t, rec, http.StatusOK)

	var committees []models.Committee
	decode(t, rec, &committees)
	if len(committees) != 2 || committees[0].ID != "unsc" || committees[1].ID != "disec" {
		t.Errorf("expected catalog in seed order, got %+v", committees)
	}
}
