package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/services"
)

func newTestConsole(summaryErr error) (*console, *bytes.Buffer, *bool) {
	var out bytes.Buffer
	quit := false
	c := &console{
		out: &out,
		log: logger.NewWithOptions(&bytes.Buffer{}, logger.FormatText, slog.LevelInfo),
		summary: func(ctx context.Context) (*services.Summary, error) {
			if summaryErr != nil {
				return nil, summaryErr
			}
			return &services.Summary{
				Delegates: 3, Verified: 2, Unverified: 1, Assigned: 1, Unassigned: 2,
				Committees: []services.CommitteeFill{{CommitteeID: "unsc", Name: "Security Council", Capacity: 2, Filled: 1}},
			}, nil
		},
		quit: func() { quit = true },
	}
	return c, &out, &quit
}

func TestConsole_ToggleHTTPLogging(t *testing.T) {
	c, out, _ := newTestConsole(nil)

	c.handleKey(context.Background(), 'h')
	if !c.log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging enabled")
	}
	c.handleKey(context.Background(), 'H')
	if c.log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging disabled")
	}
	if !strings.Contains(out.String(), "\r\n") {
		t.Error("expected CRLF line endings in raw mode output")
	}
}

func TestConsole_CycleLogLevel(t *testing.T) {
	c, _, _ := newTestConsole(nil)

	want := []slog.Level{slog.LevelWarn, slog.LevelError, slog.LevelDebug, slog.LevelInfo}
	for _, level := range want {
		c.handleKey(context.Background(), 'l')
		if c.log.GetLevel() != level {
			t.Fatalf("expected %s, got %s", level, c.log.GetLevel())
		}
	}
}

func TestConsole_Summary(t *testing.T) {
	c, out, _ := newTestConsole(nil)
	c.handleKey(context.Background(), 's')
	if !strings.Contains(out.String(), "unsc") || !strings.Contains(out.String(), "1/2") {
		t.Errorf("expected committee fill in summary, got %q", out.String())
	}

	c, out, _ = newTestConsole(errors.New("db closed"))
	c.handleKey(context.Background(), 's')
	if !strings.Contains(out.String(), "db closed") {
		t.Errorf("expected error in output, got %q", out.String())
	}
}

func TestConsole_RunStopsOnQuit(t *testing.T) {
	c, _, quit := newTestConsole(nil)

	c.run(context.Background(), strings.NewReader("h?xq l"))
	if !*quit {
		t.Error("expected quit to be called")
	}
	// keys after q are not processed
	if c.log.GetLevel() != slog.LevelInfo {
		t.Errorf("expected level unchanged after quit, got %s", c.log.GetLevel())
	}
}

func TestConsole_RunStopsOnEOF(t *testing.T) {
	c, _, quit := newTestConsole(nil)
	c.run(context.Background(), strings.NewReader("h"))
	if *quit {
		t.Error("EOF should not trigger quit")
	}
}
