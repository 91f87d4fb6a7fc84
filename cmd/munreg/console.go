package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/services"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

// console maps single keystrokes to operator actions while serving
type console struct {
	out     io.Writer
	log     *logger.SlogLogger
	summary func(ctx context.Context) (*services.Summary, error)
	quit    context.CancelFunc
}

// printf writes with CRLF line endings; the terminal is in raw mode
func (c *console) printf(format string, args ...any) {
	fmt.Fprint(c.out, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", "\r\n"))
}

func (c *console) help() {
	c.printf("\n%s%s  Keyboard shortcuts:%s\n", bold, green, reset)
	c.printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	c.printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	c.printf("    %ss%s      - Show seat summary\n", cyan, reset)
	c.printf("    %sq%s      - Quit server\n", cyan, reset)
	c.printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// handleKey performs the action bound to key. It returns false once the
// operator asked to quit.
func (c *console) handleKey(ctx context.Context, key byte) bool {
	switch strings.ToLower(string(key)) {
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			c.printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			c.printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := nextLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		c.printf("%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "s":
		c.printSummary(ctx)
	case "?":
		c.help()
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		c.printf("%sShutting down server...%s\n", yellow, reset)
		c.quit()
		return false
	}
	return true
}

func (c *console) printSummary(ctx context.Context) {
	s, err := c.summary(ctx)
	if err != nil {
		c.printf("%serror loading summary: %v%s\n", yellow, err, reset)
		return
	}
	c.printf("\n%sDelegates:%s %d (verified %d, unverified %d)\n", bold, reset, s.Delegates, s.Verified, s.Unverified)
	c.printf("%sSeated:%s %d, unseated %d\n", bold, reset, s.Assigned, s.Unassigned)
	for _, fill := range s.Committees {
		c.printf("    %-10s %d/%d  %s\n", fill.CommitteeID, fill.Filled, fill.Capacity, fill.Name)
	}
	c.printf("\n")
}

// run reads keystrokes from in until quit or a read error
func (c *console) run(ctx context.Context, in io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if !c.handleKey(ctx, buf[0]) {
			return
		}
	}
}

// nextLevel cycles debug -> info -> warn -> error -> debug
func nextLevel(current slog.Level) slog.Level {
	switch {
	case current < slog.LevelInfo:
		return slog.LevelInfo
	case current < slog.LevelWarn:
		return slog.LevelWarn
	case current < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// startConsole puts stdin in raw mode and listens for shortcuts. It returns
// a restore func, or nil when stdin is not a terminal.
func startConsole(ctx context.Context, c *console) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		c.log.Warn("keyboard shortcuts unavailable", "error", err)
		return nil
	}
	c.help()
	go c.run(ctx, os.Stdin)
	return func() { term.Restore(fd, oldState) }
}
