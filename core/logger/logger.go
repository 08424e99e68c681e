// Package logger configures the process-wide structured logger and exposes
// per-component sub-loggers used across the bot.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	// L is the base logger.
	L *slog.Logger

	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// WOLT logs Wolt directory client events.
	WOLT *slog.Logger
	// FLOW logs conversation state machine events.
	FLOW *slog.Logger
	// WATCH logs availability watcher events.
	WATCH *slog.Logger
)

func init() {
	// Keep component loggers usable before Init runs (tests, early startup).
	L = slog.Default()
	wireComponents()
}

// Options control logger initialization.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // "json" or "text"
	Output io.Writer
}

// Init configures the global structured logger. It may be called only once;
// subsequent calls are no-ops.
func Init(opts Options) {
	initOnce.Do(func() {
		levelVar.Set(parseLevel(opts.Level))

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}

		hopts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if strings.EqualFold(opts.Format, "json") {
			handler = slog.NewJSONHandler(out, hopts)
		} else {
			handler = slog.NewTextHandler(out, hopts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
}

func wireComponents() {
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	TG = L.With("component", "tg")
	WOLT = L.With("component", "wolt")
	FLOW = L.With("component", "flow")
	WATCH = L.With("component", "watch")
}

// SetLevel adjusts the minimum level at runtime.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
