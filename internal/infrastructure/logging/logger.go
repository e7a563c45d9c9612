package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lumen-labs/lumen-core/internal/infrastructure/config"
)

// serviceName is attached to every record so aggregated logs from a
// fleet of lamps stay attributable.
const serviceName = "lumen-core"

// Logger is the daemon's structured logger: a slog.Logger carrying
// the service identity, configured from the logging config section.
// Packages that want tagged output derive children with With.
//
// Safe for concurrent use; every component shares one instance.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from configuration: level and format (json or
// text) come from cfg, the version tag from the build.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWriter(cfg, version, out)
}

// NewWriter is New with the destination supplied by the caller. Tests
// hand in a buffer and assert on the emitted records.
func NewWriter(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// Default returns a JSON/info logger for the window between process
// start and configuration load. Everything after Load should use New.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With derives a child logger carrying extra default attributes, the
// usual way a component tags its output:
//
//	engineLog := log.With("component", "engine")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// parseLevel maps a config level string onto slog's levels. Unknown
// strings fall back to info rather than failing startup over a typo.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
