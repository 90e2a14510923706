package common

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetupLogger builds the process logger: text or JSON on stderr, plus a JSON file sink when
// cfg.File is set. The returned cleanup closes the file.
func SetupLogger(cfg LogConfig) (*slog.Logger, func() error) {
	return setupLogger(os.Stderr, cfg)
}

func setupLogger(stderr io.Writer, cfg LogConfig) (*slog.Logger, func() error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		console = slog.NewJSONHandler(stderr, opts)
	} else {
		console = slog.NewTextHandler(stderr, opts)
	}

	if cfg.File == "" {
		return slog.New(console), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(console)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", cfg.File)
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, opts)
	return slog.New(slogmulti.Fanout(console, fileHandler)), file.Close
}

// LoggerFromContext decorates base with the ids carried by ctx.
func LoggerFromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	var attrs []any
	if v := RequestIDFromContext(ctx); v != "" {
		attrs = append(attrs, "req_id", v)
	}
	if v := JobIDFromContext(ctx); v != "" {
		attrs = append(attrs, "job_id", v)
	}
	if v := RunIDFromContext(ctx); v != "" {
		attrs = append(attrs, "run_id", v)
	}
	if len(attrs) == 0 {
		return base
	}
	return base.With(attrs...)
}
