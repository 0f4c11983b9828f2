package main

import (
	"io"
	"log/slog"

	"github.com/vango-dev/framehook/internal/errors"
)

// newLogger builds the CLI logger. format is "text" or "json"; level is
// any name slog.Level understands ("debug", "info", "warn", "error").
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.New("FH180").
			WithDetailf("--log-level %q is not a level", level).
			WithSuggestion("Use debug, info, warn or error")
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.New("FH180").
			WithDetailf("--log-format %q is not supported", format).
			WithSuggestion("Use text or json")
	}
}
