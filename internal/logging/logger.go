package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

// #region new-logger
// NewLogger builds the process logger. level is one of debug, info, warn
// or error.
func NewLogger(w io.Writer, level string, format Format) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case FormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.Newf("unknown log format %q", format)
}

// #endregion new-logger
