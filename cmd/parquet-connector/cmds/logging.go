package cmds

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	slogmulti "github.com/samber/slog-multi"
)

// setupLogging builds the command logger. Records go to stderr and, when a
// log file is configured, to that file as JSON.
func setupLogging(cfg LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, errors.Errorf("invalid log level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		console = slog.NewTextHandler(stderr, opts)
	case "json":
		console = slog.NewJSONHandler(stderr, opts)
	default:
		return nil, nil, errors.Errorf("invalid log format %q", cfg.Format)
	}

	if cfg.File == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	fl, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening log file failed")
	}
	logger := slog.New(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(fl, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	return logger, fl.Close, nil
}
