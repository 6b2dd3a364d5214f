package obs

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger writes colored text for dev and local runs and JSON everywhere else.
// level ("debug", "info", "warn", "error") overrides the per-env default when set.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(env, level, os.Stdout)
}

func newLogger(env, level string, w io.Writer) *slog.Logger {
	local := env == "dev" || env == "local"
	lvl := slog.LevelInfo
	if local {
		lvl = slog.LevelDebug
	}
	if level != "" {
		// Unknown names keep the default.
		_ = lvl.UnmarshalText([]byte(level))
	}
	if local {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.TimeOnly, AddSource: true}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: true})).
		With("service", "hlopg", "env", env)
}
