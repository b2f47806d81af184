package api

import (
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/httplog/v3"
	"github.com/warp/payroll-engine/config"
)

// NewLogger builds the process logger. JSON output follows the ECS schema
// so request logs and domain logs share field names.
func NewLogger(cfg config.LogConfig, env string) *slog.Logger {
	return newLogger(os.Stdout, cfg, env)
}

func newLogger(w io.Writer, cfg config.LogConfig, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		logFormat := httplog.SchemaECS.Concise(env != "production")
		opts.ReplaceAttr = logFormat.ReplaceAttr
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", env),
	)
}
