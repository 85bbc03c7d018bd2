package providers

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-spring/framework/config"
	"github.com/km-arc/go-spring/framework/container"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// binds it into the container as "config".
//
// Bound abstracts:
//   - "config"         → *config.Config
//   - "configuration"  → alias of "config"
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
	// Preloaded short-circuits loading when the kernel already read the
	// configuration to tune the container itself.
	Preloaded *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	envFiles := p.EnvFiles
	preloaded := p.Preloaded
	app.Singleton("config", func(c *container.Container) any {
		if preloaded != nil {
			return preloaded
		}
		return config.Load(envFiles...)
	})
	app.Alias("config", "configuration")
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider builds the application's structured logger from the Log
// section of the configuration.
//
// Bound abstracts:
//   - "logger"  → *slog.Logger
//
// Configuration keys read from "config":
//   - Log.Level  (debug | info | warn | error)
//   - Log.Format (text | json)
type LogServiceProvider struct {
	container.BaseProvider
	// Writer overrides the log destination; defaults to os.Stderr.
	Writer *os.File
}

func (p *LogServiceProvider) Register(app *container.Container) {
	out := p.Writer
	if out == nil {
		out = os.Stderr
	}
	app.Singleton("logger", func(c *container.Container) any {
		cfg := container.Resolve[*config.Config](c, "config")
		opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
		var handler slog.Handler
		if strings.EqualFold(cfg.Log.Format, "json") {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
		return slog.New(handler).With("app", cfg.App.Name)
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router with the standard
// middleware stack.
//
// Bound abstracts:
//   - "router"  → *chi.Mux
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Singleton("router", func(c *container.Container) any {
		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		return r
	})
}
