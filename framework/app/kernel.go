package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-spring/framework/beans"
	"github.com/km-arc/go-spring/framework/config"
	"github.com/km-arc/go-spring/framework/container"
	"github.com/km-arc/go-spring/framework/providers"
)

// shutdownTimeout bounds graceful HTTP shutdown during Application.Shutdown.
const shutdownTimeout = 10 * time.Second

// Application is the top-level application kernel. It embeds the IoC
// Container and ProviderRegistry so user code can call app.Bind(),
// app.Singleton(), app.Register() directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New creates and bootstraps the application. Configuration is loaded up
// front so container-level settings can be applied before any bean exists.
func New(envFiles ...string) *Application {
	cfg := config.Load(envFiles...)

	var opts []beans.Option
	if cfg.Beans.StrictSerialization {
		opts = append(opts, beans.WithStrictSerialization())
	}

	c := container.New(opts...)
	registry := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: registry,
	}

	// Framework core providers, in boot order.
	registry.Register(&providers.ConfigServiceProvider{Preloaded: cfg})
	registry.Register(&providers.LogServiceProvider{})
	registry.Register(&providers.RoutingServiceProvider{})

	return app
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() {
	a.Providers.Boot()
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.Resolve[*config.Config](a.Container, "config")
}

// Router resolves the HTTP router from the container.
func (a *Application) Router() *chi.Mux {
	return container.Resolve[*chi.Mux](a.Container, "router")
}

// Logger resolves the application logger from the container.
func (a *Application) Logger() *slog.Logger {
	return container.Resolve[*slog.Logger](a.Container, "logger")
}

// Run boots the application (if needed), starts the HTTP server and blocks
// until the server fails or a termination signal arrives. The server is
// registered as a container singleton, so an ordered teardown closes it along
// with every other disposable bean.
func (a *Application) Run() error {
	if !a.Providers.Booted() {
		a.Boot()
	}
	cfg := a.Config()
	logger := a.Logger()

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: a.Router(),
	}
	a.Instance("http-server", srv)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("server listening", "addr", srv.Addr, "env", cfg.App.Env)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		a.Shutdown()
		return err
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())
		return a.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server, then flushes the container so
// every disposable singleton is destroyed in dependency order.
func (a *Application) Shutdown() error {
	var err error
	if srv, ok := container.MustResolve[*http.Server](a.Container, "http-server"); ok {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	}
	a.Flush()
	return err
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
