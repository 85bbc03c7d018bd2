package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/km-arc/go-spring/framework/app"
	"github.com/km-arc/go-spring/framework/container"
)

func TestNew_CoreServicesResolvable(t *testing.T) {
	application := app.New("testdata/empty.env")
	application.Boot()

	if application.Config() == nil {
		t.Fatal("Config() should resolve")
	}
	if application.Logger() == nil {
		t.Fatal("Logger() should resolve")
	}
	if application.Router() == nil {
		t.Fatal("Router() should resolve")
	}
}

func TestNew_ConfigLoadedOnce(t *testing.T) {
	application := app.New("testdata/empty.env")
	application.Boot()

	if application.Config() != application.Config() {
		t.Error("config should be a cached singleton")
	}
}

func TestApplication_RouterServesRegisteredRoutes(t *testing.T) {
	application := app.New("testdata/empty.env")
	application.Boot()

	r := application.Router()
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "pong" {
		t.Errorf("body: got %q, want 'pong'", rec.Body.String())
	}
}

func TestApplication_ProvidersBootInOrder(t *testing.T) {
	application := app.New("testdata/empty.env")

	var booted []string
	application.Register(&recordingProvider{name: "first", booted: &booted})
	application.Register(&recordingProvider{name: "second", booted: &booted})
	application.Boot()

	if len(booted) != 2 || booted[0] != "first" || booted[1] != "second" {
		t.Errorf("boot order: got %v, want [first second]", booted)
	}
}

func TestApplication_ShutdownFlushesContainer(t *testing.T) {
	application := app.New("testdata/empty.env")
	application.Boot()

	var closed bool
	application.Singleton("resource", func(c *container.Container) any {
		return closerFunc(func() error {
			closed = true
			return nil
		})
	})
	application.Make("resource")

	if err := application.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if !closed {
		t.Error("Shutdown() should dispose resolved singletons")
	}
	if application.Bound("resource") {
		t.Error("Shutdown() should drop bindings via Flush()")
	}
}

func TestApplication_EnvironmentHelpers(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	application := app.New("testdata/empty.env")
	application.Boot()

	if !application.IsTesting() {
		t.Error("IsTesting() should be true when APP_ENV=testing")
	}
	if application.IsProduction() {
		t.Error("IsProduction() should be false when APP_ENV=testing")
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

type recordingProvider struct {
	container.BaseProvider
	name   string
	booted *[]string
}

func (p *recordingProvider) Register(_ *container.Container) {}

func (p *recordingProvider) Boot(_ *container.Container) {
	*p.booted = append(*p.booted, p.name)
}

// closerFunc adapts a function to io.Closer so the container registers it for
// teardown automatically.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
