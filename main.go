package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-spring/framework/app"
	"github.com/km-arc/go-spring/framework/container"
)

func main() {
	application := app.New() // loads .env automatically

	application.Register(&appServiceProvider{})

	if err := application.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}

// ── demo services ─────────────────────────────────────────────────────────────

// userStore is a demo singleton with a teardown hook. Because it implements
// io.Closer, the container closes it automatically on shutdown.
type userStore struct {
	logger *slog.Logger
	users  map[int]string
}

func (s *userStore) All() map[int]string { return s.users }

func (s *userStore) Close() error {
	s.logger.Info("user store closed")
	return nil
}

// userRepository depends on the store. The repository resolves the store from
// inside its own factory, so teardown destroys the repository first.
type userRepository struct {
	store *userStore
}

func (r *userRepository) Names() []string {
	out := make([]string, 0, len(r.store.users))
	for _, name := range r.store.users {
		out = append(out, name)
	}
	return out
}

// ── application provider ──────────────────────────────────────────────────────

type appServiceProvider struct {
	container.BaseProvider
}

func (p *appServiceProvider) Register(a *container.Container) {
	a.Singleton("user-store", func(c *container.Container) any {
		return &userStore{
			logger: container.Resolve[*slog.Logger](c, "logger"),
			users:  map[int]string{1: "Alice", 2: "Bob"},
		}
	})
	a.Singleton("user-repository", func(c *container.Container) any {
		return &userRepository{
			store: container.Resolve[*userStore](c, "user-store"),
		}
	})
	a.Alias("user-repository", "users")
}

func (p *appServiceProvider) Boot(a *container.Container) {
	r := container.Resolve[*chi.Mux](a, "router")

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Welcome to go-spring!"})
	})

	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
		repo := container.Resolve[*userRepository](a, "users")
		writeJSON(w, http.StatusOK, map[string]any{"users": repo.Names()})
	})

	// ── registry introspection ────────────────────────────────────────────

	r.Get("/beans", func(w http.ResponseWriter, req *http.Request) {
		reg := a.Beans()
		writeJSON(w, http.StatusOK, map[string]any{
			"count": reg.Count(),
			"names": reg.Names(),
		})
	})

	r.Get("/beans/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		reg := a.Beans()
		instance, ok := reg.Get(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such bean: " + name})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         reg.CanonicalName(name),
			"type":         fmt.Sprintf("%T", instance),
			"aliases":      reg.Aliases(name),
			"dependents":   reg.DependentsOf(name),
			"dependencies": reg.DependenciesOf(name),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
