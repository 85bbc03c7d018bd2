package container_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/km-arc/go-spring/framework/container"
)

// ── test services ─────────────────────────────────────────────────────────────

type widget struct {
	id int
}

// closableService records teardown into a shared log.
type closableService struct {
	name string
	log  *teardownLog
}

func (s *closableService) Close() error {
	s.log.record(s.name)
	return nil
}

type teardownLog struct {
	mu    sync.Mutex
	order []string
}

func (l *teardownLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *teardownLog) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// ── Bind / Make ───────────────────────────────────────────────────────────────

func TestBind_TransientReturnsNewInstanceEachMake(t *testing.T) {
	c := container.New()
	var seq atomic.Int64
	c.Bind("widget", func(c *container.Container) any {
		return &widget{id: int(seq.Add(1))}
	})

	first := c.Make("widget").(*widget)
	second := c.Make("widget").(*widget)

	if first == second {
		t.Error("transient binding should return a new instance per Make()")
	}
	if first.id == second.id {
		t.Errorf("expected distinct factory runs, got ids %d and %d", first.id, second.id)
	}
}

func TestSingleton_CachedAfterFirstMake(t *testing.T) {
	c := container.New()
	var calls atomic.Int64
	c.Singleton("widget", func(c *container.Container) any {
		calls.Add(1)
		return &widget{id: 1}
	})

	first := c.Make("widget").(*widget)
	second := c.Make("widget").(*widget)

	if first != second {
		t.Error("singleton binding should return the same instance")
	}
	if calls.Load() != 1 {
		t.Errorf("factory calls: got %d, want 1", calls.Load())
	}
}

func TestSingleton_ConcurrentMakesRunFactoryOnce(t *testing.T) {
	c := container.New()
	var calls atomic.Int64
	c.Singleton("shared", func(c *container.Container) any {
		calls.Add(1)
		return &widget{}
	})

	const goroutines = 16
	results := make([]any, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Make("shared")
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("factory calls under concurrency: got %d, want 1", calls.Load())
	}
	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different instance", i)
		}
	}
}

func TestMake_MissingBindingPanics(t *testing.T) {
	c := container.New()

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("Make() on unknown abstract should panic")
		}
		if msg, ok := rec.(string); !ok || !strings.Contains(msg, "no binding") {
			t.Errorf("panic message: got %v, want mention of missing binding", rec)
		}
	}()
	c.Make("ghost")
}

func TestTryMake_MissingBindingReturnsError(t *testing.T) {
	c := container.New()

	_, err := c.TryMake("ghost")
	if err == nil {
		t.Fatal("TryMake() on unknown abstract should return an error")
	}
}

func TestTryMake_FactoryPanicBecomesError(t *testing.T) {
	c := container.New()
	c.Singleton("broken", func(c *container.Container) any {
		panic("wiring exploded")
	})

	_, err := c.TryMake("broken")
	if err == nil {
		t.Fatal("TryMake() should surface a factory panic as an error")
	}
	if !strings.Contains(err.Error(), "wiring exploded") {
		t.Errorf("error should carry the panic value, got: %v", err)
	}

	// The failure must not poison the name: a fixed binding can succeed.
	c.Singleton("broken", func(c *container.Container) any { return "fixed" })
	if got, err := c.TryMake("broken"); err != nil || got != "fixed" {
		t.Errorf("re-bound abstract: got (%v, %v), want ('fixed', nil)", got, err)
	}
}

// ── Instance / Alias ──────────────────────────────────────────────────────────

func TestInstance_RegistersPrebuiltValue(t *testing.T) {
	c := container.New()
	w := &widget{id: 42}
	c.Instance("widget", w)

	if got := c.Make("widget").(*widget); got != w {
		t.Error("Instance() value should come back from Make()")
	}
	if !c.Resolved("widget") {
		t.Error("Resolved() should be true for a registered instance")
	}
}

func TestInstance_DuplicateNamePanics(t *testing.T) {
	c := container.New()
	c.Instance("widget", &widget{})

	defer func() {
		if recover() == nil {
			t.Fatal("second Instance() under the same name should panic")
		}
	}()
	c.Instance("widget", &widget{})
}

func TestAlias_ResolvesToSameSingleton(t *testing.T) {
	c := container.New()
	c.Singleton("cache", func(c *container.Container) any { return &widget{} })
	c.Alias("cache", "cacheManager")

	a := c.Make("cache")
	b := c.Make("cacheManager")
	if a != b {
		t.Error("alias should resolve to the canonical singleton")
	}
}

// ── Bound / Resolved / Forget ─────────────────────────────────────────────────

func TestBound_ReportsBindingsAndInstances(t *testing.T) {
	c := container.New()
	c.Bind("transient", func(c *container.Container) any { return 1 })
	c.Instance("value", 2)

	if !c.Bound("transient") {
		t.Error("Bound() should see a registered factory binding")
	}
	if !c.Bound("value") {
		t.Error("Bound() should see a registered instance")
	}
	if c.Bound("ghost") {
		t.Error("Bound() should be false for unknown abstracts")
	}
}

func TestResolved_FalseUntilFirstMake(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) any { return "v" })

	if c.Resolved("svc") {
		t.Error("Resolved() should be false before the first Make()")
	}
	c.Make("svc")
	if !c.Resolved("svc") {
		t.Error("Resolved() should be true after Make()")
	}
}

func TestForget_DropsBindingAndDisposesInstance(t *testing.T) {
	c := container.New()
	log := &teardownLog{}
	c.Singleton("svc", func(c *container.Container) any {
		return &closableService{name: "svc", log: log}
	})
	c.Make("svc")

	c.Forget("svc")

	if got := log.recorded(); len(got) != 1 || got[0] != "svc" {
		t.Errorf("teardown order: got %v, want [svc]", got)
	}
	if c.Bound("svc") {
		t.Error("Forget() should drop the binding")
	}
}

// ── Flush / teardown ordering ─────────────────────────────────────────────────

func TestFlush_DisposesDependentsBeforeDependencies(t *testing.T) {
	c := container.New()
	log := &teardownLog{}

	c.Singleton("db", func(c *container.Container) any {
		return &closableService{name: "db", log: log}
	})
	// repo resolves db from inside its factory, recording repo → db.
	c.Singleton("repo", func(c *container.Container) any {
		c.Make("db")
		return &closableService{name: "repo", log: log}
	})

	c.Make("repo")

	if !c.Beans().IsDependent("db", "repo") {
		t.Fatal("resolving db inside repo's factory should record repo → db")
	}

	c.Flush()

	got := log.recorded()
	if len(got) != 2 || got[0] != "repo" || got[1] != "db" {
		t.Errorf("teardown order: got %v, want [repo db]", got)
	}
	if c.Bound("repo") || c.Bound("db") {
		t.Error("Flush() should drop all bindings")
	}
}

func TestFlush_ContainerUsableAfterwards(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) any { return "before" })
	c.Make("svc")

	c.Flush()

	c.Singleton("svc", func(c *container.Container) any { return "after" })
	if got := c.Make("svc").(string); got != "after" {
		t.Errorf("post-flush resolution: got %q, want 'after'", got)
	}
}

// ── Self-binding ──────────────────────────────────────────────────────────────

func TestContainer_ResolvesItself(t *testing.T) {
	c := container.New()
	if got := c.Make("container").(*container.Container); got != c {
		t.Error("'container' should resolve to the container itself")
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

func TestResolve_TypedHelper(t *testing.T) {
	c := container.New()
	c.Instance("widget", &widget{id: 7})

	got := container.Resolve[*widget](c, "widget")
	if got.id != 7 {
		t.Errorf("Resolve[*widget]: got id %d, want 7", got.id)
	}
}

func TestResolve_WrongTypePanics(t *testing.T) {
	c := container.New()
	c.Instance("widget", &widget{})

	defer func() {
		if recover() == nil {
			t.Fatal("Resolve with the wrong type parameter should panic")
		}
	}()
	container.Resolve[string](c, "widget")
}

func TestMustResolve_ReturnsFalseInsteadOfPanicking(t *testing.T) {
	c := container.New()
	c.Instance("widget", &widget{id: 3})

	if got, ok := container.MustResolve[*widget](c, "widget"); !ok || got.id != 3 {
		t.Errorf("MustResolve[*widget]: got (%v, %v), want (&{3}, true)", got, ok)
	}
	if _, ok := container.MustResolve[string](c, "widget"); ok {
		t.Error("MustResolve with the wrong type should report ok=false")
	}
	if _, ok := container.MustResolve[*widget](c, "ghost"); ok {
		t.Error("MustResolve on an unknown abstract should report ok=false")
	}
}
