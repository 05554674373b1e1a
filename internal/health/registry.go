package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds each checker during CheckAll
const DefaultCheckTimeout = 3 * time.Second

type entry struct {
	checker  Checker
	required bool
}

// Registry manages dependency checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]entry
	timeout  time.Duration
}

// NewRegistry creates a new checker registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]entry),
		timeout:  DefaultCheckTimeout,
	}
}

// Register adds a checker whose failure makes the service not ready
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = entry{checker: checker, required: true}
}

// RegisterOptional adds a checker that is reported but never blocks readiness
func (r *Registry) RegisterOptional(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = entry{checker: checker, required: false}
}

// Get retrieves a checker by name
func (r *Registry) Get(name string) Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkers[name].checker
}

// List returns all registered checker names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// CheckAll runs every checker concurrently, each bounded by the registry
// timeout, and returns the per-name results.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	snapshot := make(map[string]entry, len(r.checkers))
	for name, e := range r.checkers {
		snapshot[name] = e
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]error, len(snapshot))

	g, gctx := errgroup.WithContext(ctx)
	for name, e := range snapshot {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()

			err := e.checker.HealthCheck(checkCtx)

			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Report is the readiness summary served by the API
type Report struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Ready runs all checks and reports whether every required checker passed.
// Each check is rendered as "ok" or its error message.
func (r *Registry) Ready(ctx context.Context) Report {
	results := r.CheckAll(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	report := Report{Ready: true, Checks: make(map[string]string, len(results))}
	for name, err := range results {
		if err == nil {
			report.Checks[name] = "ok"
			continue
		}
		report.Checks[name] = err.Error()
		if e, ok := r.checkers[name]; ok && e.required {
			report.Ready = false
		}
	}
	return report
}
