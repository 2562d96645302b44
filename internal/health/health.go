package health

import (
	"sort"
	"sync"
	"time"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "ok", "degraded", "error", "unknown"
	Message   string    `json:"message,omitempty"`
	LastOK    time.Time `json:"last_ok,omitempty"`
	LastError time.Time `json:"last_error,omitempty"`
}

// Report aggregates health from all components.
type Report struct {
	Timestamp  time.Time                  `json:"timestamp"`
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// Checker is implemented by components that can report their health.
type Checker interface {
	HealthCheck() ComponentHealth
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() ComponentHealth

func (f CheckerFunc) HealthCheck() ComponentHealth { return f() }

// Registry holds health checkers for all components.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates a new health registry.
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds a component health checker.
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checkers))
	for n := range r.checkers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs all health checks and returns a report. The overall status is
// "error" if any component errors, else "degraded" if any is degraded, else "ok".
func (r *Registry) Check() Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := Report{
		Timestamp:  time.Now(),
		Status:     "ok",
		Components: make(map[string]ComponentHealth, len(r.checkers)),
	}
	for name, checker := range r.checkers {
		report.Components[name] = checker.HealthCheck()
	}
	for _, c := range report.Components {
		if c.Status == "error" {
			report.Status = "error"
			return report
		}
	}
	for _, c := range report.Components {
		if c.Status == "degraded" {
			report.Status = "degraded"
		}
	}
	return report
}

// Tracker records the outcome of calls to an upstream service.
type Tracker struct {
	name string
	now  func() time.Time

	mu           sync.RWMutex
	lastSuccess  time.Time
	lastError    time.Time
	lastErrorMsg string
	successCount int64
	errorCount   int64
}

// NewTracker returns a tracker reporting under name.
func NewTracker(name string) *Tracker {
	return &Tracker{name: name, now: time.Now}
}

// Record records success when err is nil and failure otherwise.
func (t *Tracker) Record(err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		t.lastSuccess = t.now()
		t.successCount++
		return
	}
	t.lastError = t.now()
	t.lastErrorMsg = err.Error()
	t.errorCount++
}

// Counts returns the number of recorded successes and errors.
func (t *Tracker) Counts() (success, failure int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.successCount, t.errorCount
}

// HealthCheck derives a status from the most recent outcomes.
func (t *Tracker) HealthCheck() ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := ComponentHealth{
		Name:   t.name,
		Status: "ok",
		LastOK: t.lastSuccess,
	}

	if !t.lastError.IsZero() {
		// If last error is more recent than last success, we're in trouble
		if t.lastError.After(t.lastSuccess) {
			h.Status = "error"
			h.Message = t.lastErrorMsg
			h.LastError = t.lastError
		} else if t.now().Sub(t.lastError) < 5*time.Minute {
			h.Status = "degraded"
			h.Message = "recent error: " + t.lastErrorMsg
			h.LastError = t.lastError
		}
	}

	if t.lastSuccess.IsZero() && t.lastError.IsZero() {
		h.Status = "unknown"
		h.Message = "no calls yet"
	}

	return h
}
