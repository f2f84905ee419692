// Package health runs dependency checks concurrently and serves liveness and
// readiness endpoints. Optional dependencies (cache, analytics broker) can
// only degrade the service; a failing required one takes it down.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type registration struct {
	check    Check
	optional bool
}

type Checker struct {
	mu     sync.RWMutex
	checks map[string]registration
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]registration),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a required check.
func (c *Checker) Register(name string, check Check) {
	c.register(name, check, false)
}

// RegisterOptional adds a check whose failure only degrades the report.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check Check, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registration{check: check, optional: optional}
}

// PingCheck adapts a ping function into a Check.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Run executes every check in parallel. The overall status is the worst
// component status, with optional failures counted as degraded.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for name, reg := range c.checks {
		checks[name] = reg
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, reg := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			result := reg.check(ctx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			result.Optional = reg.optional
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for name, comp := range report.Components {
		if comp.Status == StatusUp {
			continue
		}
		c.logger.Warn("component unhealthy", "name", name, "status", comp.Status, "message", comp.Message)
		switch {
		case comp.Status == StatusDown && !comp.Optional:
			report.Status = StatusDown
		case report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 200 while the service can serve queries (up or
// degraded) and 503 once a required dependency is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
