// Package health exposes liveness and readiness endpoints over registered
// dependency checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker reports whether one dependency is reachable.
type Checker func(ctx context.Context) error

// Status is the health of a component or of the whole service.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
	// StatusDegraded means every critical dependency is up but at least
	// one optional one is not. Readiness still returns 200 so the
	// instance keeps taking traffic.
	StatusDegraded Status = "degraded"
)

// Response is the JSON body of both health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency's outcome.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type checkEntry struct {
	check    Checker
	critical bool
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]checkEntry
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]checkEntry)}
}

// Register adds a critical checker. Registering the same name again
// replaces the previous checker.
func (h *Handler) Register(name string, checker Checker) {
	h.RegisterCritical(name, checker)
}

// RegisterCritical adds a checker whose failure makes readiness fail.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.add(name, checker, true)
}

// RegisterNonCritical adds a checker whose failure only degrades the
// reported status.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.add(name, checker, false)
}

func (h *Handler) add(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = checkEntry{check: checker, critical: critical}
}

// LivenessHandler answers 200 whenever the process is running.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs every registered check. A critical failure yields
// 503; non-critical failures yield 200 with a degraded status.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h.mu.RLock()
		entries := make(map[string]checkEntry, len(h.checks))
		for name, entry := range h.checks {
			entries[name] = entry
		}
		h.mu.RUnlock()

		overall := StatusUp
		results := make(map[string]CheckResult, len(entries))
		for name, entry := range entries {
			result := CheckResult{Status: StatusUp, Critical: entry.critical}
			if err := entry.check(ctx); err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
				if entry.critical {
					overall = StatusDown
				} else if overall == StatusUp {
					overall = StatusDegraded
				}
			}
			results[name] = result
		}

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, Response{
			Status:    overall,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
