// Package health serves liveness and readiness endpoints for the local
// control server.
//
//   - /healthz: liveness; always 200 while the process serves HTTP.
//   - /readyz: readiness; 200 only when every registered [Checker] passes.
//
// Responses are JSON with a "status" field ("ok" or "fail") and a per-check
// "checks" map.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is usable.
type Checker struct {
	// Name labels the check in the JSON response, e.g. "storage".
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// Pinger is anything that can verify its connection, like *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StorageChecker probes the local database.
func StorageChecker(db Pinger) Checker {
	return Checker{
		Name: "storage",
		Check: func(ctx context.Context) error {
			if db == nil {
				return errors.New("database not opened")
			}
			return db.PingContext(ctx)
		},
	}
}

// ChatChecker reports whether a chat provider is configured. It does not call
// the provider; credential problems surface in the settings test flow.
func ChatChecker(configured func() bool) Checker {
	return Checker{
		Name: "chat",
		Check: func(context.Context) error {
			if !configured() {
				return errors.New("chat provider not configured")
			}
			return nil
		},
	}
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The checker list is fixed at
// construction; safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
