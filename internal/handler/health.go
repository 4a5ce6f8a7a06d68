package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/segyhp/lending-engine/pkg/response"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// OptionalCheck marks a dependency whose failure is reported but does not make
// the service unready.
type OptionalCheck struct {
	Name  string
	Check HealthCheck
}

type HealthHandler struct {
	timeout  time.Duration
	required map[string]HealthCheck
	optional []OptionalCheck
}

func NewHealthHandler(timeout time.Duration, required map[string]HealthCheck, optional ...OptionalCheck) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		timeout:  timeout,
		required: required,
		optional: optional,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    map[string]string{},
	})
}

// Ready runs every check under the configured timeout.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	names := make([]string, 0, len(h.required))
	for name := range h.required {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.run(r.Context(), h.required[name]); err != nil {
			status.Status = "error"
			status.Checks[name] = "failed: " + err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	for _, oc := range h.optional {
		if err := h.run(r.Context(), oc.Check); err != nil {
			status.Checks[oc.Name] = "degraded: " + err.Error()
			continue
		}
		status.Checks[oc.Name] = "ok"
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}

func (h *HealthHandler) run(ctx context.Context, check HealthCheck) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return check(ctx)
}
