package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []dependencyCheck
}

type dependencyCheck struct {
	name string
	// disabled is reported when ping is nil; it never fails readiness.
	disabled string
	ping     func(context.Context) error
}

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewHealthHandler builds probes for the configured backends. A nil
// postgres pool means the in-memory store is active; a nil redis means
// rate limiting is off.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	pg := dependencyCheck{name: "postgres", disabled: "in-memory store"}
	if postgres.PoolHandle() != nil {
		pg.ping = postgres.Ping
	}
	rd := dependencyCheck{name: "redis", disabled: "rate limiting off"}
	if redis != nil {
		rd.ping = redis.Ping
	}
	return &HealthHandler{serviceName: serviceName, version: version, checks: []dependencyCheck{pg, rd}}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every enabled backend and fails when any of them is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.checks))
	ready := true
	for _, check := range h.checks {
		if check.ping == nil {
			deps[check.name] = dependencyStatus{Status: "disabled", Error: check.disabled}
			continue
		}
		started := time.Now()
		err := check.ping(ctx)
		st := dependencyStatus{Status: "ok", LatencyMS: time.Since(started).Milliseconds()}
		if err != nil {
			st.Status = "down"
			st.Error = err.Error()
			ready = false
		}
		deps[check.name] = st
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": deps,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": deps,
		},
	})
}
