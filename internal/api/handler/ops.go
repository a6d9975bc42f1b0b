// Package handler provides HTTP handlers for the FieldRoute API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
)

// DependencyCheck probes one backing dependency for readiness.
type DependencyCheck func(ctx context.Context) error

// ProviderProbe reports the current health of an external provider,
// typically from its circuit breaker state.
type ProviderProbe func() models.HealthStatus

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]DependencyCheck
	providers map[string]ProviderProbe
}

// NewOpsHandler creates a new OpsHandler. The checks map keys name the
// subsystems reported by readiness and status endpoints; the providers
// map keys name external providers reported by the status endpoint.
func NewOpsHandler(version, buildTime string, checks map[string]DependencyCheck, providers map[string]ProviderProbe) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
		providers: providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Fails when
// any backing dependency is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	details := make(map[string]interface{})
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			health.Status = models.HealthStatusFail
			details[name] = err.Error()
		}
	}
	if len(details) > 0 {
		health.Details = details
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
	}

	for name, check := range h.checks {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(ctx); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	for name, probe := range h.providers {
		providerStatus := probe()
		status.Providers = append(status.Providers, models.ProviderStatus{
			Provider: name,
			Status:   providerStatus,
		})
		if providerStatus != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}
