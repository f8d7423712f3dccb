// Package handler provides HTTP handlers for the Ambee API service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/breatheroute/ambee/internal/api/models"
	"github.com/breatheroute/ambee/internal/api/response"
	"github.com/breatheroute/ambee/internal/provider/resilience"
)

// Pinger checks a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	database  Pinger
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry and database may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, database Pinger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		database:  database,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	}

	if db := h.checkDatabase(r.Context()); db != nil && db.Status != models.HealthStatusOK {
		health.Status = models.HealthStatusFail
		health.Details = map[string]any{"database": *db.Detail}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem and breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: []models.SubsystemStatus{},
		Resources:  []models.ResourceStatus{},
	}

	if db := h.checkDatabase(r.Context()); db != nil {
		status.Subsystems = append(status.Subsystems, *db)
		if db.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusFail
		}
	}

	if h.registry != nil {
		for _, health := range h.registry.AllHealth() {
			rs := resourceStatus(health)
			if rs.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Resources = append(status.Resources, rs)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkDatabase(ctx context.Context) *models.SubsystemStatus {
	if h.database == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := &models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if err := h.database.Ping(ctx); err != nil {
		detail := "database unreachable"
		status.Status = models.HealthStatusFail
		status.Detail = &detail
	}
	return status
}

func resourceStatus(h *resilience.Health) models.ResourceStatus {
	rs := models.ResourceStatus{
		Resource:      h.Name,
		Status:        models.HealthStatusOK,
		CircuitState:  h.CircuitState.String(),
		LastSuccessAt: models.TimestampPtr(h.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(h.LastFailureAt),
	}

	switch {
	case h.IsUnhealthy():
		rs.Status = models.HealthStatusFail
	case h.IsDegraded():
		rs.Status = models.HealthStatusDegraded
	}

	if h.LastError != "" {
		msg := h.LastError
		rs.Message = &msg
	}
	return rs
}
