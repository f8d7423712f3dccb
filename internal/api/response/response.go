// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/breatheroute/ambee/internal/api/middleware"
	"github.com/breatheroute/ambee/internal/api/models"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/pkg/ambee"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// UpstreamError writes the problem matching a failed Ambee fetch or store lookup.
//
//	timeout                          504
//	connection, auth, API and shape  502
//	open circuit                     503
//	missing reading                  404
//
// Anything else is a 500. The upstream message is never echoed to the caller.
func UpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetRequestID(r.Context())

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		Error(w, r, models.NewServiceUnavailable(traceID, "Ambee is temporarily unavailable, try again later"))
		return
	case errors.Is(err, readings.ErrNotFound):
		Error(w, r, models.NewNotFound(traceID, "no reading stored for this resource and point"))
		return
	case errors.Is(err, ambee.ErrUnexpectedShape):
		Error(w, r, models.NewBadGateway(traceID, "Ambee returned an unexpected response"))
		return
	}

	kind, ok := ambee.KindOf(err)
	if !ok {
		InternalError(w, r, "an unexpected error occurred")
		return
	}

	switch kind {
	case ambee.KindTimeout:
		Error(w, r, models.NewGatewayTimeout(traceID, "Ambee did not respond in time"))
	case ambee.KindAuthentication:
		Error(w, r, models.NewBadGateway(traceID, "Ambee rejected the configured API key"))
	case ambee.KindConnection:
		Error(w, r, models.NewBadGateway(traceID, "could not reach Ambee"))
	default:
		Error(w, r, models.NewBadGateway(traceID, "Ambee returned an error response"))
	}
}
