package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid query or path parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://ambee.breatheroute.nl/problems/"

// Problem types served by the API.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeForbidden       = problemBase + "forbidden"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
	ProblemTypeUpstream        = problemBase + "upstream-error"
	ProblemTypeUpstreamTimeout = problemBase + "upstream-timeout"
)

type problemKind struct {
	typ    string
	title  string
	status int
}

var (
	kindValidation      = problemKind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	kindUnauthorized    = problemKind{ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized}
	kindForbidden       = problemKind{ProblemTypeForbidden, "Forbidden", http.StatusForbidden}
	kindNotFound        = problemKind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	kindTooManyRequests = problemKind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	kindInternal        = problemKind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	kindUnavailable     = problemKind{ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable}
	kindUpstream        = problemKind{ProblemTypeUpstream, "Upstream error", http.StatusBadGateway}
	kindUpstreamTimeout = problemKind{ProblemTypeUpstreamTimeout, "Upstream timeout", http.StatusGatewayTimeout}
)

func (k problemKind) with(traceID, detail string) *Problem {
	return &Problem{
		Type:    k.typ,
		Title:   k.title,
		Status:  k.status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends the problem. The trace id doubles as X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest reports invalid parameters, listing each in errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := kindValidation.with(traceID, detail)
	p.Errors = errors
	return p
}

// NewUnauthorized reports a missing or rejected bearer token.
func NewUnauthorized(traceID, detail string) *Problem {
	return kindUnauthorized.with(traceID, detail)
}

// NewForbidden reports a request refused outright, such as plain HTTP when TLS is required.
func NewForbidden(traceID, detail string) *Problem {
	return kindForbidden.with(traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return kindNotFound.with(traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return kindTooManyRequests.with(traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return kindInternal.with(traceID, detail)
}

// NewServiceUnavailable is also used while an Ambee circuit is open.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return kindUnavailable.with(traceID, detail)
}

// NewBadGateway reports a failed Ambee call.
func NewBadGateway(traceID, detail string) *Problem {
	return kindUpstream.with(traceID, detail)
}

// NewGatewayTimeout reports an Ambee call that ran out of time.
func NewGatewayTimeout(traceID, detail string) *Problem {
	return kindUpstreamTimeout.with(traceID, detail)
}
