// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farmroute/farmroute/internal/api/middleware"
	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/selection"
	"github.com/farmroute/farmroute/internal/session"
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

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// FromError maps an engine error to its problem response.
// Unrecognised errors become a 500 without leaking the error text.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, Problem(middleware.GetRequestID(r.Context()), err))
}

// Problem converts an engine error into an RFC7807 problem.
func Problem(traceID string, err error) *models.Problem {
	switch {
	case errors.Is(err, routing.ErrInvalidCoordinate), errors.Is(err, geo.ErrOutOfRange):
		detail := "invalid coordinates"
		var re *routing.Error
		if errors.As(err, &re) {
			detail = re.Message
		}
		return models.NewBadRequest(traceID, detail, nil)
	case errors.Is(err, selection.ErrIndexOutOfRange):
		return models.NewIndexOutOfRange(traceID, "candidate index out of range")
	case errors.Is(err, cargo.ErrUnknownProfile):
		return models.NewBadRequest(traceID, "unknown cargo profile", []models.FieldError{
			{Field: "cargoProfile", Message: err.Error(), Code: "UNKNOWN_PROFILE"},
		})
	case errors.Is(err, catalog.ErrUnknownLocation):
		return models.NewBadRequest(traceID, err.Error(), nil)
	case errors.Is(err, selection.ErrNotComputed):
		return models.NewNotComputed(traceID, "no routes have been computed for this session")
	case errors.Is(err, session.ErrNotFound):
		return models.NewNotFound(traceID, "session not found or expired")
	case errors.Is(err, session.ErrTokenExpired):
		return models.NewUnauthorized(traceID, "session token has expired")
	case errors.Is(err, session.ErrInvalidToken):
		return models.NewUnauthorized(traceID, "invalid session token")
	case errors.Is(err, planner.ErrWeatherDisabled):
		return models.NewWeatherDisabled(traceID, "no weather provider is configured")
	default:
		return models.NewInternalError(traceID, "an unexpected error occurred")
	}
}
