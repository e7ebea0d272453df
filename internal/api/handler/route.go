// Package handler provides HTTP handlers for the farm-to-market route API.
package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/session"
)

// RouteHandler starts planning sessions.
type RouteHandler struct {
	planner *planner.Planner
	store   *session.Store
	tokens  *session.Tokens
	catalog *catalog.Catalog
	log     zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(p *planner.Planner, store *session.Store, tokens *session.Tokens, cat *catalog.Catalog, log zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		planner: p,
		store:   store,
		tokens:  tokens,
		catalog: cat,
		log:     log,
	}
}

// Compute handles POST /v1/routes:compute.
// It creates a session, computes ranked candidates and returns a token addressing the session.
func (h *RouteHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req models.RouteComputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	origin, destination, fieldErrs := h.resolveEndpoints(req)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid route endpoints", fieldErrs)
		return
	}

	var profile cargo.Profile
	if req.CargoProfile != "" {
		p, err := cargo.ParseProfile(req.CargoProfile)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		profile = p
	}

	sess := h.store.Create(h.planner.NewSession())

	var view *planner.View
	err := h.store.Update(sess.ID, func(s *session.Session) error {
		v, err := h.planner.Compute(r.Context(), s.Plan, planner.ComputeRequest{
			Origin:      origin,
			Destination: destination,
			Profile:     profile,
		})
		view = v
		return err
	})
	if err != nil {
		_ = h.store.Delete(sess.ID)
		h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("route compute failed")
		response.FromError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(sess.ID)
	if err != nil {
		_ = h.store.Delete(sess.ID)
		h.log.Error().Err(err).Str("session_id", sess.ID).Msg("failed to issue session token")
		response.InternalError(w, r, "failed to issue session token")
		return
	}

	response.JSON(w, r, http.StatusCreated, models.RouteComputeResponse{
		SessionID:    sess.ID,
		SessionToken: token,
		ExpiresAt:    models.Timestamp(expiresAt),
		Session:      toSessionView(view),
	})
}

// resolveEndpoints accepts each endpoint as a coordinate or a catalog name, not both.
func (h *RouteHandler) resolveEndpoints(req models.RouteComputeRequest) (origin, destination geo.Coordinate, errs []models.FieldError) {
	var err *models.FieldError
	origin, err = h.resolve("origin", req.Origin, req.OriginName)
	if err != nil {
		errs = append(errs, *err)
	}
	destination, err = h.resolve("destination", req.Destination, req.DestinationName)
	if err != nil {
		errs = append(errs, *err)
	}
	return origin, destination, errs
}

func (h *RouteHandler) resolve(field string, point *models.Point, name string) (geo.Coordinate, *models.FieldError) {
	switch {
	case point != nil && name != "":
		return geo.Coordinate{}, &models.FieldError{
			Field:   field,
			Message: "give either " + field + " or " + field + "Name, not both",
			Code:    "AMBIGUOUS",
		}
	case point != nil:
		c := toCoordinate(*point)
		if err := c.Validate(); err != nil {
			return geo.Coordinate{}, &models.FieldError{Field: field, Message: err.Error(), Code: "OUT_OF_RANGE"}
		}
		return c, nil
	case name != "":
		loc, err := h.catalog.Lookup(name)
		if err != nil {
			return geo.Coordinate{}, &models.FieldError{Field: field + "Name", Message: err.Error(), Code: "UNKNOWN_LOCATION"}
		}
		return loc.Point, nil
	default:
		return geo.Coordinate{}, &models.FieldError{Field: field, Message: field + " or " + field + "Name is required", Code: "REQUIRED"}
	}
}
