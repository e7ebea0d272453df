package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/api/middleware"
	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/session"
)

// SessionHandler serves the operations on an existing planning session.
// The session ID comes from the token validated by middleware.Session.
type SessionHandler struct {
	planner *planner.Planner
	store   *session.Store
	log     zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(p *planner.Planner, store *session.Store, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{planner: p, store: store, log: log}
}

// withSession runs fn under the session lock and writes the mapped problem on error.
func (h *SessionHandler) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) bool {
	id := middleware.GetSessionID(r.Context())
	if err := h.store.Update(id, fn); err != nil {
		h.log.Debug().Err(err).Str("session_id", id).Str("path", r.URL.Path).Msg("session operation rejected")
		response.FromError(w, r, err)
		return false
	}
	return true
}

// Get handles GET /v1/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	var view *planner.View
	ok := h.withSession(w, r, func(s *session.Session) (err error) {
		view, err = h.planner.View(s.Plan)
		return err
	})
	if ok {
		response.JSON(w, r, http.StatusOK, toSessionView(view))
	}
}

// Select handles POST /v1/session/select.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req models.SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if req.Index == nil {
		response.BadRequest(w, r, "index is required", []models.FieldError{
			{Field: "index", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	var view *planner.View
	ok := h.withSession(w, r, func(s *session.Session) (err error) {
		view, err = h.planner.Select(s.Plan, *req.Index)
		return err
	})
	if ok {
		response.JSON(w, r, http.StatusOK, toSessionView(view))
	}
}

// SetCargo handles PUT /v1/session/cargo.
func (h *SessionHandler) SetCargo(w http.ResponseWriter, r *http.Request) {
	var req models.CargoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	profile, err := cargo.ParseProfile(req.CargoProfile)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var view *planner.View
	ok := h.withSession(w, r, func(s *session.Session) (err error) {
		view, err = h.planner.SetCargo(s.Plan, profile)
		return err
	})
	if ok {
		response.JSON(w, r, http.StatusOK, toSessionView(view))
	}
}

// CheckWeather handles POST /v1/session/weather:check.
func (h *SessionHandler) CheckWeather(w http.ResponseWriter, r *http.Request) {
	var (
		view *planner.View
		res  *risk.Result
	)
	ok := h.withSession(w, r, func(s *session.Session) (err error) {
		view, res, err = h.planner.CheckWeather(r.Context(), s.Plan)
		return err
	})
	if !ok {
		return
	}

	out := models.WeatherCheckResponse{
		Decision:      string(res.Decision),
		PreviousIndex: res.PreviousIndex,
		ActiveIndex:   res.ActiveIndex,
		Rerouted:      res.Decision == risk.DecisionReroute,
		Session:       toSessionView(view),
	}
	for _, a := range res.Considered {
		out.Considered = append(out.Considered, toAssessment(a))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// Reset handles POST /v1/session/reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ok := h.withSession(w, r, func(s *session.Session) error {
		h.planner.Reset(s.Plan)
		return nil
	})
	if ok {
		response.NoContent(w, r)
	}
}

// Delete handles DELETE /v1/session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(middleware.GetSessionID(r.Context())); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
