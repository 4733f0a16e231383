// Package server exposes the application operations over JSON HTTP. Handlers
// decode, call a service and encode; they hold no business rules of their
// own.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"clan-tracker/internal/commands"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/service"
)

type Server struct {
	points      *service.PointsService
	spreadsheet *service.SpreadsheetService
	temple      *service.TempleService
	activity    *service.ActivityService
	tracker     ActivityTracker
	registry    *commands.Registry
	logger      zerolog.Logger
}

// ActivityTracker is the message-activity collaborator the track endpoint
// writes through.
type ActivityTracker interface {
	Track(ctx context.Context, guildID, discordID string) error
}

func New(
	points *service.PointsService,
	spreadsheet *service.SpreadsheetService,
	temple *service.TempleService,
	activity *service.ActivityService,
	tracker ActivityTracker,
	registry *commands.Registry,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		points:      points,
		spreadsheet: spreadsheet,
		temple:      temple,
		activity:    activity,
		tracker:     tracker,
		registry:    registry,
		logger:      logger,
	}
	s.registerCommands()
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1/guilds/{guildID}", func(r chi.Router) {
		r.Route("/points", func(r chi.Router) {
			r.Post("/modify", s.handleModify)
			r.Post("/daily", s.handleDaily)
			r.Post("/undo", s.handleUndo)
			r.Get("/balance/{discordID}", s.handleBalance)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/history/{discordID}", s.handleHistory)
			r.Get("/audit", s.handleAudit)
		})

		r.Route("/spreadsheet", func(r chi.Router) {
			r.Post("/validate", s.handleValidate)
			r.Post("/populate", s.handlePopulate)
		})

		r.Route("/temple/competitions/{competitionID}", func(r chi.Router) {
			r.Get("/preview", s.handleTemplePreview)
			r.Post("/award", s.handleTempleAward)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Get("/inactive", s.handleInactive)
			r.Post("/track", s.handleTrack)
		})

		r.Post("/commands/{name}", s.handleDispatch)
		r.Put("/commands-enabled", s.handleSetCommandsEnabled)
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP: expected user errors carry
// their message at 400, suppressed commands end with an empty 204, and
// anything else is a generic 500. Internal detail never leaves the process.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, commands.ErrSilent) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var userErr *domain.UserError
	if errors.As(err, &userErr) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: userErr.Error()})
		return
	}

	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryTime(r *http.Request, key string, fallback time.Time) time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fallback
	}
	return t
}
