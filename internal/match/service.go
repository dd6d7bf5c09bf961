package match

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service exposes the match app over HTTP. Every response is the
// {ok, data?, error?} envelope; rejection text goes out verbatim so clients
// can surface it unchanged.
type Service struct {
	app *App
}

// NewService creates the match HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the match resource routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matches", s.handleOpenMatch)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetTally)
	mux.HandleFunc("POST /api/matches/{id}/events", s.handleRecordEvent)
	mux.HandleFunc("POST /api/matches/{id}/close", s.handleCloseMatch)
}

func (s *Service) handleOpenMatch(w http.ResponseWriter, r *http.Request) {
	var req OpenMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := s.app.OpenMatch(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeOK(w, match)
}

func (s *Service) handleGetTally(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := s.app.GetTally(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeOK(w, match)
}

func (s *Service) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := s.app.RecordEvent(r.Context(), id, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeOK(w, match)
}

func (s *Service) handleCloseMatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := s.app.CloseMatch(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeOK(w, match)
}

type responseEnvelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(responseEnvelope{OK: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(responseEnvelope{OK: false, Error: msg}); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}

// writeAppError maps domain errors onto HTTP statuses. Anything
// unrecognized is a 500 with the error text.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMatchClosed), errors.Is(err, ErrMatchAlreadyOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
