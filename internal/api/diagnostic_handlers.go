package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/models"
)

func (s *Server) handleDiagnosticCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.diagnostics.Catalog())
}

func (s *Server) handleSubmitStress(w http.ResponseWriter, r *http.Request) {
	var req models.DiagnosticSubmission
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.diagnostics.SubmitStress(r.Context(), userID(r.Context()), req.Answers)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleSubmitHolmesRahe(w http.ResponseWriter, r *http.Request) {
	var req models.DiagnosticSubmission
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.diagnostics.SubmitHolmesRahe(r.Context(), userID(r.Context()), req.Answers)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleDiagnosticHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.diagnostics.History(r.Context(), userID(r.Context()), queryInt(r, "limit", 20))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.DiagnosticResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": list,
		"count":   len(list),
	})
}

func (s *Server) handleGetDiagnostic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	admin := s.auth.privileged(r, "users:read")

	result, err := s.diagnostics.Get(r.Context(), id, userID(r.Context()), admin)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if hr, ok := result.AsHolmesRahe(); ok {
		respondJSON(w, http.StatusOK, hr)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
