package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/models"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context(), models.UserFilters{
		Search: r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": list,
		"count": len(list),
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, u)
}

type setAdminRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

func (s *Server) handleSetUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req setAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.SetAdmin(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.IsAdmin)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.users.Delete(r.Context(), userID(r.Context()), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}
