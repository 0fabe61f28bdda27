package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/models"
)

// Resource handlers

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ResourceFilters{
		Category:   q.Get("category"),
		Search:     q.Get("search"),
		ActiveOnly: true,
		ViewerID:   userID(r.Context()),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}
	f.Favorites, _ = strconv.ParseBool(q.Get("favorites"))

	// admins see inactive resources unless they ask otherwise
	if s.auth.privileged(r, "resources:write") {
		f.ActiveOnly = q.Get("active") == "true"
	}

	list, err := s.resources.List(r.Context(), f)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Resource{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": list,
		"count":     len(list),
	})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.resources.Get(r.Context(), id, userID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !res.IsActive && !s.auth.privileged(r, "resources:write") {
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var in models.ResourceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := s.resources.Create(r.Context(), userID(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	var in models.ResourceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := s.resources.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.resources.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}

func (s *Server) handleSetFavorite(favorite bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.resources.SetFavorite(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), favorite)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// Category handlers

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.resources.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.ResourceCategory{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": list,
		"count":      len(list),
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.resources.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.resources.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.resources.DeleteCategory(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}
