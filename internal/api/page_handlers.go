package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/models"
)

// Pages are addressed by id or slug.

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	drafts := r.URL.Query().Get("drafts") == "true" && s.auth.privileged(r, "pages:write")

	list, err := s.pages.List(r.Context(), drafts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.InfoPage{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pages": list,
		"count": len(list),
	})
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	drafts := s.auth.privileged(r, "pages:write")

	p, err := s.pages.Get(r.Context(), chi.URLParam(r, "ref"), drafts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in models.InfoPageInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := s.pages.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var in models.InfoPageInput
	if !decodeJSON(w, r, &in) {
		return
	}

	existing, err := s.pages.Get(r.Context(), chi.URLParam(r, "ref"), true)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	p, err := s.pages.Update(r.Context(), existing.ID, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	existing, err := s.pages.Get(r.Context(), chi.URLParam(r, "ref"), true)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.pages.Delete(r.Context(), existing.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     existing.ID,
	})
}

func (s *Server) handlePublishPage(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, err := s.pages.Get(r.Context(), chi.URLParam(r, "ref"), true)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		p, err := s.pages.SetPublished(r.Context(), existing.ID, published)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}
}
