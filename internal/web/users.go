package web

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/i18n"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/ui"
)

type usersData struct {
	Search template.HTML
	Users  []*models.User
	SelfID string
}

// handleUsers lists accounts filtered by the search box value.
func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	loc := h.locale(r)
	s := sessionFrom(r.Context())

	filters := models.UserFilters{}
	search := ui.UserSearch{
		Value:    r.URL.Query().Get("q"),
		Locale:   loc,
		OnChange: func(v string) { filters.Search = v },
	}
	search.Change(search.Value)

	list, err := h.users.List(r.Context(), filters)
	if err != nil {
		status, msg := flashFor(err)
		h.render(w, r, status, "users", i18n.T(loc, "users.title"), msg, usersData{SelfID: s.user.ID})
		return
	}

	html, err := ui.HTML(search)
	if err != nil {
		h.fail(w, "users", err)
		return
	}

	h.render(w, r, http.StatusOK, "users", i18n.T(loc, "users.title"), "", usersData{
		Search: html,
		Users:  list,
		SelfID: s.user.ID,
	})
}

func (h *Handler) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s := sessionFrom(r.Context())
	admin := r.PostForm.Get("isAdmin") == "true"

	if _, err := h.users.SetAdmin(r.Context(), s.user.ID, chi.URLParam(r, "id"), admin); err != nil {
		status, msg := flashFor(err)
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := h.users.Delete(r.Context(), s.user.ID, chi.URLParam(r, "id")); err != nil {
		status, msg := flashFor(err)
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
