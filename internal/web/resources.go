package web

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/i18n"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/ui"
)

type resourcesData struct {
	Header    template.HTML
	Resources []*models.Resource
}

func (h *Handler) handleResources(w http.ResponseWriter, r *http.Request) {
	loc := h.locale(r)
	s := sessionFrom(r.Context())

	list, err := h.resources.List(r.Context(), models.ResourceFilters{ViewerID: s.user.ID})
	if err != nil {
		status, msg := flashFor(err)
		h.render(w, r, status, "resources", i18n.T(loc, "resources.title"), msg, resourcesData{})
		return
	}

	header, err := ui.HTML(ui.ResourceHeader{
		Title:    i18n.T(loc, "resources.title"),
		Subtitle: i18n.T(loc, "resources.subtitle"),
		Locale:   loc,
		AddHref:  "/admin/resources/new",
	})
	if err != nil {
		h.fail(w, "resources", err)
		return
	}

	h.render(w, r, http.StatusOK, "resources", i18n.T(loc, "resources.title"), "", resourcesData{
		Header:    header,
		Resources: list,
	})
}

// resourceForm owns the edit state; the field components write into it
// through their change callbacks.
type resourceForm struct {
	input       models.ResourceInput
	durationRaw string
}

func newResourceForm(r *models.Resource) *resourceForm {
	f := &resourceForm{}
	if r != nil {
		f.input = models.ResourceInput{
			Title:       r.Title,
			Description: r.Description,
			Content:     r.Content,
			Category:    r.Category,
			Duration:    r.Duration,
			IsActive:    r.IsActive,
		}
		if r.Duration != nil {
			f.durationRaw = strconv.Itoa(*r.Duration)
		}
	}
	return f
}

func (f *resourceForm) title(loc string) ui.TitleField {
	return ui.TitleField{Value: f.input.Title, Locale: loc, OnChange: func(v string) { f.input.Title = v }}
}

func (f *resourceForm) description(loc string) ui.DescriptionField {
	return ui.DescriptionField{Value: f.input.Description, Locale: loc, OnChange: func(v string) { f.input.Description = v }}
}

func (f *resourceForm) content(loc string) ui.ContentField {
	return ui.ContentField{Value: f.input.Content, Locale: loc, OnChange: func(v string) { f.input.Content = v }}
}

func (f *resourceForm) category(loc string, cats []*models.ResourceCategory) ui.CategoryField {
	return ui.CategoryField{Value: f.input.Category, Categories: cats, Locale: loc, OnChange: func(v string) { f.input.Category = v }}
}

func (f *resourceForm) duration(loc string) ui.DurationField {
	return ui.DurationField{Value: f.input.Duration, Locale: loc, OnChange: func(raw string) { f.durationRaw = raw }}
}

func (f *resourceForm) active(loc string) ui.ActiveToggle {
	return ui.ActiveToggle{Value: f.input.IsActive, Locale: loc, OnChange: func(v bool) { f.input.IsActive = v }}
}

// apply replays a submitted form as edits of each field.
func (f *resourceForm) apply(form url.Values, loc string) error {
	f.title(loc).Change(form.Get(ui.FieldTitle))
	f.description(loc).Change(form.Get(ui.FieldDescription))
	f.content(loc).Change(form.Get(ui.FieldContent))
	f.category(loc, nil).Change(form.Get(ui.FieldCategory))
	f.duration(loc).Change(form.Get(ui.FieldDuration))

	// unchecked boxes are not submitted
	if checked := form.Get(ui.FieldActive) == "true"; checked != f.input.IsActive {
		f.active(loc).Toggle()
	}

	raw := strings.TrimSpace(f.durationRaw)
	if raw == "" {
		f.input.Duration = nil
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return services.NewInvalidError("duration must be a whole number of minutes")
	}
	f.input.Duration = &n
	return nil
}

type resourceFormData struct {
	Action  string
	Fields  []template.HTML
	Buttons template.HTML
}

func (h *Handler) renderResourceForm(w http.ResponseWriter, r *http.Request, status int, f *resourceForm, id, flash string) {
	loc := h.locale(r)
	cats, err := h.resources.ListCategories(r.Context())
	if err != nil {
		h.fail(w, "resource_form", err)
		return
	}

	editing := id != ""
	title, action := i18n.T(loc, "resources.new"), "/admin/resources/new"
	if editing {
		title, action = i18n.T(loc, "resources.edit"), "/admin/resources/"+id+"/edit"
	}

	components := []ui.Component{
		f.title(loc),
		f.description(loc),
		f.content(loc),
		f.category(loc, cats),
		f.duration(loc),
		f.active(loc),
	}
	data := resourceFormData{Action: action}
	for _, c := range components {
		html, err := ui.HTML(c)
		if err != nil {
			h.fail(w, "resource_form", err)
			return
		}
		data.Fields = append(data.Fields, html)
	}
	if data.Buttons, err = ui.HTML(ui.FormButtons{IsEditing: editing, Locale: loc, CancelHref: "/admin/resources"}); err != nil {
		h.fail(w, "resource_form", err)
		return
	}

	h.render(w, r, status, "resource_form", title, flash, data)
}

func (h *Handler) handleNewResource(w http.ResponseWriter, r *http.Request) {
	f := newResourceForm(nil)
	f.input.IsActive = true
	h.renderResourceForm(w, r, http.StatusOK, f, "", "")
}

func (h *Handler) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseResourceForm(w, r, "")
	if !ok {
		return
	}

	s := sessionFrom(r.Context())
	if _, err := h.resources.Create(r.Context(), s.user.ID, f.input); err != nil {
		status, msg := flashFor(err)
		h.renderResourceForm(w, r, status, f, "", msg)
		return
	}
	http.Redirect(w, r, "/admin/resources", http.StatusSeeOther)
}

func (h *Handler) handleEditResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.resources.Get(r.Context(), id, "")
	if err != nil {
		status, msg := flashFor(err)
		http.Error(w, msg, status)
		return
	}
	h.renderResourceForm(w, r, http.StatusOK, newResourceForm(res), id, "")
}

func (h *Handler) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := h.parseResourceForm(w, r, id)
	if !ok {
		return
	}

	if _, err := h.resources.Update(r.Context(), id, f.input); err != nil {
		status, msg := flashFor(err)
		h.renderResourceForm(w, r, status, f, id, msg)
		return
	}
	http.Redirect(w, r, "/admin/resources", http.StatusSeeOther)
}

func (h *Handler) parseResourceForm(w http.ResponseWriter, r *http.Request, id string) (*resourceForm, bool) {
	f := newResourceForm(nil)
	if err := r.ParseForm(); err != nil {
		h.renderResourceForm(w, r, http.StatusBadRequest, f, id, "invalid form")
		return nil, false
	}
	if err := f.apply(r.PostForm, h.locale(r)); err != nil {
		_, msg := flashFor(err)
		h.renderResourceForm(w, r, http.StatusBadRequest, f, id, msg)
		return nil, false
	}
	return f, true
}

func (h *Handler) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		status, msg := flashFor(err)
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/admin/resources", http.StatusSeeOther)
}
