package ui

import (
	"io"
	"strconv"

	"github.com/terra-clan/wellness-hub/internal/models"
)

// Form field names shared by the field components and the pages parsing them.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldContent     = "content"
	FieldCategory    = "category"
	FieldDuration    = "duration"
	FieldActive      = "isActive"
)

// TitleField is the required single-line title input.
type TitleField struct {
	Value    string
	Locale   string
	OnChange func(value string)
}

func (f TitleField) Render(w io.Writer) error {
	return render(w, "title_field", textData{f.Value, locale(f.Locale)})
}

// Change simulates an edit of the input.
func (f TitleField) Change(raw string) {
	if f.OnChange != nil {
		f.OnChange(raw)
	}
}

// DescriptionField is a short textarea.
type DescriptionField struct {
	Value    string
	Locale   string
	OnChange func(value string)
}

func (f DescriptionField) Render(w io.Writer) error {
	return render(w, "description_field", textData{f.Value, locale(f.Locale)})
}

func (f DescriptionField) Change(raw string) {
	if f.OnChange != nil {
		f.OnChange(raw)
	}
}

// ContentField is the long body textarea.
type ContentField struct {
	Value    string
	Locale   string
	OnChange func(value string)
}

func (f ContentField) Render(w io.Writer) error {
	return render(w, "content_field", textData{f.Value, locale(f.Locale)})
}

func (f ContentField) Change(raw string) {
	if f.OnChange != nil {
		f.OnChange(raw)
	}
}

// CategoryField is a select with one option per category, keyed by name.
type CategoryField struct {
	Value      string
	Categories []*models.ResourceCategory
	Locale     string
	OnChange   func(value string)
}

func (f CategoryField) Render(w io.Writer) error {
	return render(w, "category_field", struct {
		Value      string
		Categories []*models.ResourceCategory
		Locale     string
	}{f.Value, f.Categories, locale(f.Locale)})
}

func (f CategoryField) Change(raw string) {
	if f.OnChange != nil {
		f.OnChange(raw)
	}
}

// DurationField is a numeric input bounded by the browser only. Values
// outside the range are rendered and passed on as given.
type DurationField struct {
	Value    *int
	Locale   string
	OnChange func(raw string)
}

func (f DurationField) Render(w io.Writer) error {
	value := ""
	if f.Value != nil {
		value = strconv.Itoa(*f.Value)
	}
	return render(w, "duration_field", struct {
		Value    string
		Min, Max int
		Locale   string
	}{value, models.MinResourceDuration, models.MaxResourceDuration, locale(f.Locale)})
}

func (f DurationField) Change(raw string) {
	if f.OnChange != nil {
		f.OnChange(raw)
	}
}

// ActiveToggle is the isActive switch.
type ActiveToggle struct {
	Value    bool
	Locale   string
	OnChange func(checked bool)
}

func (f ActiveToggle) Render(w io.Writer) error {
	return render(w, "active_toggle", struct {
		Value  bool
		Locale string
	}{f.Value, locale(f.Locale)})
}

// Toggle simulates a click, reporting the flipped state.
func (f ActiveToggle) Toggle() {
	if f.OnChange != nil {
		f.OnChange(!f.Value)
	}
}

// FormButtons renders Cancel and the submit button.
type FormButtons struct {
	IsEditing  bool
	Locale     string
	CancelHref string
	OnCancel   func()
}

// Label is "Update" while editing and "Create" otherwise, localized.
func (b FormButtons) Label() string {
	if b.IsEditing {
		return translate(b.Locale, "form.update")
	}
	return translate(b.Locale, "form.create")
}

func (b FormButtons) Render(w io.Writer) error {
	href := b.CancelHref
	if href == "" {
		href = "#"
	}
	return render(w, "form_buttons", struct {
		Label, CancelHref, Locale string
	}{b.Label(), href, locale(b.Locale)})
}

func (b FormButtons) Cancel() {
	if b.OnCancel != nil {
		b.OnCancel()
	}
}

type textData struct {
	Value  string
	Locale string
}
