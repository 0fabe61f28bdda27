package ui

import (
	"io"

	"github.com/terra-clan/wellness-hub/internal/i18n"
)

func translate(l, key string) string {
	return i18n.T(locale(l), key)
}

// Logo links to the home route.
type Logo struct {
	Locale string
}

func (l Logo) Render(w io.Writer) error {
	return render(w, "logo", struct{ Href, Locale string }{"/", locale(l.Locale)})
}

// NavItem is one desktop navigation link.
type NavItem struct {
	Title string
	Path  string
}

// DesktopNavigation highlights the item whose path equals CurrentPath exactly.
type DesktopNavigation struct {
	Items       []NavItem
	CurrentPath string
}

func (n DesktopNavigation) IsActive(item NavItem) bool {
	return item.Path == n.CurrentPath
}

func (n DesktopNavigation) Render(w io.Writer) error {
	type link struct {
		Title, Path string
		Active      bool
	}
	links := make([]link, 0, len(n.Items))
	for _, it := range n.Items {
		links = append(links, link{it.Title, it.Path, n.IsActive(it)})
	}
	return render(w, "desktop_navigation", struct{ Links []link }{links})
}

// ResourceHeader is the resource list heading with its add button.
type ResourceHeader struct {
	Title         string
	Subtitle      string
	Locale        string
	AddHref       string
	OnAddResource func()
}

func (h ResourceHeader) Render(w io.Writer) error {
	href := h.AddHref
	if href == "" {
		href = "#"
	}
	return render(w, "resource_header", struct {
		Title, Subtitle, AddHref, Locale string
	}{h.Title, h.Subtitle, href, locale(h.Locale)})
}

// Add simulates a click on the add button.
func (h ResourceHeader) Add() {
	if h.OnAddResource != nil {
		h.OnAddResource()
	}
}

// UserSearch is the controlled search box above the user list.
type UserSearch struct {
	Value    string
	Locale   string
	OnChange func(value string)
}

func (s UserSearch) Render(w io.Writer) error {
	return render(w, "user_search", textData{s.Value, locale(s.Locale)})
}

func (s UserSearch) Change(raw string) {
	if s.OnChange != nil {
		s.OnChange(raw)
	}
}
