package models

import (
	"strings"
	"time"
)

// Duration bounds (minutes) accepted for a resource.
const (
	MinResourceDuration = 1
	MaxResourceDuration = 120
)

// Resource is an admin-curated well-being article or activity.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Category    string    `json:"category"` // category name, not an id
	Duration    *int      `json:"duration,omitempty"`
	IsFavorite  bool      `json:"isFavorite,omitempty"`
	IsActive    bool      `json:"isActive"`
	UserID      string    `json:"userId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ResourceCategory groups resources. Resources reference it by Name.
type ResourceCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ResourceInput is the editable subset of a Resource.
type ResourceInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	Category    string `json:"category"`
	Duration    *int   `json:"duration,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Normalize trims whitespace from the text fields.
func (in *ResourceInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
}

// ResourceFilters narrows a resource listing.
type ResourceFilters struct {
	Category   string
	Search     string
	ActiveOnly bool
	ViewerID   string // marks IsFavorite for this user
	Favorites  bool   // only the viewer's favorites
	Limit      int
	Offset     int
}

// Matches reports whether r passes the filters, ignoring paging and favorites.
func (f ResourceFilters) Matches(r *Resource) bool {
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			return false
		}
	}
	return true
}
