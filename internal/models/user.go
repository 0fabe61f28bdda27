package models

import (
	"strings"
	"time"
)

// User is an account of the application. IsAdmin gates admin-only views.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	PassHash  []byte     `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	IsAdmin   bool       `json:"isAdmin"`
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilters narrows a user listing.
type UserFilters struct {
	Search string // matched against email and name
	Limit  int
	Offset int
}

// Matches reports whether u passes the search filter.
func (f UserFilters) Matches(u *User) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	return strings.Contains(strings.ToLower(u.Email), q) ||
		strings.Contains(strings.ToLower(u.Name), q)
}
