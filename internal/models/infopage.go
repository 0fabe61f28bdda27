package models

import (
	"regexp"
	"sort"
	"time"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase dash-separated slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// InfoPage is a simple CMS page made of ordered sections.
type InfoPage struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Sections    []*Section `json:"sections"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Section is one block of an InfoPage.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// SortSections orders sections by Order, then ID.
func (p *InfoPage) SortSections() {
	sort.SliceStable(p.Sections, func(i, j int) bool {
		a, b := p.Sections[i], p.Sections[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
}

// InfoPageInput is the editable subset of an InfoPage.
type InfoPageInput struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Sections    []*Section `json:"sections"`
	IsPublished bool       `json:"isPublished"`
}
