package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/wellness-hub/internal/models"
)

// MemoryRepository implements Repository in process memory. It backs the
// "memory" database driver and the service tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	resources   map[string]*models.Resource
	favorites   map[string]map[string]bool // userID -> resourceID
	categories  map[string]*models.ResourceCategory
	users       map[string]*models.User
	diagnostics map[string]*models.DiagnosticResult
	pages       map[string]*models.InfoPage
	clients     map[string]*models.ApiClient // by api key
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		resources:   make(map[string]*models.Resource),
		favorites:   make(map[string]map[string]bool),
		categories:  make(map[string]*models.ResourceCategory),
		users:       make(map[string]*models.User),
		diagnostics: make(map[string]*models.DiagnosticResult),
		pages:       make(map[string]*models.InfoPage),
		clients:     make(map[string]*models.ApiClient),
	}
}

var _ Repository = (*MemoryRepository)(nil)

// Resources

func (m *MemoryRepository) CreateResource(ctx context.Context, r *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[r.ID]; ok {
		return ErrConflict
	}
	m.resources[r.ID] = copyResource(r)
	return nil
}

func (m *MemoryRepository) GetResource(ctx context.Context, id, viewerID string) (*models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, nil
	}
	out := copyResource(r)
	out.IsFavorite = viewerID != "" && m.favorites[viewerID][id]
	return out, nil
}

func (m *MemoryRepository) UpdateResource(ctx context.Context, r *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[r.ID]; !ok {
		return ErrNotFound
	}
	m.resources[r.ID] = copyResource(r)
	return nil
}

func (m *MemoryRepository) DeleteResource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return ErrNotFound
	}
	delete(m.resources, id)
	for _, favs := range m.favorites {
		delete(favs, id)
	}
	return nil
}

func (m *MemoryRepository) ListResources(ctx context.Context, f models.ResourceFilters) ([]*models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Resource, 0, len(m.resources))
	for id, r := range m.resources {
		if !f.Matches(r) {
			continue
		}
		fav := f.ViewerID != "" && m.favorites[f.ViewerID][id]
		if f.Favorites && !fav {
			continue
		}
		c := copyResource(r)
		c.IsFavorite = fav
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (m *MemoryRepository) CountResourcesByCategory(ctx context.Context, category string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.resources {
		if strings.EqualFold(r.Category, category) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) SetFavorite(ctx context.Context, userID, resourceID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[resourceID]; !ok {
		return ErrNotFound
	}
	if favorite {
		if m.favorites[userID] == nil {
			m.favorites[userID] = make(map[string]bool)
		}
		m.favorites[userID][resourceID] = true
		return nil
	}
	delete(m.favorites[userID], resourceID)
	return nil
}

// Categories

func (m *MemoryRepository) CreateCategory(ctx context.Context, c *models.ResourceCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return ErrConflict
		}
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetCategory(ctx context.Context, id string) (*models.ResourceCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) GetCategoryByName(ctx context.Context, name string) (*models.ResourceCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) UpdateCategory(ctx context.Context, c *models.ResourceCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.categories {
		if id != c.ID && strings.EqualFold(existing.Name, c.Name) {
			return ErrConflict
		}
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryRepository) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *MemoryRepository) ListCategories(ctx context.Context) ([]*models.ResourceCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ResourceCategory, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Users

func (m *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (m *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrConflict
		}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *MemoryRepository) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.favorites, id)
	for did, d := range m.diagnostics {
		if d.UserID == id {
			delete(m.diagnostics, did)
		}
	}
	return nil
}

func (m *MemoryRepository) ListUsers(ctx context.Context, f models.UserFilters) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		if f.Matches(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, f.Limit, f.Offset), nil
}

func (m *MemoryRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}

// Diagnostics

func (m *MemoryRepository) CreateDiagnostic(ctx context.Context, d *models.DiagnosticResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnostics[d.ID] = copyDiagnostic(d)
	return nil
}

func (m *MemoryRepository) GetDiagnostic(ctx context.Context, id string) (*models.DiagnosticResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.diagnostics[id]
	if !ok {
		return nil, nil
	}
	return copyDiagnostic(d), nil
}

func (m *MemoryRepository) ListDiagnosticsByUser(ctx context.Context, userID string, limit int) ([]*models.DiagnosticResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.DiagnosticResult{}
	for _, d := range m.diagnostics {
		if d.UserID == userID {
			out = append(out, copyDiagnostic(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return page(out, limit, 0), nil
}

func (m *MemoryRepository) DeleteDiagnosticsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, d := range m.diagnostics {
		if d.Date.Before(cutoff) {
			delete(m.diagnostics, id)
			removed++
		}
	}
	return removed, nil
}

// Info pages

func (m *MemoryRepository) CreatePage(ctx context.Context, p *models.InfoPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.pages {
		if existing.Slug == p.Slug {
			return ErrConflict
		}
	}
	m.pages[p.ID] = copyPage(p)
	return nil
}

func (m *MemoryRepository) GetPage(ctx context.Context, id string) (*models.InfoPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, nil
	}
	return copyPage(p), nil
}

func (m *MemoryRepository) GetPageBySlug(ctx context.Context, slug string) (*models.InfoPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pages {
		if p.Slug == slug {
			return copyPage(p), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) UpdatePage(ctx context.Context, p *models.InfoPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[p.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.pages {
		if id != p.ID && existing.Slug == p.Slug {
			return ErrConflict
		}
	}
	m.pages[p.ID] = copyPage(p)
	return nil
}

func (m *MemoryRepository) DeletePage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

func (m *MemoryRepository) ListPages(ctx context.Context, publishedOnly bool) ([]*models.InfoPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.InfoPage, 0, len(m.pages))
	for _, p := range m.pages {
		if publishedOnly && !p.IsPublished {
			continue
		}
		out = append(out, copyPage(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// API clients

func (m *MemoryRepository) UpsertClient(ctx context.Context, c *models.ApiClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Permissions = append([]string(nil), c.Permissions...)
	for key, existing := range m.clients {
		if existing.ID == c.ID {
			delete(m.clients, key)
		}
	}
	m.clients[c.ApiKey] = &cp
	return nil
}

func (m *MemoryRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Permissions = append([]string(nil), c.Permissions...)
	return &cp, nil
}

func (m *MemoryRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[apiKey]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	c.LastUsedAt = &now
	return nil
}

// Health

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }

// copy helpers

func copyResource(r *models.Resource) *models.Resource {
	cp := *r
	if r.Duration != nil {
		d := *r.Duration
		cp.Duration = &d
	}
	return &cp
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.PassHash = append([]byte(nil), u.PassHash...)
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}

func copyDiagnostic(d *models.DiagnosticResult) *models.DiagnosticResult {
	cp := *d
	cp.Answers = append(models.Answers(nil), d.Answers...)
	if d.StressScore != nil {
		s := *d.StressScore
		cp.StressScore = &s
	}
	return &cp
}

func copyPage(p *models.InfoPage) *models.InfoPage {
	cp := *p
	cp.Sections = make([]*models.Section, 0, len(p.Sections))
	for _, s := range p.Sections {
		sc := *s
		cp.Sections = append(cp.Sections, &sc)
	}
	return &cp
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
