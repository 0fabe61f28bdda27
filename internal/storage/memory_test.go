package storage

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/terra-clan/wellness-hub/internal/models"
)

func intPtr(v int) *int { return &v }

func TestMemoryResourcesAndFavorites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	for i, title := range []string{"Respiration carrée", "Sommeil profond", "Marche consciente"} {
		r := &models.Resource{
			ID:        string(rune('a' + i)),
			Title:     title,
			Category:  "Sleep",
			Duration:  intPtr(10),
			IsActive:  i != 2,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateResource(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := repo.CreateResource(ctx, &models.Resource{ID: "a"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	list, _ := repo.ListResources(ctx, models.ResourceFilters{ActiveOnly: true})
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("unexpected active list: %+v", list)
	}

	if err := repo.SetFavorite(ctx, "u1", "a", true); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if err := repo.SetFavorite(ctx, "u1", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	favs, _ := repo.ListResources(ctx, models.ResourceFilters{ViewerID: "u1", Favorites: true})
	if len(favs) != 1 || !favs[0].IsFavorite {
		t.Fatalf("unexpected favorites: %+v", favs)
	}

	got, _ := repo.GetResource(ctx, "a", "u2")
	if got.IsFavorite {
		t.Fatalf("favorite leaked to another viewer")
	}

	// returned values are copies
	*got.Duration = 99
	again, _ := repo.GetResource(ctx, "a", "")
	if *again.Duration != 10 {
		t.Fatalf("repository state mutated through returned copy")
	}

	n, _ := repo.CountResourcesByCategory(ctx, "sleep")
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	paged, _ := repo.ListResources(ctx, models.ResourceFilters{Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].ID != "b" {
		t.Fatalf("unexpected page: %+v", paged)
	}
}

func TestMemoryUsersAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u := &models.User{ID: "u1", Email: "ana@example.com", CreatedAt: time.Now()}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := repo.CreateUser(ctx, &models.User{ID: "u2", Email: "ana@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email must conflict, got %v", err)
	}

	got, _ := repo.GetUserByEmail(ctx, "  ANA@example.com ")
	if got == nil || got.ID != "u1" {
		t.Fatalf("lookup by email failed: %+v", got)
	}

	at := time.Now().UTC()
	if err := repo.TouchLastLogin(ctx, "u1", at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _ = repo.GetUserByID(ctx, "u1")
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("last login not recorded")
	}

	old := &models.DiagnosticResult{ID: "d1", UserID: "u1", Kind: models.KindStress, Date: at.Add(-48 * time.Hour)}
	recent := &models.DiagnosticResult{ID: "d2", UserID: "u1", Kind: models.KindStress, Date: at}
	_ = repo.CreateDiagnostic(ctx, old)
	_ = repo.CreateDiagnostic(ctx, recent)

	history, _ := repo.ListDiagnosticsByUser(ctx, "u1", 0)
	if len(history) != 2 || history[0].ID != "d2" {
		t.Fatalf("history must be newest first: %+v", history)
	}

	removed, _ := repo.DeleteDiagnosticsBefore(ctx, at.Add(-time.Hour))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if err := repo.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if d, _ := repo.GetDiagnostic(ctx, "d2"); d != nil {
		t.Fatalf("diagnostics must go with their user")
	}
}

func TestMemoryPagesSlugUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := &models.InfoPage{ID: "p1", Title: "FAQ", Slug: "faq", Sections: []*models.Section{{ID: "s1", Order: 1}}}
	if err := repo.CreatePage(ctx, p); err != nil {
		t.Fatalf("create page: %v", err)
	}
	if err := repo.CreatePage(ctx, &models.InfoPage{ID: "p2", Slug: "faq"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate slug must conflict, got %v", err)
	}

	published, _ := repo.ListPages(ctx, true)
	if len(published) != 0 {
		t.Fatalf("unpublished page listed")
	}

	p.Sections[0].Title = "changed"
	got, _ := repo.GetPageBySlug(ctx, "faq")
	if got.Sections[0].Title == "changed" {
		t.Fatalf("sections shared with caller")
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_more.sql": {Data: []byte("SELECT 2;")},
		"001_init.sql": {Data: []byte("SELECT 1;")},
		"README.md":    {Data: []byte("docs")},
	}

	pending, err := PendingMigrations(fsys, map[string]bool{"001_init.sql": true})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0] != "002_more.sql" {
		t.Fatalf("unexpected pending: %v", pending)
	}

	embedded, err := MigrationsFS("")
	if err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
	all, _ := PendingMigrations(embedded, nil)
	if len(all) == 0 || all[0] != "001_init.sql" {
		t.Fatalf("embedded migrations missing: %v", all)
	}
}

func TestMemoryClientKeyRotation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	c := &models.ApiClient{ID: "anon", Name: "anon", ApiKey: "old-key-123", IsActive: true, Permissions: []string{"resources:read"}}
	if err := repo.UpsertClient(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	c.ApiKey = "new-key-456"
	if err := repo.UpsertClient(ctx, c); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if old, _ := repo.GetClientByApiKey(ctx, "old-key-123"); old != nil {
		t.Fatalf("old key must stop working")
	}
	got, err := repo.GetClientByApiKey(ctx, "new-key-456")
	if err != nil || got == nil || got.ID != "anon" {
		t.Fatalf("new key: %+v %v", got, err)
	}
	if err := repo.UpdateClientLastUsed(ctx, "new-key-456"); err != nil {
		t.Fatalf("last used: %v", err)
	}
	if err := repo.UpdateClientLastUsed(ctx, "old-key-123"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
