package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/wellness-hub/internal/models"
)

var (
	// ErrNotFound is returned by updates and deletes that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key (email, slug, category name) is taken.
	ErrConflict = errors.New("record already exists")
)

// Repository defines the interface for application persistence.
// Getters return (nil, nil) when nothing matches.
type Repository interface {
	// Resources
	CreateResource(ctx context.Context, r *models.Resource) error
	GetResource(ctx context.Context, id, viewerID string) (*models.Resource, error)
	UpdateResource(ctx context.Context, r *models.Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context, filters models.ResourceFilters) ([]*models.Resource, error)
	CountResourcesByCategory(ctx context.Context, category string) (int, error)
	SetFavorite(ctx context.Context, userID, resourceID string, favorite bool) error

	// Categories
	CreateCategory(ctx context.Context, c *models.ResourceCategory) error
	GetCategory(ctx context.Context, id string) (*models.ResourceCategory, error)
	GetCategoryByName(ctx context.Context, name string) (*models.ResourceCategory, error)
	UpdateCategory(ctx context.Context, c *models.ResourceCategory) error
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*models.ResourceCategory, error)

	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filters models.UserFilters) ([]*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// Diagnostics
	CreateDiagnostic(ctx context.Context, d *models.DiagnosticResult) error
	GetDiagnostic(ctx context.Context, id string) (*models.DiagnosticResult, error)
	ListDiagnosticsByUser(ctx context.Context, userID string, limit int) ([]*models.DiagnosticResult, error)
	DeleteDiagnosticsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Info pages
	CreatePage(ctx context.Context, p *models.InfoPage) error
	GetPage(ctx context.Context, id string) (*models.InfoPage, error)
	GetPageBySlug(ctx context.Context, slug string) (*models.InfoPage, error)
	UpdatePage(ctx context.Context, p *models.InfoPage) error
	DeletePage(ctx context.Context, id string) error
	ListPages(ctx context.Context, publishedOnly bool) ([]*models.InfoPage, error)

	// API clients
	UpsertClient(ctx context.Context, c *models.ApiClient) error
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
