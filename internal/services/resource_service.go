package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

const maxListLimit = 200

// ResourceService manages the resource library and its categories.
type ResourceService struct {
	repo   storage.Repository
	notify Notifier
	now    func() time.Time
	idGen  func() string
}

func NewResourceService(repo storage.Repository, notify Notifier) *ResourceService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &ResourceService{
		repo:   repo,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
		idGen:  uuid.NewString,
	}
}

// ValidateResource checks the fields a resource form must carry.
func ValidateResource(in *models.ResourceInput) error {
	in.Normalize()
	if in.Title == "" {
		return NewInvalidError("title is required")
	}
	if in.Category == "" {
		return NewInvalidError("category is required")
	}
	if in.Duration != nil && (*in.Duration < models.MinResourceDuration || *in.Duration > models.MaxResourceDuration) {
		return NewInvalidError(fmt.Sprintf("duration must be between %d and %d minutes",
			models.MinResourceDuration, models.MaxResourceDuration))
	}
	return nil
}

func (s *ResourceService) List(ctx context.Context, f models.ResourceFilters) ([]*models.Resource, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Favorites && f.ViewerID == "" {
		return nil, NewUnauthorizedError("sign in to list favorites")
	}
	return s.repo.ListResources(ctx, f)
}

func (s *ResourceService) Get(ctx context.Context, id, viewerID string) (*models.Resource, error) {
	r, err := s.repo.GetResource(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("resource not found")
	}
	return r, nil
}

// Create stores a new resource authored by authorID. The category is
// stored under its canonical spelling.
func (s *ResourceService) Create(ctx context.Context, authorID string, in models.ResourceInput) (*models.Resource, error) {
	if err := ValidateResource(&in); err != nil {
		return nil, err
	}
	category, err := s.canonicalCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &models.Resource{
		ID:          s.idGen(),
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Category:    category,
		Duration:    in.Duration,
		IsActive:    in.IsActive,
		UserID:      authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateResource(ctx, r); err != nil {
		return nil, storageError(err, "resource")
	}
	s.notify.Notify(TopicResources, ActionCreated, r.ID)
	return r, nil
}

func (s *ResourceService) Update(ctx context.Context, id string, in models.ResourceInput) (*models.Resource, error) {
	if err := ValidateResource(&in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetResource(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewNotFoundError("resource not found")
	}
	category, err := s.canonicalCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	existing.Title = in.Title
	existing.Description = in.Description
	existing.Content = in.Content
	existing.Category = category
	existing.Duration = in.Duration
	existing.IsActive = in.IsActive
	existing.UpdatedAt = s.now()

	if err := s.repo.UpdateResource(ctx, existing); err != nil {
		return nil, storageError(err, "resource")
	}
	s.notify.Notify(TopicResources, ActionUpdated, id)
	return existing, nil
}

func (s *ResourceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteResource(ctx, id); err != nil {
		return storageError(err, "resource")
	}
	s.notify.Notify(TopicResources, ActionDeleted, id)
	return nil
}

// SetFavorite marks or unmarks a resource for userID.
func (s *ResourceService) SetFavorite(ctx context.Context, userID, resourceID string, favorite bool) (*models.Resource, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("sign in to manage favorites")
	}
	if err := s.repo.SetFavorite(ctx, userID, resourceID, favorite); err != nil {
		return nil, storageError(err, "resource")
	}
	return s.Get(ctx, resourceID, userID)
}

func (s *ResourceService) canonicalCategory(ctx context.Context, name string) (string, error) {
	c, err := s.repo.GetCategoryByName(ctx, name)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", NewInvalidError(fmt.Sprintf("unknown category %q", name))
	}
	return c.Name, nil
}

// Categories

func (s *ResourceService) ListCategories(ctx context.Context) ([]*models.ResourceCategory, error) {
	return s.repo.ListCategories(ctx)
}

func (s *ResourceService) CreateCategory(ctx context.Context, name, description string) (*models.ResourceCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("category name is required")
	}
	c := &models.ResourceCategory{ID: s.idGen(), Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, storageError(err, "category")
	}
	s.notify.Notify(TopicCategories, ActionCreated, c.ID)
	return c, nil
}

// UpdateCategory refuses to rename a category resources still point at.
func (s *ResourceService) UpdateCategory(ctx context.Context, id, name, description string) (*models.ResourceCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("category name is required")
	}
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("category not found")
	}
	if !strings.EqualFold(c.Name, name) {
		n, err := s.repo.CountResourcesByCategory(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, NewConflictError(fmt.Sprintf("category %q is used by %d resources", c.Name, n))
		}
	}
	c.Name = name
	c.Description = strings.TrimSpace(description)
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, storageError(err, "category")
	}
	s.notify.Notify(TopicCategories, ActionUpdated, id)
	return c, nil
}

func (s *ResourceService) DeleteCategory(ctx context.Context, id string) error {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return NewNotFoundError("category not found")
	}
	n, err := s.repo.CountResourcesByCategory(ctx, c.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return NewConflictError(fmt.Sprintf("category %q is used by %d resources", c.Name, n))
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return storageError(err, "category")
	}
	s.notify.Notify(TopicCategories, ActionDeleted, id)
	return nil
}
