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

// PageService manages informational pages.
type PageService struct {
	repo   storage.Repository
	notify Notifier
	now    func() time.Time
	idGen  func() string
}

func NewPageService(repo storage.Repository, notify Notifier) *PageService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &PageService{
		repo:   repo,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
		idGen:  uuid.NewString,
	}
}

func (s *PageService) validate(in *models.InfoPageInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Title == "" {
		return NewInvalidError("title is required")
	}
	if !models.ValidSlug(in.Slug) {
		return NewInvalidError(fmt.Sprintf("invalid slug %q: use lowercase letters, digits and dashes", in.Slug))
	}
	seen := make(map[string]bool, len(in.Sections))
	for i, sec := range in.Sections {
		if sec == nil {
			return NewInvalidError(fmt.Sprintf("section %d is empty", i))
		}
		if sec.ID == "" {
			sec.ID = s.idGen()
		}
		if seen[sec.ID] {
			return NewInvalidError(fmt.Sprintf("duplicate section id %q", sec.ID))
		}
		seen[sec.ID] = true
	}
	return nil
}

func (s *PageService) build(in models.InfoPageInput, p *models.InfoPage) {
	p.Title = in.Title
	p.Slug = in.Slug
	p.IsPublished = in.IsPublished
	p.Sections = make([]*models.Section, 0, len(in.Sections))
	for _, sec := range in.Sections {
		cp := *sec
		p.Sections = append(p.Sections, &cp)
	}
	p.SortSections()
}

func (s *PageService) Create(ctx context.Context, in models.InfoPageInput) (*models.InfoPage, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.InfoPage{ID: s.idGen(), CreatedAt: now, UpdatedAt: now}
	s.build(in, p)
	if err := s.repo.CreatePage(ctx, p); err != nil {
		return nil, storageError(err, "page")
	}
	s.notify.Notify(TopicPages, ActionCreated, p.ID)
	return p, nil
}

func (s *PageService) Update(ctx context.Context, id string, in models.InfoPageInput) (*models.InfoPage, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	p, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("page not found")
	}
	s.build(in, p)
	p.UpdatedAt = s.now()
	if err := s.repo.UpdatePage(ctx, p); err != nil {
		return nil, storageError(err, "page")
	}
	s.notify.Notify(TopicPages, ActionUpdated, id)
	return p, nil
}

// SetPublished publishes or withdraws a page.
func (s *PageService) SetPublished(ctx context.Context, id string, published bool) (*models.InfoPage, error) {
	p, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("page not found")
	}
	p.IsPublished = published
	p.UpdatedAt = s.now()
	if err := s.repo.UpdatePage(ctx, p); err != nil {
		return nil, storageError(err, "page")
	}
	s.notify.Notify(TopicPages, ActionUpdated, id)
	return p, nil
}

func (s *PageService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeletePage(ctx, id); err != nil {
		return storageError(err, "page")
	}
	s.notify.Notify(TopicPages, ActionDeleted, id)
	return nil
}

// Get looks a page up by id or slug. Unpublished pages are only visible
// when includeDrafts is set.
func (s *PageService) Get(ctx context.Context, idOrSlug string, includeDrafts bool) (*models.InfoPage, error) {
	p, err := s.repo.GetPageBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if p, err = s.repo.GetPage(ctx, idOrSlug); err != nil {
			return nil, err
		}
	}
	if p == nil || (!p.IsPublished && !includeDrafts) {
		return nil, NewNotFoundError("page not found")
	}
	p.SortSections()
	return p, nil
}

func (s *PageService) List(ctx context.Context, includeDrafts bool) ([]*models.InfoPage, error) {
	return s.repo.ListPages(ctx, !includeDrafts)
}
