package service

import (
	"context"

	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

type quickLinkService struct {
	links repository.QuickLinkRepository
}

func NewQuickLinkService(links repository.QuickLinkRepository) QuickLinkService {
	return &quickLinkService{links: links}
}

func (s *quickLinkService) ListQuickLinks(ctx context.Context, ac authz.Context) ([]domain.QuickLink, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	return s.links.List(ctx, ac.UserID)
}

func (s *quickLinkService) CreateQuickLink(ctx context.Context, ac authz.Context, link *domain.QuickLink) (*domain.QuickLink, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	link.ID = ""
	link.UserID = ac.UserID
	if err := link.Validate(); err != nil {
		return nil, err
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// UpdateQuickLink replaces title, url and position of one of the caller's links.
func (s *quickLinkService) UpdateQuickLink(ctx context.Context, ac authz.Context, link *domain.QuickLink) (*domain.QuickLink, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	existing, err := s.links.GetByID(ctx, ac.UserID, link.ID)
	if err != nil {
		return nil, err
	}
	existing.Title = link.Title
	existing.URL = link.URL
	existing.Position = link.Position
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.links.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *quickLinkService) DeleteQuickLink(ctx context.Context, ac authz.Context, linkID string) error {
	if err := requireAuthenticated(ac); err != nil {
		return err
	}
	return s.links.Delete(ctx, ac.UserID, linkID)
}
