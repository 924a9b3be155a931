package service

import (
	"context"

	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type eventService struct {
	events repository.EventRepository
}

func NewEventService(events repository.EventRepository) EventService {
	return &eventService{events: events}
}

func (s *eventService) CreateEvent(ctx context.Context, ac authz.Context, e *domain.Event) (*domain.Event, error) {
	if err := ac.RequireTempleAdmin(e.TempleID); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.ID = ""
	e.CreatedBy = ac.UserID
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	logger.Info("Event created", "temple_id", e.TempleID, "event_id", e.ID)
	return e, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, ac authz.Context, e *domain.Event) (*domain.Event, error) {
	if err := ac.RequireTempleAdmin(e.TempleID); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, e.TempleID, e.ID)
}

func (s *eventService) DeleteEvent(ctx context.Context, ac authz.Context, templeID, eventID string) error {
	if err := ac.RequireTempleAdmin(templeID); err != nil {
		return err
	}
	return s.events.Delete(ctx, templeID, eventID)
}

func (s *eventService) GetEvent(ctx context.Context, templeID, eventID string) (*domain.Event, error) {
	return s.events.GetByID(ctx, templeID, eventID)
}

func (s *eventService) ListEvents(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error) {
	if afterDate != "" {
		if err := domain.ValidateDate(afterDate); err != nil {
			return nil, err
		}
	}
	return s.events.List(ctx, templeID, afterDate, limit)
}
