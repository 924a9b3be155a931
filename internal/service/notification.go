package service

import (
	"context"
	"strings"
	"time"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

type notificationService struct {
	noteRepo        repository.NotificationRepository
	defaultPageSize int
}

func NewNotificationService(noteRepo repository.NotificationRepository, defaultPageSize int) NotificationService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &notificationService{noteRepo: noteRepo, defaultPageSize: defaultPageSize}
}

// Notify stores note as unread, stamped now.
func (s *notificationService) Notify(ctx context.Context, note *domain.Notification) error {
	if note.UserID == "" {
		return apperr.InvalidArgument("notification recipient is required")
	}
	if strings.TrimSpace(note.Title) == "" {
		return apperr.InvalidArgument("notification title is required")
	}
	if note.Type == "" {
		note.Type = domain.NotificationTypeInfo
	}
	note.ID = ""
	note.Read = false
	note.Timestamp = time.Now().UTC()
	return s.noteRepo.Create(ctx, note)
}

func (s *notificationService) GetNotifications(ctx context.Context, ac authz.Context, page, pageSize int) ([]domain.Notification, int, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, ac.UserID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, ac authz.Context, notificationID string) error {
	if err := requireAuthenticated(ac); err != nil {
		return err
	}
	return s.noteRepo.MarkAsRead(ctx, ac.UserID, notificationID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, ac authz.Context) (int, error) {
	if err := requireAuthenticated(ac); err != nil {
		return 0, err
	}
	return s.noteRepo.MarkAllAsRead(ctx, ac.UserID)
}

func (s *notificationService) DeleteNotification(ctx context.Context, ac authz.Context, notificationID string) error {
	if err := requireAuthenticated(ac); err != nil {
		return err
	}
	return s.noteRepo.Delete(ctx, ac.UserID, notificationID)
}
