package service

import (
	"context"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type serviceManager struct {
	temples  repository.TempleRepository
	services repository.ServiceRepository
}

func NewServiceManager(temples repository.TempleRepository, services repository.ServiceRepository) ServiceManager {
	return &serviceManager{temples: temples, services: services}
}

func (s *serviceManager) CreateService(ctx context.Context, ac authz.Context, templeID string, svc *domain.Service) (*domain.Service, error) {
	logger.EnterMethod("serviceManager.CreateService", "templeID", templeID, "name", svc.Name)

	if err := ac.RequireTempleAdmin(templeID); err != nil {
		logger.ExitMethodWithError("serviceManager.CreateService", err, "callerID", ac.UserID)
		return nil, err
	}
	svc.TempleID = templeID
	if err := svc.Validate(); err != nil {
		logger.ExitMethodWithError("serviceManager.CreateService", err)
		return nil, err
	}
	if _, err := s.temples.GetByID(ctx, templeID); err != nil {
		logger.ExitMethodWithError("serviceManager.CreateService", err, "templeID", templeID)
		return nil, err
	}

	svc.ID = ""
	svc.CreatedBy = ac.UserID
	svc.CurrentParticipants, svc.PendingParticipants = 0, 0
	if err := s.services.Create(ctx, svc); err != nil {
		logger.ExitMethodWithError("serviceManager.CreateService", err, "templeID", templeID)
		return nil, err
	}

	logger.ExitMethod("serviceManager.CreateService", "serviceID", svc.ID)
	return svc, nil
}

// UpdateService applies update for a temple admin. The service leader may
// only change notes.
func (s *serviceManager) UpdateService(ctx context.Context, ac authz.Context, templeID, serviceID string, update domain.ServiceUpdate) (*domain.Service, error) {
	logger.EnterMethod("serviceManager.UpdateService", "templeID", templeID, "serviceID", serviceID)

	if update.Empty() {
		return nil, apperr.InvalidArgument("no fields to update")
	}
	svc, err := s.services.GetByID(ctx, templeID, serviceID)
	if err != nil {
		logger.ExitMethodWithError("serviceManager.UpdateService", err, "serviceID", serviceID)
		return nil, err
	}

	switch {
	case ac.IsTempleAdmin(templeID):
	case ac.IsServiceLeader(svc):
		if !update.NotesOnly() {
			err := apperr.WithReason(codes.PermissionDenied, apperr.ReasonLeaderNotesOnly,
				"service leaders may only update notes")
			logger.ExitMethodWithError("serviceManager.UpdateService", err, "callerID", ac.UserID)
			return nil, err
		}
	default:
		err := apperr.PermissionDenied("user %s may not update service %s", ac.UserID, serviceID)
		logger.ExitMethodWithError("serviceManager.UpdateService", err, "callerID", ac.UserID)
		return nil, err
	}

	update.Apply(svc)
	if err := svc.Validate(); err != nil {
		logger.ExitMethodWithError("serviceManager.UpdateService", err)
		return nil, err
	}
	if err := s.services.Update(ctx, svc); err != nil {
		logger.ExitMethodWithError("serviceManager.UpdateService", err, "serviceID", serviceID)
		return nil, err
	}

	logger.ExitMethod("serviceManager.UpdateService", "serviceID", serviceID, "notesOnly", update.NotesOnly())
	return svc, nil
}

func (s *serviceManager) DeleteService(ctx context.Context, ac authz.Context, templeID, serviceID string, force bool) (int, error) {
	logger.EnterMethod("serviceManager.DeleteService", "templeID", templeID, "serviceID", serviceID, "force", force)

	if err := ac.RequireTempleAdmin(templeID); err != nil {
		logger.ExitMethodWithError("serviceManager.DeleteService", err, "callerID", ac.UserID)
		return 0, err
	}
	removed, err := s.services.Delete(ctx, templeID, serviceID, force)
	if err != nil {
		logger.ExitMethodWithError("serviceManager.DeleteService", err, "serviceID", serviceID)
		return 0, err
	}

	logger.ExitMethod("serviceManager.DeleteService", "serviceID", serviceID, "registrationsRemoved", removed)
	return removed, nil
}

func (s *serviceManager) GetService(ctx context.Context, templeID, serviceID string) (*domain.Service, error) {
	return s.services.GetByID(ctx, templeID, serviceID)
}

func (s *serviceManager) ListServices(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error) {
	if afterDate != "" {
		if err := domain.ValidateDate(afterDate); err != nil {
			return nil, err
		}
	}
	return s.services.List(ctx, templeID, afterDate, limit)
}

func (s *serviceManager) WatchService(ctx context.Context, templeID, serviceID string) (<-chan repository.ServiceSnapshot, error) {
	return s.services.Watch(ctx, templeID, serviceID)
}
