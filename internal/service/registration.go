package service

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/retry"
)

type registrationService struct {
	services        repository.ServiceRepository
	registrations   repository.RegistrationRepository
	enroller        MemberEnroller
	sink            NotificationSink
	policy          retry.Policy
	enforceCapacity bool
}

func NewRegistrationService(
	services repository.ServiceRepository,
	registrations repository.RegistrationRepository,
	enroller MemberEnroller,
	sink NotificationSink,
	policy retry.Policy,
	enforceCapacity bool,
) RegistrationService {
	return &registrationService{
		services:        services,
		registrations:   registrations,
		enroller:        enroller,
		sink:            sink,
		policy:          policy,
		enforceCapacity: enforceCapacity,
	}
}

func (s *registrationService) RegisterForService(ctx context.Context, ac authz.Context, userID, serviceID, templeID string, message *string) (*domain.ServiceRegistration, error) {
	logger.EnterMethod("registrationService.RegisterForService", "userID", userID, "serviceID", serviceID, "templeID", templeID)

	if userID == "" || serviceID == "" || templeID == "" {
		err := apperr.InvalidArgument("user id, service id and temple id are required")
		logger.ExitMethodWithError("registrationService.RegisterForService", err)
		return nil, err
	}
	if ac.UserID != userID && !ac.IsTempleAdmin(templeID) {
		err := apperr.PermissionDenied("user %s may not register user %s", ac.UserID, userID)
		logger.ExitMethodWithError("registrationService.RegisterForService", err, "callerID", ac.UserID)
		return nil, err
	}

	var reg *domain.ServiceRegistration
	var svc *domain.Service
	attempts := 0
	err := retry.Do(ctx, "RegisterForService", s.policy, func(ctx context.Context) error {
		attempts++
		reg = &domain.ServiceRegistration{
			UserID:    userID,
			ServiceID: serviceID,
			TempleID:  templeID,
			Message:   message,
		}
		var err error
		svc, err = s.registrations.Create(ctx, reg)
		return err
	})
	if err != nil && attempts > 1 && apperr.Is(err, codes.AlreadyExists) {
		// An earlier attempt may have committed before its error came back.
		if found, foundSvc := s.committedRegistration(ctx, userID, serviceID, templeID); found != nil {
			reg, svc, err = found, foundSvc, nil
		}
	}
	if err != nil {
		logger.ExitMethodWithError("registrationService.RegisterForService", err, "userID", userID, "serviceID", serviceID)
		return nil, err
	}

	if err := s.enroller.EnsureMember(ctx, userID, templeID); err != nil {
		logger.ExitMethodWithError("registrationService.RegisterForService", err, "reason", "member enrollment failed")
		return nil, err
	}

	if leader := svc.ContactPerson.UserID; leader != "" {
		s.notify(ctx, &domain.Notification{
			UserID:  leader,
			Title:   "New service registration",
			Message: fmt.Sprintf("A new registration for %s on %s is awaiting review", svc.Name, svc.Date),
			Type:    domain.NotificationTypeInfo,
			Link:    serviceLink(templeID, serviceID),
		})
	}

	logger.ExitMethod("registrationService.RegisterForService", "registrationID", reg.ID, "pending", svc.PendingParticipants)
	return reg, nil
}

// committedRegistration returns the pending registration of userID for the
// service, or nil when there is none.
func (s *registrationService) committedRegistration(ctx context.Context, userID, serviceID, templeID string) (*domain.ServiceRegistration, *domain.Service) {
	reg, err := s.registrations.FindByUserAndService(ctx, templeID, userID, serviceID)
	if err != nil || reg.Status != domain.RegistrationStatusPending {
		return nil, nil
	}
	svc, err := s.services.GetByID(ctx, templeID, serviceID)
	if err != nil {
		return nil, nil
	}
	logger.Info("Registration committed by an earlier attempt", "registration_id", reg.ID, "user_id", userID, "service_id", serviceID)
	return reg, svc
}

func (s *registrationService) UpdateServiceRegistrationStatus(ctx context.Context, ac authz.Context, registrationID string, status domain.RegistrationStatus, templeID, serviceID string) (*domain.ServiceRegistration, error) {
	logger.EnterMethod("registrationService.UpdateServiceRegistrationStatus", "registrationID", registrationID, "status", status, "templeID", templeID)

	if err := ac.RequireTempleAdmin(templeID); err != nil {
		logger.ExitMethodWithError("registrationService.UpdateServiceRegistrationStatus", err, "callerID", ac.UserID)
		return nil, err
	}
	if registrationID == "" {
		err := apperr.InvalidArgument("registration id is required")
		logger.ExitMethodWithError("registrationService.UpdateServiceRegistrationStatus", err)
		return nil, err
	}
	if !status.Valid() {
		err := apperr.InvalidArgument("invalid registration status %q", status)
		logger.ExitMethodWithError("registrationService.UpdateServiceRegistrationStatus", err)
		return nil, err
	}

	var change *repository.StatusChange
	err := retry.Do(ctx, "UpdateServiceRegistrationStatus", s.policy, func(ctx context.Context) error {
		var err error
		change, err = s.registrations.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID:        templeID,
			RegistrationID:  registrationID,
			Status:          status,
			ServiceID:       serviceID,
			EnforceCapacity: s.enforceCapacity,
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("registrationService.UpdateServiceRegistrationStatus", err, "registrationID", registrationID)
		return nil, err
	}

	reg := change.Registration
	s.notify(ctx, &domain.Notification{
		UserID:  reg.UserID,
		Title:   fmt.Sprintf("Registration %s", reg.Status),
		Message: fmt.Sprintf("Your registration for %s on %s is now %s", reg.ServiceName, reg.ServiceDate, reg.Status),
		Type:    domain.NotificationTypeForStatus(reg.Status),
		Link:    serviceLink(templeID, reg.ServiceID),
	})

	logger.ExitMethod("registrationService.UpdateServiceRegistrationStatus",
		"registrationID", reg.ID, "from", change.Previous, "to", reg.Status,
		"current", change.Service.CurrentParticipants, "pending", change.Service.PendingParticipants)
	return reg, nil
}

func (s *registrationService) DeleteRegistration(ctx context.Context, ac authz.Context, registrationID, templeID string, message *string) error {
	logger.EnterMethod("registrationService.DeleteRegistration", "registrationID", registrationID, "templeID", templeID)

	existing, err := s.registrations.GetByID(ctx, templeID, registrationID)
	if err != nil {
		logger.ExitMethodWithError("registrationService.DeleteRegistration", err, "registrationID", registrationID)
		return err
	}
	isOwner := existing.UserID == ac.UserID
	isAdmin := ac.IsTempleAdmin(existing.TempleID)
	if !isOwner && !isAdmin {
		err := apperr.PermissionDenied("user %s may not delete registration %s", ac.UserID, registrationID)
		logger.ExitMethodWithError("registrationService.DeleteRegistration", err, "callerID", ac.UserID)
		return err
	}

	var deleted *domain.ServiceRegistration
	err = retry.Do(ctx, "DeleteRegistration", s.policy, func(ctx context.Context) error {
		var err error
		deleted, err = s.registrations.Delete(ctx, templeID, registrationID)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("registrationService.DeleteRegistration", err, "registrationID", registrationID)
		return err
	}

	if isAdmin && !isOwner {
		text := fmt.Sprintf("Your registration for %s on %s was cancelled by a temple admin", deleted.ServiceName, deleted.ServiceDate)
		if message != nil && *message != "" {
			text += ": " + *message
		}
		s.notify(ctx, &domain.Notification{
			UserID:  deleted.UserID,
			Title:   "Registration cancelled",
			Message: text,
			Type:    domain.NotificationTypeWarning,
			Link:    serviceLink(templeID, deleted.ServiceID),
		})
	}

	logger.ExitMethod("registrationService.DeleteRegistration", "registrationID", registrationID, "status", deleted.Status)
	return nil
}

func (s *registrationService) RecalculateServiceParticipants(ctx context.Context, ac authz.Context, serviceID, templeID string) (*domain.Recalculation, error) {
	logger.EnterMethod("registrationService.RecalculateServiceParticipants", "serviceID", serviceID, "templeID", templeID)

	if err := ac.RequireTempleAdmin(templeID); err != nil {
		logger.ExitMethodWithError("registrationService.RecalculateServiceParticipants", err, "callerID", ac.UserID)
		return nil, err
	}

	var result *domain.Recalculation
	err := retry.Do(ctx, "RecalculateServiceParticipants", s.policy, func(ctx context.Context) error {
		var err error
		result, err = s.registrations.Recalculate(ctx, templeID, serviceID)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("registrationService.RecalculateServiceParticipants", err, "serviceID", serviceID)
		return nil, err
	}

	if result.Drifted() {
		logger.WithTemple(templeID).Warn("Participant counters drifted",
			"service_id", serviceID,
			"previous_approved", result.PreviousApproved, "approved", result.Approved,
			"previous_pending", result.PreviousPending, "pending", result.Pending)
	}
	logger.ExitMethod("registrationService.RecalculateServiceParticipants", "serviceID", serviceID, "drifted", result.Drifted())
	return result, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, ac authz.Context, templeID, registrationID string) (*domain.ServiceRegistration, error) {
	reg, err := s.registrations.GetByID(ctx, templeID, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != ac.UserID && !ac.IsTempleAdmin(templeID) {
		return nil, apperr.PermissionDenied("user %s may not view registration %s", ac.UserID, registrationID)
	}
	return reg, nil
}

// ListServiceRegistrations is open to temple admins and the service's leader.
func (s *registrationService) ListServiceRegistrations(ctx context.Context, ac authz.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error) {
	if !ac.IsTempleAdmin(templeID) {
		svc, err := s.services.GetByID(ctx, templeID, serviceID)
		if err != nil {
			return nil, err
		}
		if !ac.IsServiceLeader(svc) {
			return nil, apperr.PermissionDenied("user %s may not list registrations of service %s", ac.UserID, serviceID)
		}
	}
	return s.registrations.ListByService(ctx, templeID, serviceID)
}

func (s *registrationService) ListTempleRegistrations(ctx context.Context, ac authz.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error) {
	if err := ac.RequireTempleAdmin(templeID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidArgument("invalid registration status %q", status)
	}
	return s.registrations.ListByTemple(ctx, templeID, status)
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, ac authz.Context, templeID string) ([]domain.ServiceRegistration, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	return s.registrations.ListByUser(ctx, templeID, ac.UserID)
}

// notify delivers note through the sink. Failures are logged and dropped.
func (s *registrationService) notify(ctx context.Context, note *domain.Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, note); err != nil {
		logger.Warn("Failed to send notification", "user_id", note.UserID, "title", note.Title, "error", err)
	}
}

func serviceLink(templeID, serviceID string) string {
	return fmt.Sprintf("/temples/%s/services/%s", templeID, serviceID)
}
