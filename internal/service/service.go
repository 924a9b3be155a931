package service

import (
	"context"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

// ServiceManager owns the lifecycle of services. Only temple admins create
// and delete them; service leaders may edit notes.
type ServiceManager interface {
	CreateService(ctx context.Context, ac authz.Context, templeID string, svc *domain.Service) (*domain.Service, error)
	UpdateService(ctx context.Context, ac authz.Context, templeID, serviceID string, update domain.ServiceUpdate) (*domain.Service, error)
	DeleteService(ctx context.Context, ac authz.Context, templeID, serviceID string, force bool) (int, error)
	GetService(ctx context.Context, templeID, serviceID string) (*domain.Service, error)
	ListServices(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error)
	WatchService(ctx context.Context, templeID, serviceID string) (<-chan repository.ServiceSnapshot, error)
}

// RegistrationService is the registration workflow: it keeps the participant
// counters of a service in step with its registrations.
type RegistrationService interface {
	RegisterForService(ctx context.Context, ac authz.Context, userID, serviceID, templeID string, message *string) (*domain.ServiceRegistration, error)
	UpdateServiceRegistrationStatus(ctx context.Context, ac authz.Context, registrationID string, status domain.RegistrationStatus, templeID, serviceID string) (*domain.ServiceRegistration, error)
	DeleteRegistration(ctx context.Context, ac authz.Context, registrationID, templeID string, message *string) error
	RecalculateServiceParticipants(ctx context.Context, ac authz.Context, serviceID, templeID string) (*domain.Recalculation, error)

	GetRegistration(ctx context.Context, ac authz.Context, templeID, registrationID string) (*domain.ServiceRegistration, error)
	ListServiceRegistrations(ctx context.Context, ac authz.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error)
	ListTempleRegistrations(ctx context.Context, ac authz.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error)
	ListMyRegistrations(ctx context.Context, ac authz.Context, templeID string) ([]domain.ServiceRegistration, error)
}

type AdminService interface {
	// Temples
	CreateTemple(ctx context.Context, ac authz.Context, temple *domain.Temple) (*domain.Temple, error)
	UpdateTemple(ctx context.Context, ac authz.Context, temple *domain.Temple) (*domain.Temple, error)
	DeleteTemple(ctx context.Context, ac authz.Context, templeID string) error
	GetTemple(ctx context.Context, templeID string) (*domain.Temple, error)
	ListTemples(ctx context.Context) ([]domain.Temple, error)

	// Service type catalogue
	CreateServiceType(ctx context.Context, ac authz.Context, st *domain.ServiceType) (*domain.ServiceType, error)
	DeleteServiceType(ctx context.Context, ac authz.Context, templeID, id string) error
	ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error)

	// Admin assignment
	AssignAdmin(ctx context.Context, ac authz.Context, userID, templeID string) (*domain.AdminRecord, error)
	RevokeAdmin(ctx context.Context, ac authz.Context, userID string) error
	GrantSuperAdmin(ctx context.Context, ac authz.Context, userID string) (*domain.AdminRecord, error)
	ListTempleAdmins(ctx context.Context, ac authz.Context, templeID string) ([]domain.AdminRecord, error)

	// Membership
	JoinTemple(ctx context.Context, ac authz.Context, templeID string) (*domain.TempleMember, error)
	LeaveTemple(ctx context.Context, ac authz.Context, templeID string) error
	ListMembers(ctx context.Context, ac authz.Context, templeID string) ([]domain.TempleMember, error)
	RoleIn(ctx context.Context, ac authz.Context, templeID, serviceID string) (authz.Role, error)
	MemberEnroller
}

// MemberEnroller adds a registrant to a temple's member list.
type MemberEnroller interface {
	// EnsureMember enrolls userID unless they already belong to templeID or
	// administer it.
	EnsureMember(ctx context.Context, userID, templeID string) error
}

// CacheInvalidator drops cached authority after admin records change.
type CacheInvalidator interface {
	Invalidate(userID string)
}

type UserService interface {
	GetProfile(ctx context.Context, ac authz.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, ac authz.Context, displayName, email, phone string) (*domain.User, error)
}

type EventService interface {
	CreateEvent(ctx context.Context, ac authz.Context, event *domain.Event) (*domain.Event, error)
	UpdateEvent(ctx context.Context, ac authz.Context, event *domain.Event) (*domain.Event, error)
	DeleteEvent(ctx context.Context, ac authz.Context, templeID, eventID string) error
	GetEvent(ctx context.Context, templeID, eventID string) (*domain.Event, error)
	ListEvents(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error)
}

// NotificationSink records in-app notifications. Callers treat delivery as
// best effort.
type NotificationSink interface {
	Notify(ctx context.Context, note *domain.Notification) error
}

type NotificationService interface {
	NotificationSink
	GetNotifications(ctx context.Context, ac authz.Context, page, pageSize int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, ac authz.Context, notificationID string) error
	MarkAllAsRead(ctx context.Context, ac authz.Context) (int, error)
	DeleteNotification(ctx context.Context, ac authz.Context, notificationID string) error
}

type QuickLinkService interface {
	ListQuickLinks(ctx context.Context, ac authz.Context) ([]domain.QuickLink, error)
	CreateQuickLink(ctx context.Context, ac authz.Context, link *domain.QuickLink) (*domain.QuickLink, error)
	UpdateQuickLink(ctx context.Context, ac authz.Context, link *domain.QuickLink) (*domain.QuickLink, error)
	DeleteQuickLink(ctx context.Context, ac authz.Context, linkID string) error
}

func requireAuthenticated(ac authz.Context) error {
	if !ac.Authenticated() {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}
