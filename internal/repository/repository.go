package repository

import (
	"context"

	"temple-services-backend/internal/domain"
)

type TempleRepository interface {
	Create(ctx context.Context, temple *domain.Temple) error
	GetByID(ctx context.Context, id string) (*domain.Temple, error)
	List(ctx context.Context) ([]domain.Temple, error)
	Update(ctx context.Context, temple *domain.Temple) error
	Delete(ctx context.Context, id string) error

	// Service type catalogue
	CreateServiceType(ctx context.Context, st *domain.ServiceType) error
	ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error)
	DeleteServiceType(ctx context.Context, templeID, id string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Save creates the user or replaces the profile fields of an existing one.
	Save(ctx context.Context, user *domain.User) error
}

type AdminRepository interface {
	// Get fails with NotFound when the user has no admin record.
	Get(ctx context.Context, userID string) (*domain.AdminRecord, error)
	Set(ctx context.Context, record *domain.AdminRecord) error
	Delete(ctx context.Context, userID string) error
	ListByTemple(ctx context.Context, templeID string) ([]domain.AdminRecord, error)
}

type MemberRepository interface {
	// Add fails with AlreadyExists when the user is already a member.
	Add(ctx context.Context, member *domain.TempleMember) error
	Get(ctx context.Context, templeID, userID string) (*domain.TempleMember, error)
	Remove(ctx context.Context, templeID, userID string) error
	List(ctx context.Context, templeID string) ([]domain.TempleMember, error)
}

// ServiceSnapshot is one observation of a watched service. Deleted is set once
// the service is gone; Err is set on a terminal failure of the stream.
type ServiceSnapshot struct {
	Service *domain.Service
	Deleted bool
	Err     error
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, templeID, id string) (*domain.Service, error)
	// List returns services ordered by date, starting after afterDate when set.
	List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error)
	// Update writes the editable fields. Participant counters are never touched.
	Update(ctx context.Context, svc *domain.Service) error
	// Delete removes the service in one transaction. Without force it fails with
	// FailedPrecondition when pending or approved registrations exist; with force
	// every registration of the service is removed too. Returns the number of
	// registrations removed.
	Delete(ctx context.Context, templeID, id string, force bool) (int, error)
	// Watch streams the current state and every later change of a service until
	// ctx is done. The channel is closed when the stream ends.
	Watch(ctx context.Context, templeID, id string) (<-chan ServiceSnapshot, error)
}

// StatusUpdate describes a registration status transition.
type StatusUpdate struct {
	TempleID       string
	RegistrationID string
	Status         domain.RegistrationStatus
	// ServiceID, when set, must match the registration's service.
	ServiceID string
	// EnforceCapacity rejects transitions that push approved participants past
	// the service's maximum.
	EnforceCapacity bool
}

// StatusChange is the outcome of a committed status transition.
type StatusChange struct {
	Registration *domain.ServiceRegistration
	Previous     domain.RegistrationStatus
	Service      *domain.Service
	Delta        domain.ParticipantDelta
}

type RegistrationRepository interface {
	// Create stores reg as pending and increments the service's pending counter
	// in one transaction. The duplicate check runs inside that transaction.
	// Fails with NotFound when the service is missing and AlreadyExists when the
	// user already holds a registration for it. The service snapshot on reg is
	// refreshed from the service read in the transaction, which is returned.
	Create(ctx context.Context, reg *domain.ServiceRegistration) (*domain.Service, error)
	GetByID(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error)
	FindByUserAndService(ctx context.Context, templeID, userID, serviceID string) (*domain.ServiceRegistration, error)
	ListByService(ctx context.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error)
	// ListByTemple filters on status unless it is empty.
	ListByTemple(ctx context.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error)
	ListByUser(ctx context.Context, templeID, userID string) ([]domain.ServiceRegistration, error)
	// UpdateStatus writes the new status and both service counters in one
	// transaction.
	UpdateStatus(ctx context.Context, update StatusUpdate) (*StatusChange, error)
	// Delete removes the registration and releases its counter bucket in one
	// transaction. Returns the registration as it was deleted.
	Delete(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error)
	// Recalculate counts the service's registrations by status and overwrites
	// both counters in one transaction.
	Recalculate(ctx context.Context, templeID, serviceID string) (*domain.Recalculation, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	// List returns the newest notifications first together with the total count.
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
}

type QuickLinkRepository interface {
	Create(ctx context.Context, link *domain.QuickLink) error
	GetByID(ctx context.Context, userID, id string) (*domain.QuickLink, error)
	List(ctx context.Context, userID string) ([]domain.QuickLink, error)
	Update(ctx context.Context, link *domain.QuickLink) error
	Delete(ctx context.Context, userID, id string) error
}

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, templeID, id string) (*domain.Event, error)
	// List returns events ordered by date, starting after afterDate when set.
	List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error)
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, templeID, id string) error
}

// Store gathers the repositories of one backend.
type Store struct {
	Temples       TempleRepository
	Users         UserRepository
	Admins        AdminRepository
	Members       MemberRepository
	Services      ServiceRepository
	Registrations RegistrationRepository
	Notifications NotificationRepository
	QuickLinks    QuickLinkRepository
	Events        EventRepository

	// OnClose releases the backend's connections.
	OnClose func() error
}

func (s *Store) Close() error {
	if s.OnClose == nil {
		return nil
	}
	return s.OnClose()
}
