package service_test

import (
	"context"
	"slices"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/repository/memory"
	"temple-services-backend/internal/retry"
	"temple-services-backend/internal/service"
)

const leaderID = "leader-1"

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		NonRetryable: slices.Concat(retry.DefaultNonRetryable, retry.Terminal),
	}
}

// fixture is one temple with one service on the in-memory store.
type fixture struct {
	store     *repository.Store
	admins    service.AdminService
	manager   service.ServiceManager
	regs      service.RegistrationService
	templeID  string
	serviceID string
	adminAC   authz.Context
}

func newFixture(t require.TestingT, enforceCapacity bool) *fixture {
	ctx := context.Background()
	store := memory.NewStore()

	temple := &domain.Temple{Name: "Sri Ganesha Temple"}
	require.NoError(t, store.Temples.Create(ctx, temple))

	admins := service.NewAdminService(store.Temples, store.Services, store.Admins, store.Members, store.Users, nil)
	notes := service.NewNotificationService(store.Notifications, 20)
	f := &fixture{
		store:    store,
		admins:   admins,
		manager:  service.NewServiceManager(store.Temples, store.Services),
		regs:     service.NewRegistrationService(store.Services, store.Registrations, admins, notes, testPolicy(), enforceCapacity),
		templeID: temple.ID,
		adminAC:  authz.Context{UserID: "admin-1", AdminTempleID: temple.ID},
	}
	require.NoError(t, store.Admins.Set(ctx, &domain.AdminRecord{UserID: "admin-1", IsAdmin: true, TempleID: temple.ID}))

	svc, err := f.manager.CreateService(ctx, f.adminAC, temple.ID, newService(2))
	require.NoError(t, err)
	f.serviceID = svc.ID
	return f
}

func newService(max int) *domain.Service {
	return &domain.Service{
		Name:            "Morning Puja",
		Type:            "puja",
		Date:            "2026-04-01",
		TimeSlot:        domain.TimeSlot{Start: "09:00", End: "10:00"},
		MaxParticipants: max,
		ContactPerson:   domain.ContactPerson{Name: "Priest", Phone: "555-0100", UserID: leaderID},
	}
}

func user(id string) authz.Context {
	return authz.Context{UserID: id}
}

func (f *fixture) service(t require.TestingT) *domain.Service {
	svc, err := f.store.Services.GetByID(context.Background(), f.templeID, f.serviceID)
	require.NoError(t, err)
	return svc
}

// assertCounters checks the service counters against expected values and
// against the registrations actually stored.
func (f *fixture) assertCounters(t require.TestingT, pending, current int) {
	svc := f.service(t)
	assert.Equal(t, pending, svc.PendingParticipants, "pending participants")
	assert.Equal(t, current, svc.CurrentParticipants, "current participants")
	f.assertConserved(t)
}

func (f *fixture) assertConserved(t require.TestingT) {
	regs, err := f.store.Registrations.ListByService(context.Background(), f.templeID, f.serviceID)
	require.NoError(t, err)
	assert.Equal(t, domain.CountRegistrations(regs), f.service(t).Counts())
}

func (f *fixture) notifications(t require.TestingT, userID string) []domain.Notification {
	notes, _, err := f.store.Notifications.List(context.Background(), userID, 0, 0)
	require.NoError(t, err)
	return notes
}
