package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

// These tests run against the Firestore emulator, e.g.
//
//	gcloud emulators firestore start --host-port=localhost:8081
//	FIRESTORE_EMULATOR_HOST=localhost:8081 go test ./internal/repository/firestore/...
const emulatorProject = "temple-services-test"

type testStore struct {
	*repository.Store
	paths    paths
	templeID string
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}
	client, err := firestore.NewClient(context.Background(), emulatorProject)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// Every test works in its own temple so runs do not see each other's data.
	return &testStore{
		Store:    NewStore(client),
		paths:    paths{client: client},
		templeID: "temple-" + uuid.NewString(),
	}
}

func (s *testStore) seedService(t *testing.T, max int) *domain.Service {
	t.Helper()
	svc := &domain.Service{
		TempleID:        s.templeID,
		Name:            "Abhishekam",
		Type:            "puja",
		Date:            "2024-06-01",
		TimeSlot:        domain.TimeSlot{Start: "06:00", End: "07:00"},
		MaxParticipants: max,
		ContactPerson:   domain.ContactPerson{Name: "Leader", UserID: "leader-1"},
	}
	require.NoError(t, s.Services.Create(context.Background(), svc))
	return svc
}

func (s *testStore) register(t *testing.T, svc *domain.Service, userID string) *domain.ServiceRegistration {
	t.Helper()
	reg := &domain.ServiceRegistration{UserID: userID, ServiceID: svc.ID, TempleID: svc.TempleID}
	_, err := s.Registrations.Create(context.Background(), reg)
	require.NoError(t, err)
	return reg
}

func (s *testStore) setStatus(t *testing.T, reg *domain.ServiceRegistration, status domain.RegistrationStatus) {
	t.Helper()
	_, err := s.Registrations.UpdateStatus(context.Background(), repository.StatusUpdate{
		TempleID: reg.TempleID, RegistrationID: reg.ID, Status: status,
	})
	require.NoError(t, err)
}

func (s *testStore) counts(t *testing.T, svc *domain.Service) (pending, current int) {
	t.Helper()
	stored, err := s.Services.GetByID(context.Background(), svc.TempleID, svc.ID)
	require.NoError(t, err)
	return stored.PendingParticipants, stored.CurrentParticipants
}

func TestRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := s.seedService(t, 5)

	t.Run("Success", func(t *testing.T) {
		reg := &domain.ServiceRegistration{UserID: "user-1", ServiceID: svc.ID, TempleID: svc.TempleID}
		updated, err := s.Registrations.Create(ctx, reg)
		require.NoError(t, err)

		assert.NotEmpty(t, reg.ID)
		assert.Equal(t, domain.RegistrationStatusPending, reg.Status)
		assert.Equal(t, "Abhishekam", reg.ServiceName)
		assert.Equal(t, 1, updated.PendingParticipants)

		stored, err := s.Registrations.GetByID(ctx, svc.TempleID, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, "user-1", stored.UserID)
	})

	t.Run("Duplicate", func(t *testing.T) {
		reg := &domain.ServiceRegistration{UserID: "user-1", ServiceID: svc.ID, TempleID: svc.TempleID}
		_, err := s.Registrations.Create(ctx, reg)
		assert.Equal(t, codes.AlreadyExists, apperr.Code(err))
		assert.Equal(t, apperr.ReasonAlreadyRegistered, apperr.Reason(err))

		pending, _ := s.counts(t, svc)
		assert.Equal(t, 1, pending)
	})

	t.Run("Missing service", func(t *testing.T) {
		reg := &domain.ServiceRegistration{UserID: "user-2", ServiceID: "nope", TempleID: svc.TempleID}
		_, err := s.Registrations.Create(ctx, reg)
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})
}

func TestRegistrationRepository_Transitions(t *testing.T) {
	statuses := []domain.RegistrationStatus{
		domain.RegistrationStatusPending,
		domain.RegistrationStatusApproved,
		domain.RegistrationStatusRejected,
	}
	s := newTestStore(t)

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				svc := s.seedService(t, 5)
				reg := s.register(t, svc, "user-1")
				if from != domain.RegistrationStatusPending {
					s.setStatus(t, reg, from)
				}

				change, err := s.Registrations.UpdateStatus(context.Background(), repository.StatusUpdate{
					TempleID: svc.TempleID, RegistrationID: reg.ID, Status: to, ServiceID: svc.ID,
				})
				require.NoError(t, err)
				assert.Equal(t, from, change.Previous)
				assert.Equal(t, to, change.Registration.Status)

				want := domain.Bucket(to)
				pending, current := s.counts(t, svc)
				assert.Equal(t, want.Pending, pending)
				assert.Equal(t, want.Current, current)
				assert.Equal(t, pending, change.Service.PendingParticipants)
				assert.Equal(t, current, change.Service.CurrentParticipants)
			})
		}
	}
}

func TestRegistrationRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("Service mismatch", func(t *testing.T) {
		svc := s.seedService(t, 5)
		reg := s.register(t, svc, "user-1")

		_, err := s.Registrations.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID: svc.TempleID, RegistrationID: reg.ID, Status: domain.RegistrationStatusApproved, ServiceID: "other",
		})
		assert.Equal(t, codes.InvalidArgument, apperr.Code(err))
	})

	t.Run("Unknown registration", func(t *testing.T) {
		_, err := s.Registrations.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID: s.templeID, RegistrationID: "nope", Status: domain.RegistrationStatusApproved,
		})
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})

	t.Run("Capacity enforced", func(t *testing.T) {
		svc := s.seedService(t, 1)
		first := s.register(t, svc, "user-1")
		second := s.register(t, svc, "user-2")

		approve := func(id string) error {
			_, err := s.Registrations.UpdateStatus(ctx, repository.StatusUpdate{
				TempleID: svc.TempleID, RegistrationID: id, Status: domain.RegistrationStatusApproved, EnforceCapacity: true,
			})
			return err
		}
		require.NoError(t, approve(first.ID))
		err := approve(second.ID)
		assert.Equal(t, codes.FailedPrecondition, apperr.Code(err))
		assert.Equal(t, apperr.ReasonServiceFull, apperr.Reason(err))

		pending, current := s.counts(t, svc)
		assert.Equal(t, 1, pending)
		assert.Equal(t, 1, current)
	})
}

func TestRegistrationRepository_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("Releases counters", func(t *testing.T) {
		svc := s.seedService(t, 5)
		approved := s.register(t, svc, "user-1")
		s.setStatus(t, approved, domain.RegistrationStatusApproved)
		pendingReg := s.register(t, svc, "user-2")

		deleted, err := s.Registrations.Delete(ctx, svc.TempleID, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationStatusApproved, deleted.Status)
		_, err = s.Registrations.Delete(ctx, svc.TempleID, pendingReg.ID)
		require.NoError(t, err)

		pending, current := s.counts(t, svc)
		assert.Zero(t, pending)
		assert.Zero(t, current)

		_, err = s.Registrations.GetByID(ctx, svc.TempleID, approved.ID)
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})

	t.Run("Unknown registration", func(t *testing.T) {
		_, err := s.Registrations.Delete(ctx, s.templeID, "nope")
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})

	t.Run("Service already gone", func(t *testing.T) {
		svc := s.seedService(t, 5)
		reg := s.register(t, svc, "user-1")
		_, err := s.paths.services(svc.TempleID).Doc(svc.ID).Delete(ctx)
		require.NoError(t, err)

		deleted, err := s.Registrations.Delete(ctx, svc.TempleID, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.ID, deleted.ID)

		_, err = s.Services.GetByID(ctx, svc.TempleID, svc.ID)
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})
}

func TestRegistrationRepository_Recalculate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := s.seedService(t, 5)
	s.setStatus(t, s.register(t, svc, "user-1"), domain.RegistrationStatusApproved)
	s.register(t, svc, "user-2")
	s.setStatus(t, s.register(t, svc, "user-3"), domain.RegistrationStatusRejected)

	_, err := s.paths.services(svc.TempleID).Doc(svc.ID).Update(ctx, []firestore.Update{
		{Path: "currentParticipants", Value: 7},
		{Path: "pendingParticipants", Value: -2},
	})
	require.NoError(t, err)

	result, err := s.Registrations.Recalculate(ctx, svc.TempleID, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Recalculation{
		TempleID:         svc.TempleID,
		ServiceID:        svc.ID,
		Approved:         1,
		Pending:          1,
		PreviousApproved: 7,
		PreviousPending:  -2,
	}, *result)
	assert.True(t, result.Drifted())

	pending, current := s.counts(t, svc)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, current)

	_, err = s.Registrations.Recalculate(ctx, svc.TempleID, "nope")
	assert.Equal(t, codes.NotFound, apperr.Code(err))
}

func TestServiceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		name        string
		statuses    []domain.RegistrationStatus
		force       bool
		wantRemoved int
		wantCode    codes.Code
	}{
		{"No registrations", nil, false, 0, codes.OK},
		{"Pending blocks", []domain.RegistrationStatus{domain.RegistrationStatusPending}, false, 0, codes.FailedPrecondition},
		{"Approved blocks", []domain.RegistrationStatus{domain.RegistrationStatusApproved}, false, 0, codes.FailedPrecondition},
		{"Rejected only", []domain.RegistrationStatus{domain.RegistrationStatusRejected}, false, 1, codes.OK},
		{"Force removes all", []domain.RegistrationStatus{
			domain.RegistrationStatusPending, domain.RegistrationStatusApproved, domain.RegistrationStatusRejected,
		}, true, 3, codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := s.seedService(t, 5)
			for i, status := range tt.statuses {
				reg := s.register(t, svc, fmt.Sprintf("user-%d", i))
				if status != domain.RegistrationStatusPending {
					s.setStatus(t, reg, status)
				}
			}

			removed, err := s.Services.Delete(ctx, svc.TempleID, svc.ID, tt.force)
			assert.Equal(t, tt.wantCode, apperr.Code(err))
			if tt.wantCode != codes.OK {
				assert.Equal(t, apperr.ReasonServiceHasRegistrations, apperr.Reason(err))
				_, err := s.Services.GetByID(ctx, svc.TempleID, svc.ID)
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantRemoved, removed)

			_, err = s.Services.GetByID(ctx, svc.TempleID, svc.ID)
			assert.Equal(t, codes.NotFound, apperr.Code(err))
			regs, err := s.Registrations.ListByService(ctx, svc.TempleID, svc.ID)
			require.NoError(t, err)
			assert.Empty(t, regs)
		})
	}

	t.Run("Unknown service", func(t *testing.T) {
		_, err := s.Services.Delete(ctx, s.templeID, "nope", true)
		assert.Equal(t, codes.NotFound, apperr.Code(err))
	})
}

func TestServiceRepository_Watch(t *testing.T) {
	s := newTestStore(t)
	svc := s.seedService(t, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	updates, err := s.Services.Watch(ctx, svc.TempleID, svc.ID)
	require.NoError(t, err)

	next := func() repository.ServiceSnapshot {
		select {
		case snap, open := <-updates:
			require.True(t, open, "watch closed early")
			return snap
		case <-ctx.Done():
			t.Fatal("timed out waiting for a snapshot")
			return repository.ServiceSnapshot{}
		}
	}

	first := next()
	require.NoError(t, first.Err)
	assert.Equal(t, 0, first.Service.PendingParticipants)

	s.register(t, svc, "user-1")
	for {
		snap := next()
		require.NoError(t, snap.Err)
		require.False(t, snap.Deleted)
		if snap.Service.PendingParticipants == 1 {
			break
		}
	}

	_, err = s.Services.Delete(context.Background(), svc.TempleID, svc.ID, true)
	require.NoError(t, err)
	for {
		snap := next()
		require.NoError(t, snap.Err)
		if snap.Deleted {
			break
		}
	}

	_, err = s.Services.Watch(ctx, svc.TempleID, "nope")
	assert.Equal(t, codes.NotFound, apperr.Code(err))
}
