package jobs

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/repository/memory"
	"temple-services-backend/internal/retry"
	"temple-services-backend/internal/service"
)

type failingRegistrations struct {
	service.RegistrationService
	failFor string
}

func (f failingRegistrations) RecalculateServiceParticipants(ctx context.Context, ac authz.Context, serviceID, templeID string) (*domain.Recalculation, error) {
	if serviceID == f.failFor {
		return nil, apperr.New(codes.Unavailable, "backend unavailable")
	}
	return f.RegistrationService.RecalculateServiceParticipants(ctx, ac, serviceID, templeID)
}

func seed(t *testing.T, store *repository.Store) (templeID, cleanID, driftedID string) {
	ctx := context.Background()
	temple := &domain.Temple{Name: "Hindu Temple"}
	require.NoError(t, store.Temples.Create(ctx, temple))

	clean := &domain.Service{TempleID: temple.ID, Name: "Aarti", Date: "2026-05-01", MaxParticipants: 5}
	require.NoError(t, store.Services.Create(ctx, clean))
	drifted := &domain.Service{TempleID: temple.ID, Name: "Homam", Date: "2026-05-02", MaxParticipants: 5, CurrentParticipants: 3, PendingParticipants: 1}
	require.NoError(t, store.Services.Create(ctx, drifted))
	return temple.ID, clean.ID, drifted.ID
}

func newRegistrations(store *repository.Store) service.RegistrationService {
	admin := service.NewAdminService(store.Temples, store.Services, store.Admins, store.Members, store.Users, authz.NewResolver(store.Admins, time.Minute))
	policy := retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	return service.NewRegistrationService(store.Services, store.Registrations, admin, service.NewNotificationService(store.Notifications, 20), policy, false)
}

func TestRecalculateAll(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	templeID, _, driftedID := seed(t, store)
	runner := NewJobRunner(store, newRegistrations(store), &config.Config{})

	summary, err := runner.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecalculateSummary{Temples: 1, Services: 2, Drifted: 1}, summary)

	svc, err := store.Services.GetByID(ctx, templeID, driftedID)
	require.NoError(t, err)
	assert.Zero(t, svc.CurrentParticipants)
	assert.Zero(t, svc.PendingParticipants)

	summary, err = runner.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Drifted)
}

func TestRecalculateAll_LogsDriftOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { logger.InitializeWithWriter(&bytes.Buffer{}, "info", "text") })

	store := memory.NewStore()
	templeID, _, driftedID := seed(t, store)
	runner := NewJobRunner(store, newRegistrations(store), &config.Config{})

	_, err := runner.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "Participant counters drifted"))
	assert.Contains(t, buf.String(), "temple_id="+templeID)
	assert.Contains(t, buf.String(), "service_id="+driftedID)
}

func TestRecalculateAll_ContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	templeID, cleanID, driftedID := seed(t, store)
	regs := failingRegistrations{RegistrationService: newRegistrations(store), failFor: cleanID}
	runner := NewJobRunner(store, regs, &config.Config{})

	summary, err := runner.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Drifted)

	svc, err := store.Services.GetByID(ctx, templeID, driftedID)
	require.NoError(t, err)
	assert.Zero(t, svc.CurrentParticipants)
}

func TestRecalculateAllParticipants_RecoversFromPanic(t *testing.T) {
	runner := &JobRunner{}
	assert.NotPanics(t, runner.RecalculateAllParticipants)
}
