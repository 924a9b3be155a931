package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository/memory"
	"temple-services-backend/internal/service"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewNotificationService(store.Notifications, 2)

	t.Run("Notify validates", func(t *testing.T) {
		assert.True(t, apperr.Is(svc.Notify(ctx, &domain.Notification{Title: "x"}), codes.InvalidArgument))
		assert.True(t, apperr.Is(svc.Notify(ctx, &domain.Notification{UserID: "u1"}), codes.InvalidArgument))
	})

	for _, title := range []string{"first", "second", "third"} {
		note := &domain.Notification{UserID: "u1", Title: title, Read: true}
		require.NoError(t, svc.Notify(ctx, note))
		assert.False(t, note.Read)
		assert.Equal(t, domain.NotificationTypeInfo, note.Type)
		assert.False(t, note.Timestamp.IsZero())
	}
	require.NoError(t, svc.Notify(ctx, &domain.Notification{UserID: "u2", Title: "other"}))

	t.Run("Pages use the default size", func(t *testing.T) {
		page, total, err := svc.GetNotifications(ctx, user("u1"), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, page, 2)

		page, _, err = svc.GetNotifications(ctx, user("u1"), 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("Anonymous callers are rejected", func(t *testing.T) {
		_, _, err := svc.GetNotifications(ctx, authz.Context{}, 1, 10)
		assert.True(t, apperr.Is(err, codes.Unauthenticated))
	})

	t.Run("Read state is per owner", func(t *testing.T) {
		page, _, err := svc.GetNotifications(ctx, user("u1"), 1, 10)
		require.NoError(t, err)
		id := page[0].ID

		assert.True(t, apperr.Is(svc.MarkAsRead(ctx, user("u2"), id), codes.NotFound))
		require.NoError(t, svc.MarkAsRead(ctx, user("u1"), id))

		marked, err := svc.MarkAllAsRead(ctx, user("u1"))
		require.NoError(t, err)
		assert.Equal(t, 2, marked)

		assert.True(t, apperr.Is(svc.DeleteNotification(ctx, user("u2"), id), codes.NotFound))
		require.NoError(t, svc.DeleteNotification(ctx, user("u1"), id))
		_, total, err := svc.GetNotifications(ctx, user("u1"), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})
}

func TestQuickLinkService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewQuickLinkService(store.QuickLinks)

	_, err := svc.CreateQuickLink(ctx, user("u1"), &domain.QuickLink{Title: "Donate", URL: "not a url"})
	assert.True(t, apperr.Is(err, codes.InvalidArgument))

	second, err := svc.CreateQuickLink(ctx, user("u1"), &domain.QuickLink{Title: "Calendar", URL: "https://example.org/cal", Position: 2})
	require.NoError(t, err)
	first, err := svc.CreateQuickLink(ctx, user("u1"), &domain.QuickLink{Title: "Donate", URL: "https://example.org/give", Position: 1, UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "u1", first.UserID)

	links, err := svc.ListQuickLinks(ctx, user("u1"))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, first.ID, links[0].ID)

	t.Run("Update", func(t *testing.T) {
		updated, err := svc.UpdateQuickLink(ctx, user("u1"), &domain.QuickLink{ID: second.ID, Title: "Schedule", URL: "https://example.org/s", Position: 0})
		require.NoError(t, err)
		assert.Equal(t, "Schedule", updated.Title)

		_, err = svc.UpdateQuickLink(ctx, user("u2"), &domain.QuickLink{ID: second.ID, Title: "x", URL: "https://example.org"})
		assert.True(t, apperr.Is(err, codes.NotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		assert.True(t, apperr.Is(svc.DeleteQuickLink(ctx, user("u2"), first.ID), codes.NotFound))
		require.NoError(t, svc.DeleteQuickLink(ctx, user("u1"), first.ID))
		links, err := svc.ListQuickLinks(ctx, user("u1"))
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})
}

func TestEventService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	svc := service.NewEventService(f.store.Events)

	_, err := svc.CreateEvent(ctx, user("u1"), &domain.Event{TempleID: f.templeID, Title: "Diwali", Date: "2026-11-08"})
	assert.True(t, apperr.Is(err, codes.PermissionDenied))

	_, err = svc.CreateEvent(ctx, f.adminAC, &domain.Event{TempleID: f.templeID, Title: "Diwali", Date: "2026-11-08", StartTime: "20:00", EndTime: "18:00"})
	assert.True(t, apperr.Is(err, codes.InvalidArgument))

	event, err := svc.CreateEvent(ctx, f.adminAC, &domain.Event{TempleID: f.templeID, Title: "Diwali", Date: "2026-11-08"})
	require.NoError(t, err)
	assert.Equal(t, f.adminAC.UserID, event.CreatedBy)

	event.Location = "Main hall"
	updated, err := svc.UpdateEvent(ctx, f.adminAC, event)
	require.NoError(t, err)
	assert.Equal(t, "Main hall", updated.Location)

	events, err := svc.ListEvents(ctx, f.templeID, "2026-11-01", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = svc.ListEvents(ctx, f.templeID, "soon", 0)
	assert.True(t, apperr.Is(err, codes.InvalidArgument))

	require.NoError(t, svc.DeleteEvent(ctx, f.adminAC, f.templeID, event.ID))
	_, err = svc.GetEvent(ctx, f.templeID, event.ID)
	assert.True(t, apperr.Is(err, codes.NotFound))
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewUserService(store.Users)

	profile, err := svc.GetProfile(ctx, user("u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Empty(t, profile.DisplayName)

	_, err = svc.UpdateProfile(ctx, user("u1"), "Ravi", "ravi@example.com", "555-0101")
	require.NoError(t, err)

	profile, err = svc.GetProfile(ctx, user("u1"))
	require.NoError(t, err)
	assert.Equal(t, "Ravi", profile.DisplayName)
	assert.False(t, profile.CreatedAt.IsZero())

	_, err = svc.GetProfile(ctx, authz.Context{})
	assert.True(t, apperr.Is(err, codes.Unauthenticated))
}
