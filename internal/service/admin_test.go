package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository/memory"
	"temple-services-backend/internal/service"
)

var superAC = authz.Context{UserID: "root", SuperAdmin: true}

func TestAdminService_Temples(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewAdminService(store.Temples, store.Services, store.Admins, store.Members, store.Users, nil)

	t.Run("Only super admins create temples", func(t *testing.T) {
		_, err := svc.CreateTemple(ctx, user("u1"), &domain.Temple{Name: "Shiva Temple"})
		assert.True(t, apperr.Is(err, codes.PermissionDenied))
	})

	t.Run("Name is required", func(t *testing.T) {
		_, err := svc.CreateTemple(ctx, superAC, &domain.Temple{Name: "  "})
		assert.True(t, apperr.Is(err, codes.InvalidArgument))
	})

	temple, err := svc.CreateTemple(ctx, superAC, &domain.Temple{Name: "Shiva Temple"})
	require.NoError(t, err)
	assert.NotEmpty(t, temple.ID)
	assert.Equal(t, "root", temple.CreatedBy)

	t.Run("Temple admin updates", func(t *testing.T) {
		ac := authz.Context{UserID: "a1", AdminTempleID: temple.ID}
		updated, err := svc.UpdateTemple(ctx, ac, &domain.Temple{ID: temple.ID, Name: "Shiva Mandir", Address: "1 Main St"})
		require.NoError(t, err)
		assert.Equal(t, "Shiva Mandir", updated.Name)
	})

	t.Run("Temples with services are kept", func(t *testing.T) {
		s := newService(5)
		s.TempleID = temple.ID
		require.NoError(t, store.Services.Create(ctx, s))

		err := svc.DeleteTemple(ctx, superAC, temple.ID)
		assert.True(t, apperr.Is(err, codes.FailedPrecondition))

		_, err = store.Services.Delete(ctx, temple.ID, s.ID, true)
		require.NoError(t, err)
		require.NoError(t, svc.DeleteTemple(ctx, superAC, temple.ID))

		_, err = svc.GetTemple(ctx, temple.ID)
		assert.True(t, apperr.Is(err, codes.NotFound))
	})
}

func TestAdminService_ServiceTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.admins.CreateServiceType(ctx, user("u1"), &domain.ServiceType{TempleID: f.templeID, Name: "Puja"})
	assert.True(t, apperr.Is(err, codes.PermissionDenied))

	_, err = f.admins.CreateServiceType(ctx, f.adminAC, &domain.ServiceType{TempleID: f.templeID})
	assert.True(t, apperr.Is(err, codes.InvalidArgument))

	st, err := f.admins.CreateServiceType(ctx, f.adminAC, &domain.ServiceType{TempleID: f.templeID, Name: "Puja"})
	require.NoError(t, err)

	types, err := f.admins.ListServiceTypes(ctx, f.templeID)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Puja", types[0].Name)

	require.NoError(t, f.admins.DeleteServiceType(ctx, f.adminAC, f.templeID, st.ID))
	types, err = f.admins.ListServiceTypes(ctx, f.templeID)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestAdminService_AssignAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	temple := &domain.Temple{Name: "Devi Temple"}
	require.NoError(t, store.Temples.Create(ctx, temple))

	cache := new(MockInvalidator)
	cache.On("Invalidate", mock.AnythingOfType("string")).Return()
	svc := service.NewAdminService(store.Temples, store.Services, store.Admins, store.Members, store.Users, cache)

	t.Run("Member cannot assign", func(t *testing.T) {
		_, err := svc.AssignAdmin(ctx, user("u1"), "u2", temple.ID)
		assert.True(t, apperr.Is(err, codes.PermissionDenied))
	})

	t.Run("Unknown temple", func(t *testing.T) {
		_, err := svc.AssignAdmin(ctx, superAC, "u2", "missing")
		assert.True(t, apperr.Is(err, codes.NotFound))
	})

	rec, err := svc.AssignAdmin(ctx, superAC, "a1", temple.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsAdmin)
	assert.Equal(t, temple.ID, rec.TempleID)
	cache.AssertCalled(t, "Invalidate", "a1")

	t.Run("Admin lists admins", func(t *testing.T) {
		admins, err := svc.ListTempleAdmins(ctx, authz.Context{UserID: "a1", AdminTempleID: temple.ID}, temple.ID)
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, "a1", admins[0].UserID)
	})

	t.Run("Temple admin revokes a peer", func(t *testing.T) {
		_, err := svc.AssignAdmin(ctx, superAC, "a2", temple.ID)
		require.NoError(t, err)

		require.NoError(t, svc.RevokeAdmin(ctx, authz.Context{UserID: "a1", AdminTempleID: temple.ID}, "a2"))
		_, err = store.Admins.Get(ctx, "a2")
		assert.True(t, apperr.Is(err, codes.NotFound))
		cache.AssertCalled(t, "Invalidate", "a2")
	})

	t.Run("Admin of another temple cannot revoke", func(t *testing.T) {
		err := svc.RevokeAdmin(ctx, authz.Context{UserID: "x", AdminTempleID: "other"}, "a1")
		assert.True(t, apperr.Is(err, codes.PermissionDenied))
	})

	t.Run("Super admin flag survives revoke", func(t *testing.T) {
		_, err := svc.GrantSuperAdmin(ctx, superAC, "a1")
		require.NoError(t, err)

		err = svc.RevokeAdmin(ctx, authz.Context{UserID: "a3", AdminTempleID: temple.ID}, "a1")
		assert.True(t, apperr.Is(err, codes.PermissionDenied), "temple admins cannot demote super admins")

		require.NoError(t, svc.RevokeAdmin(ctx, superAC, "a1"))
		rec, err := store.Admins.Get(ctx, "a1")
		require.NoError(t, err)
		assert.False(t, rec.IsAdmin)
		assert.True(t, rec.IsSuperAdmin)
		assert.Empty(t, rec.TempleID)
	})

	t.Run("Only super admins grant super admin", func(t *testing.T) {
		_, err := svc.GrantSuperAdmin(ctx, authz.Context{UserID: "a2", AdminTempleID: temple.ID}, "u9")
		assert.True(t, apperr.Is(err, codes.PermissionDenied))
	})

	t.Run("Revoking a user without a record", func(t *testing.T) {
		err := svc.RevokeAdmin(ctx, superAC, "nobody")
		assert.True(t, apperr.Is(err, codes.NotFound))
	})
}

func TestAdminService_Membership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	require.NoError(t, f.store.Users.Save(ctx, &domain.User{ID: "u1", DisplayName: "Asha", Email: "asha@example.com"}))

	m, err := f.admins.JoinTemple(ctx, user("u1"), f.templeID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", m.DisplayName)

	_, err = f.admins.JoinTemple(ctx, user("u1"), f.templeID)
	assert.True(t, apperr.Is(err, codes.AlreadyExists))
	assert.Equal(t, apperr.ReasonAlreadyMember, apperr.Reason(err))

	_, err = f.admins.JoinTemple(ctx, authz.Context{}, f.templeID)
	assert.True(t, apperr.Is(err, codes.Unauthenticated))

	_, err = f.admins.ListMembers(ctx, user("u1"), f.templeID)
	assert.True(t, apperr.Is(err, codes.PermissionDenied))

	members, err := f.admins.ListMembers(ctx, f.adminAC, f.templeID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "asha@example.com", members[0].Email)

	require.NoError(t, f.admins.LeaveTemple(ctx, user("u1"), f.templeID))
	err = f.admins.LeaveTemple(ctx, user("u1"), f.templeID)
	assert.True(t, apperr.Is(err, codes.NotFound))
}

func TestAdminService_EnsureMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	require.NoError(t, f.admins.EnsureMember(ctx, "u1", f.templeID))
	require.NoError(t, f.admins.EnsureMember(ctx, "u1", f.templeID), "second enrollment is a no-op")

	members, err := f.store.Members.List(ctx, f.templeID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, f.admins.EnsureMember(ctx, f.adminAC.UserID, f.templeID))
	_, err = f.store.Members.Get(ctx, f.templeID, f.adminAC.UserID)
	assert.True(t, apperr.Is(err, codes.NotFound))
}

func TestAdminService_RoleIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	_, err := f.admins.JoinTemple(ctx, user("u1"), f.templeID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		ac        authz.Context
		serviceID string
		want      authz.Role
	}{
		{"Super admin", superAC, "", authz.RoleSuperAdmin},
		{"Temple admin", f.adminAC, f.serviceID, authz.RoleTempleAdmin},
		{"Leader of the service", user(leaderID), f.serviceID, authz.RoleServiceLeader},
		{"Leader without a service", user(leaderID), "", authz.RoleNone},
		{"Member", user("u1"), f.serviceID, authz.RoleMember},
		{"Stranger", user("u2"), "", authz.RoleNone},
		{"Anonymous", authz.Context{}, "", authz.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := f.admins.RoleIn(ctx, tt.ac, f.templeID, tt.serviceID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}

	_, err = f.admins.RoleIn(ctx, user("u1"), f.templeID, "missing")
	assert.True(t, apperr.Is(err, codes.NotFound))
}
