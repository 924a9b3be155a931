package service

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type adminService struct {
	temples  repository.TempleRepository
	services repository.ServiceRepository
	admins   repository.AdminRepository
	members  repository.MemberRepository
	users    repository.UserRepository
	cache    CacheInvalidator
}

func NewAdminService(
	temples repository.TempleRepository,
	services repository.ServiceRepository,
	admins repository.AdminRepository,
	members repository.MemberRepository,
	users repository.UserRepository,
	cache CacheInvalidator,
) AdminService {
	return &adminService{
		temples:  temples,
		services: services,
		admins:   admins,
		members:  members,
		users:    users,
		cache:    cache,
	}
}

func (s *adminService) CreateTemple(ctx context.Context, ac authz.Context, t *domain.Temple) (*domain.Temple, error) {
	if err := ac.RequireSuperAdmin(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, apperr.InvalidArgument("temple name is required")
	}
	t.ID = ""
	t.CreatedBy = ac.UserID
	if err := s.temples.Create(ctx, t); err != nil {
		return nil, err
	}
	logger.Info("Temple created", "temple_id", t.ID, "created_by", ac.UserID)
	return t, nil
}

func (s *adminService) UpdateTemple(ctx context.Context, ac authz.Context, t *domain.Temple) (*domain.Temple, error) {
	if err := ac.RequireTempleAdmin(t.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, apperr.InvalidArgument("temple name is required")
	}
	if err := s.temples.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.temples.GetByID(ctx, t.ID)
}

// DeleteTemple refuses while the temple still has services.
func (s *adminService) DeleteTemple(ctx context.Context, ac authz.Context, templeID string) error {
	if err := ac.RequireSuperAdmin(); err != nil {
		return err
	}
	services, err := s.services.List(ctx, templeID, "", 1)
	if err != nil {
		return err
	}
	if len(services) > 0 {
		return apperr.FailedPrecondition("temple %s still has services", templeID)
	}
	if err := s.temples.Delete(ctx, templeID); err != nil {
		return err
	}
	logger.Info("Temple deleted", "temple_id", templeID, "deleted_by", ac.UserID)
	return nil
}

func (s *adminService) GetTemple(ctx context.Context, templeID string) (*domain.Temple, error) {
	return s.temples.GetByID(ctx, templeID)
}

func (s *adminService) ListTemples(ctx context.Context) ([]domain.Temple, error) {
	return s.temples.List(ctx)
}

func (s *adminService) CreateServiceType(ctx context.Context, ac authz.Context, st *domain.ServiceType) (*domain.ServiceType, error) {
	if err := ac.RequireTempleAdmin(st.TempleID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(st.Name) == "" {
		return nil, apperr.InvalidArgument("service type name is required")
	}
	st.ID = ""
	if err := s.temples.CreateServiceType(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *adminService) DeleteServiceType(ctx context.Context, ac authz.Context, templeID, id string) error {
	if err := ac.RequireTempleAdmin(templeID); err != nil {
		return err
	}
	return s.temples.DeleteServiceType(ctx, templeID, id)
}

func (s *adminService) ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error) {
	return s.temples.ListServiceTypes(ctx, templeID)
}

// adminRecord returns the record of userID, or an empty one when absent.
func (s *adminService) adminRecord(ctx context.Context, userID string) (*domain.AdminRecord, error) {
	rec, err := s.admins.Get(ctx, userID)
	if apperr.Is(err, codes.NotFound) {
		return &domain.AdminRecord{UserID: userID}, nil
	}
	return rec, err
}

func (s *adminService) AssignAdmin(ctx context.Context, ac authz.Context, userID, templeID string) (*domain.AdminRecord, error) {
	logger.EnterMethod("adminService.AssignAdmin", "userID", userID, "templeID", templeID)

	if err := ac.RequireTempleAdmin(templeID); err != nil {
		logger.ExitMethodWithError("adminService.AssignAdmin", err, "callerID", ac.UserID)
		return nil, err
	}
	if userID == "" {
		return nil, apperr.InvalidArgument("user id is required")
	}
	if _, err := s.temples.GetByID(ctx, templeID); err != nil {
		logger.ExitMethodWithError("adminService.AssignAdmin", err, "templeID", templeID)
		return nil, err
	}

	rec, err := s.adminRecord(ctx, userID)
	if err != nil {
		logger.ExitMethodWithError("adminService.AssignAdmin", err)
		return nil, err
	}
	rec.IsAdmin = true
	rec.TempleID = templeID
	if err := s.admins.Set(ctx, rec); err != nil {
		logger.ExitMethodWithError("adminService.AssignAdmin", err)
		return nil, err
	}
	s.invalidate(userID)

	logger.ExitMethod("adminService.AssignAdmin", "userID", userID, "templeID", templeID)
	return rec, nil
}

// RevokeAdmin removes temple admin authority. Super-admin authority stays
// unless the record held nothing else.
func (s *adminService) RevokeAdmin(ctx context.Context, ac authz.Context, userID string) error {
	logger.EnterMethod("adminService.RevokeAdmin", "userID", userID)

	rec, err := s.admins.Get(ctx, userID)
	if err != nil {
		logger.ExitMethodWithError("adminService.RevokeAdmin", err, "userID", userID)
		return err
	}
	allowed := ac.SuperAdmin || (rec.IsAdmin && !rec.IsSuperAdmin && ac.IsTempleAdmin(rec.TempleID))
	if !allowed {
		err := apperr.PermissionDenied("user %s may not revoke admin rights of %s", ac.UserID, userID)
		logger.ExitMethodWithError("adminService.RevokeAdmin", err, "callerID", ac.UserID)
		return err
	}

	if rec.IsSuperAdmin {
		rec.IsAdmin = false
		rec.TempleID = ""
		err = s.admins.Set(ctx, rec)
	} else {
		err = s.admins.Delete(ctx, userID)
	}
	if err != nil {
		logger.ExitMethodWithError("adminService.RevokeAdmin", err, "userID", userID)
		return err
	}
	s.invalidate(userID)

	logger.ExitMethod("adminService.RevokeAdmin", "userID", userID)
	return nil
}

func (s *adminService) GrantSuperAdmin(ctx context.Context, ac authz.Context, userID string) (*domain.AdminRecord, error) {
	if err := ac.RequireSuperAdmin(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperr.InvalidArgument("user id is required")
	}
	rec, err := s.adminRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.IsSuperAdmin = true
	if err := s.admins.Set(ctx, rec); err != nil {
		return nil, err
	}
	s.invalidate(userID)
	logger.Info("Super admin granted", "user_id", userID, "granted_by", ac.UserID)
	return rec, nil
}

func (s *adminService) ListTempleAdmins(ctx context.Context, ac authz.Context, templeID string) ([]domain.AdminRecord, error) {
	if err := ac.RequireTempleAdmin(templeID); err != nil {
		return nil, err
	}
	return s.admins.ListByTemple(ctx, templeID)
}

func (s *adminService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

func (s *adminService) JoinTemple(ctx context.Context, ac authz.Context, templeID string) (*domain.TempleMember, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	if _, err := s.temples.GetByID(ctx, templeID); err != nil {
		return nil, err
	}
	m := s.newMember(ctx, ac.UserID, templeID)
	if err := s.members.Add(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *adminService) LeaveTemple(ctx context.Context, ac authz.Context, templeID string) error {
	if err := requireAuthenticated(ac); err != nil {
		return err
	}
	return s.members.Remove(ctx, templeID, ac.UserID)
}

func (s *adminService) ListMembers(ctx context.Context, ac authz.Context, templeID string) ([]domain.TempleMember, error) {
	if err := ac.RequireTempleAdmin(templeID); err != nil {
		return nil, err
	}
	return s.members.List(ctx, templeID)
}

// RoleIn reports the caller's most privileged role in templeID, taking the
// given service into account when serviceID is set.
func (s *adminService) RoleIn(ctx context.Context, ac authz.Context, templeID, serviceID string) (authz.Role, error) {
	var svc *domain.Service
	if serviceID != "" {
		var err error
		if svc, err = s.services.GetByID(ctx, templeID, serviceID); err != nil {
			return authz.RoleNone, err
		}
	}
	isMember := false
	if ac.Authenticated() {
		_, err := s.members.Get(ctx, templeID, ac.UserID)
		switch {
		case err == nil:
			isMember = true
		case !apperr.Is(err, codes.NotFound):
			return authz.RoleNone, err
		}
	}
	return ac.RoleFor(templeID, svc, isMember), nil
}

func (s *adminService) EnsureMember(ctx context.Context, userID, templeID string) error {
	rec, err := s.adminRecord(ctx, userID)
	if err != nil {
		return err
	}
	if authz.FromRecord(userID, rec).IsTempleAdmin(templeID) {
		return nil
	}

	_, err = s.members.Get(ctx, templeID, userID)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, codes.NotFound) {
		return err
	}

	err = s.members.Add(ctx, s.newMember(ctx, userID, templeID))
	if apperr.Is(err, codes.AlreadyExists) {
		logger.Debug("Member enrolled concurrently", "user_id", userID, "temple_id", templeID)
		return nil
	}
	if err == nil {
		logger.Info("Member enrolled on registration", "user_id", userID, "temple_id", templeID)
	}
	return err
}

// newMember fills the member profile from the user record when there is one.
func (s *adminService) newMember(ctx context.Context, userID, templeID string) *domain.TempleMember {
	m := &domain.TempleMember{UserID: userID, TempleID: templeID}
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		m.DisplayName = u.DisplayName
		m.Email = u.Email
	}
	return m
}
