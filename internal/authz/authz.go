// Package authz resolves a caller's authority once per request into a Context
// value that is passed explicitly to every mutating operation.
package authz

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"

	"google.golang.org/grpc/codes"
)

type Role string

const (
	RoleSuperAdmin    Role = "super-admin"
	RoleTempleAdmin   Role = "temple-admin"
	RoleServiceLeader Role = "service-leader"
	RoleMember        Role = "member"
	RoleNone          Role = "none"
)

// SystemUserID identifies scheduled jobs and operator tooling.
const SystemUserID = "system"

// Context is the resolved authority of one caller.
type Context struct {
	UserID     string
	SuperAdmin bool
	// AdminTempleID is the temple the caller administers, if any.
	AdminTempleID string
}

// System is the authority used by scheduled jobs and templectl.
func System() Context {
	return Context{UserID: SystemUserID, SuperAdmin: true}
}

// FromRecord builds the context of uid from its admin record, which may be nil.
func FromRecord(uid string, rec *domain.AdminRecord) Context {
	ac := Context{UserID: uid}
	if rec == nil {
		return ac
	}
	ac.SuperAdmin = rec.IsSuperAdmin
	if rec.IsAdmin {
		ac.AdminTempleID = rec.TempleID
	}
	return ac
}

func (c Context) Authenticated() bool {
	return c.UserID != ""
}

func (c Context) IsSystem() bool {
	return c.UserID == SystemUserID && c.SuperAdmin
}

// IsTempleAdmin reports super-admin authority or admin authority scoped to templeID.
func (c Context) IsTempleAdmin(templeID string) bool {
	if c.SuperAdmin {
		return true
	}
	return templeID != "" && c.AdminTempleID == templeID
}

// IsServiceLeader reports whether the caller is the designated contact of svc.
func (c Context) IsServiceLeader(svc *domain.Service) bool {
	return svc != nil && c.UserID != "" && svc.ContactPerson.UserID == c.UserID
}

// RoleFor returns the most privileged role of the caller within templeID.
// svc may be nil when no particular service is concerned.
func (c Context) RoleFor(templeID string, svc *domain.Service, isMember bool) Role {
	switch {
	case c.SuperAdmin:
		return RoleSuperAdmin
	case c.IsTempleAdmin(templeID):
		return RoleTempleAdmin
	case c.IsServiceLeader(svc):
		return RoleServiceLeader
	case isMember:
		return RoleMember
	}
	return RoleNone
}

// RequireTempleAdmin fails with PermissionDenied unless the caller administers templeID.
func (c Context) RequireTempleAdmin(templeID string) error {
	if !c.IsTempleAdmin(templeID) {
		return apperr.PermissionDenied("user %s is not an admin of temple %s", c.UserID, templeID)
	}
	return nil
}

func (c Context) RequireSuperAdmin() error {
	if !c.SuperAdmin {
		return apperr.PermissionDenied("user %s is not a super admin", c.UserID)
	}
	return nil
}

// Resolver reads admin records, caching the resolved contexts.
type Resolver struct {
	admins repository.AdminRepository
	cache  *cache.Cache
}

func NewResolver(admins repository.AdminRepository, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{
		admins: admins,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (r *Resolver) Resolve(ctx context.Context, uid string) (Context, error) {
	if uid == "" {
		return Context{}, apperr.Unauthenticated("missing user id")
	}
	if cached, found := r.cache.Get(uid); found {
		return cached.(Context), nil
	}

	rec, err := r.admins.Get(ctx, uid)
	if err != nil && !apperr.Is(err, codes.NotFound) {
		logger.Error("Failed to resolve authorization context", "user_id", uid, "error", err)
		return Context{}, err
	}
	if err != nil {
		rec = nil
	}

	ac := FromRecord(uid, rec)
	r.cache.Set(uid, ac, cache.DefaultExpiration)
	return ac, nil
}

// Invalidate drops the cached context of uid after its admin record changed.
func (r *Resolver) Invalidate(uid string) {
	r.cache.Delete(uid)
}
