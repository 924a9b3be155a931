package memory

import (
	"context"
	"sort"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"

	"google.golang.org/grpc/codes"
)

type userRepository struct {
	db *db
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return &u, nil
}

func (r *userRepository) Save(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	if current, ok := r.db.users[u.ID]; ok {
		u.CreatedAt = current.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.db.users[u.ID] = *u
	return nil
}

type adminRepository struct {
	db *db
}

func (r *adminRepository) Get(ctx context.Context, userID string) (*domain.AdminRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.admins[userID]
	if !ok {
		return nil, apperr.NotFound("no admin record for user %s", userID)
	}
	return &rec, nil
}

func (r *adminRepository) Set(ctx context.Context, rec *domain.AdminRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec.UpdatedAt = r.db.now()
	r.db.admins[rec.UserID] = *rec
	return nil
}

func (r *adminRepository) Delete(ctx context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.admins[userID]; !ok {
		return apperr.NotFound("no admin record for user %s", userID)
	}
	delete(r.db.admins, userID)
	return nil
}

func (r *adminRepository) ListByTemple(ctx context.Context, templeID string) ([]domain.AdminRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.AdminRecord
	for _, rec := range r.db.admins {
		if rec.IsAdmin && rec.TempleID == templeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memberRepository struct {
	db *db
}

func (r *memberRepository) Add(ctx context.Context, m *domain.TempleMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	members := scoped(r.db.members, m.TempleID)
	if _, exists := members[m.UserID]; exists {
		return apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyMember,
			"user %s is already a member of temple %s", m.UserID, m.TempleID)
	}
	m.JoinedAt = r.db.now()
	members[m.UserID] = *m
	return nil
}

func (r *memberRepository) Get(ctx context.Context, templeID, userID string) (*domain.TempleMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.members[templeID][userID]
	if !ok {
		return nil, apperr.NotFound("user %s is not a member of temple %s", userID, templeID)
	}
	return &m, nil
}

func (r *memberRepository) Remove(ctx context.Context, templeID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.members[templeID][userID]; !ok {
		return apperr.NotFound("user %s is not a member of temple %s", userID, templeID)
	}
	delete(r.db.members[templeID], userID)
	return nil
}

func (r *memberRepository) List(ctx context.Context, templeID string) ([]domain.TempleMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.TempleMember
	for _, m := range r.db.members[templeID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
