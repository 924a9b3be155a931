package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
)

type userRepository struct {
	paths
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	var u domain.User
	if err := snap.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (r *userRepository) Save(ctx context.Context, u *domain.User) error {
	ref := r.users().Doc(u.ID)
	logger.StoreCall(backend, "save", ref.Path)
	ts := now()
	u.UpdatedAt = ts
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "displayName", Value: u.DisplayName},
		{Path: "email", Value: u.Email},
		{Path: "phone", Value: u.Phone},
		{Path: "updatedAt", Value: ts},
	})
	if apperr.Is(err, codes.NotFound) {
		u.CreatedAt = ts
		_, err = ref.Create(ctx, u)
	}
	return logged("save", ref.Path, err)
}

type adminRepository struct {
	paths
}

func decodeAdmin(snap *firestore.DocumentSnapshot) (*domain.AdminRecord, error) {
	var rec domain.AdminRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, err
	}
	rec.UserID = snap.Ref.ID
	return &rec, nil
}

func (r *adminRepository) Get(ctx context.Context, userID string) (*domain.AdminRecord, error) {
	snap, err := r.admin().Doc(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "no admin record for user %s", userID)
	}
	return decodeAdmin(snap)
}

func (r *adminRepository) Set(ctx context.Context, rec *domain.AdminRecord) error {
	ref := r.admin().Doc(rec.UserID)
	logger.StoreCall(backend, "set", ref.Path, "is_admin", rec.IsAdmin, "is_super_admin", rec.IsSuperAdmin)
	rec.UpdatedAt = now()
	_, err := ref.Set(ctx, rec)
	return logged("set", ref.Path, err)
}

func (r *adminRepository) Delete(ctx context.Context, userID string) error {
	ref := r.admin().Doc(userID)
	logger.StoreCall(backend, "delete", ref.Path)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "no admin record for user %s", userID))
}

func (r *adminRepository) ListByTemple(ctx context.Context, templeID string) ([]domain.AdminRecord, error) {
	snaps, err := r.admin().Where("templeId", "==", templeID).Where("isAdmin", "==", true).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	records := make([]domain.AdminRecord, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := decodeAdmin(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

type memberRepository struct {
	paths
}

func (r *memberRepository) Add(ctx context.Context, m *domain.TempleMember) error {
	ref := r.members(m.TempleID).Doc(m.UserID)
	logger.StoreCall(backend, "create", ref.Path)
	m.JoinedAt = now()
	_, err := ref.Create(ctx, m)
	if apperr.Is(err, codes.AlreadyExists) {
		err = apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyMember,
			"user %s is already a member of temple %s", m.UserID, m.TempleID)
	}
	return logged("create", ref.Path, err)
}

func (r *memberRepository) Get(ctx context.Context, templeID, userID string) (*domain.TempleMember, error) {
	snap, err := r.members(templeID).Doc(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "user %s is not a member of temple %s", userID, templeID)
	}
	var m domain.TempleMember
	if err := snap.DataTo(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) Remove(ctx context.Context, templeID, userID string) error {
	ref := r.members(templeID).Doc(userID)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "user %s is not a member of temple %s", userID, templeID))
}

func (r *memberRepository) List(ctx context.Context, templeID string) ([]domain.TempleMember, error) {
	snaps, err := r.members(templeID).OrderBy("joinedAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	members := make([]domain.TempleMember, 0, len(snaps))
	for _, snap := range snaps {
		var m domain.TempleMember
		if err := snap.DataTo(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
