package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
)

type templeRepository struct {
	paths
}

func decodeTemple(snap *firestore.DocumentSnapshot) (*domain.Temple, error) {
	var t domain.Temple
	if err := snap.DataTo(&t); err != nil {
		return nil, err
	}
	t.ID = snap.Ref.ID
	return &t, nil
}

func (r *templeRepository) Create(ctx context.Context, t *domain.Temple) error {
	ref := newDoc(r.temples(), t.ID)
	t.ID = ref.ID
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts

	logger.StoreCall(backend, "create", ref.Path)
	_, err := ref.Create(ctx, t)
	return logged("create", ref.Path, alreadyExists(err, "temple %s already exists", t.ID))
}

func (r *templeRepository) GetByID(ctx context.Context, id string) (*domain.Temple, error) {
	snap, err := r.temples().Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "temple %s not found", id)
	}
	return decodeTemple(snap)
}

func (r *templeRepository) List(ctx context.Context) ([]domain.Temple, error) {
	snaps, err := r.temples().OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	temples := make([]domain.Temple, 0, len(snaps))
	for _, snap := range snaps {
		t, err := decodeTemple(snap)
		if err != nil {
			return nil, err
		}
		temples = append(temples, *t)
	}
	return temples, nil
}

func (r *templeRepository) Update(ctx context.Context, t *domain.Temple) error {
	ref := r.temples().Doc(t.ID)
	logger.StoreCall(backend, "update", ref.Path)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "name", Value: t.Name},
		{Path: "description", Value: t.Description},
		{Path: "address", Value: t.Address},
		{Path: "contactEmail", Value: t.ContactEmail},
		{Path: "contactPhone", Value: t.ContactPhone},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return logged("update", ref.Path, notFound(err, "temple %s not found", t.ID))
}

// Delete removes the temple document only. Its subcollections are left to
// the caller, which refuses to delete temples that still hold services.
func (r *templeRepository) Delete(ctx context.Context, id string) error {
	ref := r.temples().Doc(id)
	logger.StoreCall(backend, "delete", ref.Path)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "temple %s not found", id))
}

func (r *templeRepository) CreateServiceType(ctx context.Context, st *domain.ServiceType) error {
	ref := newDoc(r.serviceTypes(st.TempleID), st.ID)
	st.ID = ref.ID
	st.CreatedAt = now()
	_, err := ref.Create(ctx, st)
	return logged("create", ref.Path, alreadyExists(err, "service type %s already exists", st.ID))
}

func (r *templeRepository) ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error) {
	snaps, err := r.serviceTypes(templeID).OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	types := make([]domain.ServiceType, 0, len(snaps))
	for _, snap := range snaps {
		var st domain.ServiceType
		if err := snap.DataTo(&st); err != nil {
			return nil, err
		}
		st.ID = snap.Ref.ID
		types = append(types, st)
	}
	return types, nil
}

func (r *templeRepository) DeleteServiceType(ctx context.Context, templeID, id string) error {
	ref := r.serviceTypes(templeID).Doc(id)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "service type %s not found", id))
}
