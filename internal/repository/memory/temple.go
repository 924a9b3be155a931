package memory

import (
	"context"
	"sort"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
)

type templeRepository struct {
	db *db
}

func (r *templeRepository) Create(ctx context.Context, t *domain.Temple) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t.ID = newID(t.ID)
	if _, exists := r.db.temples[t.ID]; exists {
		return apperr.AlreadyExists("temple %s already exists", t.ID)
	}
	now := r.db.now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.db.temples[t.ID] = *t
	return nil
}

func (r *templeRepository) GetByID(ctx context.Context, id string) (*domain.Temple, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.temples[id]
	if !ok {
		return nil, apperr.NotFound("temple %s not found", id)
	}
	return &t, nil
}

func (r *templeRepository) List(ctx context.Context) ([]domain.Temple, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]domain.Temple, 0, len(r.db.temples))
	for _, t := range r.db.temples {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *templeRepository) Update(ctx context.Context, t *domain.Temple) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.temples[t.ID]
	if !ok {
		return apperr.NotFound("temple %s not found", t.ID)
	}
	t.CreatedAt, t.CreatedBy = current.CreatedAt, current.CreatedBy
	t.UpdatedAt = r.db.now()
	r.db.temples[t.ID] = *t
	return nil
}

func (r *templeRepository) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.temples[id]; !ok {
		return apperr.NotFound("temple %s not found", id)
	}
	delete(r.db.temples, id)
	return nil
}

func (r *templeRepository) CreateServiceType(ctx context.Context, st *domain.ServiceType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	st.ID = newID(st.ID)
	st.CreatedAt = r.db.now()
	scoped(r.db.serviceTypes, st.TempleID)[st.ID] = *st
	return nil
}

func (r *templeRepository) ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.ServiceType
	for _, st := range r.db.serviceTypes[templeID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *templeRepository) DeleteServiceType(ctx context.Context, templeID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.serviceTypes[templeID][id]; !ok {
		return apperr.NotFound("service type %s not found", id)
	}
	delete(r.db.serviceTypes[templeID], id)
	return nil
}
