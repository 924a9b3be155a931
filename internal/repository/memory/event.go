package memory

import (
	"context"
	"sort"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
)

type eventRepository struct {
	db *db
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e.ID = newID(e.ID)
	now := r.db.now()
	e.CreatedAt, e.UpdatedAt = now, now
	scoped(r.db.events, e.TempleID)[e.ID] = *e
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.events[templeID][id]
	if !ok {
		return nil, apperr.NotFound("event %s not found in temple %s", id, templeID)
	}
	return &e, nil
}

func (r *eventRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Event
	for _, e := range r.db.events[templeID] {
		if afterDate != "" && e.Date <= afterDate {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.events[e.TempleID][e.ID]
	if !ok {
		return apperr.NotFound("event %s not found in temple %s", e.ID, e.TempleID)
	}
	e.CreatedAt, e.CreatedBy = current.CreatedAt, current.CreatedBy
	e.UpdatedAt = r.db.now()
	r.db.events[e.TempleID][e.ID] = *e
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, templeID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[templeID][id]; !ok {
		return apperr.NotFound("event %s not found in temple %s", id, templeID)
	}
	delete(r.db.events[templeID], id)
	return nil
}
