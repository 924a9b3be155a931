package memory

import (
	"context"
	"sort"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type serviceRepository struct {
	db *db
}

func serviceKey(templeID, id string) string {
	return templeID + "/" + id
}

// publishService must be called with db.mu held.
func (d *db) publishService(svc domain.Service) {
	d.broker.publish(serviceKey(svc.TempleID, svc.ID), repository.ServiceSnapshot{Service: &svc})
}

func (d *db) getService(templeID, id string) (domain.Service, error) {
	svc, ok := d.services[templeID][id]
	if !ok {
		return domain.Service{}, apperr.NotFound("service %s not found in temple %s", id, templeID)
	}
	return svc, nil
}

func (r *serviceRepository) Create(ctx context.Context, svc *domain.Service) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	svc.ID = newID(svc.ID)
	services := scoped(r.db.services, svc.TempleID)
	if _, exists := services[svc.ID]; exists {
		return apperr.AlreadyExists("service %s already exists", svc.ID)
	}
	now := r.db.now()
	svc.CreatedAt, svc.UpdatedAt = now, now
	services[svc.ID] = *svc
	r.db.publishService(*svc)
	return nil
}

func (r *serviceRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Service, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	svc, err := r.db.getService(templeID, id)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Service
	for _, svc := range r.db.services[templeID] {
		if afterDate != "" && svc.Date <= afterDate {
			continue
		}
		out = append(out, svc)
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

func (r *serviceRepository) Update(ctx context.Context, svc *domain.Service) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, err := r.db.getService(svc.TempleID, svc.ID)
	if err != nil {
		return err
	}
	updated := *svc
	updated.CurrentParticipants = current.CurrentParticipants
	updated.PendingParticipants = current.PendingParticipants
	updated.CreatedAt = current.CreatedAt
	updated.CreatedBy = current.CreatedBy
	updated.UpdatedAt = r.db.now()
	r.db.services[svc.TempleID][svc.ID] = updated
	*svc = updated
	r.db.publishService(updated)
	return nil
}

func (r *serviceRepository) Delete(ctx context.Context, templeID, id string, force bool) (int, error) {
	logger.StoreCall(backend, "delete_service", serviceKey(templeID, id), "force", force)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.getService(templeID, id); err != nil {
		return 0, err
	}

	regs := r.db.registrations[templeID]
	var dependent []string
	active := 0
	for regID, reg := range regs {
		if reg.ServiceID != id {
			continue
		}
		dependent = append(dependent, regID)
		if reg.Status.Active() {
			active++
		}
	}
	if active > 0 && !force {
		return 0, apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceHasRegistrations,
			"service %s has %d active registrations", id, active)
	}

	for _, regID := range dependent {
		delete(regs, regID)
	}
	delete(r.db.services[templeID], id)
	r.db.broker.publish(serviceKey(templeID, id), repository.ServiceSnapshot{Deleted: true})
	return len(dependent), nil
}

func (r *serviceRepository) Watch(ctx context.Context, templeID, id string) (<-chan repository.ServiceSnapshot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	svc, err := r.db.getService(templeID, id)
	if err != nil {
		return nil, err
	}
	return r.db.broker.subscribe(ctx, serviceKey(templeID, id), repository.ServiceSnapshot{Service: &svc}), nil
}
