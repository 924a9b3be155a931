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

type registrationRepository struct {
	db *db
}

// applyDelta must be called with db.mu held.
func (d *db) applyDelta(svc *domain.Service, delta domain.ParticipantDelta) {
	svc.PendingParticipants += delta.Pending
	svc.CurrentParticipants += delta.Current
	svc.UpdatedAt = d.now()
	d.services[svc.TempleID][svc.ID] = *svc
	d.publishService(*svc)
}

func (d *db) getRegistration(templeID, id string) (domain.ServiceRegistration, error) {
	reg, ok := d.registrations[templeID][id]
	if !ok {
		return domain.ServiceRegistration{}, apperr.NotFound("registration %s not found in temple %s", id, templeID)
	}
	return reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.ServiceRegistration) (*domain.Service, error) {
	logger.StoreCall(backend, "create_registration", serviceKey(reg.TempleID, reg.ServiceID), "user_id", reg.UserID)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	svc, err := r.db.getService(reg.TempleID, reg.ServiceID)
	if err != nil {
		return nil, err
	}
	regs := scoped(r.db.registrations, reg.TempleID)
	for _, existing := range regs {
		if existing.UserID == reg.UserID && existing.ServiceID == reg.ServiceID {
			return nil, apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyRegistered,
				"user %s is already registered for service %s", reg.UserID, reg.ServiceID)
		}
	}

	reg.ID = newID(reg.ID)
	reg.Snapshot(&svc)
	reg.Status = domain.RegistrationStatusPending
	now := r.db.now()
	reg.CreatedAt, reg.UpdatedAt = now, now
	regs[reg.ID] = *reg

	r.db.applyDelta(&svc, domain.Bucket(domain.RegistrationStatusPending))
	return &svc, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	reg, err := r.db.getRegistration(templeID, id)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindByUserAndService(ctx context.Context, templeID, userID, serviceID string) (*domain.ServiceRegistration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, reg := range r.db.registrations[templeID] {
		if reg.UserID == userID && reg.ServiceID == serviceID {
			return &reg, nil
		}
	}
	return nil, apperr.NotFound("no registration of user %s for service %s", userID, serviceID)
}

func (r *registrationRepository) list(templeID string, keep func(domain.ServiceRegistration) bool) []domain.ServiceRegistration {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.ServiceRegistration
	for _, reg := range r.db.registrations[templeID] {
		if keep(reg) {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *registrationRepository) ListByService(ctx context.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error) {
	return r.list(templeID, func(reg domain.ServiceRegistration) bool { return reg.ServiceID == serviceID }), nil
}

func (r *registrationRepository) ListByTemple(ctx context.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error) {
	return r.list(templeID, func(reg domain.ServiceRegistration) bool { return status == "" || reg.Status == status }), nil
}

func (r *registrationRepository) ListByUser(ctx context.Context, templeID, userID string) ([]domain.ServiceRegistration, error) {
	return r.list(templeID, func(reg domain.ServiceRegistration) bool { return reg.UserID == userID }), nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, u repository.StatusUpdate) (*repository.StatusChange, error) {
	logger.StoreCall(backend, "update_registration_status", serviceKey(u.TempleID, u.RegistrationID), "status", u.Status)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	reg, err := r.db.getRegistration(u.TempleID, u.RegistrationID)
	if err != nil {
		return nil, err
	}
	if u.ServiceID != "" && u.ServiceID != reg.ServiceID {
		return nil, apperr.InvalidArgument("registration %s does not belong to service %s", reg.ID, u.ServiceID)
	}
	svc, err := r.db.getService(u.TempleID, reg.ServiceID)
	if err != nil {
		return nil, err
	}

	previous := reg.Status
	delta := domain.CounterDelta(previous, u.Status)
	if u.EnforceCapacity && !svc.HasCapacityFor(delta) {
		return nil, apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceFull,
			"service %s is full (%d/%d)", svc.ID, svc.CurrentParticipants, svc.MaxParticipants)
	}

	reg.Status = u.Status
	reg.UpdatedAt = r.db.now()
	r.db.registrations[u.TempleID][reg.ID] = reg
	r.db.applyDelta(&svc, delta)

	return &repository.StatusChange{Registration: &reg, Previous: previous, Service: &svc, Delta: delta}, nil
}

func (r *registrationRepository) Delete(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	logger.StoreCall(backend, "delete_registration", serviceKey(templeID, id))
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	reg, err := r.db.getRegistration(templeID, id)
	if err != nil {
		return nil, err
	}
	delete(r.db.registrations[templeID], id)
	if svc, err := r.db.getService(templeID, reg.ServiceID); err == nil {
		r.db.applyDelta(&svc, domain.Bucket(reg.Status).Negate())
	}
	return &reg, nil
}

func (r *registrationRepository) Recalculate(ctx context.Context, templeID, serviceID string) (*domain.Recalculation, error) {
	logger.StoreCall(backend, "recalculate_participants", serviceKey(templeID, serviceID))
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	svc, err := r.db.getService(templeID, serviceID)
	if err != nil {
		return nil, err
	}
	var regs []domain.ServiceRegistration
	for _, reg := range r.db.registrations[templeID] {
		if reg.ServiceID == serviceID {
			regs = append(regs, reg)
		}
	}
	counts := domain.CountRegistrations(regs)
	result := &domain.Recalculation{
		TempleID:         templeID,
		ServiceID:        serviceID,
		Approved:         counts.Approved,
		Pending:          counts.Pending,
		PreviousApproved: svc.CurrentParticipants,
		PreviousPending:  svc.PendingParticipants,
	}
	if result.Drifted() {
		r.db.applyDelta(&svc, domain.ParticipantDelta{
			Pending: counts.Pending - svc.PendingParticipants,
			Current: counts.Approved - svc.CurrentParticipants,
		})
	}
	return result, nil
}
