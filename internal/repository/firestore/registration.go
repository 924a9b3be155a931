package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type registrationRepository struct {
	paths
}

func decodeRegistration(snap *firestore.DocumentSnapshot) (*domain.ServiceRegistration, error) {
	var reg domain.ServiceRegistration
	if err := snap.DataTo(&reg); err != nil {
		return nil, err
	}
	reg.ID = snap.Ref.ID
	return &reg, nil
}

func decodeRegistrations(snaps []*firestore.DocumentSnapshot) ([]domain.ServiceRegistration, error) {
	regs := make([]domain.ServiceRegistration, 0, len(snaps))
	for _, snap := range snaps {
		reg, err := decodeRegistration(snap)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
	return regs, nil
}

// counterUpdates increments both counters by d. Zero increments are still
// written so that every transition touches the service document.
func counterUpdates(d domain.ParticipantDelta) []firestore.Update {
	return []firestore.Update{
		{Path: "pendingParticipants", Value: firestore.Increment(d.Pending)},
		{Path: "currentParticipants", Value: firestore.Increment(d.Current)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.ServiceRegistration) (*domain.Service, error) {
	svcRef := r.services(reg.TempleID).Doc(reg.ServiceID)
	regRef := newDoc(r.registrations(reg.TempleID), reg.ID)
	logger.StoreCall(backend, "create_registration", regRef.Path, "user_id", reg.UserID, "service_id", reg.ServiceID)

	var svc *domain.Service
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(svcRef)
		if err != nil {
			return notFound(err, "service %s not found in temple %s", reg.ServiceID, reg.TempleID)
		}
		if svc, err = decodeService(snap); err != nil {
			return err
		}

		dupes, err := tx.Documents(r.registrations(reg.TempleID).
			Where("userId", "==", reg.UserID).
			Where("serviceId", "==", reg.ServiceID).
			Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(dupes) > 0 {
			return apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyRegistered,
				"user %s is already registered for service %s", reg.UserID, reg.ServiceID)
		}

		reg.ID = regRef.ID
		reg.Snapshot(svc)
		reg.Status = domain.RegistrationStatusPending
		ts := now()
		reg.CreatedAt, reg.UpdatedAt = ts, ts
		if err := tx.Create(regRef, reg); err != nil {
			return err
		}
		return tx.Update(svcRef, counterUpdates(domain.Bucket(domain.RegistrationStatusPending)))
	})
	if err != nil {
		return nil, logged("create_registration", regRef.Path, err)
	}
	logged("create_registration", regRef.Path, nil)

	svc.PendingParticipants++
	return svc, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	snap, err := r.registrations(templeID).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "registration %s not found in temple %s", id, templeID)
	}
	return decodeRegistration(snap)
}

func (r *registrationRepository) FindByUserAndService(ctx context.Context, templeID, userID, serviceID string) (*domain.ServiceRegistration, error) {
	snaps, err := r.registrations(templeID).
		Where("userId", "==", userID).
		Where("serviceId", "==", serviceID).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, apperr.NotFound("no registration of user %s for service %s", userID, serviceID)
	}
	return decodeRegistration(snaps[0])
}

func (r *registrationRepository) ListByService(ctx context.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error) {
	snaps, err := r.registrations(templeID).Where("serviceId", "==", serviceID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeRegistrations(snaps)
}

func (r *registrationRepository) ListByTemple(ctx context.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error) {
	q := r.registrations(templeID).Query
	if status != "" {
		q = q.Where("status", "==", string(status))
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeRegistrations(snaps)
}

func (r *registrationRepository) ListByUser(ctx context.Context, templeID, userID string) ([]domain.ServiceRegistration, error) {
	snaps, err := r.registrations(templeID).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeRegistrations(snaps)
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, u repository.StatusUpdate) (*repository.StatusChange, error) {
	regRef := r.registrations(u.TempleID).Doc(u.RegistrationID)
	logger.StoreCall(backend, "update_registration_status", regRef.Path, "status", u.Status)

	var change *repository.StatusChange
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(regRef)
		if err != nil {
			return notFound(err, "registration %s not found in temple %s", u.RegistrationID, u.TempleID)
		}
		reg, err := decodeRegistration(snap)
		if err != nil {
			return err
		}
		if u.ServiceID != "" && u.ServiceID != reg.ServiceID {
			return apperr.InvalidArgument("registration %s does not belong to service %s", reg.ID, u.ServiceID)
		}

		svcRef := r.services(u.TempleID).Doc(reg.ServiceID)
		svcSnap, err := tx.Get(svcRef)
		if err != nil {
			return notFound(err, "service %s not found in temple %s", reg.ServiceID, u.TempleID)
		}
		svc, err := decodeService(svcSnap)
		if err != nil {
			return err
		}

		delta := domain.CounterDelta(reg.Status, u.Status)
		if u.EnforceCapacity && !svc.HasCapacityFor(delta) {
			return apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceFull,
				"service %s is full (%d/%d)", svc.ID, svc.CurrentParticipants, svc.MaxParticipants)
		}

		if err := tx.Update(regRef, []firestore.Update{
			{Path: "status", Value: string(u.Status)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}); err != nil {
			return err
		}
		if err := tx.Update(svcRef, counterUpdates(delta)); err != nil {
			return err
		}

		previous := reg.Status
		reg.Status = u.Status
		reg.UpdatedAt = now()
		svc.PendingParticipants += delta.Pending
		svc.CurrentParticipants += delta.Current
		change = &repository.StatusChange{Registration: reg, Previous: previous, Service: svc, Delta: delta}
		return nil
	})
	if err != nil {
		return nil, logged("update_registration_status", regRef.Path, err)
	}
	logged("update_registration_status", regRef.Path, nil)
	return change, nil
}

func (r *registrationRepository) Delete(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	regRef := r.registrations(templeID).Doc(id)
	logger.StoreCall(backend, "delete_registration", regRef.Path)

	var deleted *domain.ServiceRegistration
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(regRef)
		if err != nil {
			return notFound(err, "registration %s not found in temple %s", id, templeID)
		}
		reg, err := decodeRegistration(snap)
		if err != nil {
			return err
		}

		svcRef := r.services(templeID).Doc(reg.ServiceID)
		svcSnap, err := tx.Get(svcRef)
		if err != nil && !apperr.Is(err, codes.NotFound) {
			return err
		}

		if err := tx.Delete(regRef); err != nil {
			return err
		}
		if svcSnap != nil && svcSnap.Exists() {
			if err := tx.Update(svcRef, counterUpdates(domain.Bucket(reg.Status).Negate())); err != nil {
				return err
			}
		}
		deleted = reg
		return nil
	})
	if err != nil {
		return nil, logged("delete_registration", regRef.Path, err)
	}
	logged("delete_registration", regRef.Path, nil)
	return deleted, nil
}

func (r *registrationRepository) Recalculate(ctx context.Context, templeID, serviceID string) (*domain.Recalculation, error) {
	svcRef := r.services(templeID).Doc(serviceID)
	logger.StoreCall(backend, "recalculate_participants", svcRef.Path)

	var result *domain.Recalculation
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(svcRef)
		if err != nil {
			return notFound(err, "service %s not found in temple %s", serviceID, templeID)
		}
		svc, err := decodeService(snap)
		if err != nil {
			return err
		}
		regSnaps, err := tx.Documents(r.registrations(templeID).Where("serviceId", "==", serviceID)).GetAll()
		if err != nil {
			return err
		}
		regs, err := decodeRegistrations(regSnaps)
		if err != nil {
			return err
		}

		counts := domain.CountRegistrations(regs)
		result = &domain.Recalculation{
			TempleID:         templeID,
			ServiceID:        serviceID,
			Approved:         counts.Approved,
			Pending:          counts.Pending,
			PreviousApproved: svc.CurrentParticipants,
			PreviousPending:  svc.PendingParticipants,
		}
		return tx.Update(svcRef, []firestore.Update{
			{Path: "currentParticipants", Value: counts.Approved},
			{Path: "pendingParticipants", Value: counts.Pending},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, logged("recalculate_participants", svcRef.Path, err)
	}
	logged("recalculate_participants", svcRef.Path, nil)
	return result, nil
}
