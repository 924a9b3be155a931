package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type serviceRepository struct {
	paths
}

func decodeService(snap *firestore.DocumentSnapshot) (*domain.Service, error) {
	var svc domain.Service
	if err := snap.DataTo(&svc); err != nil {
		return nil, err
	}
	svc.ID = snap.Ref.ID
	return &svc, nil
}

func (r *serviceRepository) Create(ctx context.Context, svc *domain.Service) error {
	ref := newDoc(r.services(svc.TempleID), svc.ID)
	svc.ID = ref.ID
	ts := now()
	svc.CreatedAt, svc.UpdatedAt = ts, ts
	svc.CurrentParticipants, svc.PendingParticipants = 0, 0

	logger.StoreCall(backend, "create", ref.Path)
	_, err := ref.Create(ctx, svc)
	return logged("create", ref.Path, alreadyExists(err, "service %s already exists", svc.ID))
}

func (r *serviceRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Service, error) {
	snap, err := r.services(templeID).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "service %s not found in temple %s", id, templeID)
	}
	return decodeService(snap)
}

func (r *serviceRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error) {
	q := r.services(templeID).OrderBy("date", firestore.Asc)
	if afterDate != "" {
		q = q.StartAfter(afterDate)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	services := make([]domain.Service, 0, len(snaps))
	for _, snap := range snaps {
		svc, err := decodeService(snap)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	return services, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc *domain.Service) error {
	ref := r.services(svc.TempleID).Doc(svc.ID)
	logger.StoreCall(backend, "update", ref.Path)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "name", Value: svc.Name},
		{Path: "description", Value: svc.Description},
		{Path: "type", Value: svc.Type},
		{Path: "date", Value: svc.Date},
		{Path: "timeSlot", Value: svc.TimeSlot},
		{Path: "maxParticipants", Value: svc.MaxParticipants},
		{Path: "contactPerson", Value: svc.ContactPerson},
		{Path: "notes", Value: svc.Notes},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return logged("update", ref.Path, notFound(err, "service %s not found in temple %s", svc.ID, svc.TempleID))
}

func (r *serviceRepository) Delete(ctx context.Context, templeID, id string, force bool) (int, error) {
	ref := r.services(templeID).Doc(id)
	logger.StoreCall(backend, "delete_service", ref.Path, "force", force)

	removed := 0
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return notFound(err, "service %s not found in temple %s", id, templeID)
		}
		regs, err := tx.Documents(r.registrations(templeID).Where("serviceId", "==", id)).GetAll()
		if err != nil {
			return err
		}

		active := 0
		for _, snap := range regs {
			s, _ := snap.DataAt("status")
			if domain.RegistrationStatus(toString(s)).Active() {
				active++
			}
		}
		if active > 0 && !force {
			return apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceHasRegistrations,
				"service %s has %d active registrations", id, active)
		}

		for _, snap := range regs {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		removed = len(regs)
		return tx.Delete(ref)
	})
	if err != nil {
		return 0, logged("delete_service", ref.Path, err)
	}
	return removed, logged("delete_service", ref.Path, nil)
}

func (r *serviceRepository) Watch(ctx context.Context, templeID, id string) (<-chan repository.ServiceSnapshot, error) {
	if _, err := r.GetByID(ctx, templeID, id); err != nil {
		return nil, err
	}

	it := r.services(templeID).Doc(id).Snapshots(ctx)
	out := make(chan repository.ServiceSnapshot, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				logger.Warn("Service watch ended", "temple_id", templeID, "service_id", id, "error", err)
				send(ctx, out, repository.ServiceSnapshot{Err: err})
				return
			}

			var next repository.ServiceSnapshot
			if !snap.Exists() {
				next.Deleted = true
			} else if next.Service, err = decodeService(snap); err != nil {
				next.Err = err
			}
			if !send(ctx, out, next) {
				return
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- repository.ServiceSnapshot, snap repository.ServiceSnapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
