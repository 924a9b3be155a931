package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

const serviceColumns = `id, temple_id, name, description, type, date, slot_start, slot_end,
	max_participants, current_participants, pending_participants,
	contact_name, contact_phone, contact_user_id, notes, created_by, created_at, updated_at`

// serviceChannel is the NOTIFY channel fed by the services trigger. Payloads
// are "templeID/serviceID".
const serviceChannel = "service_changes"

type serviceRepository struct {
	db  *sql.DB
	dsn string
}

func NewServiceRepository(db *sql.DB, dsn string) repository.ServiceRepository {
	return &serviceRepository{db: db, dsn: dsn}
}

func scanService(s scanner) (*domain.Service, error) {
	var svc domain.Service
	var notes sql.NullString
	err := s.Scan(&svc.ID, &svc.TempleID, &svc.Name, &svc.Description, &svc.Type, &svc.Date,
		&svc.TimeSlot.Start, &svc.TimeSlot.End,
		&svc.MaxParticipants, &svc.CurrentParticipants, &svc.PendingParticipants,
		&svc.ContactPerson.Name, &svc.ContactPerson.Phone, &svc.ContactPerson.UserID,
		&notes, &svc.CreatedBy, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	svc.Notes = stringPtr(notes)
	return &svc, nil
}

// lockService reads the service row with FOR UPDATE inside tx.
func lockService(ctx context.Context, tx *sql.Tx, templeID, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE temple_id = $1 AND id = $2 FOR UPDATE`
	svc, err := scanService(tx.QueryRowContext(ctx, query, templeID, id))
	if err != nil {
		return nil, noRows(err, "service %s not found in temple %s", id, templeID)
	}
	return svc, nil
}

// applyDelta adds d to the counters of svc, both in the row and in memory.
func applyDelta(ctx context.Context, tx *sql.Tx, svc *domain.Service, d domain.ParticipantDelta) error {
	ts := now()
	query := `UPDATE services SET pending_participants = pending_participants + $1,
	          current_participants = current_participants + $2, updated_at = $3
	          WHERE temple_id = $4 AND id = $5`
	if _, err := tx.ExecContext(ctx, query, d.Pending, d.Current, ts, svc.TempleID, svc.ID); err != nil {
		return err
	}
	svc.PendingParticipants += d.Pending
	svc.CurrentParticipants += d.Current
	svc.UpdatedAt = ts
	return nil
}

func (r *serviceRepository) Create(ctx context.Context, svc *domain.Service) error {
	svc.ID = newID(svc.ID)
	ts := now()
	svc.CreatedAt, svc.UpdatedAt = ts, ts
	svc.CurrentParticipants, svc.PendingParticipants = 0, 0

	logger.StoreCall(backend, "INSERT", "services", "service_id", svc.ID, "temple_id", svc.TempleID)
	query := `INSERT INTO services (` + serviceColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(ctx, query, svc.ID, svc.TempleID, svc.Name, svc.Description, svc.Type, svc.Date,
		svc.TimeSlot.Start, svc.TimeSlot.End, svc.MaxParticipants, 0, 0,
		svc.ContactPerson.Name, svc.ContactPerson.Phone, svc.ContactPerson.UserID,
		nullString(svc.Notes), svc.CreatedBy, svc.CreatedAt, svc.UpdatedAt)
	return logged("INSERT", "services", mapError(err))
}

func (r *serviceRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE temple_id = $1 AND id = $2`
	svc, err := scanService(r.db.QueryRowContext(ctx, query, templeID, id))
	if err != nil {
		return nil, noRows(err, "service %s not found in temple %s", id, templeID)
	}
	return svc, nil
}

func (r *serviceRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
	          WHERE temple_id = $1 AND date > $2 ORDER BY date, id`
	args := []any{templeID, afterDate}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []domain.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

func (r *serviceRepository) Update(ctx context.Context, svc *domain.Service) error {
	svc.UpdatedAt = now()
	logger.StoreCall(backend, "UPDATE", "services", "service_id", svc.ID)
	query := `UPDATE services SET name = $1, description = $2, type = $3, date = $4, slot_start = $5, slot_end = $6,
	          max_participants = $7, contact_name = $8, contact_phone = $9, contact_user_id = $10, notes = $11, updated_at = $12
	          WHERE temple_id = $13 AND id = $14`
	res, err := r.db.ExecContext(ctx, query, svc.Name, svc.Description, svc.Type, svc.Date,
		svc.TimeSlot.Start, svc.TimeSlot.End, svc.MaxParticipants,
		svc.ContactPerson.Name, svc.ContactPerson.Phone, svc.ContactPerson.UserID,
		nullString(svc.Notes), svc.UpdatedAt, svc.TempleID, svc.ID)
	if err != nil {
		return logged("UPDATE", "services", mapError(err))
	}
	return logged("UPDATE", "services", affected(res, "service %s not found in temple %s", svc.ID, svc.TempleID))
}

func (r *serviceRepository) Delete(ctx context.Context, templeID, id string, force bool) (int, error) {
	logger.StoreCall(backend, "DELETE", "services", "service_id", id, "force", force)

	removed := 0
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := lockService(ctx, tx, templeID, id); err != nil {
			return err
		}

		var active int
		err := tx.QueryRowContext(ctx, `SELECT count(*) FROM service_registrations
		          WHERE temple_id = $1 AND service_id = $2 AND status IN ('pending', 'approved')`,
			templeID, id).Scan(&active)
		if err != nil {
			return err
		}
		if active > 0 && !force {
			return apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceHasRegistrations,
				"service %s has %d active registrations", id, active)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM service_registrations WHERE temple_id = $1 AND service_id = $2`, templeID, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)

		_, err = tx.ExecContext(ctx, `DELETE FROM services WHERE temple_id = $1 AND id = $2`, templeID, id)
		return err
	})
	if err != nil {
		return 0, logged("DELETE", "services", err)
	}
	return removed, logged("DELETE", "services", nil, "registrations_removed", removed)
}

// Watch sends the current state, then re-reads the row on every NOTIFY for
// it. Each watch holds its own LISTEN connection.
func (r *serviceRepository) Watch(ctx context.Context, templeID, id string) (<-chan repository.ServiceSnapshot, error) {
	svc, err := r.GetByID(ctx, templeID, id)
	if err != nil {
		return nil, err
	}
	if r.dsn == "" {
		return nil, apperr.FailedPrecondition("service watch is not configured")
	}

	listener := pq.NewListener(r.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Service listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(serviceChannel); err != nil {
		listener.Close()
		return nil, err
	}

	key := templeID + "/" + id
	out := make(chan repository.ServiceSnapshot, 1)
	out <- repository.ServiceSnapshot{Service: svc}

	go func() {
		defer close(out)
		defer listener.Close()
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				go listener.Ping()
			case n := <-listener.Notify:
				// nil after a reconnect, when notifications may have been missed
				if n != nil && n.Extra != key {
					continue
				}
				next := r.snapshot(ctx, templeID, id)
				if !send(ctx, out, next) || next.Deleted || next.Err != nil {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *serviceRepository) snapshot(ctx context.Context, templeID, id string) repository.ServiceSnapshot {
	svc, err := r.GetByID(ctx, templeID, id)
	switch {
	case err == nil:
		return repository.ServiceSnapshot{Service: svc}
	case apperr.Is(err, codes.NotFound):
		return repository.ServiceSnapshot{Deleted: true}
	default:
		return repository.ServiceSnapshot{Err: err}
	}
}

func send(ctx context.Context, out chan<- repository.ServiceSnapshot, snap repository.ServiceSnapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
