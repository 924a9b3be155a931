package postgres

import (
	"context"
	"database/sql"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

const registrationColumns = `id, temple_id, service_id, user_id, status, message,
	service_name, service_type, service_date, slot_start, slot_end, created_at, updated_at`

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) repository.RegistrationRepository {
	return &registrationRepository{db: db}
}

func scanRegistration(s scanner) (*domain.ServiceRegistration, error) {
	var reg domain.ServiceRegistration
	var message sql.NullString
	err := s.Scan(&reg.ID, &reg.TempleID, &reg.ServiceID, &reg.UserID, &reg.Status, &message,
		&reg.ServiceName, &reg.ServiceType, &reg.ServiceDate,
		&reg.ServiceTimeSlot.Start, &reg.ServiceTimeSlot.End, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Message = stringPtr(message)
	return &reg, nil
}

func (r *registrationRepository) query(ctx context.Context, where string, args ...any) ([]domain.ServiceRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM service_registrations WHERE ` + where + ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []domain.ServiceRegistration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func lockRegistration(ctx context.Context, tx *sql.Tx, templeID, id string) (*domain.ServiceRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM service_registrations WHERE temple_id = $1 AND id = $2 FOR UPDATE`
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query, templeID, id))
	if err != nil {
		return nil, noRows(err, "registration %s not found in temple %s", id, templeID)
	}
	return reg, nil
}

// registrationServiceID reads the service of a registration without locking
// the row. Writers lock the service row before the registration row, the
// order serviceRepository.Delete also takes them in.
func registrationServiceID(ctx context.Context, tx *sql.Tx, templeID, id string) (string, error) {
	var serviceID string
	err := tx.QueryRowContext(ctx, `SELECT service_id FROM service_registrations WHERE temple_id = $1 AND id = $2`, templeID, id).
		Scan(&serviceID)
	if err != nil {
		return "", noRows(err, "registration %s not found in temple %s", id, templeID)
	}
	return serviceID, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.ServiceRegistration) (*domain.Service, error) {
	logger.StoreCall(backend, "INSERT", "service_registrations", "user_id", reg.UserID, "service_id", reg.ServiceID)

	var svc *domain.Service
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if svc, err = lockService(ctx, tx, reg.TempleID, reg.ServiceID); err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM service_registrations WHERE user_id = $1 AND service_id = $2)`,
			reg.UserID, reg.ServiceID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return alreadyRegistered(reg)
		}

		reg.ID = newID(reg.ID)
		reg.Snapshot(svc)
		reg.Status = domain.RegistrationStatusPending
		ts := now()
		reg.CreatedAt, reg.UpdatedAt = ts, ts

		query := `INSERT INTO service_registrations (` + registrationColumns + `)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err = tx.ExecContext(ctx, query, reg.ID, reg.TempleID, reg.ServiceID, reg.UserID, string(reg.Status),
			nullString(reg.Message), reg.ServiceName, reg.ServiceType, reg.ServiceDate,
			reg.ServiceTimeSlot.Start, reg.ServiceTimeSlot.End, reg.CreatedAt, reg.UpdatedAt)
		if err != nil {
			if apperr.Is(mapError(err), codes.AlreadyExists) {
				return alreadyRegistered(reg)
			}
			return err
		}
		return applyDelta(ctx, tx, svc, domain.Bucket(domain.RegistrationStatusPending))
	})
	if err != nil {
		return nil, logged("INSERT", "service_registrations", err)
	}
	logged("INSERT", "service_registrations", nil, "registration_id", reg.ID)
	return svc, nil
}

func alreadyRegistered(reg *domain.ServiceRegistration) error {
	return apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyRegistered,
		"user %s is already registered for service %s", reg.UserID, reg.ServiceID)
}

func (r *registrationRepository) GetByID(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM service_registrations WHERE temple_id = $1 AND id = $2`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, templeID, id))
	if err != nil {
		return nil, noRows(err, "registration %s not found in temple %s", id, templeID)
	}
	return reg, nil
}

func (r *registrationRepository) FindByUserAndService(ctx context.Context, templeID, userID, serviceID string) (*domain.ServiceRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM service_registrations
	          WHERE temple_id = $1 AND user_id = $2 AND service_id = $3`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, templeID, userID, serviceID))
	if err != nil {
		return nil, noRows(err, "no registration of user %s for service %s", userID, serviceID)
	}
	return reg, nil
}

func (r *registrationRepository) ListByService(ctx context.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error) {
	return r.query(ctx, `temple_id = $1 AND service_id = $2`, templeID, serviceID)
}

func (r *registrationRepository) ListByTemple(ctx context.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error) {
	if status == "" {
		return r.query(ctx, `temple_id = $1`, templeID)
	}
	return r.query(ctx, `temple_id = $1 AND status = $2`, templeID, string(status))
}

func (r *registrationRepository) ListByUser(ctx context.Context, templeID, userID string) ([]domain.ServiceRegistration, error) {
	return r.query(ctx, `temple_id = $1 AND user_id = $2`, templeID, userID)
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, u repository.StatusUpdate) (*repository.StatusChange, error) {
	logger.StoreCall(backend, "UPDATE", "service_registrations", "registration_id", u.RegistrationID, "status", u.Status)

	var change *repository.StatusChange
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		serviceID, err := registrationServiceID(ctx, tx, u.TempleID, u.RegistrationID)
		if err != nil {
			return err
		}
		if u.ServiceID != "" && u.ServiceID != serviceID {
			return apperr.InvalidArgument("registration %s does not belong to service %s", u.RegistrationID, u.ServiceID)
		}
		svc, err := lockService(ctx, tx, u.TempleID, serviceID)
		if err != nil {
			return err
		}
		reg, err := lockRegistration(ctx, tx, u.TempleID, u.RegistrationID)
		if err != nil {
			return err
		}

		delta := domain.CounterDelta(reg.Status, u.Status)
		if u.EnforceCapacity && !svc.HasCapacityFor(delta) {
			return apperr.WithReason(codes.FailedPrecondition, apperr.ReasonServiceFull,
				"service %s is full (%d/%d)", svc.ID, svc.CurrentParticipants, svc.MaxParticipants)
		}

		previous := reg.Status
		reg.Status = u.Status
		reg.UpdatedAt = now()
		_, err = tx.ExecContext(ctx, `UPDATE service_registrations SET status = $1, updated_at = $2 WHERE id = $3`,
			string(reg.Status), reg.UpdatedAt, reg.ID)
		if err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, svc, delta); err != nil {
			return err
		}
		change = &repository.StatusChange{Registration: reg, Previous: previous, Service: svc, Delta: delta}
		return nil
	})
	if err != nil {
		return nil, logged("UPDATE", "service_registrations", err)
	}
	logged("UPDATE", "service_registrations", nil, "delta_pending", change.Delta.Pending, "delta_current", change.Delta.Current)
	return change, nil
}

func (r *registrationRepository) Delete(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	logger.StoreCall(backend, "DELETE", "service_registrations", "registration_id", id)

	var deleted *domain.ServiceRegistration
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		serviceID, err := registrationServiceID(ctx, tx, templeID, id)
		if err != nil {
			return err
		}
		svc, err := lockService(ctx, tx, templeID, serviceID)
		if err != nil {
			return err
		}
		reg, err := lockRegistration(ctx, tx, templeID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM service_registrations WHERE id = $1`, reg.ID); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, svc, domain.Bucket(reg.Status).Negate()); err != nil {
			return err
		}
		deleted = reg
		return nil
	})
	if err != nil {
		return nil, logged("DELETE", "service_registrations", err)
	}
	logged("DELETE", "service_registrations", nil)
	return deleted, nil
}

func (r *registrationRepository) Recalculate(ctx context.Context, templeID, serviceID string) (*domain.Recalculation, error) {
	logger.StoreCall(backend, "RECALCULATE", "services", "service_id", serviceID)

	var result *domain.Recalculation
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		svc, err := lockService(ctx, tx, templeID, serviceID)
		if err != nil {
			return err
		}

		var counts domain.ParticipantCounts
		err = tx.QueryRowContext(ctx, `SELECT
		          count(*) FILTER (WHERE status = 'approved'),
		          count(*) FILTER (WHERE status = 'pending')
		          FROM service_registrations WHERE temple_id = $1 AND service_id = $2`,
			templeID, serviceID).Scan(&counts.Approved, &counts.Pending)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE services SET current_participants = $1, pending_participants = $2, updated_at = $3
		          WHERE temple_id = $4 AND id = $5`, counts.Approved, counts.Pending, now(), templeID, serviceID)
		if err != nil {
			return err
		}
		result = &domain.Recalculation{
			TempleID:         templeID,
			ServiceID:        serviceID,
			Approved:         counts.Approved,
			Pending:          counts.Pending,
			PreviousApproved: svc.CurrentParticipants,
			PreviousPending:  svc.PendingParticipants,
		}
		return nil
	})
	if err != nil {
		return nil, logged("RECALCULATE", "services", err)
	}
	logged("RECALCULATE", "services", nil, "drifted", result.Drifted())
	return result, nil
}
