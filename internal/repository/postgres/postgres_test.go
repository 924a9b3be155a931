package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/repository/postgres"
)

const (
	lockServiceQuery      = `SELECT (.+) FROM services WHERE temple_id = \$1 AND id = \$2 FOR UPDATE`
	lockRegistrationQuery = `SELECT (.+) FROM service_registrations WHERE temple_id = \$1 AND id = \$2 FOR UPDATE`
	registrationOwner     = `SELECT service_id FROM service_registrations WHERE temple_id = \$1 AND id = \$2`
	counterUpdate         = `UPDATE services SET pending_participants`
)

var stamp = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func serviceRows(current, pending, max int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "temple_id", "name", "description", "type", "date", "slot_start", "slot_end",
		"max_participants", "current_participants", "pending_participants",
		"contact_name", "contact_phone", "contact_user_id", "notes", "created_by", "created_at", "updated_at",
	}).AddRow("s1", "t1", "Morning Puja", "", "puja", "2026-04-01", "09:00", "10:00",
		max, current, pending, "Priest", "555-0100", "leader-1", nil, "admin-1", stamp, stamp)
}

func registrationRows(status domain.RegistrationStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "temple_id", "service_id", "user_id", "status", "message",
		"service_name", "service_type", "service_date", "slot_start", "slot_end", "created_at", "updated_at",
	}).AddRow("r1", "t1", "s1", "u1", string(status), nil,
		"Morning Puja", "puja", "2026-04-01", "09:00", "10:00", stamp, stamp)
}

func newMock(t *testing.T) (sqlmock.Sqlmock, *repository.Store) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, postgres.NewStore(db, "")
}

func TestRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(0, 0, 10))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("u1", "s1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO service_registrations`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(counterUpdate).WithArgs(1, 0, sqlmock.AnyArg(), "t1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		reg := &domain.ServiceRegistration{UserID: "u1", ServiceID: "s1", TempleID: "t1"}
		svc, err := repo.Create(ctx, reg)
		require.NoError(t, err)
		assert.NotEmpty(t, reg.ID)
		assert.Equal(t, domain.RegistrationStatusPending, reg.Status)
		assert.Equal(t, "Morning Puja", reg.ServiceName)
		assert.Equal(t, 1, svc.PendingParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(0, 1, 10))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("u1", "s1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := repo.Create(ctx, &domain.ServiceRegistration{UserID: "u1", ServiceID: "s1", TempleID: "t1"})
		assert.True(t, apperr.Is(err, codes.AlreadyExists))
		assert.Equal(t, apperr.ReasonAlreadyRegistered, apperr.Reason(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationOnInsert", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(0, 0, 10))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("u1", "s1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO service_registrations`).WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})
		mock.ExpectRollback()

		_, err := repo.Create(ctx, &domain.ServiceRegistration{UserID: "u1", ServiceID: "s1", TempleID: "t1"})
		assert.Equal(t, apperr.ReasonAlreadyRegistered, apperr.Reason(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ServiceMissing", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.Create(ctx, &domain.ServiceRegistration{UserID: "u1", ServiceID: "s1", TempleID: "t1"})
		assert.True(t, apperr.Is(err, codes.NotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Approve", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(registrationOwner).WithArgs("t1", "r1").
			WillReturnRows(sqlmock.NewRows([]string{"service_id"}).AddRow("s1"))
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(0, 1, 10))
		mock.ExpectQuery(lockRegistrationQuery).WithArgs("t1", "r1").
			WillReturnRows(registrationRows(domain.RegistrationStatusPending))
		mock.ExpectExec(`UPDATE service_registrations SET status`).WithArgs("approved", sqlmock.AnyArg(), "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(counterUpdate).WithArgs(-1, 1, sqlmock.AnyArg(), "t1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		change, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID:       "t1",
			RegistrationID: "r1",
			Status:         domain.RegistrationStatusApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationStatusPending, change.Previous)
		assert.Equal(t, domain.RegistrationStatusApproved, change.Registration.Status)
		assert.Equal(t, 1, change.Service.CurrentParticipants)
		assert.Equal(t, 0, change.Service.PendingParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ServiceMismatch", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(registrationOwner).WithArgs("t1", "r1").
			WillReturnRows(sqlmock.NewRows([]string{"service_id"}).AddRow("s1"))
		mock.ExpectRollback()

		_, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID:       "t1",
			RegistrationID: "r1",
			ServiceID:      "other",
			Status:         domain.RegistrationStatusApproved,
		})
		assert.True(t, apperr.Is(err, codes.InvalidArgument))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CapacityEnforced", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(registrationOwner).WithArgs("t1", "r1").
			WillReturnRows(sqlmock.NewRows([]string{"service_id"}).AddRow("s1"))
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(2, 1, 2))
		mock.ExpectQuery(lockRegistrationQuery).WithArgs("t1", "r1").
			WillReturnRows(registrationRows(domain.RegistrationStatusPending))
		mock.ExpectRollback()

		_, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID:        "t1",
			RegistrationID:  "r1",
			Status:          domain.RegistrationStatusApproved,
			EnforceCapacity: true,
		})
		assert.True(t, apperr.Is(err, codes.FailedPrecondition))
		assert.Equal(t, apperr.ReasonServiceFull, apperr.Reason(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownRegistration", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Registrations

		mock.ExpectBegin()
		mock.ExpectQuery(registrationOwner).WithArgs("t1", "r1").
			WillReturnRows(sqlmock.NewRows([]string{"service_id"}))
		mock.ExpectRollback()

		_, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			TempleID:       "t1",
			RegistrationID: "r1",
			Status:         domain.RegistrationStatusApproved,
		})
		assert.True(t, apperr.Is(err, codes.NotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_Delete(t *testing.T) {
	mock, store := newMock(t)
	repo := store.Registrations

	mock.ExpectBegin()
	// Service row first, as in serviceRepository.Delete.
	mock.ExpectQuery(registrationOwner).WithArgs("t1", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"service_id"}).AddRow("s1"))
	mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(1, 0, 10))
	mock.ExpectQuery(lockRegistrationQuery).WithArgs("t1", "r1").
		WillReturnRows(registrationRows(domain.RegistrationStatusApproved))
	mock.ExpectExec(`DELETE FROM service_registrations WHERE id = \$1`).WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(counterUpdate).WithArgs(0, -1, sqlmock.AnyArg(), "t1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reg, err := repo.Delete(context.Background(), "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reg.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_Recalculate(t *testing.T) {
	mock, store := newMock(t)
	repo := store.Registrations

	mock.ExpectBegin()
	mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(5, 0, 10))
	mock.ExpectQuery(`SELECT (.+) FILTER`).WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"approved", "pending"}).AddRow(2, 1))
	mock.ExpectExec(`UPDATE services SET current_participants`).WithArgs(2, 1, sqlmock.AnyArg(), "t1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Recalculate(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Approved)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, 5, result.PreviousApproved)
	assert.True(t, result.Drifted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	activeCount := `SELECT count\(\*\) FROM service_registrations`

	t.Run("ActiveRegistrationsWithoutForce", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Services

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(1, 1, 10))
		mock.ExpectQuery(activeCount).WithArgs("t1", "s1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		_, err := repo.Delete(ctx, "t1", "s1", false)
		assert.True(t, apperr.Is(err, codes.FailedPrecondition))
		assert.Equal(t, apperr.ReasonServiceHasRegistrations, apperr.Reason(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Force", func(t *testing.T) {
		mock, store := newMock(t)
		repo := store.Services

		mock.ExpectBegin()
		mock.ExpectQuery(lockServiceQuery).WithArgs("t1", "s1").WillReturnRows(serviceRows(1, 1, 10))
		mock.ExpectQuery(activeCount).WithArgs("t1", "s1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(`DELETE FROM service_registrations`).WithArgs("t1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`DELETE FROM services`).WithArgs("t1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		removed, err := repo.Delete(ctx, "t1", "s1", true)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServiceRepository_Update(t *testing.T) {
	mock, store := newMock(t)
	repo := store.Services

	notes := "bring flowers"
	svc := &domain.Service{
		ID:              "s1",
		TempleID:        "t1",
		Name:            "Evening Aarti",
		Date:            "2026-04-02",
		TimeSlot:        domain.TimeSlot{Start: "18:00", End: "19:00"},
		MaxParticipants: 20,
		ContactPerson:   domain.ContactPerson{Name: "Priest"},
		Notes:           &notes,
	}

	mock.ExpectExec("UPDATE services SET name").
		WithArgs(svc.Name, svc.Description, svc.Type, svc.Date, "18:00", "19:00", 20,
			"Priest", "", "", notes, sqlmock.AnyArg(), "t1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), svc)
	assert.True(t, apperr.Is(err, codes.NotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_AddDuplicate(t *testing.T) {
	mock, store := newMock(t)
	repo := store.Members

	mock.ExpectExec("INSERT INTO temple_members").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Add(context.Background(), &domain.TempleMember{TempleID: "t1", UserID: "u1"})
	assert.True(t, apperr.Is(err, codes.AlreadyExists))
	assert.Equal(t, apperr.ReasonAlreadyMember, apperr.Reason(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_List(t *testing.T) {
	mock, store := newMock(t)
	repo := store.Notifications

	mock.ExpectQuery(`SELECT count\(\*\) FROM notifications`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "type", "link", "read", "timestamp"}).
			AddRow("n1", "u1", "Approved", "see you there", "success", "", false, stamp))

	notes, total, err := repo.List(context.Background(), "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationTypeSuccess, notes[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
