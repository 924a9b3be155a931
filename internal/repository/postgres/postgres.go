// Package postgres implements the repositories on PostgreSQL through lib/pq.
// Every multi-row write runs in one transaction that locks the service row
// first, so concurrent registrations for a service are serialised.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

const backend = "postgres"

// pq error codes
const (
	uniqueViolation      = "23505"
	foreignKeyViolation  = "23503"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// NewStore builds every repository on db. dsn is used to open the LISTEN
// connections behind service watches; closing the store closes db.
func NewStore(db *sql.DB, dsn string) *repository.Store {
	return &repository.Store{
		Temples:       NewTempleRepository(db),
		Users:         NewUserRepository(db),
		Admins:        NewAdminRepository(db),
		Members:       NewMemberRepository(db),
		Services:      NewServiceRepository(db, dsn),
		Registrations: NewRegistrationRepository(db),
		Notifications: NewNotificationRepository(db),
		QuickLinks:    NewQuickLinkRepository(db),
		Events:        NewEventRepository(db),
		OnClose:       db.Close,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit())
}

// mapError translates driver errors into the application taxonomy. Errors
// that already carry a status pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return apperr.AlreadyExists("%s", pqErr.Message)
	case foreignKeyViolation:
		return apperr.FailedPrecondition("%s", pqErr.Message)
	case serializationFailure, deadlockDetected:
		return apperr.New(codes.Aborted, "%s", pqErr.Message)
	}
	return err
}

// noRows turns sql.ErrNoRows into NotFound with the given message.
func noRows(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return mapError(err)
}

// affected fails with NotFound when res touched no row.
func affected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func logged(operation, table string, err error, args ...any) error {
	logger.StoreResult(backend, operation, table, err, args...)
	return err
}
