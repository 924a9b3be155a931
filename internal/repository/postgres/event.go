package postgres

import (
	"context"
	"database/sql"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

const eventColumns = `id, temple_id, title, description, date, start_time, end_time, location, created_by, created_at, updated_at`

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(s scanner) (*domain.Event, error) {
	var e domain.Event
	err := s.Scan(&e.ID, &e.TempleID, &e.Title, &e.Description, &e.Date, &e.StartTime, &e.EndTime,
		&e.Location, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	e.ID = newID(e.ID)
	ts := now()
	e.CreatedAt, e.UpdatedAt = ts, ts
	logger.StoreCall(backend, "INSERT", "events", "event_id", e.ID)
	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.TempleID, e.Title, e.Description, e.Date, e.StartTime, e.EndTime,
		e.Location, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	return logged("INSERT", "events", mapError(err))
}

func (r *eventRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE temple_id = $1 AND id = $2`
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, templeID, id))
	if err != nil {
		return nil, noRows(err, "event %s not found in temple %s", id, templeID)
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE temple_id = $1 AND date > $2 ORDER BY date, id`
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

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = now()
	query := `UPDATE events SET title = $1, description = $2, date = $3, start_time = $4, end_time = $5, location = $6, updated_at = $7
	          WHERE temple_id = $8 AND id = $9`
	res, err := r.db.ExecContext(ctx, query, e.Title, e.Description, e.Date, e.StartTime, e.EndTime, e.Location,
		e.UpdatedAt, e.TempleID, e.ID)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "event %s not found in temple %s", e.ID, e.TempleID)
}

func (r *eventRepository) Delete(ctx context.Context, templeID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE temple_id = $1 AND id = $2`, templeID, id)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "event %s not found in temple %s", id, templeID)
}
