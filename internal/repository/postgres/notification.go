package postgres

import (
	"context"
	"database/sql"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	n.ID = newID(n.ID)
	if n.Timestamp.IsZero() {
		n.Timestamp = now()
	}
	query := `INSERT INTO notifications (id, user_id, title, message, type, link, read, timestamp)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	logger.StoreCall(backend, "INSERT", "notifications", "user_id", n.UserID)
	_, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Link, n.Read, n.Timestamp)
	return logged("INSERT", "notifications", mapError(err), "notification_id", n.ID)
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, title, message, type, link, read, timestamp
	          FROM notifications WHERE user_id = $1 ORDER BY timestamp DESC, id LIMIT $2 OFFSET $3`
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := r.db.QueryContext(ctx, query, userID, lim, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notes := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Link, &n.Read, &n.Timestamp); err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}
	return notes, total, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "notification %s not found", id)
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "notification %s not found", id)
}

type quickLinkRepository struct {
	db *sql.DB
}

func NewQuickLinkRepository(db *sql.DB) repository.QuickLinkRepository {
	return &quickLinkRepository{db: db}
}

func (r *quickLinkRepository) Create(ctx context.Context, l *domain.QuickLink) error {
	l.ID = newID(l.ID)
	ts := now()
	l.CreatedAt, l.UpdatedAt = ts, ts
	query := `INSERT INTO quick_links (id, user_id, title, url, position, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.UserID, l.Title, l.URL, l.Position, l.CreatedAt, l.UpdatedAt)
	return mapError(err)
}

func (r *quickLinkRepository) GetByID(ctx context.Context, userID, id string) (*domain.QuickLink, error) {
	l := &domain.QuickLink{}
	query := `SELECT id, user_id, title, url, position, created_at, updated_at FROM quick_links WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&l.ID, &l.UserID, &l.Title, &l.URL, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "quick link %s not found", id)
	}
	return l, nil
}

func (r *quickLinkRepository) List(ctx context.Context, userID string) ([]domain.QuickLink, error) {
	query := `SELECT id, user_id, title, url, position, created_at, updated_at FROM quick_links
	          WHERE user_id = $1 ORDER BY position, created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.QuickLink{}
	for rows.Next() {
		var l domain.QuickLink
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &l.URL, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *quickLinkRepository) Update(ctx context.Context, l *domain.QuickLink) error {
	l.UpdatedAt = now()
	query := `UPDATE quick_links SET title = $1, url = $2, position = $3, updated_at = $4 WHERE id = $5 AND user_id = $6`
	res, err := r.db.ExecContext(ctx, query, l.Title, l.URL, l.Position, l.UpdatedAt, l.ID, l.UserID)
	if err != nil {
		return err
	}
	return affected(res, "quick link %s not found", l.ID)
}

func (r *quickLinkRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quick_links WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "quick link %s not found", id)
}
