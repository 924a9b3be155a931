package memory

import (
	"context"
	"sort"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
)

type notificationRepository struct {
	db *db
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n.ID = newID(n.ID)
	if n.Timestamp.IsZero() {
		n.Timestamp = r.db.now()
	}
	r.db.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var all []domain.Notification
	for _, n := range r.db.notifications {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *notificationRepository) owned(userID, id string) (domain.Notification, error) {
	n, ok := r.db.notifications[id]
	if !ok || n.UserID != userID {
		return domain.Notification{}, apperr.NotFound("notification %s not found", id)
	}
	return n, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n, err := r.owned(userID, id)
	if err != nil {
		return err
	}
	n.Read = true
	r.db.notifications[id] = n
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	marked := 0
	for id, n := range r.db.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.db.notifications[id] = n
			marked++
		}
	}
	return marked, nil
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.owned(userID, id); err != nil {
		return err
	}
	delete(r.db.notifications, id)
	return nil
}

type quickLinkRepository struct {
	db *db
}

func (r *quickLinkRepository) Create(ctx context.Context, l *domain.QuickLink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l.ID = newID(l.ID)
	now := r.db.now()
	l.CreatedAt, l.UpdatedAt = now, now
	scoped(r.db.quickLinks, l.UserID)[l.ID] = *l
	return nil
}

func (r *quickLinkRepository) GetByID(ctx context.Context, userID, id string) (*domain.QuickLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l, ok := r.db.quickLinks[userID][id]
	if !ok {
		return nil, apperr.NotFound("quick link %s not found", id)
	}
	return &l, nil
}

func (r *quickLinkRepository) List(ctx context.Context, userID string) ([]domain.QuickLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.QuickLink
	for _, l := range r.db.quickLinks[userID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *quickLinkRepository) Update(ctx context.Context, l *domain.QuickLink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.quickLinks[l.UserID][l.ID]
	if !ok {
		return apperr.NotFound("quick link %s not found", l.ID)
	}
	l.CreatedAt = current.CreatedAt
	l.UpdatedAt = r.db.now()
	r.db.quickLinks[l.UserID][l.ID] = *l
	return nil
}

func (r *quickLinkRepository) Delete(ctx context.Context, userID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.quickLinks[userID][id]; !ok {
		return apperr.NotFound("quick link %s not found", id)
	}
	delete(r.db.quickLinks[userID], id)
	return nil
}
