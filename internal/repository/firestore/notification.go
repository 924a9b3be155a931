package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
)

type notificationRepository struct {
	paths
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ref := newDoc(r.notifications(), n.ID)
	n.ID = ref.ID
	if n.Timestamp.IsZero() {
		n.Timestamp = now()
	}
	logger.StoreCall(backend, "create", ref.Path, "user_id", n.UserID)
	_, err := ref.Create(ctx, n)
	return logged("create", ref.Path, err)
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	snaps, err := r.notifications().
		Where("userId", "==", userID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, err
	}

	total := len(snaps)
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	notes := make([]domain.Notification, 0, end-offset)
	for _, snap := range snaps[offset:end] {
		var n domain.Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, 0, err
		}
		n.ID = snap.Ref.ID
		notes = append(notes, n)
	}
	return notes, total, nil
}

// owned loads a notification inside tx and checks it belongs to userID.
func (r *notificationRepository) owned(tx *firestore.Transaction, userID, id string) (*firestore.DocumentRef, error) {
	ref := r.notifications().Doc(id)
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, notFound(err, "notification %s not found", id)
	}
	owner, _ := snap.DataAt("userId")
	if toString(owner) != userID {
		return nil, apperr.NotFound("notification %s not found", id)
	}
	return ref, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.owned(tx, userID, id)
		if err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{{Path: "read", Value: true}})
	})
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	marked := 0
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(r.notifications().
			Where("userId", "==", userID).
			Where("read", "==", false)).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
		}
		marked = len(snaps)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.owned(tx, userID, id)
		if err != nil {
			return err
		}
		return tx.Delete(ref)
	})
}

type quickLinkRepository struct {
	paths
}

func (r *quickLinkRepository) Create(ctx context.Context, l *domain.QuickLink) error {
	ref := newDoc(r.quickLinks(l.UserID), l.ID)
	l.ID = ref.ID
	ts := now()
	l.CreatedAt, l.UpdatedAt = ts, ts
	_, err := ref.Create(ctx, l)
	return logged("create", ref.Path, err)
}

func (r *quickLinkRepository) GetByID(ctx context.Context, userID, id string) (*domain.QuickLink, error) {
	snap, err := r.quickLinks(userID).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "quick link %s not found", id)
	}
	var l domain.QuickLink
	if err := snap.DataTo(&l); err != nil {
		return nil, err
	}
	l.ID = snap.Ref.ID
	return &l, nil
}

func (r *quickLinkRepository) List(ctx context.Context, userID string) ([]domain.QuickLink, error) {
	snaps, err := r.quickLinks(userID).OrderBy("position", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	links := make([]domain.QuickLink, 0, len(snaps))
	for _, snap := range snaps {
		var l domain.QuickLink
		if err := snap.DataTo(&l); err != nil {
			return nil, err
		}
		l.ID = snap.Ref.ID
		links = append(links, l)
	}
	return links, nil
}

func (r *quickLinkRepository) Update(ctx context.Context, l *domain.QuickLink) error {
	ref := r.quickLinks(l.UserID).Doc(l.ID)
	l.UpdatedAt = now()
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "title", Value: l.Title},
		{Path: "url", Value: l.URL},
		{Path: "position", Value: l.Position},
		{Path: "updatedAt", Value: l.UpdatedAt},
	})
	return logged("update", ref.Path, notFound(err, "quick link %s not found", l.ID))
}

func (r *quickLinkRepository) Delete(ctx context.Context, userID, id string) error {
	ref := r.quickLinks(userID).Doc(id)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "quick link %s not found", id))
}
