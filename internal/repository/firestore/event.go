package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
)

type eventRepository struct {
	paths
}

func decodeEvent(snap *firestore.DocumentSnapshot) (*domain.Event, error) {
	var e domain.Event
	if err := snap.DataTo(&e); err != nil {
		return nil, err
	}
	e.ID = snap.Ref.ID
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	ref := newDoc(r.events(e.TempleID), e.ID)
	e.ID = ref.ID
	ts := now()
	e.CreatedAt, e.UpdatedAt = ts, ts
	logger.StoreCall(backend, "create", ref.Path)
	_, err := ref.Create(ctx, e)
	return logged("create", ref.Path, alreadyExists(err, "event %s already exists", e.ID))
}

func (r *eventRepository) GetByID(ctx context.Context, templeID, id string) (*domain.Event, error) {
	snap, err := r.events(templeID).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err, "event %s not found in temple %s", id, templeID)
	}
	return decodeEvent(snap)
}

func (r *eventRepository) List(ctx context.Context, templeID, afterDate string, limit int) ([]domain.Event, error) {
	q := r.events(templeID).OrderBy("date", firestore.Asc)
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
	events := make([]domain.Event, 0, len(snaps))
	for _, snap := range snaps {
		e, err := decodeEvent(snap)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	ref := r.events(e.TempleID).Doc(e.ID)
	logger.StoreCall(backend, "update", ref.Path)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "title", Value: e.Title},
		{Path: "description", Value: e.Description},
		{Path: "date", Value: e.Date},
		{Path: "startTime", Value: e.StartTime},
		{Path: "endTime", Value: e.EndTime},
		{Path: "location", Value: e.Location},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return logged("update", ref.Path, notFound(err, "event %s not found in temple %s", e.ID, e.TempleID))
}

func (r *eventRepository) Delete(ctx context.Context, templeID, id string) error {
	ref := r.events(templeID).Doc(id)
	logger.StoreCall(backend, "delete", ref.Path)
	_, err := ref.Delete(ctx, firestore.Exists)
	return logged("delete", ref.Path, notFound(err, "event %s not found in temple %s", id, templeID))
}
