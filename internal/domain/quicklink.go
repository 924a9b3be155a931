package domain

import (
	"net/url"
	"strings"
	"time"

	"temple-services-backend/internal/apperr"
)

type QuickLink struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Title     string    `json:"title" firestore:"title"`
	URL       string    `json:"url" firestore:"url"`
	Position  int       `json:"position" firestore:"position"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (q *QuickLink) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return apperr.InvalidArgument("title is required")
	}
	u, err := url.Parse(q.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.InvalidArgument("url must be an absolute http(s) url")
	}
	if q.Position < 0 {
		return apperr.InvalidArgument("position must not be negative")
	}
	return nil
}
