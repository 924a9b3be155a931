package domain

import (
	"strings"
	"time"

	"temple-services-backend/internal/apperr"
)

type Event struct {
	ID          string    `json:"id" firestore:"-"`
	TempleID    string    `json:"temple_id" firestore:"templeId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Date        string    `json:"date" firestore:"date"` // Format: 'YYYY-MM-DD'
	StartTime   string    `json:"start_time" firestore:"startTime"`
	EndTime     string    `json:"end_time" firestore:"endTime"`
	Location    string    `json:"location" firestore:"location"`
	CreatedBy   string    `json:"created_by" firestore:"createdBy"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return apperr.InvalidArgument("title is required")
	}
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if e.StartTime != "" || e.EndTime != "" {
		return TimeSlot{Start: e.StartTime, End: e.EndTime}.Validate()
	}
	return nil
}
