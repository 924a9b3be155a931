package domain

import (
	"strings"
	"time"

	"temple-services-backend/internal/apperr"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type TimeSlot struct {
	Start string `json:"start" firestore:"start"` // Format: 'HH:MM'
	End   string `json:"end" firestore:"end"`
}

func (t TimeSlot) Validate() error {
	start, err := time.Parse(TimeLayout, t.Start)
	if err != nil {
		return apperr.InvalidArgument("time slot start %q must be HH:MM", t.Start)
	}
	end, err := time.Parse(TimeLayout, t.End)
	if err != nil {
		return apperr.InvalidArgument("time slot end %q must be HH:MM", t.End)
	}
	if !start.Before(end) {
		return apperr.InvalidArgument("time slot start must be before end")
	}
	return nil
}

type ContactPerson struct {
	Name   string `json:"name" firestore:"name"`
	Phone  string `json:"phone" firestore:"phone"`
	UserID string `json:"user_id,omitempty" firestore:"userId,omitempty"`
}

// Service is a bookable temple activity. CurrentParticipants counts approved
// registrations and PendingParticipants counts pending ones; both are derived
// state that the registration workflow keeps in step with the registrations.
type Service struct {
	ID                  string        `json:"id" firestore:"-"`
	TempleID            string        `json:"temple_id" firestore:"templeId"`
	Name                string        `json:"name" firestore:"name"`
	Description         string        `json:"description" firestore:"description"`
	Type                string        `json:"type" firestore:"type"`
	Date                string        `json:"date" firestore:"date"` // Format: 'YYYY-MM-DD'
	TimeSlot            TimeSlot      `json:"time_slot" firestore:"timeSlot"`
	MaxParticipants     int           `json:"max_participants" firestore:"maxParticipants"`
	CurrentParticipants int           `json:"current_participants" firestore:"currentParticipants"`
	PendingParticipants int           `json:"pending_participants" firestore:"pendingParticipants"`
	ContactPerson       ContactPerson `json:"contact_person" firestore:"contactPerson"`
	Notes               *string       `json:"notes" firestore:"notes"`
	CreatedBy           string        `json:"created_by" firestore:"createdBy"`
	CreatedAt           time.Time     `json:"created_at" firestore:"createdAt"`
	UpdatedAt           time.Time     `json:"updated_at" firestore:"updatedAt"`
}

// Validate checks the admin-editable fields.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperr.InvalidArgument("service name is required")
	}
	if err := ValidateDate(s.Date); err != nil {
		return err
	}
	if err := s.TimeSlot.Validate(); err != nil {
		return err
	}
	if s.MaxParticipants <= 0 {
		return apperr.InvalidArgument("max participants must be positive, got %d", s.MaxParticipants)
	}
	if strings.TrimSpace(s.ContactPerson.Name) == "" {
		return apperr.InvalidArgument("contact person name is required")
	}
	return nil
}

// Counts returns the service's participant counters.
func (s *Service) Counts() ParticipantCounts {
	return ParticipantCounts{Pending: s.PendingParticipants, Approved: s.CurrentParticipants}
}

// HasCapacityFor reports whether applying d keeps approved participants within
// MaxParticipants. Decreases are always allowed.
func (s *Service) HasCapacityFor(d ParticipantDelta) bool {
	if d.Current <= 0 {
		return true
	}
	return s.CurrentParticipants+d.Current <= s.MaxParticipants
}

// ServiceUpdate is a partial update. Nil fields are left untouched; the
// participant counters are not updatable.
type ServiceUpdate struct {
	Name            *string        `json:"name,omitempty"`
	Description     *string        `json:"description,omitempty"`
	Type            *string        `json:"type,omitempty"`
	Date            *string        `json:"date,omitempty"`
	TimeSlot        *TimeSlot      `json:"time_slot,omitempty"`
	MaxParticipants *int           `json:"max_participants,omitempty"`
	ContactPerson   *ContactPerson `json:"contact_person,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
}

// NotesOnly reports whether the update touches nothing but notes.
func (u ServiceUpdate) NotesOnly() bool {
	return u.Name == nil && u.Description == nil && u.Type == nil && u.Date == nil &&
		u.TimeSlot == nil && u.MaxParticipants == nil && u.ContactPerson == nil
}

func (u ServiceUpdate) Empty() bool {
	return u.NotesOnly() && u.Notes == nil
}

// Apply copies the set fields onto s.
func (u ServiceUpdate) Apply(s *Service) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Type != nil {
		s.Type = *u.Type
	}
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.TimeSlot != nil {
		s.TimeSlot = *u.TimeSlot
	}
	if u.MaxParticipants != nil {
		s.MaxParticipants = *u.MaxParticipants
	}
	if u.ContactPerson != nil {
		s.ContactPerson = *u.ContactPerson
	}
	if u.Notes != nil {
		notes := *u.Notes
		if notes == "" {
			s.Notes = nil
		} else {
			s.Notes = &notes
		}
	}
}

func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return apperr.InvalidArgument("date %q must be YYYY-MM-DD", date)
	}
	return nil
}
