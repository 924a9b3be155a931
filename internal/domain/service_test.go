package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
)

func validService() *Service {
	return &Service{
		Name:            "Annadanam",
		Date:            "2024-05-01",
		TimeSlot:        TimeSlot{Start: "11:00", End: "13:00"},
		MaxParticipants: 10,
		ContactPerson:   ContactPerson{Name: "Ravi", Phone: "555-0100"},
	}
}

func TestService_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, validService().Validate())
	})

	tests := []struct {
		name   string
		mutate func(s *Service)
	}{
		{"Missing name", func(s *Service) { s.Name = "  " }},
		{"Bad date", func(s *Service) { s.Date = "05/01/2024" }},
		{"Bad start", func(s *Service) { s.TimeSlot.Start = "11am" }},
		{"End before start", func(s *Service) { s.TimeSlot.End = "10:00" }},
		{"Equal start and end", func(s *Service) { s.TimeSlot.End = "11:00" }},
		{"Zero capacity", func(s *Service) { s.MaxParticipants = 0 }},
		{"Missing contact", func(s *Service) { s.ContactPerson.Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validService()
			tt.mutate(s)
			err := s.Validate()
			assert.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, apperr.Code(err))
		})
	}
}

func TestService_HasCapacityFor(t *testing.T) {
	s := validService()
	s.MaxParticipants = 2
	s.CurrentParticipants = 2

	assert.False(t, s.HasCapacityFor(CounterDelta(RegistrationStatusPending, RegistrationStatusApproved)))
	assert.True(t, s.HasCapacityFor(CounterDelta(RegistrationStatusApproved, RegistrationStatusRejected)))
	assert.True(t, s.HasCapacityFor(CounterDelta(RegistrationStatusPending, RegistrationStatusRejected)))

	s.CurrentParticipants = 1
	assert.True(t, s.HasCapacityFor(CounterDelta(RegistrationStatusRejected, RegistrationStatusApproved)))
}

func TestServiceUpdate(t *testing.T) {
	notes := "Bring flowers"
	name := "Renamed"

	t.Run("Notes only", func(t *testing.T) {
		u := ServiceUpdate{Notes: &notes}
		assert.True(t, u.NotesOnly())
		assert.False(t, u.Empty())

		s := validService()
		u.Apply(s)
		assert.Equal(t, "Bring flowers", *s.Notes)
		assert.Equal(t, "Annadanam", s.Name)
	})

	t.Run("Other field", func(t *testing.T) {
		u := ServiceUpdate{Name: &name, Notes: &notes}
		assert.False(t, u.NotesOnly())

		s := validService()
		s.CurrentParticipants = 3
		u.Apply(s)
		assert.Equal(t, "Renamed", s.Name)
		assert.Equal(t, 3, s.CurrentParticipants)
	})

	t.Run("Clearing notes", func(t *testing.T) {
		empty := ""
		s := validService()
		s.Notes = &notes
		ServiceUpdate{Notes: &empty}.Apply(s)
		assert.Nil(t, s.Notes)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.True(t, ServiceUpdate{}.Empty())
	})
}

func TestQuickLink_Validate(t *testing.T) {
	assert.NoError(t, (&QuickLink{Title: "Calendar", URL: "https://example.org/cal"}).Validate())
	assert.Error(t, (&QuickLink{Title: "", URL: "https://example.org"}).Validate())
	assert.Error(t, (&QuickLink{Title: "x", URL: "ftp://example.org"}).Validate())
	assert.Error(t, (&QuickLink{Title: "x", URL: "not a url"}).Validate())
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, (&Event{Title: "Diwali", Date: "2024-11-01"}).Validate())
	assert.NoError(t, (&Event{Title: "Diwali", Date: "2024-11-01", StartTime: "18:00", EndTime: "21:00"}).Validate())
	assert.Error(t, (&Event{Title: "Diwali", Date: "2024-11-01", StartTime: "21:00", EndTime: "18:00"}).Validate())
	assert.Error(t, (&Event{Date: "2024-11-01"}).Validate())
}
