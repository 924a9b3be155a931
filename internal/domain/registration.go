package domain

import "time"

type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "pending"
	RegistrationStatusApproved RegistrationStatus = "approved"
	RegistrationStatusRejected RegistrationStatus = "rejected"
)

var RegistrationStatuses = []RegistrationStatus{
	RegistrationStatusPending,
	RegistrationStatusApproved,
	RegistrationStatusRejected,
}

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusRejected:
		return true
	}
	return false
}

// Active reports whether the status occupies a counter bucket.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusApproved
}

// ServiceRegistration is one user's request to take part in a service. The
// service fields are a snapshot taken at registration time.
type ServiceRegistration struct {
	ID              string             `json:"id" firestore:"-"`
	UserID          string             `json:"user_id" firestore:"userId"`
	ServiceID       string             `json:"service_id" firestore:"serviceId"`
	TempleID        string             `json:"temple_id" firestore:"templeId"`
	Status          RegistrationStatus `json:"status" firestore:"status"`
	Message         *string            `json:"message,omitempty" firestore:"message"`
	ServiceName     string             `json:"service_name" firestore:"serviceName"`
	ServiceType     string             `json:"service_type" firestore:"serviceType"`
	ServiceDate     string             `json:"service_date" firestore:"serviceDate"`
	ServiceTimeSlot TimeSlot           `json:"service_time_slot" firestore:"serviceTimeSlot"`
	CreatedAt       time.Time          `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time          `json:"updated_at" firestore:"updatedAt"`
}

// NewRegistration builds a pending registration for userID carrying a
// snapshot of svc.
func NewRegistration(id, userID string, svc *Service, message *string, now time.Time) *ServiceRegistration {
	reg := &ServiceRegistration{
		ID:        id,
		UserID:    userID,
		Status:    RegistrationStatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	reg.Snapshot(svc)
	return reg
}

// Snapshot copies the display fields of svc onto the registration.
func (r *ServiceRegistration) Snapshot(svc *Service) {
	r.ServiceID = svc.ID
	r.TempleID = svc.TempleID
	r.ServiceName = svc.Name
	r.ServiceType = svc.Type
	r.ServiceDate = svc.Date
	r.ServiceTimeSlot = svc.TimeSlot
}

// ParticipantDelta is a change to a service's (pending, current) counters.
type ParticipantDelta struct {
	Pending int
	Current int
}

func (d ParticipantDelta) Add(o ParticipantDelta) ParticipantDelta {
	return ParticipantDelta{Pending: d.Pending + o.Pending, Current: d.Current + o.Current}
}

func (d ParticipantDelta) Negate() ParticipantDelta {
	return ParticipantDelta{Pending: -d.Pending, Current: -d.Current}
}

func (d ParticipantDelta) IsZero() bool {
	return d.Pending == 0 && d.Current == 0
}

// Bucket is the counter contribution of a single registration in status s.
// Rejected registrations are not counted.
func Bucket(s RegistrationStatus) ParticipantDelta {
	switch s {
	case RegistrationStatusPending:
		return ParticipantDelta{Pending: 1}
	case RegistrationStatusApproved:
		return ParticipantDelta{Current: 1}
	}
	return ParticipantDelta{}
}

// CounterDelta is the counter change for moving a registration from old to
// next: the bucket of old is decremented and the bucket of next incremented.
// Self transitions net to zero.
func CounterDelta(old, next RegistrationStatus) ParticipantDelta {
	return Bucket(old).Negate().Add(Bucket(next))
}

// ParticipantCounts is the pair of counters held on a service.
type ParticipantCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
}

func (c ParticipantCounts) Apply(d ParticipantDelta) ParticipantCounts {
	return ParticipantCounts{Pending: c.Pending + d.Pending, Approved: c.Approved + d.Current}
}

// CountRegistrations tallies registrations by counted status.
func CountRegistrations(regs []ServiceRegistration) ParticipantCounts {
	var c ParticipantCounts
	for _, r := range regs {
		c = c.Apply(Bucket(r.Status))
	}
	return c
}

// Recalculation reports the counters written by a reconciliation together
// with the values they replaced.
type Recalculation struct {
	TempleID         string `json:"temple_id"`
	ServiceID        string `json:"service_id"`
	Approved         int    `json:"approved"`
	Pending          int    `json:"pending"`
	PreviousApproved int    `json:"previous_approved"`
	PreviousPending  int    `json:"previous_pending"`
}

func (r Recalculation) Drifted() bool {
	return r.Approved != r.PreviousApproved || r.Pending != r.PreviousPending
}

// NotificationTypeForStatus is the notification type sent to a registrant
// whose registration moved to s.
func NotificationTypeForStatus(s RegistrationStatus) NotificationType {
	switch s {
	case RegistrationStatusApproved:
		return NotificationTypeSuccess
	case RegistrationStatusRejected:
		return NotificationTypeWarning
	}
	return NotificationTypeInfo
}
