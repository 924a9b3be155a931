// Package memory is an in-process backend for local development and tests.
// A single mutex serialises every operation, which gives each multi-document
// write the same all-or-nothing behaviour as a store transaction.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

const backend = "memory"

type db struct {
	mu     sync.Mutex
	now    func() time.Time
	broker *broker

	temples       map[string]domain.Temple
	serviceTypes  map[string]map[string]domain.ServiceType
	users         map[string]domain.User
	admins        map[string]domain.AdminRecord
	members       map[string]map[string]domain.TempleMember
	services      map[string]map[string]domain.Service
	registrations map[string]map[string]domain.ServiceRegistration
	notifications map[string]domain.Notification
	quickLinks    map[string]map[string]domain.QuickLink
	events        map[string]map[string]domain.Event
}

// NewStore returns an empty store.
func NewStore() *repository.Store {
	d := &db{
		now:           func() time.Time { return time.Now().UTC() },
		broker:        newBroker(),
		temples:       make(map[string]domain.Temple),
		serviceTypes:  make(map[string]map[string]domain.ServiceType),
		users:         make(map[string]domain.User),
		admins:        make(map[string]domain.AdminRecord),
		members:       make(map[string]map[string]domain.TempleMember),
		services:      make(map[string]map[string]domain.Service),
		registrations: make(map[string]map[string]domain.ServiceRegistration),
		notifications: make(map[string]domain.Notification),
		quickLinks:    make(map[string]map[string]domain.QuickLink),
		events:        make(map[string]map[string]domain.Event),
	}
	return &repository.Store{
		Temples:       &templeRepository{d},
		Users:         &userRepository{d},
		Admins:        &adminRepository{d},
		Members:       &memberRepository{d},
		Services:      &serviceRepository{d},
		Registrations: &registrationRepository{d},
		Notifications: &notificationRepository{d},
		QuickLinks:    &quickLinkRepository{d},
		Events:        &eventRepository{d},
	}
}

// scoped returns the inner map for key, creating it on first use.
func scoped[V any](m map[string]map[string]V, key string) map[string]V {
	inner, ok := m[key]
	if !ok {
		inner = make(map[string]V)
		m[key] = inner
	}
	return inner
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
