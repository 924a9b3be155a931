// Package firestore implements the repositories on Cloud Firestore. Temple
// scoped data lives under temples/{templeId}; admin records, user profiles and
// notifications are top-level collections.
package firestore

import (
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

const backend = "firestore"

// Collection names
const (
	colTemples       = "temples"
	colServices      = "services"
	colRegistrations = "service_registrations"
	colMembers       = "members"
	colServiceTypes  = "service_types"
	colEvents        = "events"
	colAdmin         = "admin"
	colUsers         = "users"
	colQuickLinks    = "quick_links"
	colNotifications = "notifications"
)

// NewStore builds every repository on client. Closing the store closes the client.
func NewStore(client *firestore.Client) *repository.Store {
	p := paths{client: client}
	return &repository.Store{
		Temples:       &templeRepository{p},
		Users:         &userRepository{p},
		Admins:        &adminRepository{p},
		Members:       &memberRepository{p},
		Services:      &serviceRepository{p},
		Registrations: &registrationRepository{p},
		Notifications: &notificationRepository{p},
		QuickLinks:    &quickLinkRepository{p},
		Events:        &eventRepository{p},
		OnClose:       client.Close,
	}
}

type paths struct {
	client *firestore.Client
}

func (p paths) temples() *firestore.CollectionRef {
	return p.client.Collection(colTemples)
}

func (p paths) templeScoped(templeID, name string) *firestore.CollectionRef {
	return p.temples().Doc(templeID).Collection(name)
}

func (p paths) services(templeID string) *firestore.CollectionRef {
	return p.templeScoped(templeID, colServices)
}

func (p paths) registrations(templeID string) *firestore.CollectionRef {
	return p.templeScoped(templeID, colRegistrations)
}

func (p paths) members(templeID string) *firestore.CollectionRef {
	return p.templeScoped(templeID, colMembers)
}

func (p paths) serviceTypes(templeID string) *firestore.CollectionRef {
	return p.templeScoped(templeID, colServiceTypes)
}

func (p paths) events(templeID string) *firestore.CollectionRef {
	return p.templeScoped(templeID, colEvents)
}

func (p paths) admin() *firestore.CollectionRef {
	return p.client.Collection(colAdmin)
}

func (p paths) users() *firestore.CollectionRef {
	return p.client.Collection(colUsers)
}

func (p paths) quickLinks(userID string) *firestore.CollectionRef {
	return p.users().Doc(userID).Collection(colQuickLinks)
}

func (p paths) notifications() *firestore.CollectionRef {
	return p.client.Collection(colNotifications)
}

// newDoc returns the document for id, or a fresh auto-ID document when id is empty.
func newDoc(coll *firestore.CollectionRef, id string) *firestore.DocumentRef {
	if id == "" {
		return coll.NewDoc()
	}
	return coll.Doc(id)
}

// notFound replaces a Firestore NotFound with a domain message and keeps
// every other error as it is.
func notFound(err error, format string, args ...any) error {
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound(format, args...)
	}
	return err
}

// alreadyExists does the same for AlreadyExists on Create.
func alreadyExists(err error, format string, args ...any) error {
	if status.Code(err) == codes.AlreadyExists {
		return apperr.AlreadyExists(format, args...)
	}
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

// logged reports the outcome of a store call and returns err unchanged.
func logged(operation, path string, err error) error {
	logger.StoreResult(backend, operation, path, err)
	return err
}
