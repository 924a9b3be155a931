package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/service"
)

// Services are the application services behind the HTTP surface.
type Services struct {
	Admin         service.AdminService
	Services      service.ServiceManager
	Registrations service.RegistrationService
	Events        service.EventService
	Users         service.UserService
	Notifications service.NotificationService
	QuickLinks    service.QuickLinkService
}

// Handler serves the /api/v1 routes.
type Handler struct {
	admin         service.AdminService
	services      service.ServiceManager
	registrations service.RegistrationService
	events        service.EventService
	users         service.UserService
	notifications service.NotificationService
	quickLinks    service.QuickLinkService

	pageSize    int
	cacheMaxAge int
}

func NewHandler(s Services, cfg config.APIConfig) *Handler {
	return &Handler{
		admin:         s.Admin,
		services:      s.Services,
		registrations: s.Registrations,
		events:        s.Events,
		users:         s.Users,
		notifications: s.Notifications,
		quickLinks:    s.QuickLinks,
		pageSize:      cfg.PageSize,
		cacheMaxAge:   cfg.CacheMaxAgeSeconds,
	}
}

// NewRouter builds the router. Every route carries a name from the security
// table so the auth middleware can look up its level.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware, LoggingMiddleware, auth.Middleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, apperr.NotFound("no route for %s %s", r.Method, r.URL.Path))
	})

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet).Name(config.RouteHealthz)

	api := router.PathPrefix("/api/v1").Subrouter()
	route := func(method, path, name string, fn http.HandlerFunc) {
		api.HandleFunc(path, fn).Methods(method).Name(name)
	}

	// Temples
	route(http.MethodGet, "/temples", config.RouteListTemples, h.ListTemples)
	route(http.MethodPost, "/temples", config.RouteCreateTemple, h.CreateTemple)
	route(http.MethodGet, "/temples/{templeId}", config.RouteGetTemple, h.GetTemple)
	route(http.MethodPut, "/temples/{templeId}", config.RouteUpdateTemple, h.UpdateTemple)
	route(http.MethodDelete, "/temples/{templeId}", config.RouteDeleteTemple, h.DeleteTemple)
	route(http.MethodGet, "/temples/{templeId}/service-types", config.RouteListServiceTypes, h.ListServiceTypes)
	route(http.MethodPost, "/temples/{templeId}/service-types", config.RouteCreateServiceType, h.CreateServiceType)
	route(http.MethodDelete, "/temples/{templeId}/service-types/{typeId}", config.RouteDeleteServiceType, h.DeleteServiceType)

	// Services
	route(http.MethodGet, "/temples/{templeId}/services", config.RouteListServices, h.ListServices)
	route(http.MethodPost, "/temples/{templeId}/services", config.RouteCreateService, h.CreateService)
	route(http.MethodGet, "/temples/{templeId}/services/{serviceId}", config.RouteGetService, h.GetService)
	route(http.MethodPatch, "/temples/{templeId}/services/{serviceId}", config.RouteUpdateService, h.UpdateService)
	route(http.MethodDelete, "/temples/{templeId}/services/{serviceId}", config.RouteDeleteService, h.DeleteService)
	route(http.MethodGet, "/temples/{templeId}/services/{serviceId}/watch", config.RouteWatchService, h.WatchService)
	route(http.MethodPost, "/temples/{templeId}/services/{serviceId}/recalculate", config.RouteRecalculate, h.RecalculateParticipants)

	// Registrations
	route(http.MethodPost, "/temples/{templeId}/services/{serviceId}/registrations", config.RouteRegisterForService, h.RegisterForService)
	route(http.MethodGet, "/temples/{templeId}/services/{serviceId}/registrations", config.RouteListServiceRegistrations, h.ListServiceRegistrations)
	route(http.MethodGet, "/temples/{templeId}/registrations", config.RouteListTempleRegistrations, h.ListTempleRegistrations)
	route(http.MethodGet, "/temples/{templeId}/registrations/mine", config.RouteListMyRegistrations, h.ListMyRegistrations)
	route(http.MethodGet, "/temples/{templeId}/registrations/{registrationId}", config.RouteGetRegistration, h.GetRegistration)
	route(http.MethodPut, "/temples/{templeId}/registrations/{registrationId}/status", config.RouteUpdateRegistrationStatus, h.UpdateRegistrationStatus)
	route(http.MethodDelete, "/temples/{templeId}/registrations/{registrationId}", config.RouteDeleteRegistration, h.DeleteRegistration)

	// Events
	route(http.MethodGet, "/temples/{templeId}/events", config.RouteListEvents, h.ListEvents)
	route(http.MethodPost, "/temples/{templeId}/events", config.RouteCreateEvent, h.CreateEvent)
	route(http.MethodGet, "/temples/{templeId}/events/{eventId}", config.RouteGetEvent, h.GetEvent)
	route(http.MethodPut, "/temples/{templeId}/events/{eventId}", config.RouteUpdateEvent, h.UpdateEvent)
	route(http.MethodDelete, "/temples/{templeId}/events/{eventId}", config.RouteDeleteEvent, h.DeleteEvent)

	// Admins and members
	route(http.MethodGet, "/temples/{templeId}/admins", config.RouteListAdmins, h.ListTempleAdmins)
	route(http.MethodPut, "/temples/{templeId}/admins/{userId}", config.RouteAssignAdmin, h.AssignAdmin)
	route(http.MethodDelete, "/admins/{userId}", config.RouteRevokeAdmin, h.RevokeAdmin)
	route(http.MethodPut, "/super-admins/{userId}", config.RouteGrantSuperAdmin, h.GrantSuperAdmin)
	route(http.MethodGet, "/temples/{templeId}/members", config.RouteListMembers, h.ListMembers)
	route(http.MethodPost, "/temples/{templeId}/members", config.RouteJoinTemple, h.JoinTemple)
	route(http.MethodDelete, "/temples/{templeId}/members/me", config.RouteLeaveTemple, h.LeaveTemple)
	route(http.MethodGet, "/temples/{templeId}/role", config.RouteGetRole, h.GetRole)

	// Account
	route(http.MethodGet, "/me", config.RouteGetProfile, h.GetProfile)
	route(http.MethodPut, "/me", config.RouteUpdateProfile, h.UpdateProfile)
	route(http.MethodGet, "/notifications", config.RouteListNotifications, h.GetNotifications)
	route(http.MethodPost, "/notifications/read-all", config.RouteMarkAllRead, h.MarkAllNotificationsRead)
	route(http.MethodPost, "/notifications/{notificationId}/read", config.RouteMarkNotification, h.MarkNotificationRead)
	route(http.MethodDelete, "/notifications/{notificationId}", config.RouteDeleteNotification, h.DeleteNotification)
	route(http.MethodGet, "/quick-links", config.RouteListQuickLinks, h.ListQuickLinks)
	route(http.MethodPost, "/quick-links", config.RouteCreateQuickLink, h.CreateQuickLink)
	route(http.MethodPut, "/quick-links/{linkId}", config.RouteUpdateQuickLink, h.UpdateQuickLink)
	route(http.MethodDelete, "/quick-links/{linkId}", config.RouteDeleteQuickLink, h.DeleteQuickLink)

	return router
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cachePublic marks a public listing as cacheable by browsers and proxies.
func (h *Handler) cachePublic(w http.ResponseWriter) {
	if h.cacheMaxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.cacheMaxAge))
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.InvalidArgument("query parameter %s must be a non-negative integer", name)
	}
	return n, nil
}

// pageLimit reads the limit query parameter of a date-cursor listing. It
// defaults to the configured page size and never exceeds it.
func (h *Handler) pageLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", h.pageSize)
	if err != nil {
		return 0, err
	}
	if h.pageSize > 0 && (limit == 0 || limit > h.pageSize) {
		limit = h.pageSize
	}
	return limit, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.InvalidArgument("query parameter %s must be a boolean", name)
	}
	return b, nil
}
