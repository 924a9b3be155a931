// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Verified bearer token required
)

// Route names shared by the HTTP router and the security table
const (
	RouteHealthz = "Healthz"

	RouteListTemples  = "ListTemples"
	RouteGetTemple    = "GetTemple"
	RouteCreateTemple = "CreateTemple"
	RouteUpdateTemple = "UpdateTemple"
	RouteDeleteTemple = "DeleteTemple"

	RouteListServiceTypes  = "ListServiceTypes"
	RouteCreateServiceType = "CreateServiceType"
	RouteDeleteServiceType = "DeleteServiceType"

	RouteListServices  = "ListServices"
	RouteGetService    = "GetService"
	RouteWatchService  = "WatchService"
	RouteCreateService = "CreateService"
	RouteUpdateService = "UpdateService"
	RouteDeleteService = "DeleteService"
	RouteRecalculate   = "RecalculateServiceParticipants"

	RouteRegisterForService       = "RegisterForService"
	RouteListServiceRegistrations = "ListServiceRegistrations"
	RouteListTempleRegistrations  = "ListTempleRegistrations"
	RouteListMyRegistrations      = "ListMyRegistrations"
	RouteGetRegistration          = "GetRegistration"
	RouteUpdateRegistrationStatus = "UpdateServiceRegistrationStatus"
	RouteDeleteRegistration       = "DeleteRegistration"

	RouteListEvents  = "ListEvents"
	RouteGetEvent    = "GetEvent"
	RouteCreateEvent = "CreateEvent"
	RouteUpdateEvent = "UpdateEvent"
	RouteDeleteEvent = "DeleteEvent"

	RouteListAdmins      = "ListTempleAdmins"
	RouteAssignAdmin     = "AssignAdmin"
	RouteRevokeAdmin     = "RevokeAdmin"
	RouteGrantSuperAdmin = "GrantSuperAdmin"

	RouteJoinTemple  = "JoinTemple"
	RouteLeaveTemple = "LeaveTemple"
	RouteListMembers = "ListMembers"
	RouteGetRole     = "GetRole"

	RouteGetProfile    = "GetProfile"
	RouteUpdateProfile = "UpdateProfile"

	RouteListNotifications  = "GetNotifications"
	RouteMarkNotification   = "MarkNotificationRead"
	RouteMarkAllRead        = "MarkAllNotificationsRead"
	RouteDeleteNotification = "DeleteNotification"

	RouteListQuickLinks  = "ListQuickLinks"
	RouteCreateQuickLink = "CreateQuickLink"
	RouteUpdateQuickLink = "UpdateQuickLink"
	RouteDeleteQuickLink = "DeleteQuickLink"
)

// EndpointSecurityConfig maps route names to their required security level.
// Routes not listed require an access token.
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealthz: SecurityPublic,

	// Temples - Public reads
	RouteListTemples:      SecurityPublic,
	RouteGetTemple:        SecurityPublic,
	RouteListServiceTypes: SecurityPublic,

	// Services - Public reads and live updates
	RouteListServices: SecurityPublic,
	RouteGetService:   SecurityPublic,
	RouteWatchService: SecurityPublic,

	// Events - Public reads
	RouteListEvents: SecurityPublic,
	RouteGetEvent:   SecurityPublic,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
