package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"temple-services-backend/internal/domain"
)

func (h *Handler) ListTempleAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admin.ListTempleAdmins(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(admins))
}

func (h *Handler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.admin.AssignAdmin(r.Context(), AuthContextFrom(r.Context()), vars["userId"], vars["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.RevokeAdmin(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["userId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GrantSuperAdmin(w http.ResponseWriter, r *http.Request) {
	rec, err := h.admin.GrantSuperAdmin(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.admin.ListMembers(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(members))
}

func (h *Handler) JoinTemple(w http.ResponseWriter, r *http.Request) {
	member, err := h.admin.JoinTemple(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) LeaveTemple(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.LeaveTemple(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type roleResponse struct {
	Role string `json:"role"`
}

// GetRole reports the caller's role in the temple, optionally for ?serviceId=.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.admin.RoleIn(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"], r.URL.Query().Get("serviceId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roleResponse{Role: string(role)})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), AuthContextFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if user.Email == "" {
		if ident := IdentityFrom(r.Context()); ident != nil {
			user.Email = ident.Email
		}
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" {
		if ident := IdentityFrom(r.Context()); ident != nil {
			req.Email = ident.Email
		}
	}
	user, err := h.users.UpdateProfile(r.Context(), AuthContextFrom(r.Context()), req.DisplayName, req.Email, req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", h.pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	notes, total, err := h.notifications.GetNotifications(r.Context(), AuthContextFrom(r.Context()), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{
		Notifications: orEmpty(notes),
		Total:         total,
		Page:          max(page, 1),
		PageSize:      pageSize,
	})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAsRead(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["notificationId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markAllResponse struct {
	Marked int `json:"marked"`
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	marked, err := h.notifications.MarkAllAsRead(r.Context(), AuthContextFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markAllResponse{Marked: marked})
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.DeleteNotification(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["notificationId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListQuickLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.quickLinks.ListQuickLinks(r.Context(), AuthContextFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(links))
}

func (h *Handler) CreateQuickLink(w http.ResponseWriter, r *http.Request) {
	var link domain.QuickLink
	if err := decodeJSON(w, r, &link); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.quickLinks.CreateQuickLink(r.Context(), AuthContextFrom(r.Context()), &link)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateQuickLink(w http.ResponseWriter, r *http.Request) {
	var link domain.QuickLink
	if err := decodeJSON(w, r, &link); err != nil {
		writeError(w, err)
		return
	}
	link.ID = mux.Vars(r)["linkId"]
	updated, err := h.quickLinks.UpdateQuickLink(r.Context(), AuthContextFrom(r.Context()), &link)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteQuickLink(w http.ResponseWriter, r *http.Request) {
	if err := h.quickLinks.DeleteQuickLink(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["linkId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
