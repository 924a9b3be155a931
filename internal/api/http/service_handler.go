package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	limit, err := h.pageLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	services, err := h.services.ListServices(r.Context(), mux.Vars(r)["templeId"], r.URL.Query().Get("lastServiceDate"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cachePublic(w)
	writeJSON(w, http.StatusOK, orEmpty(services))
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	svc, err := h.services.GetService(r.Context(), vars["templeId"], vars["serviceId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var svc domain.Service
	if err := decodeJSON(w, r, &svc); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.services.CreateService(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"], &svc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var update domain.ServiceUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	updated, err := h.services.UpdateService(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["serviceId"], update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type deleteServiceResponse struct {
	RegistrationsRemoved int `json:"registrations_removed"`
}

// DeleteService refuses services with active registrations unless ?force=true.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	removed, err := h.services.DeleteService(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["serviceId"], force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteServiceResponse{RegistrationsRemoved: removed})
}

func (h *Handler) RecalculateParticipants(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.registrations.RecalculateServiceParticipants(r.Context(), AuthContextFrom(r.Context()), vars["serviceId"], vars["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// WatchService streams the service as server-sent events: a "service" event
// for every change, then "deleted" or "error" when the stream ends.
func (h *Handler) WatchService(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	vars := mux.Vars(r)
	updates, err := h.services.WatchService(r.Context(), vars["templeId"], vars["serviceId"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-updates:
			if !open {
				return
			}
			if !writeSnapshot(w, snap) {
				return
			}
			flusher.Flush()
			if snap.Deleted || snap.Err != nil {
				return
			}
		}
	}
}

// writeSnapshot writes one event and reports whether the client is still there.
func writeSnapshot(w http.ResponseWriter, snap repository.ServiceSnapshot) bool {
	var event string
	var payload any
	switch {
	case snap.Err != nil:
		logger.Warn("Service watch failed", "error", snap.Err)
		event, payload = "error", ErrorResponse{Error: apperr.Message(snap.Err), Code: codeName(apperr.Code(snap.Err))}
	case snap.Deleted:
		event, payload = "deleted", struct{}{}
	default:
		event, payload = "service", snap.Service
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to encode service snapshot", "error", err)
		return false
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err == nil
}

type registerRequest struct {
	UserID  string  `json:"user_id"`
	Message *string `json:"message"`
}

// RegisterForService registers the caller, or user_id when a temple admin
// registers someone else.
func (h *Handler) RegisterForService(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ac := AuthContextFrom(r.Context())
	if req.UserID == "" {
		req.UserID = ac.UserID
	}

	vars := mux.Vars(r)
	reg, err := h.registrations.RegisterForService(r.Context(), ac, req.UserID, vars["serviceId"], vars["templeId"], req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *Handler) ListServiceRegistrations(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	regs, err := h.registrations.ListServiceRegistrations(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["serviceId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) ListTempleRegistrations(w http.ResponseWriter, r *http.Request) {
	status := domain.RegistrationStatus(r.URL.Query().Get("status"))
	regs, err := h.registrations.ListTempleRegistrations(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"], status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListMyRegistrations(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reg, err := h.registrations.GetRegistration(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["registrationId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type statusRequest struct {
	Status    domain.RegistrationStatus `json:"status"`
	ServiceID string                    `json:"service_id"`
}

func (h *Handler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	reg, err := h.registrations.UpdateServiceRegistrationStatus(r.Context(), AuthContextFrom(r.Context()),
		vars["registrationId"], req.Status, vars["templeId"], req.ServiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type cancelRequest struct {
	Message *string `json:"message"`
}

func (h *Handler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := h.registrations.DeleteRegistration(r.Context(), AuthContextFrom(r.Context()), vars["registrationId"], vars["templeId"], req.Message); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
