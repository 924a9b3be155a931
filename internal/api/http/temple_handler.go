package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"temple-services-backend/internal/domain"
)

func (h *Handler) ListTemples(w http.ResponseWriter, r *http.Request) {
	temples, err := h.admin.ListTemples(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.cachePublic(w)
	writeJSON(w, http.StatusOK, orEmpty(temples))
}

func (h *Handler) GetTemple(w http.ResponseWriter, r *http.Request) {
	temple, err := h.admin.GetTemple(r.Context(), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, temple)
}

func (h *Handler) CreateTemple(w http.ResponseWriter, r *http.Request) {
	var temple domain.Temple
	if err := decodeJSON(w, r, &temple); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.admin.CreateTemple(r.Context(), AuthContextFrom(r.Context()), &temple)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTemple(w http.ResponseWriter, r *http.Request) {
	var temple domain.Temple
	if err := decodeJSON(w, r, &temple); err != nil {
		writeError(w, err)
		return
	}
	temple.ID = mux.Vars(r)["templeId"]
	updated, err := h.admin.UpdateTemple(r.Context(), AuthContextFrom(r.Context()), &temple)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteTemple(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteTemple(r.Context(), AuthContextFrom(r.Context()), mux.Vars(r)["templeId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.admin.ListServiceTypes(r.Context(), mux.Vars(r)["templeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	h.cachePublic(w)
	writeJSON(w, http.StatusOK, orEmpty(types))
}

func (h *Handler) CreateServiceType(w http.ResponseWriter, r *http.Request) {
	var st domain.ServiceType
	if err := decodeJSON(w, r, &st); err != nil {
		writeError(w, err)
		return
	}
	st.TempleID = mux.Vars(r)["templeId"]
	created, err := h.admin.CreateServiceType(r.Context(), AuthContextFrom(r.Context()), &st)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteServiceType(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.admin.DeleteServiceType(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["typeId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := h.pageLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := h.events.ListEvents(r.Context(), mux.Vars(r)["templeId"], r.URL.Query().Get("lastEventDate"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cachePublic(w)
	writeJSON(w, http.StatusOK, orEmpty(events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	event, err := h.events.GetEvent(r.Context(), vars["templeId"], vars["eventId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.Event
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, err)
		return
	}
	event.TempleID = mux.Vars(r)["templeId"]
	created, err := h.events.CreateEvent(r.Context(), AuthContextFrom(r.Context()), &event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.Event
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	event.TempleID, event.ID = vars["templeId"], vars["eventId"]
	updated, err := h.events.UpdateEvent(r.Context(), AuthContextFrom(r.Context()), &event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.events.DeleteEvent(r.Context(), AuthContextFrom(r.Context()), vars["templeId"], vars["eventId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
