package notification

import (
	"encoding/json"
	"errors"
	"net/http"

	myMiddleware "iptv-live/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	dispatcher *Dispatcher
	validate   *validator.Validate
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d, validate: validator.New()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.dispatcher.GetAllNotifications(r.Context(), id.UserID)
	if err != nil {
		http.Error(w, "Could not load notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.respond(w, h.dispatcher.MarkRead(r.Context(), id.UserID, chi.URLParam(r, "id")))
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.respond(w, h.dispatcher.MarkAllRead(r.Context(), id.UserID))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.respond(w, h.dispatcher.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")))
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.respond(w, h.dispatcher.ClearAll(r.Context(), id.UserID))
}

// PublishEvent lets the rest of the application raise business events.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var evt BusinessEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(evt); err != nil {
		http.Error(w, "Event type is required", http.StatusBadRequest)
		return
	}
	if err := h.dispatcher.HandleBusinessEvent(r.Context(), evt); err != nil {
		if errors.Is(err, ErrUnknownType) {
			http.Error(w, "Unknown notification type", http.StatusBadRequest)
			return
		}
		http.Error(w, "Could not deliver notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	default:
		http.Error(w, "Could not update notifications", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
