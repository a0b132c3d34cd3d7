package session

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wozlab/woz-relay/internal/export"
	sessionstore "github.com/wozlab/woz-relay/internal/store/session"
	"github.com/wozlab/woz-relay/internal/telemetry"
	"github.com/wozlab/woz-relay/pkg/utils"
)

// Handler exposes the session lifecycle over HTTP: provisioning, state
// reads, resets, CSV export, and the admin listing. The real-time path goes
// through the websocket handler instead.
type Handler struct {
	store   *sessionstore.Store
	metrics *telemetry.Metrics
}

// New creates the session HTTP handler.
func New(store *sessionstore.Store, metrics *telemetry.Metrics) *Handler {
	return &Handler{store: store, metrics: metrics}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/create", h.handleCreate)
	r.Get("/session/{sessionID}/state", h.handleState)
	r.Post("/session/{sessionID}/reset", h.handleReset)
	r.Get("/session/{sessionID}/export.csv", h.handleExport)
	r.Get("/sessions", h.handleList)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sessionID := "s_" + uuid.NewString()
	s := h.store.GetOrCreate(sessionID)
	h.metrics.SessionCreated(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": s.SessionID})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, h.store.GetOrCreate(sessionID))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, h.store.Reset(sessionID))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	csv := export.Transcript(h.store.GetOrCreate(sessionID))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+sessionID+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.List())
}
