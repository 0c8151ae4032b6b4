package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/internal/services"
	"github.com/civiclab/scenario-engine/pkg/session"
)

// Event actions accepted by POST /v1/sessions/{id}/events.
const (
	ActionContinue = "continue"
	ActionChoice   = "choice"
	ActionUndo     = "undo"
	ActionRestart  = "restart"
)

// EventRequest is one learner input: a continue press, a choice selection,
// an undo, or a restart.
type EventRequest struct {
	Action string `json:"action"`
	Choice int    `json:"choice,omitempty"` // zero-based, for action "choice"
}

// EventHandler applies a single event to a session through the transition
// engine. The modified session is only persisted when the event succeeds.
type EventHandler struct {
	storage services.Storage
	logger  *slog.Logger
}

func NewEventHandler(logger *slog.Logger, storage services.Storage) *EventHandler {
	return &EventHandler{
		logger:  logger,
		storage: storage,
	}
}

// ServeHTTP handles POST /v1/sessions/{id}/events
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	sessionID, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in event request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	st, err := h.storage.LoadSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if st == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	scn, err := h.storage.GetScenario(r.Context(), st.ScenarioFile)
	if err != nil {
		h.logger.Error("Failed to load scenario for session", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenario")
		return
	}

	engine := session.NewEngine(scn, st, h.logger)

	switch req.Action {
	case ActionContinue:
		_, err = engine.Continue()
	case ActionChoice:
		_, err = engine.Choose(req.Choice)
	case ActionUndo:
		_, err = engine.Undo()
	case ActionRestart:
		engine.Restart()
	default:
		writeError(w, h.logger, http.StatusBadRequest, "Unknown action: "+req.Action)
		return
	}

	if err != nil {
		h.logger.Warn("Event rejected", "id", sessionID.String(), "action", req.Action, "error", err)
		writeError(w, h.logger, statusForEngineError(err), err.Error())
		return
	}

	scene, err := engine.CurrentScene()
	if err != nil {
		writeError(w, h.logger, statusForEngineError(err), err.Error())
		return
	}

	if err := h.storage.SaveSession(r.Context(), sessionID, st); err != nil {
		h.logger.Error("Failed to save session after event", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Debug("Event applied", "id", sessionID.String(), "action", req.Action, "scene", st.Current)
	writeJSON(w, h.logger, http.StatusOK, SessionResponse{Session: st, Scene: scene})
}

func (h *EventHandler) parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	// Registered as /v1/sessions/{id}/events; the mux binds the wildcard.
	idStr := r.PathValue("id")
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return sessionID, true
}
