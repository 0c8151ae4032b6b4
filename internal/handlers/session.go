package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/internal/services"
	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse pairs a session state with its current scene so the
// presentation layer can render without a second round trip.
type SessionResponse struct {
	Session *session.State `json:"session"`
	Scene   scenario.Scene `json:"scene"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// statusForEngineError maps the engine's error taxonomy to HTTP statuses.
// InvalidInput is the caller's fault and recoverable; ConfigError means the
// scenario data is broken; PersistenceError means the external recorder
// failed and the learner may retry.
func statusForEngineError(err error) int {
	var invalid *session.InvalidInputError
	var config *session.ConfigError
	var persistence *session.PersistenceError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &config):
		return http.StatusInternalServerError
	case errors.As(err, &persistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type SessionHandler struct {
	storage services.Storage
	logger  *slog.Logger
}

func NewSessionHandler(logger *slog.Logger, storage services.Storage) *SessionHandler {
	return &SessionHandler{
		logger:  logger,
		storage: storage,
	}
}

// CreateSessionRequest defines the request body for creating a new session
type CreateSessionRequest struct {
	Scenario string `json:"scenario"` // Required: scenario filename
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/sessions        - Create new session
// GET /v1/sessions/{id}    - Read session by ID
// DELETE /v1/sessions/{id} - Delete session by ID
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions")
	var sessionID uuid.UUID
	var err error

	if path != "" && path != "/" {
		idStr := strings.Trim(path, "/")
		sessionID, err = uuid.Parse(idStr)
		if err != nil {
			h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)

	case http.MethodGet:
		if sessionID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "Session ID is required for GET requests")
			return
		}
		h.handleRead(w, r, sessionID)

	case http.MethodDelete:
		if sessionID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "Session ID is required for DELETE requests")
			return
		}
		h.handleDelete(w, r, sessionID)

	default:
		h.logger.Warn("Method not allowed for session endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new session")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Scenario == "" {
		writeError(w, h.logger, http.StatusBadRequest, "scenario field is required")
		return
	}

	scn, err := h.storage.GetScenario(r.Context(), req.Scenario)
	if err != nil {
		h.logger.Warn("Failed to load scenario", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to load scenario: "+err.Error())
		return
	}

	if err := scn.Validate(); err != nil {
		h.logger.Error("Scenario failed validation", "scenario", req.Scenario, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Scenario is misconfigured: "+err.Error())
		return
	}

	st := session.New(scn, req.Scenario)
	engine := session.NewEngine(scn, st, h.logger)
	scene, err := engine.CurrentScene()
	if err != nil {
		writeError(w, h.logger, statusForEngineError(err), err.Error())
		return
	}

	if err := h.storage.SaveSession(r.Context(), st.ID, st); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "id", st.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Debug("Session created", "id", st.ID.String(), "scenario", req.Scenario)
	writeJSON(w, h.logger, http.StatusCreated, SessionResponse{Session: st, Scene: scene})
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
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
	scene, err := engine.CurrentScene()
	if err != nil {
		writeError(w, h.logger, statusForEngineError(err), err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SessionResponse{Session: st, Scene: scene})
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Debug("Session deleted", "id", sessionID.String())
	w.WriteHeader(http.StatusNoContent)
}
