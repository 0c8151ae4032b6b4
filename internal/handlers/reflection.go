package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/internal/services"
	"github.com/civiclab/scenario-engine/pkg/session"
)

// ReflectionRequest is a learner's reflection submission on a terminal scene.
type ReflectionRequest struct {
	Scene       string   `json:"scene"`
	StudentName string   `json:"student_name"`
	Answers     []string `json:"answers"`
}

// ReflectionHandler routes reflection submissions through the completion
// gate. On persistence failure the session is not saved, so the submitted
// flag stays unset and the learner may retry.
type ReflectionHandler struct {
	storage  services.Storage
	recorder services.ReflectionRecorder
	logger   *slog.Logger
}

func NewReflectionHandler(logger *slog.Logger, storage services.Storage, recorder services.ReflectionRecorder) *ReflectionHandler {
	return &ReflectionHandler{
		logger:   logger,
		storage:  storage,
		recorder: recorder,
	}
}

// ServeHTTP handles POST /v1/sessions/{id}/reflection
func (h *ReflectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	// Registered as /v1/sessions/{id}/reflection; the mux binds the wildcard.
	idStr := r.PathValue("id")
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	var req ReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in reflection request", "error", err)
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

	if !scn.CompletionTracking {
		writeError(w, h.logger, http.StatusBadRequest, "Scenario does not collect reflections")
		return
	}

	engine := session.NewEngine(scn, st, h.logger)
	if err := engine.SubmitReflection(r.Context(), h.recorder, req.Scene, req.StudentName, req.Answers); err != nil {
		h.logger.Warn("Reflection rejected", "id", sessionID.String(), "scene", req.Scene, "error", err)
		writeError(w, h.logger, statusForEngineError(err), err.Error())
		return
	}

	if err := h.storage.SaveSession(r.Context(), sessionID, st); err != nil {
		// The recorder already has the row but the submitted flag is not
		// persisted; a retry posts the row again. The grading export dedupes
		// per (scenario, student).
		h.logger.Error("Reflection recorded but session save failed, retry may duplicate the recorded row",
			"error", err, "id", sessionID.String(), "scene", req.Scene)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Reflection submitted", "id", sessionID.String(), "scene", req.Scene)
	scene, _ := engine.CurrentScene()
	writeJSON(w, h.logger, http.StatusOK, SessionResponse{Session: st, Scene: scene})
}
