package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/civiclab/scenario-engine/internal/services"
)

type ScenarioHandler struct {
	log     *slog.Logger
	storage services.Storage
}

func NewScenarioHandler(log *slog.Logger, storage services.Storage) *ScenarioHandler {
	return &ScenarioHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP handles GET /v1/scenarios (list) and GET /v1/scenarios/{file}
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
		return
	}

	scn, err := h.storage.GetScenario(r.Context(), filename)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, h.log, http.StatusNotFound, "Scenario not found")
			return
		}
		h.log.Error("Failed to get scenario", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve scenario")
		return
	}

	writeJSON(w, h.log, http.StatusOK, scn)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	writeJSON(w, h.log, http.StatusOK, scenarios)
}
