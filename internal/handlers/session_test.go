package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/scenario-engine/internal/services"
	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureScenario is a compact graph with every scene type, used across the
// handler tests.
func fixtureScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Title:      "Fixture Park",
		StartScene: "start",
		Vars:       map[string]int{"power": 0},
		ReflectionQuestions: []string{
			"What happened?",
		},
		CompletionTracking: true,
		Scenes: map[string]scenario.Scene{
			"start": {
				Narration: "It begins.",
				Type:      scenario.SceneLinear,
				Next:      "ask",
			},
			"ask": {
				Narration: "Push or wait?",
				Type:      scenario.SceneChoice,
				Choices: []scenario.Choice{
					{Text: "Push", Next: "gate", Effects: map[string]int{"power": 2}},
					{Text: "Wait", Next: "gate"},
				},
			},
			"gate": {
				Narration: "The gate decides.",
				Type:      scenario.SceneConditional,
				Branches:  []scenario.Branch{{If: "power >= 2", Next: "end_win"}},
				Default:   "end_lose",
			},
			"end_win": {
				Narration: "Victory.",
				Type:      scenario.SceneTerminal,
				Outcome:   "success",
			},
			"end_lose": {
				Narration: "Defeat.",
				Type:      scenario.SceneTerminal,
				Outcome:   "failure",
			},
		},
	}
}

func newFixtureStorage() *services.MockStorage {
	storage := services.NewMockStorage()
	storage.Scenarios["fixture_park.json"] = fixtureScenario()
	return storage
}

func createFixtureSession(t *testing.T, storage *services.MockStorage) *session.State {
	t.Helper()
	scn := storage.Scenarios["fixture_park.json"]
	st := session.New(scn, "fixture_park.json")
	storage.Sessions[st.ID] = st
	return st
}

func TestSessionHandler_Create(t *testing.T) {
	storage := newFixtureStorage()
	handler := NewSessionHandler(testLogger(), storage)

	body, _ := json.Marshal(CreateSessionRequest{Scenario: "fixture_park.json"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "start", resp.Session.Current)
	assert.Equal(t, "fixture_park.json", resp.Session.ScenarioFile)
	assert.Equal(t, "It begins.", resp.Scene.Narration)
	assert.NotEqual(t, uuid.Nil, resp.Session.ID)

	// The new session was persisted.
	assert.Contains(t, storage.Sessions, resp.Session.ID)
}

func TestSessionHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "invalid JSON",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing scenario field",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown scenario",
			body:           `{"scenario":"nope.json"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionHandler(testLogger(), newFixtureStorage())
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSessionHandler_CreateRejectsInvalidScenario(t *testing.T) {
	storage := newFixtureStorage()
	broken := fixtureScenario()
	start := broken.Scenes["start"]
	start.Next = "missing"
	broken.Scenes["start"] = start
	storage.Scenarios["broken.json"] = broken

	handler := NewSessionHandler(testLogger(), storage)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString(`{"scenario":"broken.json"}`))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionHandler_Read(t *testing.T) {
	storage := newFixtureStorage()
	st := createFixtureSession(t, storage)
	handler := NewSessionHandler(testLogger(), storage)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+st.ID.String(), nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, st.ID, resp.Session.ID)
	assert.Equal(t, "start", resp.Session.Current)
}

func TestSessionHandler_ReadNotFound(t *testing.T) {
	handler := NewSessionHandler(testLogger(), newFixtureStorage())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_ReadInvalidID(t *testing.T) {
	handler := NewSessionHandler(testLogger(), newFixtureStorage())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Delete(t *testing.T) {
	storage := newFixtureStorage()
	st := createFixtureSession(t, storage)
	handler := NewSessionHandler(testLogger(), storage)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+st.ID.String(), nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, storage.Sessions, st.ID)
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(testLogger(), newFixtureStorage())

	req := httptest.NewRequest(http.MethodPut, "/v1/sessions", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
