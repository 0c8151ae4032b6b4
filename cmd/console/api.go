package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionView matches the API response shape: the session state plus the
// scene the learner is currently on.
type SessionView struct {
	Session *session.State `json:"session"`
	Scene   scenario.Scene `json:"scene"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func listScenarios(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	resp, err := client.Get(baseURL + "/v1/scenarios")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var scenarioMap map[string]string
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal(body, &scenarioMap); err != nil {
		return nil, nil, err
	}

	var names []string
	for name := range scenarioMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, scenarioMap, nil
}

func createSession(client *http.Client, baseURL string, scenarioFile string) (*SessionView, error) {
	jsonData, err := json.Marshal(map[string]string{"scenario": scenarioFile})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/sessions",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeSessionView(resp, http.StatusCreated, "create session")
}

func postEvent(client *http.Client, baseURL string, sessionID uuid.UUID, action string, choice int) (*SessionView, error) {
	jsonData, err := json.Marshal(map[string]interface{}{
		"action": action,
		"choice": choice,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/v1/sessions/%s/events", baseURL, sessionID),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeSessionView(resp, http.StatusOK, "apply event")
}

func postReflection(client *http.Client, baseURL string, sessionID uuid.UUID, sceneID, studentName string, answers []string) (*SessionView, error) {
	jsonData, err := json.Marshal(map[string]interface{}{
		"scene":        sceneID,
		"student_name": studentName,
		"answers":      answers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/v1/sessions/%s/reflection", baseURL, sessionID),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeSessionView(resp, http.StatusOK, "submit reflection")
}

func getScenario(client *http.Client, baseURL string, scenarioFile string) (*scenario.Scenario, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/scenarios/%s", baseURL, scenarioFile))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get scenario: %s", errorResp.Error)
	}

	var scenarioData scenario.Scenario
	if err := json.Unmarshal(body, &scenarioData); err != nil {
		return nil, fmt.Errorf("failed to parse scenario response: %w", err)
	}
	return &scenarioData, nil
}

func decodeSessionView(resp *http.Response, wantStatus int, verb string) (*SessionView, error) {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to %s: %s", verb, errorResp.Error)
	}

	var view SessionView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &view, nil
}
