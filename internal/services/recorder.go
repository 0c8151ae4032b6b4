package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/civiclab/scenario-engine/pkg/session"
)

// ReflectionRecorder is the external persistence collaborator for completed
// reflections. Implementations own storage details and authentication; the
// completion gate only needs the error result.
type ReflectionRecorder interface {
	session.Recorder
}

// WebhookRecorder posts reflection rows to a configured endpoint, typically
// an Apps Script webhook bound to the grading spreadsheet. The row layout
// matches the sheet columns the grading tool reads.
type WebhookRecorder struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ReflectionRecorder = (*WebhookRecorder)(nil)

// reflectionRow is the wire format of one recorded reflection. Column order
// is part of the contract with the grading tool.
type reflectionRow struct {
	Timestamp        string   `json:"timestamp"`
	StudentName      string   `json:"student_name"`
	ScenarioTitle    string   `json:"scenario_title"`
	Outcome          string   `json:"outcome"`
	Answers          []string `json:"answers"`
	ChoicesMade      string   `json:"choices_made"`
	CompletionStatus string   `json:"completion_status"`
}

// NewWebhookRecorder creates a recorder that posts to the given URL.
func NewWebhookRecorder(url string, logger *slog.Logger) *WebhookRecorder {
	return &WebhookRecorder{
		url:    url,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *WebhookRecorder) RecordReflection(ctx context.Context, r *session.Reflection) error {
	row := reflectionRow{
		Timestamp:        r.Timestamp.Format("2006-01-02 15:04:05"),
		StudentName:      r.StudentName,
		ScenarioTitle:    r.ScenarioTitle,
		Outcome:          r.Outcome,
		Answers:          r.Answers,
		ChoicesMade:      r.ChoiceTrail,
		CompletionStatus: "Completed",
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal reflection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("Reflection webhook request failed", "error", err)
		return fmt.Errorf("reflection webhook request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		w.logger.Error("Reflection webhook returned error status", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("reflection webhook returned status %d", resp.StatusCode)
	}

	w.logger.Info("Reflection recorded", "student", r.StudentName, "scenario", r.ScenarioTitle, "outcome", r.Outcome)
	return nil
}

// LogRecorder writes reflections to the log only. Used in local development
// when no webhook is configured, so the success path still works end to end.
type LogRecorder struct {
	logger *slog.Logger
}

var _ ReflectionRecorder = (*LogRecorder)(nil)

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) RecordReflection(ctx context.Context, r *session.Reflection) error {
	l.logger.Info("Reflection recorded (log only)",
		"student", r.StudentName,
		"scenario", r.ScenarioTitle,
		"outcome", r.Outcome,
		"choices", r.ChoiceTrail)
	return nil
}

// MockRecorder is a test double that records calls and returns a
// configurable error.
type MockRecorder struct {
	Calls []*session.Reflection
	Err   error
}

var _ ReflectionRecorder = (*MockRecorder)(nil)

func (m *MockRecorder) RecordReflection(ctx context.Context, r *session.Reflection) error {
	if m.Err != nil {
		return m.Err
	}
	m.Calls = append(m.Calls, r)
	return nil
}
