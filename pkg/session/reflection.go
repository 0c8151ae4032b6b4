package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civiclab/scenario-engine/pkg/scenario"
)

// Reflection is the payload handed to the external recorder when a learner
// completes a scenario. Field order mirrors the recorded row: timestamp,
// student name, scenario title, outcome, answers, choice trail.
type Reflection struct {
	Timestamp     time.Time `json:"timestamp"`
	StudentName   string    `json:"student_name"`
	ScenarioTitle string    `json:"scenario_title"`
	Outcome       string    `json:"outcome"`
	Answers       []string  `json:"answers"`
	ChoiceTrail   string    `json:"choice_trail"` // "choice text → choice text → …"
}

// Recorder persists a completed reflection somewhere external. It owns
// storage details, authentication and timeouts; the gate only needs the
// error result.
type Recorder interface {
	RecordReflection(ctx context.Context, r *Reflection) error
}

// SubmitReflection records a reflection for the given terminal scene,
// exactly once per (session, terminal scene). Validation failures return
// InvalidInputError without contacting the recorder. If the recorder fails,
// the submitted flag stays unset so the learner may retry.
func (e *Engine) SubmitReflection(ctx context.Context, rec Recorder, sceneID, studentName string, answers []string) error {
	sc, ok := e.scn.Scene(e.st.Current)
	if !ok {
		return &ConfigError{Reason: fmt.Sprintf("current scene %q not found", e.st.Current)}
	}
	if sc.Type != scenario.SceneTerminal || e.st.Current != sceneID {
		return &InvalidInputError{Reason: fmt.Sprintf("session is not at terminal scene %q", sceneID)}
	}
	if e.st.Submitted[sceneID] {
		return &InvalidInputError{Reason: fmt.Sprintf("reflection already submitted for scene %q", sceneID)}
	}
	if strings.TrimSpace(studentName) == "" {
		return &InvalidInputError{Reason: "student name is required"}
	}
	if len(answers) != len(e.scn.ReflectionQuestions) {
		return &InvalidInputError{Reason: fmt.Sprintf("expected %d answers, got %d", len(e.scn.ReflectionQuestions), len(answers))}
	}
	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			return &InvalidInputError{Reason: fmt.Sprintf("answer %d is empty", i+1)}
		}
	}

	trail := make([]string, 0, len(e.st.ChoiceLog))
	for _, c := range e.st.ChoiceLog {
		trail = append(trail, c.Choice)
	}

	r := &Reflection{
		Timestamp:     time.Now(),
		StudentName:   strings.TrimSpace(studentName),
		ScenarioTitle: e.scn.Title,
		Outcome:       sc.Outcome,
		Answers:       answers,
		ChoiceTrail:   strings.Join(trail, " → "),
	}

	if err := rec.RecordReflection(ctx, r); err != nil {
		return &PersistenceError{Err: err}
	}

	e.st.Submitted[sceneID] = true
	e.st.UpdatedAt = time.Now()
	return nil
}
