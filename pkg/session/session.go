package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/pkg/scenario"
)

// ChoiceRecord is one entry of the choice log: the scene the choice was made
// on, the choice text as displayed, and the scene it led to.
type ChoiceRecord struct {
	SceneID string `json:"scene"`
	Choice  string `json:"choice"`
	Next    string `json:"next"`
}

// State is the complete mutable state of one learner's session. It is owned
// exclusively by one engine instance, never shared between learners, and
// serialized as-is by the session store.
//
// Invariant: len(ChoiceLog) <= len(History). Every transition pushes History;
// only choice transitions also append to ChoiceLog.
type State struct {
	ID           uuid.UUID      `json:"id"`
	ScenarioFile string         `json:"scenario"`
	Current      string         `json:"current_scene"`
	History      []string       `json:"history,omitempty"`
	ChoiceLog    []ChoiceRecord `json:"choice_log,omitempty"`
	Vars         map[string]int `json:"vars,omitempty"`

	// Resolved memoizes conditional-scene decisions, keyed by scene ID.
	// A decision is frozen at first entry and is deliberately not cleared on
	// commit or revisit (decide-once semantics); only Restart clears it.
	Resolved map[string]string `json:"resolved,omitempty"`

	// Submitted holds the terminal scene IDs a reflection has been recorded
	// for in this session.
	Submitted map[string]bool `json:"reflections_submitted,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates session state positioned at the scenario's start scene, with
// variables seeded from the scenario's initial values.
func New(s *scenario.Scenario, fileName string) *State {
	st := &State{
		ID:           uuid.New(),
		ScenarioFile: fileName,
		Current:      s.StartScene,
		Vars:         make(map[string]int, len(s.Vars)),
		Resolved:     make(map[string]string),
		Submitted:    make(map[string]bool),
		CreatedAt:    time.Now(),
	}
	for k, v := range s.Vars {
		st.Vars[k] = v
	}
	return st
}
