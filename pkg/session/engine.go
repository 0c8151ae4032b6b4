package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/civiclab/scenario-engine/pkg/condition"
	"github.com/civiclab/scenario-engine/pkg/scenario"
)

// Engine binds one session State to one Scenario and computes transitions.
// It processes one event to completion before the next; a failed event leaves
// the state untouched.
type Engine struct {
	scn    *scenario.Scenario
	st     *State
	logger *slog.Logger
}

// NewEngine creates an engine for the given scenario and session state.
func NewEngine(scn *scenario.Scenario, st *State, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{scn: scn, st: st, logger: logger}
}

// State returns the session state the engine operates on.
func (e *Engine) State() *State {
	return e.st
}

// CurrentScene returns the scene the session is positioned at. For a
// conditional scene this also freezes the branch decision, so that repeated
// renders before the confirming event see the same target.
func (e *Engine) CurrentScene() (scenario.Scene, error) {
	sc, ok := e.scn.Scene(e.st.Current)
	if !ok {
		return scenario.Scene{}, &ConfigError{Reason: fmt.Sprintf("current scene %q not found", e.st.Current)}
	}
	if sc.Type == scenario.SceneConditional {
		// Freeze on first entry; a missing default surfaces on Continue.
		if _, err := e.resolveConditional(e.st.Current, sc); err != nil {
			e.logger.Warn("conditional scene could not be resolved at render",
				"scene", e.st.Current, "error", err)
		}
	}
	return sc, nil
}

// Continue applies a "continue" event: it advances a linear scene to its next
// scene, or commits a conditional scene's frozen decision. Returns the new
// scene ID.
func (e *Engine) Continue() (string, error) {
	sc, ok := e.scn.Scene(e.st.Current)
	if !ok {
		return "", &ConfigError{Reason: fmt.Sprintf("current scene %q not found", e.st.Current)}
	}

	switch sc.Type {
	case scenario.SceneLinear:
		if sc.Next == "" {
			return "", &ConfigError{Reason: fmt.Sprintf("linear scene %q has no next scene", e.st.Current)}
		}
		if _, ok := e.scn.Scene(sc.Next); !ok {
			return "", &ConfigError{Reason: fmt.Sprintf("scene %q targets unknown scene %q", e.st.Current, sc.Next)}
		}
		e.push(sc.Next)
		return sc.Next, nil

	case scenario.SceneConditional:
		target, err := e.resolveConditional(e.st.Current, sc)
		if err != nil {
			return "", err
		}
		if _, ok := e.scn.Scene(target); !ok {
			return "", &ConfigError{Reason: fmt.Sprintf("scene %q resolves to unknown scene %q", e.st.Current, target)}
		}
		e.push(target)
		return target, nil

	case scenario.SceneChoice:
		return "", &InvalidInputError{Reason: fmt.Sprintf("scene %q expects a choice, not continue", e.st.Current)}

	case scenario.SceneTerminal:
		return "", &InvalidInputError{Reason: fmt.Sprintf("scene %q is terminal", e.st.Current)}

	default:
		return "", &ConfigError{Reason: fmt.Sprintf("scene %q has unknown type %q", e.st.Current, sc.Type)}
	}
}

// Choose applies a choice event by zero-based index. Effects are applied
// additively to the variable store, the choice is appended to the choice log,
// and the session moves to the choice's target. Returns the new scene ID.
func (e *Engine) Choose(index int) (string, error) {
	sc, ok := e.scn.Scene(e.st.Current)
	if !ok {
		return "", &ConfigError{Reason: fmt.Sprintf("current scene %q not found", e.st.Current)}
	}
	if sc.Type != scenario.SceneChoice {
		return "", &InvalidInputError{Reason: fmt.Sprintf("scene %q does not accept choices", e.st.Current)}
	}
	if index < 0 || index >= len(sc.Choices) {
		return "", &InvalidInputError{Reason: fmt.Sprintf("choice index %d out of range (scene %q has %d choices)", index, e.st.Current, len(sc.Choices))}
	}

	choice := sc.Choices[index]
	if _, ok := e.scn.Scene(choice.Next); !ok {
		return "", &ConfigError{Reason: fmt.Sprintf("choice %d of scene %q targets unknown scene %q", index, e.st.Current, choice.Next)}
	}

	for name, delta := range choice.Effects {
		e.st.Vars[name] += delta
	}
	e.st.ChoiceLog = append(e.st.ChoiceLog, ChoiceRecord{
		SceneID: e.st.Current,
		Choice:  choice.Text,
		Next:    choice.Next,
	})
	e.push(choice.Next)
	return choice.Next, nil
}

// Undo pops the last history entry into the current scene, and pops the last
// choice-log entry if the undone transition carried one. Variable effects are
// not rolled back. Returns the restored scene ID.
func (e *Engine) Undo() (string, error) {
	if len(e.st.History) == 0 {
		return "", &InvalidInputError{Reason: "history is empty"}
	}

	undone := e.st.Current
	prev := e.st.History[len(e.st.History)-1]
	e.st.History = e.st.History[:len(e.st.History)-1]

	// Only choice transitions log; pop when the undone hop matches the tail.
	if n := len(e.st.ChoiceLog); n > 0 {
		last := e.st.ChoiceLog[n-1]
		if last.SceneID == prev && last.Next == undone {
			e.st.ChoiceLog = e.st.ChoiceLog[:n-1]
		}
	}

	e.st.Current = prev
	e.st.UpdatedAt = time.Now()
	return prev, nil
}

// Restart resets the session to the scenario's start scene, clears history,
// choice log, frozen decisions and submitted reflections, and restores
// variables to their declared initial values.
func (e *Engine) Restart() string {
	e.st.Current = e.scn.StartScene
	e.st.History = nil
	e.st.ChoiceLog = nil
	e.st.Resolved = make(map[string]string)
	e.st.Submitted = make(map[string]bool)
	e.st.Vars = make(map[string]int, len(e.scn.Vars))
	for k, v := range e.scn.Vars {
		e.st.Vars[k] = v
	}
	e.st.UpdatedAt = time.Now()
	return e.st.Current
}

// Variables returns a copy of the current variable store.
func (e *Engine) Variables() map[string]int {
	snapshot := make(map[string]int, len(e.st.Vars))
	for k, v := range e.st.Vars {
		snapshot[k] = v
	}
	return snapshot
}

// HistoryDepth returns the number of entries on the history stack.
func (e *Engine) HistoryDepth() int {
	return len(e.st.History)
}

// ChoiceLog returns a copy of the choice log in order.
func (e *Engine) ChoiceLog() []ChoiceRecord {
	log := make([]ChoiceRecord, len(e.st.ChoiceLog))
	copy(log, e.st.ChoiceLog)
	return log
}

// resolveConditional returns the frozen decision for a conditional scene,
// evaluating branches in declaration order on first entry. Branch evaluation
// errors are reported and read as false. A successful decision is memoized;
// no matching branch and no default is a ConfigError.
func (e *Engine) resolveConditional(sceneID string, sc scenario.Scene) (string, error) {
	if target, ok := e.st.Resolved[sceneID]; ok {
		return target, nil
	}

	for i, b := range sc.Branches {
		matched, err := condition.Evaluate(b.If, e.st.Vars)
		if err != nil {
			e.logger.Warn("branch evaluation failed, treating as false",
				"scene", sceneID, "branch", i, "expression", b.If, "error", err)
			continue
		}
		if matched {
			e.st.Resolved[sceneID] = b.Next
			return b.Next, nil
		}
	}

	if sc.Default == "" {
		return "", &ConfigError{Reason: fmt.Sprintf("conditional scene %q has no matching branch and no default", sceneID)}
	}
	e.st.Resolved[sceneID] = sc.Default
	return sc.Default, nil
}

func (e *Engine) push(next string) {
	e.st.History = append(e.st.History, e.st.Current)
	e.st.Current = next
	e.st.UpdatedAt = time.Now()
}
