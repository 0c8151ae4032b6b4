package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/civiclab/scenario-engine/pkg/scenario"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testScenario builds a small graph covering all four scene types:
//
//	start (linear) -> ask (choice) -> gate (conditional) -> win_path (choice) -> end_win
//	                                                     \-> lose_path (linear) -> end_lose
func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Title:      "Engine Fixture",
		StartScene: "start",
		Vars:       map[string]int{"power": 0},
		ReflectionQuestions: []string{
			"What happened?",
			"What would you change?",
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
				Branches:  []scenario.Branch{{If: "power >= 2", Next: "win_path"}},
				Default:   "lose_path",
			},
			"win_path": {
				Narration: "Almost there.",
				Type:      scenario.SceneChoice,
				Choices: []scenario.Choice{
					{Text: "Finish", Next: "end_win"},
				},
			},
			"lose_path": {
				Narration: "It slips away.",
				Type:      scenario.SceneLinear,
				Next:      "end_lose",
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

func newTestEngine(t *testing.T) (*Engine, *State) {
	t.Helper()
	scn := testScenario()
	if err := scn.Validate(); err != nil {
		t.Fatalf("fixture scenario invalid: %v", err)
	}
	st := New(scn, "fixture.json")
	return NewEngine(scn, st, testLogger()), st
}

func TestNewSeedsVariables(t *testing.T) {
	scn := testScenario()
	st := New(scn, "fixture.json")

	if st.Current != "start" {
		t.Errorf("new session at %q, want start", st.Current)
	}
	if st.Vars["power"] != 0 {
		t.Errorf("power = %d, want 0", st.Vars["power"])
	}

	// The session owns its copy of the variable store.
	st.Vars["power"] = 99
	if scn.Vars["power"] != 0 {
		t.Error("mutating session vars leaked into the scenario definition")
	}
}

func TestWalkthroughToVictory(t *testing.T) {
	e, st := newTestEngine(t)

	next, err := e.Continue()
	if err != nil || next != "ask" {
		t.Fatalf("Continue() = %q, %v, want ask", next, err)
	}

	next, err = e.Choose(0)
	if err != nil || next != "gate" {
		t.Fatalf("Choose(0) = %q, %v, want gate", next, err)
	}
	if got := e.Variables()["power"]; got != 2 {
		t.Errorf("power = %d after Push, want 2", got)
	}

	// Render the conditional, then commit it.
	sc, err := e.CurrentScene()
	if err != nil {
		t.Fatalf("CurrentScene() error: %v", err)
	}
	if sc.Type != scenario.SceneConditional {
		t.Fatalf("current scene type = %q, want conditional", sc.Type)
	}
	next, err = e.Continue()
	if err != nil || next != "win_path" {
		t.Fatalf("Continue() on gate = %q, %v, want win_path", next, err)
	}

	next, err = e.Choose(0)
	if err != nil || next != "end_win" {
		t.Fatalf("Choose(0) on win_path = %q, %v, want end_win", next, err)
	}

	wantHistory := []string{"start", "ask", "gate", "win_path"}
	if len(st.History) != len(wantHistory) {
		t.Fatalf("history = %v, want %v", st.History, wantHistory)
	}
	for i, id := range wantHistory {
		if st.History[i] != id {
			t.Errorf("history[%d] = %q, want %q", i, st.History[i], id)
		}
	}

	log := e.ChoiceLog()
	if len(log) != 2 {
		t.Fatalf("choice log has %d entries, want 2: %v", len(log), log)
	}
	if log[0].SceneID != "ask" || log[0].Choice != "Push" || log[0].Next != "gate" {
		t.Errorf("unexpected first choice record: %+v", log[0])
	}
	if log[1].SceneID != "win_path" || log[1].Next != "end_win" {
		t.Errorf("unexpected second choice record: %+v", log[1])
	}

	if len(st.ChoiceLog) > len(st.History) {
		t.Error("choice log longer than history")
	}
}

func TestContinueRejectsChoiceAndTerminalScenes(t *testing.T) {
	e, st := newTestEngine(t)

	st.Current = "ask"
	if _, err := e.Continue(); !isInvalidInput(err) {
		t.Errorf("Continue() on choice scene: got %v, want InvalidInputError", err)
	}

	st.Current = "end_win"
	if _, err := e.Continue(); !isInvalidInput(err) {
		t.Errorf("Continue() on terminal scene: got %v, want InvalidInputError", err)
	}
}

func TestChooseValidatesBeforeMutating(t *testing.T) {
	e, st := newTestEngine(t)
	st.Current = "ask"

	if _, err := e.Choose(5); !isInvalidInput(err) {
		t.Fatalf("Choose(5): got %v, want InvalidInputError", err)
	}
	if _, err := e.Choose(-1); !isInvalidInput(err) {
		t.Fatalf("Choose(-1): got %v, want InvalidInputError", err)
	}

	// A rejected choice must leave the session untouched.
	if st.Current != "ask" || len(st.History) != 0 || len(st.ChoiceLog) != 0 || st.Vars["power"] != 0 {
		t.Errorf("failed choice mutated state: %+v", st)
	}

	st.Current = "start"
	if _, err := e.Choose(0); !isInvalidInput(err) {
		t.Errorf("Choose on linear scene: got %v, want InvalidInputError", err)
	}
}

func TestEffectsApplyAdditively(t *testing.T) {
	e, st := newTestEngine(t)
	st.Current = "ask"

	if _, err := e.Choose(0); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	// Undo does not roll back variables, so taking the choice again
	// stacks its effect.
	if _, err := e.Choose(0); err != nil {
		t.Fatalf("Choose again: %v", err)
	}
	if got := st.Vars["power"]; got != 4 {
		t.Errorf("power = %d after choose-undo-choose, want 4", got)
	}
}

func TestConditionalFreezesOnFirstRender(t *testing.T) {
	e, st := newTestEngine(t)

	// Reach the gate with power 0 so the default branch wins.
	st.Current = "ask"
	if _, err := e.Choose(1); err != nil {
		t.Fatalf("Choose(1): %v", err)
	}

	if _, err := e.CurrentScene(); err != nil {
		t.Fatalf("CurrentScene: %v", err)
	}
	if got := st.Resolved["gate"]; got != "lose_path" {
		t.Fatalf("frozen decision = %q, want lose_path", got)
	}

	// The decision stays frozen even if the variables change afterwards.
	st.Vars["power"] = 10
	next, err := e.Continue()
	if err != nil || next != "lose_path" {
		t.Errorf("Continue() = %q, %v, want frozen lose_path", next, err)
	}
}

func TestConditionalFrozenDecisionSurvivesRevisit(t *testing.T) {
	e, st := newTestEngine(t)
	st.Current = "ask"

	if _, err := e.Choose(0); err != nil { // power 2, freezes win_path
		t.Fatalf("Choose: %v", err)
	}
	if next, err := e.Continue(); err != nil || next != "win_path" {
		t.Fatalf("Continue = %q, %v", next, err)
	}

	// Undo back onto the gate and lower the variable. The old decision holds.
	if _, err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	st.Vars["power"] = 0
	if next, err := e.Continue(); err != nil || next != "win_path" {
		t.Errorf("Continue after revisit = %q, %v, want frozen win_path", next, err)
	}
}

func TestConditionalEvaluationErrorReadsFalse(t *testing.T) {
	scn := testScenario()
	gate := scn.Scenes["gate"]
	gate.Branches = []scenario.Branch{
		{If: "typo_variable > 1", Next: "win_path"},
		{If: "power >= 0", Next: "lose_path"},
	}
	scn.Scenes["gate"] = gate

	st := New(scn, "fixture.json")
	st.Current = "gate"
	e := NewEngine(scn, st, testLogger())

	next, err := e.Continue()
	if err != nil || next != "lose_path" {
		t.Errorf("Continue() = %q, %v, want lose_path via second branch", next, err)
	}
}

func TestConditionalNoMatchNoDefault(t *testing.T) {
	scn := testScenario()
	gate := scn.Scenes["gate"]
	gate.Branches = []scenario.Branch{{If: "power > 100", Next: "win_path"}}
	gate.Default = ""
	scn.Scenes["gate"] = gate

	st := New(scn, "fixture.json")
	st.Current = "gate"
	e := NewEngine(scn, st, testLogger())

	_, err := e.Continue()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Continue() error = %v, want ConfigError", err)
	}
	if st.Current != "gate" {
		t.Errorf("failed continue moved session to %q", st.Current)
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.Undo(); !isInvalidInput(err) {
		t.Errorf("Undo() on fresh session: got %v, want InvalidInputError", err)
	}
}

func TestUndoPopsChoiceLogOnlyForChoiceHops(t *testing.T) {
	e, st := newTestEngine(t)

	// start -> ask -> gate -> win_path -> end_win
	mustContinue(t, e)
	mustChoose(t, e, 0)
	mustContinue(t, e)
	mustChoose(t, e, 0)

	if len(st.ChoiceLog) != 2 {
		t.Fatalf("choice log has %d entries, want 2", len(st.ChoiceLog))
	}

	// Undo the choice hop win_path -> end_win: log shrinks.
	if prev, err := e.Undo(); err != nil || prev != "win_path" {
		t.Fatalf("Undo #1 = %q, %v", prev, err)
	}
	if len(st.ChoiceLog) != 1 {
		t.Errorf("choice log has %d entries after undo #1, want 1", len(st.ChoiceLog))
	}

	// Undo the conditional hop gate -> win_path: log unchanged.
	if prev, err := e.Undo(); err != nil || prev != "gate" {
		t.Fatalf("Undo #2 = %q, %v", prev, err)
	}
	if len(st.ChoiceLog) != 1 {
		t.Errorf("choice log has %d entries after undo #2, want 1", len(st.ChoiceLog))
	}

	// Undo the choice hop ask -> gate: log shrinks again.
	if prev, err := e.Undo(); err != nil || prev != "ask" {
		t.Fatalf("Undo #3 = %q, %v", prev, err)
	}
	if len(st.ChoiceLog) != 0 {
		t.Errorf("choice log has %d entries after undo #3, want 0", len(st.ChoiceLog))
	}

	if e.HistoryDepth() != 1 {
		t.Errorf("history depth = %d, want 1", e.HistoryDepth())
	}
}

func TestRestart(t *testing.T) {
	e, st := newTestEngine(t)

	mustContinue(t, e)
	mustChoose(t, e, 0)
	mustContinue(t, e)

	if got := e.Restart(); got != "start" {
		t.Fatalf("Restart() = %q, want start", got)
	}
	if st.Current != "start" {
		t.Errorf("current = %q, want start", st.Current)
	}
	if len(st.History) != 0 || len(st.ChoiceLog) != 0 {
		t.Errorf("history/choice log not cleared: %v / %v", st.History, st.ChoiceLog)
	}
	if len(st.Resolved) != 0 {
		t.Errorf("frozen decisions not cleared: %v", st.Resolved)
	}
	if st.Vars["power"] != 0 {
		t.Errorf("power = %d after restart, want 0", st.Vars["power"])
	}
}

func TestCurrentSceneUnknown(t *testing.T) {
	e, st := newTestEngine(t)
	st.Current = "missing"

	_, err := e.CurrentScene()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("CurrentScene() error = %v, want ConfigError", err)
	}
}

func mustContinue(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := e.Continue(); err != nil {
		t.Fatalf("Continue: %v", err)
	}
}

func mustChoose(t *testing.T, e *Engine, i int) {
	t.Helper()
	if _, err := e.Choose(i); err != nil {
		t.Fatalf("Choose(%d): %v", i, err)
	}
}

func isInvalidInput(err error) bool {
	var invalid *InvalidInputError
	return errors.As(err, &invalid)
}
