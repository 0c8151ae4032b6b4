package scenario

import (
	"strings"
	"testing"
)

func validScenario() *Scenario {
	return &Scenario{
		Title:      "Test Scenario",
		StartScene: "intro",
		Vars:       map[string]int{"trust": 0},
		Scenes: map[string]Scene{
			"intro": {
				Title:     "Intro",
				Narration: "It begins.",
				Type:      SceneLinear,
				Next:      "fork",
			},
			"fork": {
				Title:     "Fork",
				Narration: "Pick one.",
				Type:      SceneChoice,
				Choices: []Choice{
					{Text: "Left", Next: "gate", Effects: map[string]int{"trust": 1}},
					{Text: "Right", Next: "ending"},
				},
			},
			"gate": {
				Title:     "Gate",
				Narration: "The gate decides.",
				Type:      SceneConditional,
				Branches:  []Branch{{If: "trust >= 1", Next: "ending"}},
				Default:   "ending",
			},
			"ending": {
				Title:     "Ending",
				Narration: "It ends.",
				Type:      SceneTerminal,
				Outcome:   "success",
			},
		},
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{
			name:   "valid scenario",
			mutate: func(s *Scenario) {},
		},
		{
			name:    "missing start scene",
			mutate:  func(s *Scenario) { s.StartScene = "" },
			wantErr: "no start_scene",
		},
		{
			name:    "start scene does not exist",
			mutate:  func(s *Scenario) { s.StartScene = "nowhere" },
			wantErr: "does not exist",
		},
		{
			name: "linear scene without next",
			mutate: func(s *Scenario) {
				sc := s.Scenes["intro"]
				sc.Next = ""
				s.Scenes["intro"] = sc
			},
			wantErr: "has no next scene",
		},
		{
			name: "linear scene with dangling next",
			mutate: func(s *Scenario) {
				sc := s.Scenes["intro"]
				sc.Next = "missing"
				s.Scenes["intro"] = sc
			},
			wantErr: "unknown scene",
		},
		{
			name: "choice scene without choices",
			mutate: func(s *Scenario) {
				sc := s.Scenes["fork"]
				sc.Choices = nil
				s.Scenes["fork"] = sc
			},
			wantErr: "has no choices",
		},
		{
			name: "choice without text",
			mutate: func(s *Scenario) {
				sc := s.Scenes["fork"]
				sc.Choices[0].Text = ""
				s.Scenes["fork"] = sc
			},
			wantErr: "has no text",
		},
		{
			name: "choice with dangling target",
			mutate: func(s *Scenario) {
				sc := s.Scenes["fork"]
				sc.Choices[1].Next = "missing"
				s.Scenes["fork"] = sc
			},
			wantErr: "unknown scene",
		},
		{
			name: "conditional with no branches and no default",
			mutate: func(s *Scenario) {
				sc := s.Scenes["gate"]
				sc.Branches = nil
				sc.Default = ""
				s.Scenes["gate"] = sc
			},
			wantErr: "no branches and no default",
		},
		{
			name: "conditional branch without expression",
			mutate: func(s *Scenario) {
				sc := s.Scenes["gate"]
				sc.Branches[0].If = ""
				s.Scenes["gate"] = sc
			},
			wantErr: "has no expression",
		},
		{
			name: "conditional branch with dangling target",
			mutate: func(s *Scenario) {
				sc := s.Scenes["gate"]
				sc.Branches[0].Next = "missing"
				s.Scenes["gate"] = sc
			},
			wantErr: "unknown scene",
		},
		{
			name: "conditional default with dangling target",
			mutate: func(s *Scenario) {
				sc := s.Scenes["gate"]
				sc.Default = "missing"
				s.Scenes["gate"] = sc
			},
			wantErr: "unknown scene",
		},
		{
			name: "terminal without outcome",
			mutate: func(s *Scenario) {
				sc := s.Scenes["ending"]
				sc.Outcome = ""
				s.Scenes["ending"] = sc
			},
			wantErr: "has no outcome",
		},
		{
			name: "unknown scene type",
			mutate: func(s *Scenario) {
				sc := s.Scenes["intro"]
				sc.Type = "cutscene"
				s.Scenes["intro"] = sc
			},
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSceneLookup(t *testing.T) {
	s := validScenario()

	if _, ok := s.Scene("intro"); !ok {
		t.Error("expected scene intro to exist")
	}
	if _, ok := s.Scene("missing"); ok {
		t.Error("expected scene missing to be absent")
	}
}
