package scenario

import "fmt"

// Scenario is the immutable definition of one branching learning experience:
// a graph of scenes, the declared start scene, initial variable values, and
// the reflection questions asked at the end. The engine never mutates it.
type Scenario struct {
	Title               string           `json:"title"`                          // Display title of the scenario
	Description         string           `json:"description,omitempty"`          // Short description for the selection screen
	FileName            string           `json:"file_name,omitempty"`            // Name of the file the scenario was loaded from
	StartScene          string           `json:"start_scene"`                    // ID of the scene a new session begins at
	Vars                map[string]int   `json:"vars,omitempty"`                 // Initial variable values for a new session
	Scenes              map[string]Scene `json:"scenes"`                         // Map of scene IDs to scene definitions
	ReflectionQuestions []string         `json:"reflection_questions,omitempty"` // Questions shown on terminal scenes, in order
	ReflectionPrompts   []string         `json:"reflection_prompts,omitempty"`   // Optional helper text, parallel to questions
	CompletionTracking  bool             `json:"completion_tracking,omitempty"`  // Whether reflections are collected and recorded
}

// Scene returns the scene with the given ID.
func (s *Scenario) Scene(id string) (Scene, bool) {
	sc, ok := s.Scenes[id]
	return sc, ok
}

// Validate checks the scenario for internal consistency: the start scene
// exists, every transition target references an existing scene, and each
// scene carries the payload its type requires.
func (s *Scenario) Validate() error {
	if s.StartScene == "" {
		return fmt.Errorf("scenario has no start_scene")
	}
	if _, ok := s.Scenes[s.StartScene]; !ok {
		return fmt.Errorf("start_scene %q does not exist", s.StartScene)
	}

	for id, sc := range s.Scenes {
		if err := s.validateScene(id, sc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) validateScene(id string, sc Scene) error {
	switch sc.Type {
	case SceneLinear:
		if sc.Next == "" {
			return fmt.Errorf("linear scene %q has no next scene", id)
		}
		if _, ok := s.Scenes[sc.Next]; !ok {
			return fmt.Errorf("linear scene %q targets unknown scene %q", id, sc.Next)
		}

	case SceneChoice:
		if len(sc.Choices) == 0 {
			return fmt.Errorf("choice scene %q has no choices", id)
		}
		for i, c := range sc.Choices {
			if c.Text == "" {
				return fmt.Errorf("choice %d of scene %q has no text", i, id)
			}
			if _, ok := s.Scenes[c.Next]; !ok {
				return fmt.Errorf("choice %d of scene %q targets unknown scene %q", i, id, c.Next)
			}
		}

	case SceneConditional:
		if len(sc.Branches) == 0 && sc.Default == "" {
			return fmt.Errorf("conditional scene %q has no branches and no default", id)
		}
		for i, b := range sc.Branches {
			if b.If == "" {
				return fmt.Errorf("branch %d of scene %q has no expression", i, id)
			}
			if _, ok := s.Scenes[b.Next]; !ok {
				return fmt.Errorf("branch %d of scene %q targets unknown scene %q", i, id, b.Next)
			}
		}
		if sc.Default != "" {
			if _, ok := s.Scenes[sc.Default]; !ok {
				return fmt.Errorf("conditional scene %q defaults to unknown scene %q", id, sc.Default)
			}
		}

	case SceneTerminal:
		if sc.Outcome == "" {
			return fmt.Errorf("terminal scene %q has no outcome", id)
		}

	default:
		return fmt.Errorf("scene %q has unknown type %q", id, sc.Type)
	}
	return nil
}
