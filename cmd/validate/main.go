package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/civiclab/scenario-engine/pkg/condition"
	"github.com/civiclab/scenario-engine/pkg/scenario"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &ScenarioValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Scenario file is valid!")
}

type ScenarioValidator struct {
	errors []string
}

func (v *ScenarioValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidScenarioFilename(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.json, not my-scenario.json or MyScenario.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var s scenario.Scenario
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&s); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := s.Validate(); err != nil {
		v.addError(err.Error())
	}

	v.validateScenario(&s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *ScenarioValidator) validateScenario(s *scenario.Scenario) {
	for varName := range s.Vars {
		if !isValidVariableName(varName) {
			v.addError(fmt.Sprintf("variable name '%s' should be lowercase snake_case", varName))
		}
	}

	hasTerminal := false
	for sceneID, scene := range s.Scenes {
		if scene.Type == scenario.SceneTerminal {
			hasTerminal = true
		}
		v.validateConditions(&scene, sceneID, s.Vars)
	}
	if !hasTerminal {
		v.addError("scenario has no terminal scene, every playthrough would run forever")
	}

	v.validateReachability(s)

	if s.CompletionTracking && len(s.ReflectionQuestions) == 0 {
		v.addError("completion_tracking is enabled but no reflection_questions are defined")
	}
}

// validateConditions compiles each branch expression against the scenario's
// initial variables, catching typos and unknown variable names up front.
func (v *ScenarioValidator) validateConditions(scene *scenario.Scene, sceneID string, vars map[string]int) {
	for i, branch := range scene.Branches {
		if strings.TrimSpace(branch.If) == "" {
			v.addError(fmt.Sprintf("scene %s branch %d has an empty condition", sceneID, i))
			continue
		}
		if _, err := condition.Evaluate(branch.If, vars); err != nil {
			v.addError(fmt.Sprintf("scene %s branch %d condition %q does not evaluate: %v", sceneID, i, branch.If, err))
		}
	}
}

// validateReachability walks the graph from the start scene and flags
// scenes no playthrough can ever reach.
func (v *ScenarioValidator) validateReachability(s *scenario.Scenario) {
	reached := make(map[string]bool)
	stack := []string{s.StartScene}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true

		scene, ok := s.Scene(id)
		if !ok {
			continue
		}
		if scene.Next != "" {
			stack = append(stack, scene.Next)
		}
		for _, c := range scene.Choices {
			stack = append(stack, c.Next)
		}
		for _, b := range scene.Branches {
			stack = append(stack, b.Next)
		}
		if scene.Default != "" {
			stack = append(stack, scene.Default)
		}
	}

	for sceneID := range s.Scenes {
		if !reached[sceneID] {
			v.addError(fmt.Sprintf("scene %s is unreachable from start scene %s", sceneID, s.StartScene))
		}
	}
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validVarRegex      = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidVariableName(name string) bool {
	return validVarRegex.MatchString(name)
}

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
