package session

import "fmt"

// ConfigError means the scenario data is internally inconsistent (missing
// target scene, missing default branch, dangling reference). It is not
// user-recoverable; the session is left unmodified.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "scenario configuration error: " + e.Reason
}

// InvalidInputError means the caller supplied a bad event: an out-of-range
// choice index, an incomplete reflection, an event the current scene does not
// accept, or a duplicate reflection submission. Recoverable; the session is
// left unmodified and the caller may re-prompt.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// PersistenceError means the external reflection recorder failed. The
// submitted flag stays unset so the learner may retry.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reflection persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
