package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for session persistence and scenario loading
type Storage interface {
	HealthChecker
	Closer

	// ListScenarios returns a map of scenario titles to filenames
	ListScenarios(ctx context.Context) (map[string]string, error)

	// GetScenario loads a scenario definition by filename
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)

	// SaveSession saves a session state with the given UUID
	SaveSession(ctx context.Context, id uuid.UUID, st *session.State) error

	// LoadSession retrieves a session state by UUID.
	// Returns nil if the session doesn't exist.
	LoadSession(ctx context.Context, id uuid.UUID) (*session.State, error)

	// DeleteSession removes a session state by UUID
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
