package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

// MockStorage is an in-memory Storage implementation for tests.
type MockStorage struct {
	Sessions  map[uuid.UUID]*session.State
	Scenarios map[string]*scenario.Scenario

	// Error overrides for failure-path tests
	SaveErr error
	LoadErr error
	PingErr error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Sessions:  make(map[uuid.UUID]*session.State),
		Scenarios: make(map[string]*scenario.Scenario),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.Scenarios))
	for filename, s := range m.Scenarios {
		out[s.Title] = filename
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	s, ok := m.Scenarios[filename]
	if !ok {
		return nil, fmt.Errorf("scenario not found: %s", filename)
	}
	return s, nil
}

func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, st *session.State) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Sessions[id] = st
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.State, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Sessions[id], nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	delete(m.Sessions, id)
	return nil
}
