package api

import (
	"context"
	"sync"
)

// MockGateway is a CompletionGateway for tests in other packages
type MockGateway struct {
	mu sync.Mutex

	// Reply and Err are returned when Func is nil
	Reply *string
	Err   error

	// Func, when set, computes the result and may block on ctx
	Func func(ctx context.Context, snap Snapshot) (*string, error)

	Calls     int
	Snapshots []Snapshot
}

var _ CompletionGateway = (*MockGateway)(nil)

// NewMockGateway returns a gateway that always answers with reply
func NewMockGateway(reply string) *MockGateway {
	return &MockGateway{Reply: &reply}
}

// RequestCompletion records the snapshot and returns the configured result
func (m *MockGateway) RequestCompletion(ctx context.Context, snap Snapshot) (*string, error) {
	m.mu.Lock()
	m.Calls++
	m.Snapshots = append(m.Snapshots, snap)
	fn := m.Func
	reply, err := m.Reply, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, snap)
	}
	return reply, err
}

// LastSnapshot returns the most recent snapshot, if any
func (m *MockGateway) LastSnapshot() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return m.Snapshots[len(m.Snapshots)-1], true
}

// CallCount returns how many requests were made
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
