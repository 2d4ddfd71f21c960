package client

import (
	"context"
	"errors"
	"sync"

	"contentflow/internal/models"
)

// MutationState is the lifecycle of an optimistic mutation.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// ErrTimeout is reported when the server does not answer a mutation in time.
var ErrTimeout = errors.New("client: request timed out")

// Mutation tracks one optimistic create, update or delete.
type Mutation struct {
	kind string
	id   int64

	// apply replays the speculative change onto a fresh server list.
	apply    func(v *view)
	rollback func(v *view)
	commit   func(v *view, result *models.ContentItem)

	mu     sync.Mutex
	state  MutationState
	err    error
	result *models.ContentItem
	done   chan struct{}
}

func newMutation(kind string, id int64) *Mutation {
	return &Mutation{kind: kind, id: id, done: make(chan struct{})}
}

// Kind is "create", "update" or "delete".
func (m *Mutation) Kind() string { return m.kind }

// ID is the target record id; for creates it is the temporary id.
func (m *Mutation) ID() int64 { return m.id }

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the failure that rolled the mutation back, if any.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Result is the server's record after a committed create or update.
func (m *Mutation) Result() *models.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles and returns its error.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) setState(s MutationState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Mutation) settle(s MutationState, result *models.ContentItem, err error) {
	m.mu.Lock()
	m.state = s
	m.result = result
	m.err = err
	m.mu.Unlock()
	close(m.done)
}
