package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/orvane/agentcore/types"
)

// Memory stores an ordered conversation history for one session.
type Memory interface {
	// Add appends a message to the history.
	Add(ctx context.Context, msg types.Message) error
	// Get returns the full history, oldest first.
	Get(ctx context.Context) ([]types.Message, error)
	// Delete removes the message at the given index.
	Delete(ctx context.Context, index int) error
	// Clear removes all messages.
	Clear(ctx context.Context) error
	// Size returns the number of stored messages.
	Size() int
}

// InMemoryMemory is a plain slice-backed Memory with no compression.
type InMemoryMemory struct {
	mu       sync.RWMutex
	messages []types.Message
	maxSize  int
}

// NewInMemoryMemory creates an in-memory history. maxSize <= 0 means
// unbounded; otherwise the oldest messages are evicted once the limit is
// exceeded.
func NewInMemoryMemory(maxSize int) *InMemoryMemory {
	return &InMemoryMemory{maxSize: maxSize}
}

func (m *InMemoryMemory) Add(_ context.Context, msg types.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	if m.maxSize > 0 && len(m.messages) > m.maxSize {
		overflow := len(m.messages) - m.maxSize
		m.messages = append([]types.Message(nil), m.messages[overflow:]...)
	}
	return nil
}

func (m *InMemoryMemory) Get(_ context.Context) ([]types.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

func (m *InMemoryMemory) Delete(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.messages) {
		return fmt.Errorf("memory: index %d out of range [0,%d)", index, len(m.messages))
	}
	m.messages = append(m.messages[:index], m.messages[index+1:]...)
	return nil
}

func (m *InMemoryMemory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	return nil
}

func (m *InMemoryMemory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}
