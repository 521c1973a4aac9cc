package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/orvane/agentcore/memory"
	"github.com/orvane/agentcore/types"
)

// ErrSessionNotFound is returned by Load for unknown session IDs.
var ErrSessionNotFound = errors.New("persistence: session not found")

// SessionState is the serializable snapshot of one session's memory.
type SessionState struct {
	ID        string                     `json:"id"`
	Working   []types.Message            `json:"working"`
	Original  []types.Message            `json:"original"`
	Offload   map[string][]types.Message `json:"offload,omitempty"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// SessionStore persists session snapshots.
type SessionStore interface {
	// Save writes the snapshot, replacing any previous state for its ID.
	Save(ctx context.Context, state SessionState) error
	// Load returns the snapshot for id, or ErrSessionNotFound.
	Load(ctx context.Context, id string) (SessionState, error)
	// Delete removes the snapshot for id. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, id string) error
	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
	// Ping checks backend health.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// CaptureSession snapshots an AutoContextMemory under the given ID.
func CaptureSession(id string, mem *memory.AutoContextMemory) SessionState {
	working, original, offload := mem.Snapshot()
	return SessionState{
		ID:        id,
		Working:   working,
		Original:  original,
		Offload:   offload,
		UpdatedAt: time.Now().UTC(),
	}
}

// RestoreSession loads a snapshot back into an AutoContextMemory.
func RestoreSession(state SessionState, mem *memory.AutoContextMemory) {
	mem.Restore(state.Working, state.Original, state.Offload)
}
