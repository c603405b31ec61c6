package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/model"
)

// Store defines the persistence interface for condition gates.
//
// ArmGate and DisarmGate are conditional transitions: they only apply when
// the gate is in the opposite state, and report whether a transition
// actually happened. This keeps evaluate/trigger atomic at the row level
// even when several server requests race on the same gate.
type Store interface {
	// Gates
	CreateGate(ctx context.Context, gate *model.Gate) error
	GetGate(ctx context.Context, id string) (*model.Gate, error)
	// GetGateForUpdate reads the gate row and, inside a transaction, locks it
	// until commit. Evaluate and trigger read through it so their comparisons
	// run against the row as it stands at transition time, not a stale
	// pre-transaction snapshot.
	GetGateForUpdate(ctx context.Context, id string) (*model.Gate, error)
	ListGates(ctx context.Context, filter model.GateFilter) ([]*model.Gate, int, error) // returns gates, total count, error

	// State transitions
	SetPredictedValue(ctx context.Context, id string, value uint64) error
	RecordObservation(ctx context.Context, id string, observed uint64, at time.Time) error
	ArmGate(ctx context.Context, id string, at time.Time) (bool, error)
	DisarmGate(ctx context.Context, id string) (bool, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, gateID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
