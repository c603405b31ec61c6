package events

import (
	"context"

	"github.com/alfredjeanlab/tripwire/internal/model"
)

// Topic identifies one gate lifecycle stream on the bus. Its value doubles
// as the NATS subject and the SSE event name.
type Topic string

func (t Topic) String() string { return string(t) }

const (
	TopicGateCreated Topic = "tripwire.gate.created"

	// TopicGateArmed is emitted on the disarmed→armed transition only.
	// Repeated qualifying evaluations on an armed gate do not re-emit, and
	// setting the predicted value emits nothing.
	TopicGateArmed Topic = "tripwire.gate.armed"

	// TopicGateTriggered is emitted when a trigger consumes the condition flag.
	TopicGateTriggered Topic = "tripwire.gate.triggered"
)

// Event types

type GateCreated struct {
	Gate *model.Gate `json:"gate"`
}

type GateArmed struct {
	GateID   string `json:"gate_id"`
	Caller   string `json:"caller"`
	Observed uint64 `json:"observed"`
}

type GateTriggered struct {
	GateID string `json:"gate_id"`
	Caller string `json:"caller"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, event any) error
	Close() error
}
