// Package server exposes the condition-gate operations over HTTP/JSON and SSE.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/events"
	"github.com/alfredjeanlab/tripwire/internal/gate"
	"github.com/alfredjeanlab/tripwire/internal/idgen"
	"github.com/alfredjeanlab/tripwire/internal/model"
	"github.com/alfredjeanlab/tripwire/internal/oracle"
	"github.com/alfredjeanlab/tripwire/internal/store"
)

// GateServer hosts the gate operations on top of a store, an oracle source,
// and an event publisher. State-changing operations rehydrate the gate.Gate
// state machine from a row locked for the whole transaction, giving each
// operation the atomicity of a serialized host: either the whole state
// change applies or none of it does.
type GateServer struct {
	store     store.Store
	publisher events.Publisher
	oracle    oracle.Source
	sseHub    *sseHub
}

// NewGateServer returns a GateServer backed by the given collaborators.
func NewGateServer(s store.Store, p events.Publisher, src oracle.Source) *GateServer {
	return &GateServer{
		store:     s,
		publisher: p,
		oracle:    src,
		sseHub:    newSSEHub(),
	}
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *GateServer) recordAndPublish(ctx context.Context, topic events.Topic, gateID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "gate_id", gateID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:   topic.String(),
		GateID:  gateID,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "gate_id", gateID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "gate_id", gateID, "error", err)
	}
	s.broadcastEvent(topic.String(), event)
}

// inputError indicates invalid user input. The transport layer maps it to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// createGateInput holds the POST /v1/gates request body. TriggerThreshold is
// a pointer so a missing field can be told apart from an explicit zero;
// the threshold has no default.
type createGateInput struct {
	Name             string  `json:"name,omitempty"`
	Owner            string  `json:"owner"`
	Feed             string  `json:"feed"`
	TriggerThreshold *uint64 `json:"trigger_threshold"`
	CreatedBy        string  `json:"created_by,omitempty"`
}

// createGate validates input, assigns an ID, persists the gate, and emits
// the created event.
func (s *GateServer) createGate(ctx context.Context, in createGateInput) (*model.Gate, error) {
	if in.Owner == "" {
		return nil, inputError("owner is required")
	}
	if in.Feed == "" {
		return nil, inputError("feed is required")
	}
	if in.TriggerThreshold == nil {
		return nil, inputError("trigger_threshold is required")
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate gate id: %w", err)
	}

	now := time.Now().UTC()
	g := &model.Gate{
		ID:               id,
		Name:             in.Name,
		Owner:            in.Owner,
		Feed:             in.Feed,
		TriggerThreshold: *in.TriggerThreshold,
		CreatedAt:        now,
		CreatedBy:        in.CreatedBy,
		UpdatedAt:        now,
	}
	if err := s.store.CreateGate(ctx, g); err != nil {
		return nil, fmt.Errorf("create gate: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicGateCreated, g.ID, in.CreatedBy, events.GateCreated{Gate: g})
	return g, nil
}

// rehydrate builds the in-memory state machine from a stored row. Every
// state-changing operation routes its decision through the core so HTTP
// requests and in-process callers share one rule set.
func (s *GateServer) rehydrate(g *model.Gate, opts ...gate.Option) (*gate.Gate, error) {
	opts = append([]gate.Option{
		gate.WithPredictedValue(g.PredictedValue),
		gate.WithArmed(g.Armed),
	}, opts...)
	return gate.New(g.Owner, oracle.Bind(s.oracle, g.Feed), g.TriggerThreshold, opts...)
}

// setPredictedValue overwrites the predicted value after the owner check.
// It emits no notification. The row stays locked from the ownership check
// through the write, so the two are inseparable.
func (s *GateServer) setPredictedValue(ctx context.Context, id, caller string, value uint64) (*model.Gate, error) {
	var updated *model.Gate
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		g, err := tx.GetGateForUpdate(ctx, id)
		if err != nil {
			return err
		}
		core, err := s.rehydrate(g)
		if err != nil {
			return err
		}
		if err := core.SetPredictedValue(caller, value); err != nil {
			return err
		}
		if err := tx.SetPredictedValue(ctx, id, value); err != nil {
			return err
		}
		g.PredictedValue = value
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// evaluation is the service-level result of evaluateGate.
type evaluation struct {
	GateID       string `json:"gate_id"`
	Caller       string `json:"caller,omitempty"`
	Observed     uint64 `json:"observed"`
	Armed        bool   `json:"armed"`
	Transitioned bool   `json:"transitioned"`
}

// evaluateGate reads exactly one value from the gate's oracle feed and arms
// the gate iff the observation meets both the predicted value and the
// trigger threshold. The gate row is locked for the whole evaluation, so the
// comparison runs against the predicted value as it stands at arm time; a
// prediction change committed meanwhile is seen, not skipped. The armed
// event is emitted only on the disarmed→armed transition; a qualifying
// evaluation on an already-armed gate re-emits nothing. A non-qualifying
// observation leaves the flag untouched. Oracle failures surface as
// gate.ErrOracleUnavailable with no state mutation.
func (s *GateServer) evaluateGate(ctx context.Context, id, caller string) (*evaluation, error) {
	var (
		result *evaluation
		armed  *events.GateArmed
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		g, err := tx.GetGateForUpdate(ctx, id)
		if err != nil {
			return err
		}
		core, err := s.rehydrate(g, gate.WithArmedHook(func(by string, observed uint64) {
			armed = &events.GateArmed{GateID: id, Caller: by, Observed: observed}
		}))
		if err != nil {
			return err
		}

		ev, err := core.Evaluate(ctx, caller)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.RecordObservation(ctx, id, ev.Observed, now); err != nil {
			return err
		}
		if ev.Transitioned {
			if _, err := tx.ArmGate(ctx, id, now); err != nil {
				return err
			}
		}
		result = &evaluation{
			GateID:       id,
			Caller:       caller,
			Observed:     ev.Observed,
			Armed:        ev.Armed,
			Transitioned: ev.Transitioned,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if armed != nil {
		s.recordAndPublish(ctx, events.TopicGateArmed, id, armed.Caller, *armed)
	}
	return result, nil
}

// TriggerGate consumes the condition flag. Any caller may trigger; there is
// no ownership check. The flag is cleared and the reset persisted before the
// triggered event fires, so a second trigger in direct succession fails with
// gate.ErrConditionNotMet. Exported so in-process consumers such as the
// auto-trigger watcher can share it with the HTTP handlers.
func (s *GateServer) TriggerGate(ctx context.Context, id, caller string) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		g, err := tx.GetGateForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// The core clears its flag first, then the action persists the
		// reset under the same row lock.
		core, err := s.rehydrate(g, gate.WithAction(gate.ActionFunc(func(ctx context.Context, _ string) error {
			if _, err := tx.DisarmGate(ctx, id); err != nil {
				return fmt.Errorf("disarm gate: %w", err)
			}
			return nil
		})))
		if err != nil {
			return err
		}
		return core.Trigger(ctx, caller)
	})
	if err != nil {
		return err
	}

	s.recordAndPublish(ctx, events.TopicGateTriggered, id, caller, events.GateTriggered{
		GateID: id,
		Caller: caller,
	})
	return nil
}

// isNotFound reports whether err means the gate row does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
