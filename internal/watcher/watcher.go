// Package watcher reacts to gate lifecycle events on the event bus. Its one
// job is auto-triggering: when a gate arms, consume the condition flag
// immediately instead of waiting for a manual trigger call.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/tripwire/internal/events"
	"github.com/alfredjeanlab/tripwire/internal/gate"
)

// Triggerer consumes a gate's condition flag. Satisfied by the server's
// in-process API and by the HTTP client.
type Triggerer interface {
	TriggerGate(ctx context.Context, id, caller string) error
}

// Subscriber yields raw event payloads for a topic. Satisfied by
// events.NATSSubscriber.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
}

// Watcher auto-triggers gates as they arm.
type Watcher struct {
	trigger Triggerer
	caller  string
	logger  *slog.Logger
}

// New returns a Watcher that triggers gates as the given caller identity.
func New(trigger Triggerer, caller string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if caller == "" {
		caller = "watcher"
	}
	return &Watcher{trigger: trigger, caller: caller, logger: logger}
}

// Run subscribes to armed events and triggers each gate as it arms. It
// blocks until ctx is cancelled or the subscription channel closes.
//
// A gate that was already triggered by someone else between the armed event
// and our trigger call comes back as condition-not-met; that is a lost race,
// not a failure.
func (w *Watcher) Run(ctx context.Context, sub Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicGateArmed.String())
	if err != nil {
		return fmt.Errorf("watcher: subscribe: %w", err)
	}
	defer cancel()

	w.logger.Info("watcher: auto-trigger started", "caller", w.caller)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				w.logger.Info("watcher: subscription channel closed")
				return nil
			}

			var evt events.GateArmed
			if err := json.Unmarshal(raw, &evt); err != nil {
				w.logger.Warn("watcher: bad event payload", "error", err)
				continue
			}
			if evt.GateID == "" {
				continue
			}

			w.handleArmed(ctx, evt)
		}
	}
}

func (w *Watcher) handleArmed(ctx context.Context, evt events.GateArmed) {
	err := w.trigger.TriggerGate(ctx, evt.GateID, w.caller)
	switch {
	case err == nil:
		w.logger.Info("watcher: gate triggered",
			"gate_id", evt.GateID, "observed", evt.Observed, "armed_by", evt.Caller)
	case errors.Is(err, gate.ErrConditionNotMet):
		w.logger.Info("watcher: gate already consumed", "gate_id", evt.GateID)
	default:
		w.logger.Warn("watcher: trigger failed", "gate_id", evt.GateID, "error", err)
	}
}
