// Package gate implements a single-owner conditional-action gate: it compares
// a value observed from an external oracle against an owner-set predicted
// value and a fixed trigger threshold, arms a condition flag exactly once per
// qualifying observation, and lets any caller consume the flag at most once
// via Trigger.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for the three rejection kinds. All rejections are pure
// no-ops on gate state; callers match with errors.Is.
var (
	// ErrUnauthorized is returned when a non-owner attempts a privileged write.
	ErrUnauthorized = errors.New("unauthorized: caller is not the gate owner")

	// ErrConditionNotMet is returned when Trigger is called while the gate is disarmed.
	ErrConditionNotMet = errors.New("condition not met")

	// ErrOracleUnavailable wraps oracle read failures surfaced by Evaluate.
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// Oracle is the read-only port to the external data source. Freshness and
// availability guarantees belong entirely to the implementation; the gate
// performs exactly one read per Evaluate and enforces no staleness bound.
type Oracle interface {
	LatestValue(ctx context.Context) (uint64, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context) (uint64, error)

func (f OracleFunc) LatestValue(ctx context.Context) (uint64, error) { return f(ctx) }

// Action is the opaque downstream effect performed by a successful Trigger.
// The condition flag is already cleared when the action runs, so a re-entrant
// Trigger from inside the action sees a disarmed gate and fails.
type Action interface {
	Fire(ctx context.Context, caller string) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, caller string) error

func (f ActionFunc) Fire(ctx context.Context, caller string) error { return f(ctx, caller) }

// Evaluation is the result of a single Evaluate call.
type Evaluation struct {
	Caller   string `json:"caller,omitempty"`
	Observed uint64 `json:"observed"`
	Armed    bool   `json:"armed"`
	// Transitioned is true only when this evaluation moved the gate from
	// disarmed to armed. A qualifying evaluation on an already-armed gate
	// reports Transitioned=false and must not re-notify.
	Transitioned bool `json:"transitioned"`
}

// ArmedFunc is notified on the disarmed→armed transition with the evaluating
// caller and the observed value at qualification time. It runs while the gate
// lock is held and must not call back into the gate.
type ArmedFunc func(caller string, observed uint64)

// Option configures optional Gate collaborators.
type Option func(*Gate)

// WithAction sets the downstream action fired by Trigger.
func WithAction(a Action) Option {
	return func(g *Gate) { g.action = a }
}

// WithArmedHook sets the notification hook fired on the disarmed→armed transition.
func WithArmedHook(fn ArmedFunc) Option {
	return func(g *Gate) { g.onArmed = fn }
}

// WithPredictedValue sets the initial predicted value (defaults to zero).
func WithPredictedValue(v uint64) Option {
	return func(g *Gate) { g.predicted = v }
}

// WithArmed seeds the condition flag when rehydrating a gate from persisted
// state. After construction the flag still changes only through Evaluate and
// Trigger.
func WithArmed(armed bool) Option {
	return func(g *Gate) { g.armed = armed }
}

// Gate is an owned condition gate instance. The owner and trigger threshold
// are fixed at construction; the predicted value changes only through
// SetPredictedValue and the condition flag only through Evaluate and Trigger.
//
// A mutex serializes Evaluate and Trigger so every operation is a single
// atomic state transition, matching hosts that serialize all mutating calls.
type Gate struct {
	owner     string
	oracle    Oracle
	threshold uint64

	action  Action
	onArmed ArmedFunc

	mu        sync.Mutex
	predicted uint64
	armed     bool
}

// New constructs a gate bound to its owner, oracle, and trigger threshold.
// Owner and oracle are mandatory.
func New(owner string, oracle Oracle, threshold uint64, opts ...Option) (*Gate, error) {
	if owner == "" {
		return nil, errors.New("gate: owner is required")
	}
	if oracle == nil {
		return nil, errors.New("gate: oracle is required")
	}
	g := &Gate{
		owner:     owner,
		oracle:    oracle,
		threshold: threshold,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Qualifies reports whether an observed value satisfies the comparison rule:
// it must meet both the predicted value and the trigger threshold.
func Qualifies(observed, predicted, threshold uint64) bool {
	return observed >= predicted && observed >= threshold
}

// SetPredictedValue overwrites the predicted value. Only the owner may call
// it; any other caller is rejected with ErrUnauthorized and no state changes.
// No notification is emitted.
func (g *Gate) SetPredictedValue(caller string, value uint64) error {
	if caller != g.owner {
		return fmt.Errorf("set predicted value: %w", ErrUnauthorized)
	}
	g.mu.Lock()
	g.predicted = value
	g.mu.Unlock()
	return nil
}

// Evaluate reads one value from the oracle and arms the gate iff the observed
// value meets both the current predicted value and the trigger threshold.
// A non-qualifying observation leaves the flag unchanged; only Trigger clears
// it. Oracle failures are returned wrapped in ErrOracleUnavailable with no
// state mutation.
func (g *Gate) Evaluate(ctx context.Context, caller string) (Evaluation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	observed, err := g.oracle.LatestValue(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	ev := Evaluation{Caller: caller, Observed: observed, Armed: g.armed}
	if !Qualifies(observed, g.predicted, g.threshold) {
		return ev, nil
	}
	if g.armed {
		// Already armed: qualifying re-evaluation is a no-op, no re-notification.
		return ev, nil
	}

	g.armed = true
	ev.Armed = true
	ev.Transitioned = true
	if g.onArmed != nil {
		g.onArmed(caller, observed)
	}
	return ev, nil
}

// Trigger consumes the condition flag and fires the downstream action. Any
// caller may trigger; ownership is not checked. When the gate is disarmed it
// fails with ErrConditionNotMet and mutates nothing. The flag is cleared
// before the action runs, so each arming fires at most once even if the
// action re-enters the gate.
func (g *Gate) Trigger(ctx context.Context, caller string) error {
	g.mu.Lock()
	if !g.armed {
		g.mu.Unlock()
		return fmt.Errorf("trigger: %w", ErrConditionNotMet)
	}
	g.armed = false
	g.mu.Unlock()

	if g.action == nil {
		return nil
	}
	if err := g.action.Fire(ctx, caller); err != nil {
		return fmt.Errorf("trigger action: %w", err)
	}
	return nil
}

// Owner returns the fixed owner identity.
func (g *Gate) Owner() string { return g.owner }

// Threshold returns the fixed trigger threshold.
func (g *Gate) Threshold() uint64 { return g.threshold }

// PredictedValue returns the current predicted value.
func (g *Gate) PredictedValue() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.predicted
}

// Armed returns the current condition-flag state.
func (g *Gate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}
