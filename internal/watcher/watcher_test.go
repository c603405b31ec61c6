package watcher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/events"
	"github.com/alfredjeanlab/tripwire/internal/gate"
)

type fakeSubscriber struct {
	ch    chan []byte
	topic string
}

func (f *fakeSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	f.topic = topic
	return f.ch, func() {}, nil
}

type fakeTriggerer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeTriggerer) TriggerGate(_ context.Context, id, caller string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id+"/"+caller)
	return f.err
}

func (f *fakeTriggerer) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func publishArmed(t *testing.T, ch chan []byte, gateID string) {
	t.Helper()
	data, err := json.Marshal(events.GateArmed{GateID: gateID, Caller: "alice", Observed: 1500})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ch <- data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRun_TriggersOnArmedEvent(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan []byte, 4)}
	trig := &fakeTriggerer{}
	w := New(trig, "autobot", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sub) }()

	publishArmed(t, sub.ch, "cg-1")
	waitFor(t, func() bool { return len(trig.callList()) == 1 })

	if got := trig.callList()[0]; got != "cg-1/autobot" {
		t.Errorf("call = %q, want cg-1/autobot", got)
	}
	if sub.topic != events.TopicGateArmed.String() {
		t.Errorf("subscribed to %q, want %q", sub.topic, events.TopicGateArmed)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRun_LostRaceIsNotFatal(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan []byte, 4)}
	trig := &fakeTriggerer{err: gate.ErrConditionNotMet}
	w := New(trig, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sub) }()

	publishArmed(t, sub.ch, "cg-1")
	publishArmed(t, sub.ch, "cg-2")
	waitFor(t, func() bool { return len(trig.callList()) == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRun_IgnoresMalformedPayloads(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan []byte, 4)}
	trig := &fakeTriggerer{}
	w := New(trig, "autobot", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sub) }()

	sub.ch <- []byte("not json")
	publishArmed(t, sub.ch, "cg-1")
	waitFor(t, func() bool { return len(trig.callList()) == 1 })

	cancel()
	<-done
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan []byte)}
	w := New(&fakeTriggerer{}, "autobot", nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), sub) }()

	close(sub.ch)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after channel close")
	}
}
