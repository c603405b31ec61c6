package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/model"
	"github.com/alfredjeanlab/tripwire/internal/store"
)

type mockStore struct {
	gates  map[string]*model.Gate
	events map[string][]*model.Event
}

func newMockStore() *mockStore {
	return &mockStore{
		gates:  make(map[string]*model.Gate),
		events: make(map[string][]*model.Event),
	}
}

func (m *mockStore) CreateGate(_ context.Context, g *model.Gate) error {
	m.gates[g.ID] = g
	return nil
}

func (m *mockStore) GetGate(_ context.Context, id string) (*model.Gate, error) {
	g, ok := m.gates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (m *mockStore) GetGateForUpdate(ctx context.Context, id string) (*model.Gate, error) {
	return m.GetGate(ctx, id)
}

func (m *mockStore) ListGates(_ context.Context, _ model.GateFilter) ([]*model.Gate, int, error) {
	var result []*model.Gate
	for _, g := range m.gates {
		result = append(result, g)
	}
	return result, len(result), nil
}

func (m *mockStore) SetPredictedValue(_ context.Context, id string, value uint64) error {
	m.gates[id].PredictedValue = value
	return nil
}

func (m *mockStore) RecordObservation(_ context.Context, id string, observed uint64, at time.Time) error {
	m.gates[id].LastObserved = &observed
	m.gates[id].LastObservedAt = &at
	return nil
}

func (m *mockStore) ArmGate(_ context.Context, id string, at time.Time) (bool, error) {
	g := m.gates[id]
	if g.Armed {
		return false, nil
	}
	g.Armed = true
	g.ArmedAt = &at
	return true, nil
}

func (m *mockStore) DisarmGate(_ context.Context, id string) (bool, error) {
	g := m.gates[id]
	if !g.Armed {
		return false, nil
	}
	g.Armed = false
	return true, nil
}

func (m *mockStore) RecordEvent(_ context.Context, event *model.Event) error {
	m.events[event.GateID] = append(m.events[event.GateID], event)
	return nil
}

func (m *mockStore) GetEvents(_ context.Context, gateID string) ([]*model.Event, error) {
	return m.events[gateID], nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}

func TestExportJSONL_Empty(t *testing.T) {
	ms := newMockStore()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.GateCount != 0 || h.EventCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_WithGatesAndEvents(t *testing.T) {
	ms := newMockStore()
	now := time.Now().UTC()

	// Add gates out of ID order to verify sorting.
	ms.gates["cg-zzz"] = &model.Gate{ID: "cg-zzz", Owner: "bob", Feed: "asset-y", TriggerThreshold: 500, CreatedAt: now, UpdatedAt: now}
	ms.gates["cg-aaa"] = &model.Gate{ID: "cg-aaa", Owner: "alice", Feed: "asset-x", TriggerThreshold: 1000, CreatedAt: now, UpdatedAt: now}

	ms.events["cg-aaa"] = []*model.Event{
		{ID: 1, Topic: "tripwire.gate.armed", GateID: "cg-aaa", Payload: json.RawMessage(`{}`), CreatedAt: now},
		{ID: 2, Topic: "tripwire.gate.triggered", GateID: "cg-aaa", Payload: json.RawMessage(`{}`), CreatedAt: now},
	}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 gates + 2 events = 5 lines
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.GateCount != 2 || h.EventCount != 2 {
		t.Fatalf("header counts: gate=%d event=%d", h.GateCount, h.EventCount)
	}

	// cg-aaa sorts first and is followed by its two events.
	var recs [4]record
	for i := range recs {
		if err := json.Unmarshal([]byte(lines[i+1]), &recs[i]); err != nil {
			t.Fatalf("unmarshal line %d: %v", i+1, err)
		}
	}
	wantTypes := []string{"gate", "event", "event", "gate"}
	for i, want := range wantTypes {
		if recs[i].Type != want {
			t.Fatalf("line %d type = %q, want %q", i+1, recs[i].Type, want)
		}
	}

	data, _ := json.Marshal(recs[0].Data)
	var g model.Gate
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("unmarshal gate: %v", err)
	}
	if g.ID != "cg-aaa" {
		t.Fatalf("first gate = %q, want cg-aaa", g.ID)
	}
}

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

func TestSchedulerStartStop(t *testing.T) {
	ms := newMockStore()
	now := time.Now().UTC()
	ms.gates["cg-1"] = &model.Gate{ID: "cg-1", Owner: "alice", Feed: "asset-x", TriggerThreshold: 1000, CreatedAt: now, UpdatedAt: now}

	dest := &mockDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, logger)
	sched.Start()

	// Wait for at least the initial export + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}

	lines := nonEmptyLines(string(data))
	// 1 header + 1 gate = 2
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	ms := newMockStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sched := NewScheduler(ms, nil, time.Minute, logger)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	ms := newMockStore()
	dest1 := &mockDestination{}
	dest2 := &mockDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(ms, []Destination{dest1, dest2}, time.Second, logger)
	sched.Start()

	// Wait for the initial export.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected at least 1 write")
	}
}
