// Package export writes periodic JSONL snapshots of gates and their event
// history to one or more destinations.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/model"
	"github.com/alfredjeanlab/tripwire/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	GateCount  int       `json:"gate_count"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes all gates and their events from the store as JSONL to w.
// Gates are sorted by ID; each gate's events follow it in insertion order.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	gates, _, err := s.ListGates(ctx, model.GateFilter{})
	if err != nil {
		return fmt.Errorf("list gates: %w", err)
	}

	sort.Slice(gates, func(i, j int) bool {
		return gates[i].ID < gates[j].ID
	})

	eventsByGate := make(map[string][]*model.Event, len(gates))
	total := 0
	for _, g := range gates {
		evts, err := s.GetEvents(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("get events for %s: %w", g.ID, err)
		}
		eventsByGate[g.ID] = evts
		total += len(evts)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		GateCount:  len(gates),
		EventCount: total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, g := range gates {
		if err := enc.Encode(record{Type: "gate", Data: g}); err != nil {
			return fmt.Errorf("encode gate %s: %w", g.ID, err)
		}
		for _, e := range eventsByGate[g.ID] {
			if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
				return fmt.Errorf("encode event %d: %w", e.ID, err)
			}
		}
	}

	return nil
}

// Destination is the interface for an export target.
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.exportOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportOnce(ctx)
		}
	}
}

func (s *Scheduler) exportOnce(ctx context.Context) {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		s.logger.Error("export failed", "err", err)
		return
	}
	data := buf.Bytes()

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("export destination write failed", "destination", fmt.Sprintf("%d", i), "err", err)
		}
	}

	s.logger.Info("export completed", "destinations", len(s.destinations), "bytes", len(data))
}
