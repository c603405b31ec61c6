// Package oracle provides read-only sources of external reference values.
// A Source serves many named feeds; Bind narrows one feed down to the
// single-value oracle port the gate core consumes.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/alfredjeanlab/tripwire/internal/gate"
)

// Source returns the latest observed value for a named feed. Freshness and
// availability are the source's concern; callers treat any error as the
// oracle being unavailable.
type Source interface {
	LatestValue(ctx context.Context, feed string) (uint64, error)
}

// Bind adapts one feed of a Source into the gate.Oracle port.
func Bind(src Source, feed string) gate.Oracle {
	return gate.OracleFunc(func(ctx context.Context) (uint64, error) {
		return src.LatestValue(ctx, feed)
	})
}

// HTTPSource reads feed values from an oracle HTTP endpoint:
// GET {base}/v1/feeds/{feed} returning {"value": N}.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTP oracle source targeting the given base URL
// (e.g. "http://localhost:9100").
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (s *HTTPSource) LatestValue(ctx context.Context, feed string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v1/feeds/"+url.PathEscape(feed), nil)
	if err != nil {
		return 0, fmt.Errorf("creating oracle request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reading feed %s: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reading feed %s: oracle returned HTTP %d", feed, resp.StatusCode)
	}

	var body struct {
		Value *uint64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding feed %s: %w", feed, err)
	}
	if body.Value == nil {
		return 0, fmt.Errorf("feed %s: oracle returned no value", feed)
	}
	return *body.Value, nil
}

// StaticSource serves fixed feed values from memory. Used in tests and as a
// stand-in when no oracle endpoint is configured.
type StaticSource struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// NewStaticSource creates a static source seeded with the given feed values.
func NewStaticSource(values map[string]uint64) *StaticSource {
	s := &StaticSource{values: make(map[string]uint64, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Set overwrites the value served for a feed.
func (s *StaticSource) Set(feed string, value uint64) {
	s.mu.Lock()
	s.values[feed] = value
	s.mu.Unlock()
}

func (s *StaticSource) LatestValue(_ context.Context, feed string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[feed]
	if !ok {
		return 0, fmt.Errorf("feed %s: no value", feed)
	}
	return v, nil
}
