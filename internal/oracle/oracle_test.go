package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/tripwire/internal/gate"
)

func TestHTTPSource_LatestValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/feeds/eth-usd":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"value": 1500}`))
		case "/v1/feeds/empty":
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)

	v, err := src.LatestValue(context.Background(), "eth-usd")
	if err != nil {
		t.Fatalf("LatestValue: %v", err)
	}
	if v != 1500 {
		t.Errorf("value = %d, want 1500", v)
	}

	if _, err := src.LatestValue(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown feed")
	}
	if _, err := src.LatestValue(context.Background(), "empty"); err == nil {
		t.Error("expected error when oracle returns no value")
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	src := NewHTTPSource("http://127.0.0.1:1") // nothing listening
	if _, err := src.LatestValue(context.Background(), "eth-usd"); err == nil {
		t.Error("expected transport error")
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]uint64{"eth-usd": 1200})

	v, err := src.LatestValue(context.Background(), "eth-usd")
	if err != nil {
		t.Fatalf("LatestValue: %v", err)
	}
	if v != 1200 {
		t.Errorf("value = %d, want 1200", v)
	}

	src.Set("eth-usd", 1600)
	if v, _ := src.LatestValue(context.Background(), "eth-usd"); v != 1600 {
		t.Errorf("value after Set = %d, want 1600", v)
	}

	if _, err := src.LatestValue(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown feed")
	}
}

func TestBind_SurfacesAsOracleUnavailable(t *testing.T) {
	src := NewStaticSource(map[string]uint64{"eth-usd": 2000})

	g, err := gate.New("alice", Bind(src, "eth-usd"), 1000)
	if err != nil {
		t.Fatalf("gate.New: %v", err)
	}
	ev, err := g.Evaluate(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ev.Transitioned {
		t.Error("expected gate to arm from bound feed")
	}

	// Unknown feed propagates as ErrOracleUnavailable through the gate.
	g2, err := gate.New("alice", Bind(src, "missing"), 1000)
	if err != nil {
		t.Fatalf("gate.New: %v", err)
	}
	if _, err := g2.Evaluate(context.Background(), "bob"); !errors.Is(err, gate.ErrOracleUnavailable) {
		t.Errorf("Evaluate error = %v, want ErrOracleUnavailable", err)
	}
}
