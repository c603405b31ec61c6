// Package client provides a transport-agnostic interface for the tripwire
// service and an HTTP/JSON implementation that talks to the tripwire REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/tripwire/internal/model"
)

// GatesClient is the interface that all tripwire CLI commands use to
// communicate with the tripwire server. It is implemented by HTTPClient.
type GatesClient interface {
	// Gate CRUD
	CreateGate(ctx context.Context, req *CreateGateRequest) (*model.Gate, error)
	GetGate(ctx context.Context, id string) (*model.Gate, error)
	ListGates(ctx context.Context, req *ListGatesRequest) (*ListGatesResponse, error)

	// Gate operations
	SetPredictedValue(ctx context.Context, id, caller string, value uint64) (*model.Gate, error)
	EvaluateGate(ctx context.Context, id, caller string) (*Evaluation, error)
	TriggerGate(ctx context.Context, id, caller string) error

	// Events
	GetEvents(ctx context.Context, gateID string) ([]*model.Event, error)
	StreamEvents(ctx context.Context, topics []string, fn func(StreamEvent)) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateGateRequest holds parameters for creating a gate.
type CreateGateRequest struct {
	Name             string `json:"name,omitempty"`
	Owner            string `json:"owner"`
	Feed             string `json:"feed"`
	TriggerThreshold uint64 `json:"trigger_threshold"`
	CreatedBy        string `json:"created_by,omitempty"`
}

// ListGatesRequest holds parameters for listing gates.
type ListGatesRequest struct {
	Owner  string `json:"owner,omitempty"`
	Feed   string `json:"feed,omitempty"`
	Armed  *bool  `json:"armed,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ListGatesResponse is the response from ListGates.
type ListGatesResponse struct {
	Gates []*model.Gate `json:"gates"`
	Total int           `json:"total"`
}

// Evaluation is the response from EvaluateGate.
type Evaluation struct {
	GateID       string `json:"gate_id"`
	Caller       string `json:"caller,omitempty"`
	Observed     uint64 `json:"observed"`
	Armed        bool   `json:"armed"`
	Transitioned bool   `json:"transitioned"`
}

// StreamEvent is one event delivered by StreamEvents.
type StreamEvent struct {
	ID    string
	Topic string
	Data  []byte
}
