package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/tripwire/internal/gate"
	"github.com/alfredjeanlab/tripwire/internal/model"
)

// HTTPClient implements GatesClient using the tripwire HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Gate CRUD ---

func (c *HTTPClient) CreateGate(ctx context.Context, req *CreateGateRequest) (*model.Gate, error) {
	var gate model.Gate
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gates", req, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) GetGate(ctx context.Context, id string) (*model.Gate, error) {
	var gate model.Gate
	if err := c.doJSON(ctx, http.MethodGet, "/v1/gates/"+url.PathEscape(id), nil, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) ListGates(ctx context.Context, req *ListGatesRequest) (*ListGatesResponse, error) {
	q := url.Values{}
	if req.Owner != "" {
		q.Set("owner", req.Owner)
	}
	if req.Feed != "" {
		q.Set("feed", req.Feed)
	}
	if req.Armed != nil {
		q.Set("armed", strconv.FormatBool(*req.Armed))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	path := "/v1/gates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListGatesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Gate operations ---

func (c *HTTPClient) SetPredictedValue(ctx context.Context, id, caller string, value uint64) (*model.Gate, error) {
	body := map[string]any{"caller": caller, "value": value}
	var gate model.Gate
	if err := c.doJSON(ctx, http.MethodPut, "/v1/gates/"+url.PathEscape(id)+"/predicted", body, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) EvaluateGate(ctx context.Context, id, caller string) (*Evaluation, error) {
	body := map[string]string{}
	if caller != "" {
		body["caller"] = caller
	}
	var eval Evaluation
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gates/"+url.PathEscape(id)+"/evaluate", body, &eval); err != nil {
		return nil, err
	}
	return &eval, nil
}

func (c *HTTPClient) TriggerGate(ctx context.Context, id, caller string) error {
	body := map[string]string{}
	if caller != "" {
		body["caller"] = caller
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/gates/"+url.PathEscape(id)+"/trigger", body, nil)
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, gateID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/gates/"+url.PathEscape(gateID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// StreamEvents follows the server's SSE stream and invokes fn for every
// event received. It blocks until the context is canceled or the connection
// drops. Topic filters use the same glob syntax as the server.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, fn func(StreamEvent)) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates an event.
			if evt.Topic != "" || len(evt.Data) > 0 {
				fn(evt)
			}
			evt = StreamEvent{}
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimSpace(line[len("id:"):])
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			evt.Data = append(evt.Data, strings.TrimSpace(line[len("data:"):])...)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return ctx.Err()
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the HTTP status back to the service's error kind, so
// errors.Is(err, gate.ErrUnauthorized) and friends work across the client
// boundary the same as for in-process callers.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusForbidden:
		return gate.ErrUnauthorized
	case http.StatusConflict:
		return gate.ErrConditionNotMet
	case http.StatusBadGateway:
		return gate.ErrOracleUnavailable
	}
	return nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
