package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *GateServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/gates", s.handleCreateGate)
	mux.HandleFunc("GET /v1/gates", s.handleListGates)
	mux.HandleFunc("GET /v1/gates/{id}", s.handleGetGate)
	mux.HandleFunc("PUT /v1/gates/{id}/predicted", s.handleSetPredictedValue)
	mux.HandleFunc("POST /v1/gates/{id}/evaluate", s.handleEvaluateGate)
	mux.HandleFunc("POST /v1/gates/{id}/trigger", s.handleTriggerGate)
	mux.HandleFunc("GET /v1/gates/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	var h http.Handler = mux
	h = AuthMiddleware(authToken, h)
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)
	return h
}

// handleHealth handles GET /v1/health.
func (s *GateServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
