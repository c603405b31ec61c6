package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/tripwire/internal/gate"
	"github.com/alfredjeanlab/tripwire/internal/model"
)

// handleCreateGate handles POST /v1/gates.
func (s *GateServer) handleCreateGate(w http.ResponseWriter, r *http.Request) {
	var in createGateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	g, err := s.createGate(r.Context(), in)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// handleListGates handles GET /v1/gates.
func (s *GateServer) handleListGates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.GateFilter{
		Owner: q.Get("owner"),
		Feed:  q.Get("feed"),
	}
	if v := q.Get("armed"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Armed = &b
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	gates, total, err := s.store.ListGates(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list gates")
		return
	}

	// Ensure gates is never null in JSON output.
	if gates == nil {
		gates = []*model.Gate{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gates": gates,
		"total": total,
	})
}

// handleGetGate handles GET /v1/gates/{id}.
func (s *GateServer) handleGetGate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	g, err := s.store.GetGate(r.Context(), id)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "gate not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get gate")
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// handleSetPredictedValue handles PUT /v1/gates/{id}/predicted.
// Only the gate owner may set the predicted value; any other caller gets 403.
func (s *GateServer) handleSetPredictedValue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in struct {
		Caller string  `json:"caller"`
		Value  *uint64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}
	if in.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	g, err := s.setPredictedValue(r.Context(), id, in.Caller, *in.Value)
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "gate not found")
	case errors.Is(err, gate.ErrUnauthorized):
		writeError(w, http.StatusForbidden, gate.ErrUnauthorized.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to set predicted value")
	default:
		writeJSON(w, http.StatusOK, g)
	}
}

// handleEvaluateGate handles POST /v1/gates/{id}/evaluate.
// Any caller may evaluate. Oracle failures map to 502 with no state change.
func (s *GateServer) handleEvaluateGate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in struct {
		Caller string `json:"caller"`
	}
	// Body is optional; an anonymous evaluation is allowed.
	_ = json.NewDecoder(r.Body).Decode(&in)

	result, err := s.evaluateGate(r.Context(), id, in.Caller)
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "gate not found")
	case errors.Is(err, gate.ErrOracleUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to evaluate gate")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// handleTriggerGate handles POST /v1/gates/{id}/trigger.
// Any caller may trigger; a disarmed gate yields 409.
func (s *GateServer) handleTriggerGate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in struct {
		Caller string `json:"caller"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	err := s.TriggerGate(r.Context(), id, in.Caller)
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "gate not found")
	case errors.Is(err, gate.ErrConditionNotMet):
		writeError(w, http.StatusConflict, gate.ErrConditionNotMet.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to trigger gate")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
	}
}

// handleGetEvents handles GET /v1/gates/{id}/events.
func (s *GateServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	evts, err := s.store.GetEvents(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}
