// Copyright 2025 TripFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tripflow/shared/logger"
	"tripflow/shared/types"
)

// APIHandler serves the supervisor's HTTP API.
type APIHandler struct {
	coordinator *Coordinator
	registry    *Registry
	log         *logger.Logger
	startTime   time.Time
}

// NewAPIHandler creates the handler set over the coordinator and
// registry.
func NewAPIHandler(coordinator *Coordinator, registry *Registry) *APIHandler {
	return &APIHandler{
		coordinator: coordinator,
		registry:    registry,
		log:         logger.New("supervisor-api"),
		startTime:   time.Now(),
	}
}

// incomingRequest is the wire format for POST /api/v1/requests.
type incomingRequest struct {
	Request          string            `json:"request"`
	RequestType      string            `json:"request_type,omitempty"`
	TargetSpecialist string            `json:"target_specialist,omitempty"`
	Operation        string            `json:"operation,omitempty"`
	Parameters       map[string]string `json:"parameters,omitempty"`
	IdempotencyKey   string            `json:"idempotency_key,omitempty"`
}

// errorResponse is the wire format for API errors.
type errorResponse struct {
	Error             string   `json:"error"`
	ErrorType         string   `json:"error_type"`
	Operation         string   `json:"operation,omitempty"`
	MissingParameters []string `json:"missing_parameters,omitempty"`
}

// HandleRequest runs one coordination cycle for the posted request.
func (h *APIHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var in incomingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Request == "" && in.TargetSpecialist == "" && in.Operation == "" {
		writeJSONError(w, http.StatusBadRequest, "request text or an explicit target is required")
		return
	}

	req := Request{
		ID:               uuid.NewString(),
		Text:             in.Request,
		RequestType:      in.RequestType,
		TargetSpecialist: in.TargetSpecialist,
		Operation:        in.Operation,
		Parameters:       in.Parameters,
		IdempotencyKey:   in.IdempotencyKey,
	}

	response, err := h.coordinator.HandleRequest(r.Context(), req)
	if err != nil {
		h.writeAnalyzerError(w, req.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// writeAnalyzerError maps analyzer-level cycle terminations to
// user-facing HTTP errors. Which specialists would have been called
// never leaks here because none were.
func (h *APIHandler) writeAnalyzerError(w http.ResponseWriter, requestID string, err error) {
	h.log.ErrorWithErr(requestID, "request rejected", err, nil)

	var missing *MissingParametersError
	var noIntent *NoActionableIntentError
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:             missing.Error(),
			ErrorType:         "missing_parameters",
			Operation:         missing.Operation,
			MissingParameters: missing.Missing,
		})
	case errors.As(err, &noIntent):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     noIntent.Error(),
			ErrorType: "no_actionable_intent",
		})
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     "unknown specialist or operation",
			ErrorType: "not_found",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     err.Error(),
			ErrorType: "system_error",
		})
	}
}

// HandleListSpecialists returns the registry roster.
func (h *APIHandler) HandleListSpecialists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"specialists": h.registry.List(),
	})
}

// HandleHealth reports service liveness.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"specialists":    len(h.registry.List()),
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes a plain JSON error message.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, ErrorType: "request_error"})
}
