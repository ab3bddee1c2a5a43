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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tripflow/shared/types"
)

// Transport performs one outbound call to a specialist handler. The
// orchestrator is transport-agnostic: direct function invocation, HTTP,
// or a queue all sit behind this interface. Implementations must honor
// context cancellation.
type Transport interface {
	Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error)
}

// SpecialistHandler is the contract for an in-process specialist.
type SpecialistHandler interface {
	Handle(ctx context.Context, operation string, args map[string]string) (map[string]string, error)
}

// LocalTransport dispatches calls to in-process specialist handlers by
// direct function invocation.
type LocalTransport struct {
	handlers map[string]SpecialistHandler
}

// NewLocalTransport creates a transport over the given handler map.
func NewLocalTransport(handlers map[string]SpecialistHandler) *LocalTransport {
	return &LocalTransport{handlers: handlers}
}

// Call invokes the named specialist handler directly.
func (t *LocalTransport) Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error) {
	handler, ok := t.handlers[specialist]
	if !ok {
		return nil, types.ErrNotFound
	}
	return handler.Handle(ctx, operation, args)
}

// HTTPTransport dispatches calls to remote specialist handlers over
// HTTP. Requests go to {base}/invoke/{specialist}/{operation} with a
// JSON argument body. 4xx responses map to validation errors, 5xx and
// network failures to transport errors (retryable).
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport creates an HTTP transport against a specialist
// endpoint base URL.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// invokeResponse is the wire format for a specialist HTTP response.
type invokeResponse struct {
	Success bool              `json:"success"`
	Result  map[string]string `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Call performs one HTTP invocation.
func (t *HTTPTransport) Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, types.NewValidationError("unencodable arguments: %v", err)
	}

	url := fmt.Sprintf("%s/invoke/%s/%s", t.baseURL, specialist, operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewTransportError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewTransportError("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransportError("failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, types.NewTransportError(fmt.Sprintf("specialist returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, types.NewValidationError("specialist rejected call: %s", string(respBody))
	}

	var decoded invokeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, types.NewTransportError("malformed response body", err)
	}
	if !decoded.Success {
		return nil, types.NewValidationError("%s", decoded.Error)
	}

	return decoded.Result, nil
}
