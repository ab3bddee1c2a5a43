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
	"context"
	"sync"
	"testing"
)

// testConfigYAML is a compact roster used across the package tests.
// quote_price is advertised by both specialists to exercise the
// priority tie-break.
const testConfigYAML = `
apiVersion: tripflow.io/v1
kind: SupervisorConfig
metadata:
  name: test-supervisor
spec:
  coordination:
    max_concurrency: 4
    per_call_timeout: 200ms
    cycle_deadline: 1s
    retry_max_attempts: 3
    retry_base_delay: 1ms
  specialists:
    - name: flight-booking
      priority: 1
      keywords: [flight, fly]
      operations:
        - name: search_flights
          keywords: [search]
          parameters:
            - {name: origin, type: string, required: true}
            - {name: destination, type: string, required: true}
        - name: book_flight
          keywords: [book]
          mutating: true
          parameters:
            - {name: flight_id, type: string, required: true}
        - name: quote_price
    - name: hotel-booking
      priority: 2
      keywords: [hotel, room]
      operations:
        - name: search_hotels
          parameters:
            - {name: location, type: string, required: true}
        - name: quote_price
`

// newTestRegistry parses the shared fixture into a registry and
// settings.
func newTestRegistry(t *testing.T) (*Registry, CoordinationSettings) {
	t.Helper()

	config, err := ParseSupervisorConfig([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("fixture config failed to parse: %v", err)
	}
	settings, err := config.CoordinationSettings()
	if err != nil {
		t.Fatalf("fixture settings invalid: %v", err)
	}
	return NewRegistry(config), settings
}

// fakeResponse scripts one specialist operation: errors are consumed
// one per attempt, then the payload is returned.
type fakeResponse struct {
	errs    []error
	payload map[string]string
}

// fakeTransport records calls and replays scripted responses.
type fakeTransport struct {
	mu        sync.Mutex
	calls     []string // "specialist/operation", one per attempt
	responses map[string]*fakeResponse
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{responses: make(map[string]*fakeResponse)}
}

func (t *fakeTransport) script(specialist, operation string, payload map[string]string, errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[specialist+"/"+operation] = &fakeResponse{errs: errs, payload: payload}
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func (t *fakeTransport) Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := specialist + "/" + operation
	t.calls = append(t.calls, key)

	resp, ok := t.responses[key]
	if !ok {
		return map[string]string{}, nil
	}
	if len(resp.errs) > 0 {
		err := resp.errs[0]
		resp.errs = resp.errs[1:]
		return nil, err
	}
	return resp.payload, nil
}

// blockingTransport never completes until the context is cancelled.
type blockingTransport struct{}

func (blockingTransport) Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
