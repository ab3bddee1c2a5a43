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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/shared/types"
)

func newTestCoordinator(t *testing.T, transport Transport, mutate func(*CoordinationSettings)) *Coordinator {
	t.Helper()
	registry, settings := newTestRegistry(t)
	if mutate != nil {
		mutate(&settings)
	}
	analyzer := NewAnalyzer(registry, NewKeywordClassifier(registry), "")
	invoker := NewInvoker(transport, settings, nil)
	consolidator := NewConsolidator(registry)
	return NewCoordinator(analyzer, invoker, consolidator, settings)
}

func TestHandleRequestFullCycle(t *testing.T) {
	transport := newFakeTransport()
	transport.script("flight-booking", "search_flights", map[string]string{"flight_id": "FL100", "price": "420"})
	transport.script("hotel-booking", "search_hotels", map[string]string{"hotel": "Astoria", "price": "150"})
	coordinator := newTestCoordinator(t, transport, nil)

	response, err := coordinator.HandleRequest(context.Background(), Request{
		ID:   "req-1",
		Text: "search a flight and a hotel room",
		Parameters: map[string]string{
			"origin":      "BOS",
			"destination": "FCO",
			"location":    "Rome",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "req-1", response.RequestID)
	assert.Equal(t, []string{"flight-booking", "hotel-booking"}, response.Contributors)
	assert.Empty(t, response.Failures)
	assert.Equal(t, "FL100", response.Fields["flight_id"])

	// Conflicting price fields resolve to the flight specialist, with
	// the hotel value preserved as an alternative.
	assert.Equal(t, "420", response.Fields["price"])
	require.Len(t, response.Alternatives, 1)
	assert.Equal(t, "hotel-booking", response.Alternatives[0].Specialist)
}

func TestHandleRequestPartialFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.script("flight-booking", "search_flights", map[string]string{"flight_id": "FL100"})
	transport.script("hotel-booking", "search_hotels", nil,
		types.NewValidationError("unknown location"),
	)
	coordinator := newTestCoordinator(t, transport, nil)

	response, err := coordinator.HandleRequest(context.Background(), Request{
		ID:   "req-2",
		Text: "search a flight and a hotel room",
		Parameters: map[string]string{
			"origin":      "BOS",
			"destination": "FCO",
			"location":    "Atlantis",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"flight-booking"}, response.Contributors)
	require.Len(t, response.Failures, 1)
	assert.Equal(t, "hotel-booking", response.Failures[0].Specialist)
	assert.Equal(t, types.FailureValidation, response.Failures[0].Kind)
	assert.Equal(t, "FL100", response.Fields["flight_id"])
}

func TestHandleRequestAnalyzerErrorShortCircuits(t *testing.T) {
	transport := newFakeTransport()
	coordinator := newTestCoordinator(t, transport, nil)

	response, err := coordinator.HandleRequest(context.Background(), Request{
		ID:   "req-3",
		Text: "completely unrelated question",
	})

	assert.Nil(t, response)
	var intentErr *NoActionableIntentError
	require.ErrorAs(t, err, &intentErr)

	// No transport traffic for an unanalyzable request.
	assert.Zero(t, transport.callCount())
}

func TestHandleRequestCycleDeadline(t *testing.T) {
	coordinator := newTestCoordinator(t, blockingTransport{}, func(s *CoordinationSettings) {
		s.CycleDeadline = 50 * time.Millisecond
		s.PerCallTimeout = time.Second
		s.RetryMaxAttempts = 1
	})

	start := time.Now()
	response, err := coordinator.HandleRequest(context.Background(), Request{
		ID:   "req-4",
		Text: "search a flight and a hotel room",
		Parameters: map[string]string{
			"origin":      "BOS",
			"destination": "FCO",
			"location":    "Rome",
		},
	})
	require.NoError(t, err)

	// Both calls must resolve as timeout failures around the deadline,
	// well before the per-call timeout would have let them finish.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, response.Contributors)
	require.Len(t, response.Failures, 2)
	for _, failure := range response.Failures {
		assert.Equal(t, types.FailureTimeout, failure.Kind)
	}
}

func TestHandleRequestConcurrencyBound(t *testing.T) {
	gate := &concurrencyGate{limit: 1}
	coordinator := newTestCoordinator(t, gate, func(s *CoordinationSettings) {
		s.MaxConcurrency = 1
	})

	response, err := coordinator.HandleRequest(context.Background(), Request{
		ID:   "req-5",
		Text: "search a flight and a hotel room",
		Parameters: map[string]string{
			"origin":      "BOS",
			"destination": "FCO",
			"location":    "Rome",
		},
	})
	require.NoError(t, err)
	assert.Len(t, response.Contributors, 2)
	assert.False(t, gate.exceeded(), "max_concurrency=1 was exceeded")
}

// concurrencyGate fails if more than limit calls are in flight at once.
type concurrencyGate struct {
	limit    int32
	inflight int32
	peaked   int32
}

func (g *concurrencyGate) Call(ctx context.Context, specialist, operation string, args map[string]string) (map[string]string, error) {
	n := atomic.AddInt32(&g.inflight, 1)
	defer atomic.AddInt32(&g.inflight, -1)
	if n > g.limit {
		atomic.StoreInt32(&g.peaked, 1)
	}
	time.Sleep(5 * time.Millisecond)
	return map[string]string{}, nil
}

func (g *concurrencyGate) exceeded() bool {
	return atomic.LoadInt32(&g.peaked) == 1
}
