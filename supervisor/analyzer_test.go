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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/shared/types"
)

func newTestAnalyzer(t *testing.T, fallback string) *Analyzer {
	t.Helper()
	registry, _ := newTestRegistry(t)
	return NewAnalyzer(registry, NewKeywordClassifier(registry), fallback)
}

func TestAnalyzeKeywordRouting(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:   "req-1",
		Text: "search for a flight from Boston",
		Parameters: map[string]string{
			"origin":      "BOS",
			"destination": "FCO",
			"stray":       "ignored",
		},
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)

	call := calls[0]
	assert.Equal(t, "flight-booking", call.Specialist)
	assert.Equal(t, "search_flights", call.Operation)
	assert.False(t, call.Mutating)
	assert.NotEmpty(t, call.ID)

	// Only declared parameters cross into the call.
	assert.Equal(t, map[string]string{"origin": "BOS", "destination": "FCO"}, call.Arguments)
}

func TestAnalyzeNoActionableIntent(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:   "req-2",
		Text: "what is the meaning of life",
	})
	assert.Nil(t, calls)

	var intentErr *NoActionableIntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Equal(t, "what is the meaning of life", intentErr.Text)
}

func TestAnalyzeFallbackSpecialist(t *testing.T) {
	analyzer := newTestAnalyzer(t, "hotel-booking")

	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:         "req-3",
		Text:       "something entirely unrelated",
		Parameters: map[string]string{"location": "Rome"},
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "hotel-booking", calls[0].Specialist)
	assert.Equal(t, "search_hotels", calls[0].Operation)
}

func TestAnalyzeMissingParameters(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	_, err := analyzer.Analyze(context.Background(), Request{
		ID:         "req-4",
		Text:       "search for a flight",
		Parameters: map[string]string{"origin": "BOS", "destination": ""},
	})

	var missingErr *MissingParametersError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "search_flights", missingErr.Operation)
	assert.Equal(t, []string{"destination"}, missingErr.Missing)
}

func TestAnalyzeExplicitTarget(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:               "req-5",
		Text:             "irrelevant free text",
		TargetSpecialist: "hotel-booking",
		Operation:        "quote_price",
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "hotel-booking", calls[0].Specialist)
	assert.Equal(t, "quote_price", calls[0].Operation)
}

func TestAnalyzeExplicitTargetUnknown(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	_, err := analyzer.Analyze(context.Background(), Request{
		TargetSpecialist: "cruise-booking",
	})
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = analyzer.Analyze(context.Background(), Request{
		TargetSpecialist: "flight-booking",
		Operation:        "search_hotels",
	})
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestAnalyzeOperationHintTieBreak(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	// Both specialists advertise quote_price; the lower priority number
	// wins.
	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:        "req-6",
		Operation: "quote_price",
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "flight-booking", calls[0].Specialist)
}

func TestAnalyzeMutatingCallCarriesIdempotencyKey(t *testing.T) {
	analyzer := newTestAnalyzer(t, "")

	calls, err := analyzer.Analyze(context.Background(), Request{
		ID:             "req-7",
		Text:           "book a flight",
		Parameters:     map[string]string{"flight_id": "FL100"},
		IdempotencyKey: "client-key-1",
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Mutating)
	assert.Equal(t, "client-key-1", calls[0].IdempotencyKey)
}

func TestAnalyzeClassifierError(t *testing.T) {
	registry, _ := newTestRegistry(t)
	analyzer := NewAnalyzer(registry, classifierFunc(func(ctx context.Context, req Request) ([]string, error) {
		return nil, errors.New("model unavailable")
	}), "")

	_, err := analyzer.Analyze(context.Background(), Request{Text: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification failed")
}

// classifierFunc adapts a function to the Classifier interface.
type classifierFunc func(ctx context.Context, req Request) ([]string, error)

func (f classifierFunc) Classify(ctx context.Context, req Request) ([]string, error) {
	return f(ctx, req)
}
