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
	"reflect"
	"testing"
)

func TestKeywordClassifier(t *testing.T) {
	registry, _ := newTestRegistry(t)
	classifier := NewKeywordClassifier(registry)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "operation keyword narrows the selection",
			text: "search for a flight to Rome",
			want: []string{"search_flights"},
		},
		{
			name: "specialist keyword alone selects the first operation",
			text: "I need a flight",
			want: []string{"search_flights"},
		},
		{
			name: "multiple specialists matched in priority order",
			text: "book a flight and find a hotel room",
			want: []string{"book_flight", "search_hotels"},
		},
		{
			name: "no keywords matched",
			text: "what is the weather like",
			want: nil,
		},
		{
			name: "case insensitive",
			text: "BOOK A FLIGHT",
			want: []string{"book_flight"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifier.Classify(context.Background(), Request{Text: tt.text})
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifierDeterministic(t *testing.T) {
	registry, _ := newTestRegistry(t)
	classifier := NewKeywordClassifier(registry)
	req := Request{Text: "book a flight and a hotel room"}

	first, err := classifier.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := classifier.Classify(context.Background(), req)
		if err != nil {
			t.Fatalf("Classify returned error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("classification not deterministic: %v vs %v", first, again)
		}
	}
}

func TestDetectUrgency(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I need a flight ASAP", UrgencyHigh},
		{"urgent: rebook my hotel", UrgencyHigh},
		{"my dates are flexible", UrgencyLow},
		{"no rush on this one", UrgencyLow},
		{"book a flight to Rome", UrgencyMedium},
	}

	for _, tt := range tests {
		if got := DetectUrgency(tt.text); got != tt.want {
			t.Errorf("DetectUrgency(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
