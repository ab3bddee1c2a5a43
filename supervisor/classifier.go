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
	"strings"
)

// KeywordClassifier is the default deterministic classification
// strategy: specialist and operation keywords from the registry are
// matched against the request text. A specialist keyword hit with no
// operation keyword hit selects the specialist's first declared
// operation.
type KeywordClassifier struct {
	registry *Registry
}

// NewKeywordClassifier creates a classifier over the registry's
// declared keywords.
func NewKeywordClassifier(registry *Registry) *KeywordClassifier {
	return &KeywordClassifier{registry: registry}
}

// Classify returns operation names in specialist priority order.
// Classification is pure: same text and registry, same result.
func (c *KeywordClassifier) Classify(_ context.Context, req Request) ([]string, error) {
	text := strings.ToLower(req.Text)

	var operations []string
	seen := make(map[string]bool)
	add := func(op string) {
		if !seen[op] {
			seen[op] = true
			operations = append(operations, op)
		}
	}

	for _, desc := range c.registry.List() {
		if !containsAny(text, desc.Keywords) {
			continue
		}

		matched := false
		for _, op := range desc.Operations {
			if containsAny(text, op.Keywords) {
				add(op.Name)
				matched = true
			}
		}
		if !matched {
			add(desc.Operations[0].Name)
		}
	}

	return operations, nil
}

// containsAny reports whether any keyword occurs in the text.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Urgency levels detected from request text.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

var (
	highUrgencyKeywords = []string{"urgent", "asap", "immediately", "emergency"}
	lowUrgencyKeywords  = []string{"flexible", "whenever", "no rush"}
)

// DetectUrgency classifies request urgency from its text. Used for
// logging and response annotation only; it never changes routing.
func DetectUrgency(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, highUrgencyKeywords) {
		return UrgencyHigh
	}
	if containsAny(lower, lowUrgencyKeywords) {
		return UrgencyLow
	}
	return UrgencyMedium
}
