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
	"fmt"
	"sort"
	"strings"
)

// Consolidator merges heterogeneous specialist results into one
// coherent response. Consolidation is a pure function of its input:
// results arrive in completion order, so processing is re-sorted by
// registry priority and the output is identical however the calls
// interleaved.
type Consolidator struct {
	registry *Registry
}

// NewConsolidator creates a consolidator using the registry's priority
// order for conflict resolution.
func NewConsolidator(registry *Registry) *Consolidator {
	return &Consolidator{registry: registry}
}

// Consolidate merges the cycle's results. When two successful results
// provide conflicting values for the same field, the higher-priority
// specialist wins and the losing value is retained under alternatives.
// Failed specialists are always enumerated; if everything failed the
// summary is a structured error description rather than an empty
// answer.
func (c *Consolidator) Consolidate(requestID string, results []OperationResult) *ConsolidatedResponse {
	// Work on a priority-ordered copy; completion order must not
	// influence the merge.
	ordered := make([]OperationResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi := c.registry.PriorityOf(ordered[i].Call.Specialist)
		pj := c.registry.PriorityOf(ordered[j].Call.Specialist)
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Call.Operation < ordered[j].Call.Operation
	})

	response := &ConsolidatedResponse{
		RequestID:    requestID,
		Fields:       make(map[string]string),
		Contributors: []string{},
		Failures:     []FailureEntry{},
	}

	fieldOwner := make(map[string]string) // field -> winning specialist
	contributed := make(map[string]bool)

	for _, result := range ordered {
		if !result.Success {
			response.Failures = append(response.Failures, FailureEntry{
				Specialist: result.Call.Specialist,
				Operation:  result.Call.Operation,
				Kind:       result.FailureKind,
				Message:    result.FailureMessage,
			})
			continue
		}

		if !contributed[result.Call.Specialist] {
			contributed[result.Call.Specialist] = true
			response.Contributors = append(response.Contributors, result.Call.Specialist)
		}

		for _, field := range sortedKeys(result.Payload) {
			value := result.Payload[field]
			existing, taken := response.Fields[field]
			if !taken {
				response.Fields[field] = value
				fieldOwner[field] = result.Call.Specialist
				continue
			}
			if existing == value {
				continue
			}
			// Conflict: the earlier (higher-priority) value stands,
			// the losing value is never dropped silently.
			response.Alternatives = append(response.Alternatives, Alternative{
				Field:      field,
				Specialist: result.Call.Specialist,
				Value:      value,
			})
		}
	}

	response.Summary = c.buildSummary(response, len(results))
	return response
}

// buildSummary produces the user-facing one-line outcome.
func (c *Consolidator) buildSummary(response *ConsolidatedResponse, total int) string {
	if total == 0 {
		return "No specialist operations were performed."
	}

	if len(response.Contributors) == 0 {
		var reasons []string
		for _, f := range response.Failures {
			reasons = append(reasons, fmt.Sprintf("%s/%s: %s", f.Specialist, f.Operation, f.Kind))
		}
		return fmt.Sprintf("All %d specialist call(s) failed: %s", total, strings.Join(reasons, "; "))
	}

	summary := fmt.Sprintf("Consolidated response from %d specialist(s): %s.",
		len(response.Contributors), strings.Join(response.Contributors, ", "))
	if len(response.Failures) > 0 {
		var failed []string
		for _, f := range response.Failures {
			failed = append(failed, fmt.Sprintf("%s (%s)", f.Specialist, f.Kind))
		}
		summary += fmt.Sprintf(" Failed: %s.", strings.Join(failed, ", "))
	}
	return summary
}

// sortedKeys returns map keys in sorted order for deterministic merges.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
