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
	"time"

	"tripflow/shared/types"
)

// Request is one incoming user request. Immutable once received; all
// state derived from it lives for a single coordination cycle.
type Request struct {
	ID               string            `json:"request_id"`
	Text             string            `json:"request"`
	RequestType      string            `json:"request_type,omitempty"`
	TargetSpecialist string            `json:"target_specialist,omitempty"`
	Operation        string            `json:"operation,omitempty"`
	Parameters       map[string]string `json:"parameters,omitempty"`
	IdempotencyKey   string            `json:"idempotency_key,omitempty"`
}

// OperationCall is a single request to one specialist operation.
// Constructed by the analyzer, consumed by the invoker. Each call owns
// its argument map exclusively; calls share no state with each other.
type OperationCall struct {
	ID             string            `json:"call_id"`
	Specialist     string            `json:"specialist"`
	Operation      string            `json:"operation"`
	Arguments      map[string]string `json:"arguments"`
	Mutating       bool              `json:"mutating"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// OperationResult is the tagged outcome of one OperationCall.
type OperationResult struct {
	Call           OperationCall     `json:"call"`
	Success        bool              `json:"success"`
	Payload        map[string]string `json:"payload,omitempty"`
	FailureKind    types.FailureKind `json:"failure_kind,omitempty"`
	FailureMessage string            `json:"failure_message,omitempty"`
	Attempts       int               `json:"attempts"`
	Duration       time.Duration     `json:"duration_ns"`
}

// SuccessResult builds a successful OperationResult.
func SuccessResult(call OperationCall, payload map[string]string) OperationResult {
	return OperationResult{
		Call:    call,
		Success: true,
		Payload: payload,
	}
}

// FailureResult builds a failed OperationResult.
func FailureResult(call OperationCall, kind types.FailureKind, message string) OperationResult {
	return OperationResult{
		Call:           call,
		Success:        false,
		FailureKind:    kind,
		FailureMessage: message,
	}
}

// Alternative records a value that lost a merge conflict during
// consolidation. Losing values are retained here, never dropped.
type Alternative struct {
	Field      string `json:"field"`
	Specialist string `json:"specialist"`
	Value      string `json:"value"`
}

// FailureEntry identifies one failed specialist call in the final response.
type FailureEntry struct {
	Specialist string            `json:"specialist"`
	Operation  string            `json:"operation"`
	Kind       types.FailureKind `json:"kind"`
	Message    string            `json:"message"`
}

// ConsolidatedResponse is the final answer for one coordination cycle.
// Failed specialists are always enumerated, even when a usable partial
// answer was produced from the successes.
type ConsolidatedResponse struct {
	RequestID    string            `json:"request_id"`
	Summary      string            `json:"summary"`
	Fields       map[string]string `json:"fields,omitempty"`
	Alternatives []Alternative     `json:"alternatives,omitempty"`
	Contributors []string          `json:"contributors"`
	Failures     []FailureEntry    `json:"failures"`
}
