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
	"fmt"
	"log"

	"github.com/google/uuid"

	"tripflow/shared/types"
)

// Classifier turns a request into an ordered list of operation names.
// The default implementation is the deterministic KeywordClassifier; a
// model-backed classifier can be plugged in behind the same interface.
type Classifier interface {
	Classify(ctx context.Context, req Request) ([]string, error)
}

// Analyzer classifies an incoming request into the OperationCalls the
// coordinator should dispatch. Selection is a pure function of the
// classified intent against the registry: no specialist is called
// unless its descriptor advertises the needed operation.
type Analyzer struct {
	registry   *Registry
	classifier Classifier
	fallback   string // specialist used when classification finds nothing
}

// NewAnalyzer creates an analyzer over the registry with the given
// classification strategy.
func NewAnalyzer(registry *Registry, classifier Classifier, fallback string) *Analyzer {
	return &Analyzer{
		registry:   registry,
		classifier: classifier,
		fallback:   fallback,
	}
}

// Analyze produces the ordered OperationCalls for one request.
//
// Explicit target_specialist/operation hints bypass classification but
// are still validated against the registry. With no hints, the
// classifier's operation names are matched against advertised
// operations; ties between specialists advertising the same operation
// go to the lowest priority number. Returns *NoActionableIntentError
// when nothing matches and *MissingParametersError when a selected
// operation lacks required parameters.
func (a *Analyzer) Analyze(ctx context.Context, req Request) ([]OperationCall, error) {
	if req.TargetSpecialist != "" || req.Operation != "" {
		return a.analyzeExplicit(req)
	}

	operations, err := a.classifier.Classify(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	var calls []OperationCall
	seen := make(map[string]bool)
	for _, opName := range operations {
		matches := a.registry.FindByOperation(opName)
		if len(matches) == 0 {
			log.Printf("[Analyzer] Classifier proposed unadvertised operation %q, skipping", opName)
			continue
		}
		desc := matches[0]
		key := desc.Name + "/" + opName
		if seen[key] {
			continue
		}
		seen[key] = true

		call, err := a.buildCall(req, desc, desc.Operation(opName))
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	if len(calls) == 0 {
		if a.fallback != "" {
			return a.fallbackCalls(req)
		}
		return nil, &NoActionableIntentError{Text: req.Text}
	}

	return calls, nil
}

// analyzeExplicit handles requests carrying structured hints.
func (a *Analyzer) analyzeExplicit(req Request) ([]OperationCall, error) {
	if req.TargetSpecialist != "" {
		desc, err := a.registry.Describe(req.TargetSpecialist)
		if err != nil {
			return nil, err
		}

		op := &desc.Operations[0]
		if req.Operation != "" {
			if op = desc.Operation(req.Operation); op == nil {
				return nil, types.ErrNotFound
			}
		}

		call, err := a.buildCall(req, desc, op)
		if err != nil {
			return nil, err
		}
		return []OperationCall{call}, nil
	}

	// Operation hint only: highest-priority advertiser wins.
	matches := a.registry.FindByOperation(req.Operation)
	if len(matches) == 0 {
		return nil, &NoActionableIntentError{Text: req.Text}
	}

	call, err := a.buildCall(req, matches[0], matches[0].Operation(req.Operation))
	if err != nil {
		return nil, err
	}
	return []OperationCall{call}, nil
}

// fallbackCalls routes an unclassifiable request to the configured
// fallback specialist's default operation.
func (a *Analyzer) fallbackCalls(req Request) ([]OperationCall, error) {
	desc, err := a.registry.Describe(a.fallback)
	if err != nil {
		return nil, &NoActionableIntentError{Text: req.Text}
	}

	call, err := a.buildCall(req, desc, &desc.Operations[0])
	if err != nil {
		return nil, err
	}
	return []OperationCall{call}, nil
}

// buildCall validates required parameters and assembles one call. The
// argument map is a fresh copy restricted to declared parameters, so
// each call owns its arguments exclusively.
func (a *Analyzer) buildCall(req Request, desc *SpecialistDescriptor, op *OperationSpec) (OperationCall, error) {
	var missing []string
	args := make(map[string]string)

	for _, p := range op.Parameters {
		value, ok := req.Parameters[p.Name]
		if !ok || value == "" {
			if p.Required {
				missing = append(missing, p.Name)
			}
			continue
		}
		args[p.Name] = value
	}

	if len(missing) > 0 {
		return OperationCall{}, &MissingParametersError{
			Operation: op.Name,
			Missing:   missing,
		}
	}

	return OperationCall{
		ID:             uuid.NewString(),
		Specialist:     desc.Name,
		Operation:      op.Name,
		Arguments:      args,
		Mutating:       op.Mutating,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}
