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
	"sort"

	"tripflow/shared/types"
)

// SpecialistDescriptor describes one registered specialist: the
// operations it advertises and its priority. Lower priority numbers win
// tie-breaks and merge conflicts.
type SpecialistDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Priority    int             `json:"priority"`
	Keywords    []string        `json:"keywords,omitempty"`
	Operations  []OperationSpec `json:"operations"`
}

// OperationSpec describes one operation a specialist advertises.
type OperationSpec struct {
	Name       string          `json:"name"`
	Keywords   []string        `json:"keywords,omitempty"`
	Mutating   bool            `json:"mutating"`
	Parameters []ParameterSpec `json:"parameters,omitempty"`
}

// ParameterSpec describes one declared parameter of an operation.
type ParameterSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Operation returns the named operation spec, or nil.
func (d *SpecialistDescriptor) Operation(name string) *OperationSpec {
	for i := range d.Operations {
		if d.Operations[i].Name == name {
			return &d.Operations[i]
		}
	}
	return nil
}

// RequiredParameters returns the names of required parameters in
// declaration order.
func (o *OperationSpec) RequiredParameters() []string {
	var required []string
	for _, p := range o.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// Registry is the static specialist roster, populated once at startup
// from configuration. Read-only after construction, so concurrent
// cycles need no locking to consult it.
type Registry struct {
	byName  map[string]*SpecialistDescriptor
	ordered []*SpecialistDescriptor // priority order, lowest number first
}

// NewRegistry builds a registry from validated configuration. The
// config layer has already rejected duplicate names and empty
// operation sets, so construction cannot fail after a successful
// config load.
func NewRegistry(config *SupervisorConfigFile) *Registry {
	r := &Registry{
		byName: make(map[string]*SpecialistDescriptor),
	}

	for _, sc := range config.Spec.Specialists {
		desc := &SpecialistDescriptor{
			Name:        sc.Name,
			Description: sc.Description,
			Priority:    sc.Priority,
			Keywords:    sc.Keywords,
		}
		for _, oc := range sc.Operations {
			op := OperationSpec{
				Name:     oc.Name,
				Keywords: oc.Keywords,
				Mutating: oc.Mutating,
			}
			for _, pc := range oc.Parameters {
				op.Parameters = append(op.Parameters, ParameterSpec{
					Name:     pc.Name,
					Type:     pc.Type,
					Required: pc.Required,
				})
			}
			desc.Operations = append(desc.Operations, op)
		}
		r.byName[desc.Name] = desc
		r.ordered = append(r.ordered, desc)
	}

	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})

	return r
}

// Describe returns the descriptor for a specialist name, or
// types.ErrNotFound for an unknown specialist.
func (r *Registry) Describe(name string) (*SpecialistDescriptor, error) {
	desc, ok := r.byName[name]
	if !ok {
		return nil, types.ErrNotFound
	}
	return desc, nil
}

// List returns all descriptors in priority order.
func (r *Registry) List() []*SpecialistDescriptor {
	out := make([]*SpecialistDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// FindByOperation returns all specialists advertising the named
// operation, in priority order. The first entry wins tie-breaks.
func (r *Registry) FindByOperation(operation string) []*SpecialistDescriptor {
	var matches []*SpecialistDescriptor
	for _, desc := range r.ordered {
		if desc.Operation(operation) != nil {
			matches = append(matches, desc)
		}
	}
	return matches
}

// PriorityOf returns the priority of a specialist, or a large value
// for unknown names so they sort last.
func (r *Registry) PriorityOf(name string) int {
	if desc, ok := r.byName[name]; ok {
		return desc.Priority
	}
	return int(^uint(0) >> 1)
}
