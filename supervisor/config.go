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
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SupervisorConfigFile represents a complete supervisor configuration file
// following the Kubernetes-style apiVersion/kind pattern
type SupervisorConfigFile struct {
	APIVersion string               `yaml:"apiVersion"`
	Kind       string               `yaml:"kind"`
	Metadata   SupervisorMetadata   `yaml:"metadata"`
	Spec       SupervisorConfigSpec `yaml:"spec"`
}

// SupervisorMetadata contains identification for the supervisor config
type SupervisorMetadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SupervisorConfigSpec defines the coordination settings and the
// specialist roster
type SupervisorConfigSpec struct {
	Coordination CoordinationConfig `yaml:"coordination"`
	Specialists  []SpecialistConfig `yaml:"specialists"`
}

// CoordinationConfig holds the process-wide coordination settings.
// Durations are parsed with time.ParseDuration ("10s", "250ms").
type CoordinationConfig struct {
	MaxConcurrency     int    `yaml:"max_concurrency"`
	PerCallTimeout     string `yaml:"per_call_timeout"`
	CycleDeadline      string `yaml:"cycle_deadline"`
	RetryMaxAttempts   int    `yaml:"retry_max_attempts"`
	RetryBaseDelay     string `yaml:"retry_base_delay"`
	FallbackSpecialist string `yaml:"fallback_specialist,omitempty"`
}

// SpecialistConfig declares one specialist: its routing keywords, its
// priority for tie-breaks and merge conflicts, and its operations
type SpecialistConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Priority    int               `yaml:"priority"`
	Keywords    []string          `yaml:"keywords"`
	Operations  []OperationConfig `yaml:"operations"`
}

// OperationConfig declares one operation and its parameter schema
type OperationConfig struct {
	Name       string            `yaml:"name"`
	Keywords   []string          `yaml:"keywords,omitempty"`
	Mutating   bool              `yaml:"mutating,omitempty"`
	Parameters []ParameterConfig `yaml:"parameters,omitempty"`
}

// ParameterConfig declares one parameter of an operation
type ParameterConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// CoordinationSettings is the validated, duration-parsed form of
// CoordinationConfig used at runtime
type CoordinationSettings struct {
	MaxConcurrency     int
	PerCallTimeout     time.Duration
	CycleDeadline      time.Duration
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	FallbackSpecialist string
}

// Configuration constants
const (
	// DefaultMaxConcurrency caps concurrent specialist calls per cycle
	DefaultMaxConcurrency = 8

	// DefaultPerCallTimeout is the per-invocation timeout
	DefaultPerCallTimeout = 10 * time.Second

	// DefaultCycleDeadline bounds one whole coordination cycle
	DefaultCycleDeadline = 30 * time.Second

	// DefaultRetryMaxAttempts is the total attempts per call (1 + retries)
	DefaultRetryMaxAttempts = 3

	// DefaultRetryBaseDelay is the initial backoff delay
	DefaultRetryBaseDelay = 200 * time.Millisecond

	// ExpectedKind is the required config file kind
	ExpectedKind = "SupervisorConfig"

	// ExpectedAPIVersion is the required config file apiVersion
	ExpectedAPIVersion = "tripflow.io/v1"
)

// LoadSupervisorConfig loads and validates a supervisor configuration file
func LoadSupervisorConfig(path string) (*SupervisorConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseSupervisorConfig(data)
}

// ParseSupervisorConfig parses and validates supervisor configuration YAML
func ParseSupervisorConfig(data []byte) (*SupervisorConfigFile, error) {
	var config SupervisorConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for structural errors. The process
// must not start with an invalid roster, so every problem is fatal.
func (c *SupervisorConfigFile) Validate() error {
	if c.APIVersion != ExpectedAPIVersion {
		return fmt.Errorf("unsupported apiVersion %q, expected %q", c.APIVersion, ExpectedAPIVersion)
	}
	if c.Kind != ExpectedKind {
		return fmt.Errorf("unsupported kind %q, expected %q", c.Kind, ExpectedKind)
	}
	if c.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if len(c.Spec.Specialists) == 0 {
		return fmt.Errorf("spec.specialists must declare at least one specialist")
	}

	seen := make(map[string]bool)
	for i, s := range c.Spec.Specialists {
		if s.Name == "" {
			return fmt.Errorf("specialist %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate specialist name %q", s.Name)
		}
		seen[s.Name] = true

		if len(s.Operations) == 0 {
			return fmt.Errorf("specialist %q declares zero operations", s.Name)
		}

		ops := make(map[string]bool)
		for _, op := range s.Operations {
			if op.Name == "" {
				return fmt.Errorf("specialist %q: operation name is required", s.Name)
			}
			if ops[op.Name] {
				return fmt.Errorf("specialist %q: duplicate operation %q", s.Name, op.Name)
			}
			ops[op.Name] = true

			params := make(map[string]bool)
			for _, p := range op.Parameters {
				if p.Name == "" {
					return fmt.Errorf("operation %s.%s: parameter name is required", s.Name, op.Name)
				}
				if params[p.Name] {
					return fmt.Errorf("operation %s.%s: duplicate parameter %q", s.Name, op.Name, p.Name)
				}
				params[p.Name] = true
			}
		}
	}

	if fb := c.Spec.Coordination.FallbackSpecialist; fb != "" && !seen[fb] {
		return fmt.Errorf("fallback_specialist %q is not a declared specialist", fb)
	}

	if _, err := c.CoordinationSettings(); err != nil {
		return err
	}

	return nil
}

// CoordinationSettings resolves the coordination config into runtime
// settings, applying defaults for anything left unset
func (c *SupervisorConfigFile) CoordinationSettings() (CoordinationSettings, error) {
	cc := c.Spec.Coordination

	settings := CoordinationSettings{
		MaxConcurrency:     cc.MaxConcurrency,
		PerCallTimeout:     DefaultPerCallTimeout,
		CycleDeadline:      DefaultCycleDeadline,
		RetryMaxAttempts:   cc.RetryMaxAttempts,
		RetryBaseDelay:     DefaultRetryBaseDelay,
		FallbackSpecialist: cc.FallbackSpecialist,
	}

	if settings.MaxConcurrency < 0 {
		return settings, fmt.Errorf("max_concurrency must not be negative")
	}
	if settings.MaxConcurrency == 0 {
		settings.MaxConcurrency = DefaultMaxConcurrency
	}

	if settings.RetryMaxAttempts < 0 {
		return settings, fmt.Errorf("retry_max_attempts must not be negative")
	}
	if settings.RetryMaxAttempts == 0 {
		settings.RetryMaxAttempts = DefaultRetryMaxAttempts
	}

	var err error
	if cc.PerCallTimeout != "" {
		settings.PerCallTimeout, err = time.ParseDuration(cc.PerCallTimeout)
		if err != nil {
			return settings, fmt.Errorf("invalid per_call_timeout: %w", err)
		}
	}
	if cc.CycleDeadline != "" {
		settings.CycleDeadline, err = time.ParseDuration(cc.CycleDeadline)
		if err != nil {
			return settings, fmt.Errorf("invalid cycle_deadline: %w", err)
		}
	}
	if cc.RetryBaseDelay != "" {
		settings.RetryBaseDelay, err = time.ParseDuration(cc.RetryBaseDelay)
		if err != nil {
			return settings, fmt.Errorf("invalid retry_base_delay: %w", err)
		}
	}

	if settings.PerCallTimeout <= 0 {
		return settings, fmt.Errorf("per_call_timeout must be positive")
	}
	if settings.CycleDeadline <= 0 {
		return settings, fmt.Errorf("cycle_deadline must be positive")
	}

	return settings, nil
}
