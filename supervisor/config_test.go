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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSupervisorConfig(t *testing.T) {
	config, err := ParseSupervisorConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-supervisor", config.Metadata.Name)
	require.Len(t, config.Spec.Specialists, 2)
	assert.Equal(t, "flight-booking", config.Spec.Specialists[0].Name)
	assert.Equal(t, 1, config.Spec.Specialists[0].Priority)
	assert.True(t, config.Spec.Specialists[0].Operations[1].Mutating)
}

func TestCoordinationSettingsParsing(t *testing.T) {
	config, err := ParseSupervisorConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	settings, err := config.CoordinationSettings()
	require.NoError(t, err)

	assert.Equal(t, 4, settings.MaxConcurrency)
	assert.Equal(t, 200*time.Millisecond, settings.PerCallTimeout)
	assert.Equal(t, time.Second, settings.CycleDeadline)
	assert.Equal(t, 3, settings.RetryMaxAttempts)
	assert.Equal(t, time.Millisecond, settings.RetryBaseDelay)
}

func TestCoordinationSettingsDefaults(t *testing.T) {
	config := &SupervisorConfigFile{}

	settings, err := config.CoordinationSettings()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxConcurrency, settings.MaxConcurrency)
	assert.Equal(t, DefaultPerCallTimeout, settings.PerCallTimeout)
	assert.Equal(t, DefaultCycleDeadline, settings.CycleDeadline)
	assert.Equal(t, DefaultRetryMaxAttempts, settings.RetryMaxAttempts)
	assert.Equal(t, DefaultRetryBaseDelay, settings.RetryBaseDelay)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(yaml string) string
		wantErr string
	}{
		{
			name:    "wrong kind",
			mutate:  func(y string) string { return strings.Replace(y, "kind: SupervisorConfig", "kind: AgentConfig", 1) },
			wantErr: "unsupported kind",
		},
		{
			name:    "wrong apiVersion",
			mutate:  func(y string) string { return strings.Replace(y, "tripflow.io/v1", "tripflow.io/v2", 1) },
			wantErr: "unsupported apiVersion",
		},
		{
			name:    "duplicate specialist",
			mutate:  func(y string) string { return strings.Replace(y, "name: hotel-booking", "name: flight-booking", 1) },
			wantErr: "duplicate specialist",
		},
		{
			name:    "bad duration",
			mutate:  func(y string) string { return strings.Replace(y, "per_call_timeout: 200ms", "per_call_timeout: soon", 1) },
			wantErr: "invalid per_call_timeout",
		},
		{
			name: "unknown fallback",
			mutate: func(y string) string {
				return strings.Replace(y, "retry_base_delay: 1ms", "retry_base_delay: 1ms\n    fallback_specialist: concierge", 1)
			},
			wantErr: "fallback_specialist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSupervisorConfig([]byte(tt.mutate(testConfigYAML)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRejectsZeroOperations(t *testing.T) {
	yaml := `
apiVersion: tripflow.io/v1
kind: SupervisorConfig
metadata:
  name: empty
spec:
  specialists:
    - name: flight-booking
      priority: 1
`
	_, err := ParseSupervisorConfig([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero operations")
}

func TestLoadSupervisorConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	config, err := LoadSupervisorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-supervisor", config.Metadata.Name)

	_, err = LoadSupervisorConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
