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

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for coordination cycles and specialist calls
var (
	promCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripflow_cycles_total",
			Help: "Total number of coordination cycles by outcome",
		},
		[]string{"outcome"},
	)
	promCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripflow_cycle_duration_milliseconds",
			Help:    "Coordination cycle duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)
	promSpecialistCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripflow_specialist_calls_total",
			Help: "Total number of specialist invocations by outcome",
		},
		[]string{"specialist", "operation", "status"},
	)
	promSpecialistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripflow_specialist_call_duration_milliseconds",
			Help:    "Specialist call duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
		},
		[]string{"specialist", "operation"},
	)
	promInvokerRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripflow_invoker_retries_total",
			Help: "Total number of invoker retry attempts",
		},
		[]string{"specialist", "operation"},
	)
)

func init() {
	prometheus.MustRegister(promCycles)
	prometheus.MustRegister(promCycleDuration)
	prometheus.MustRegister(promSpecialistCalls)
	prometheus.MustRegister(promSpecialistDuration)
	prometheus.MustRegister(promInvokerRetries)
}

func incCycle(outcome string) {
	promCycles.WithLabelValues(outcome).Inc()
}

func observeCycleDuration(d time.Duration) {
	promCycleDuration.Observe(float64(d.Milliseconds()))
}

func observeSpecialistCall(specialist, operation, status string, d time.Duration) {
	promSpecialistCalls.WithLabelValues(specialist, operation, status).Inc()
	promSpecialistDuration.WithLabelValues(specialist, operation).Observe(float64(d.Milliseconds()))
}

func incInvokerRetry(specialist, operation string) {
	promInvokerRetries.WithLabelValues(specialist, operation).Inc()
}
