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
	"log"
	"time"

	"tripflow/shared/logger"
	"tripflow/shared/types"
)

// CycleState is the coordinator's per-request state machine position.
type CycleState string

const (
	StateReceived      CycleState = "received"
	StateAnalyzing     CycleState = "analyzing"
	StateDispatching   CycleState = "dispatching"
	StateAwaiting      CycleState = "awaiting"
	StateConsolidating CycleState = "consolidating"
	StateDone          CycleState = "done"
)

// Coordinator runs one coordination cycle per incoming request:
// Received -> Analyzing -> Dispatching -> Awaiting -> Consolidating -> Done.
// Cycles for distinct requests are fully independent; the read-only
// registry is the only shared state. All cycle state is discarded once
// the consolidated response is produced.
type Coordinator struct {
	analyzer     *Analyzer
	invoker      *Invoker
	consolidator *Consolidator
	settings     CoordinationSettings
	log          *logger.Logger
}

// NewCoordinator wires the cycle components together.
func NewCoordinator(analyzer *Analyzer, invoker *Invoker, consolidator *Consolidator, settings CoordinationSettings) *Coordinator {
	return &Coordinator{
		analyzer:     analyzer,
		invoker:      invoker,
		consolidator: consolidator,
		settings:     settings,
		log:          logger.New("coordinator"),
	}
}

// HandleRequest runs one full coordination cycle. Analyzer-level
// errors (NoActionableIntent, MissingParameters, unknown specialist)
// terminate the cycle with the error; they are not retried because
// retrying cannot change the outcome. Once calls are dispatched the
// cycle never fails outright: it consolidates whatever completed and
// enumerates the failures.
func (c *Coordinator) HandleRequest(ctx context.Context, req Request) (*ConsolidatedResponse, error) {
	start := time.Now()
	state := StateReceived
	c.transition(req.ID, &state, StateAnalyzing)

	calls, err := c.analyzer.Analyze(ctx, req)
	if err != nil {
		c.transition(req.ID, &state, StateDone)
		c.log.ErrorWithErr(req.ID, "analysis terminated cycle", err, map[string]interface{}{
			"urgency": DetectUrgency(req.Text),
		})
		incCycle("analyzer_error")
		return nil, err
	}

	c.transition(req.ID, &state, StateDispatching)
	c.log.Info(req.ID, "dispatching specialist calls", map[string]interface{}{
		"calls":   len(calls),
		"urgency": DetectUrgency(req.Text),
	})

	results := c.dispatch(ctx, req.ID, calls, &state)

	c.transition(req.ID, &state, StateConsolidating)
	response := c.consolidator.Consolidate(req.ID, results)

	c.transition(req.ID, &state, StateDone)
	outcome := "success"
	if len(response.Failures) > 0 {
		outcome = "partial_failure"
		if len(response.Contributors) == 0 {
			outcome = "failure"
		}
	}
	incCycle(outcome)
	observeCycleDuration(time.Since(start))

	c.log.InfoWithDuration(req.ID, "cycle completed", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"outcome":      outcome,
		"contributors": len(response.Contributors),
		"failures":     len(response.Failures),
	})

	return response, nil
}

// dispatch fans out the calls concurrently, bounded by the configured
// max concurrency, and collects results in completion order until all
// resolve or the cycle deadline fires. On deadline, still-pending
// calls are cancelled and recorded as Failure(Timeout).
func (c *Coordinator) dispatch(ctx context.Context, requestID string, calls []OperationCall, state *CycleState) []OperationResult {
	cycleCtx, cancel := context.WithTimeout(ctx, c.settings.CycleDeadline)
	defer cancel()

	sem := make(chan struct{}, c.settings.MaxConcurrency)
	// Buffered to call count so late finishers never block after the
	// deadline has fired and collection has stopped.
	completed := make(chan OperationResult, len(calls))

	for _, call := range calls {
		go func(call OperationCall) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-cycleCtx.Done():
				completed <- FailureResult(call, types.FailureTimeout, cycleCtx.Err().Error())
				return
			}
			completed <- c.invoker.Invoke(cycleCtx, call, c.settings.PerCallTimeout)
		}(call)
	}

	c.transition(requestID, state, StateAwaiting)

	pending := make(map[string]OperationCall, len(calls))
	for _, call := range calls {
		pending[call.ID] = call
	}

	// Insertion order is completion order, not call order.
	results := make([]OperationResult, 0, len(calls))
	for len(results) < len(calls) {
		select {
		case result := <-completed:
			delete(pending, result.Call.ID)
			results = append(results, result)
		case <-cycleCtx.Done():
			log.Printf("[Coordinator] Cycle deadline elapsed with %d call(s) pending", len(pending))
			for _, call := range pending {
				results = append(results, FailureResult(call, types.FailureTimeout, "cycle deadline exceeded"))
			}
			return results
		}
	}

	return results
}

// transition advances the state machine and logs the step.
func (c *Coordinator) transition(requestID string, state *CycleState, next CycleState) {
	c.log.Debug(requestID, "state transition", map[string]interface{}{
		"from": string(*state),
		"to":   string(next),
	})
	*state = next
}
