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
	"math/rand"
	"time"

	"tripflow/shared/types"
)

// maxBackoff caps the exponential backoff between retry attempts.
const maxBackoff = 5 * time.Second

// Invoker performs a single specialist call with timeout and retry
// policy. Transient transport errors are retried with exponential
// backoff; validation errors are not. Mutating operations are only
// retried when the call carries an idempotency key, in which case the
// store makes replays safe.
type Invoker struct {
	transport   Transport
	idempotency *IdempotencyStore // nil disables replay protection
	maxAttempts int
	baseDelay   time.Duration
}

// NewInvoker creates an invoker over the transport. idempotency may be
// nil, which disables replay protection and therefore retries of
// mutating operations.
func NewInvoker(transport Transport, settings CoordinationSettings, idempotency *IdempotencyStore) *Invoker {
	return &Invoker{
		transport:   transport,
		idempotency: idempotency,
		maxAttempts: settings.RetryMaxAttempts,
		baseDelay:   settings.RetryBaseDelay,
	}
}

// Invoke performs the call and returns a tagged OperationResult. It
// never returns an error: every failure mode is captured in the result
// so the coordinator can proceed with partial successes.
func (inv *Invoker) Invoke(ctx context.Context, call OperationCall, timeout time.Duration) OperationResult {
	start := time.Now()

	// Replay a previously stored result for this idempotency key
	// instead of re-invoking the mutation.
	if call.Mutating && call.IdempotencyKey != "" && inv.idempotency != nil {
		if payload, hit, err := inv.idempotency.Get(ctx, call.Specialist, call.Operation, call.IdempotencyKey); err != nil {
			log.Printf("[Invoker] Idempotency lookup failed for %s/%s: %v", call.Specialist, call.Operation, err)
		} else if hit {
			log.Printf("[Invoker] Replaying stored result for %s/%s (key=%s)", call.Specialist, call.Operation, call.IdempotencyKey)
			result := SuccessResult(call, payload)
			result.Duration = time.Since(start)
			return result
		}
	}

	maxAttempts := inv.maxAttempts
	if call.Mutating && (call.IdempotencyKey == "" || inv.idempotency == nil) {
		// A mutation without replay protection must not be blindly
		// retried; a second booking is worse than a failed one.
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		payload, err := inv.transport.Call(attemptCtx, call.Specialist, call.Operation, call.Arguments)
		cancel()

		if err == nil {
			inv.storeIdempotent(ctx, call, payload)
			result := SuccessResult(call, payload)
			result.Attempts = attempt
			result.Duration = time.Since(start)
			observeSpecialistCall(call.Specialist, call.Operation, "success", result.Duration)
			return result
		}

		lastErr = err

		// Cycle-level cancellation overrides everything else.
		if ctx.Err() != nil {
			result := FailureResult(call, types.FailureTimeout, ctx.Err().Error())
			result.Attempts = attempt
			result.Duration = time.Since(start)
			observeSpecialistCall(call.Specialist, call.Operation, "timeout", result.Duration)
			return result
		}

		if !types.IsRetryable(err) {
			result := FailureResult(call, types.ClassifyFailure(err), err.Error())
			result.Attempts = attempt
			result.Duration = time.Since(start)
			observeSpecialistCall(call.Specialist, call.Operation, string(result.FailureKind), result.Duration)
			return result
		}

		if attempt == maxAttempts {
			break
		}

		backoff := inv.backoffDelay(attempt)
		log.Printf("[Invoker] Attempt %d/%d for %s/%s failed (%v), retrying in %s",
			attempt, maxAttempts, call.Specialist, call.Operation, err, backoff)
		incInvokerRetry(call.Specialist, call.Operation)

		select {
		case <-ctx.Done():
			result := FailureResult(call, types.FailureTimeout, ctx.Err().Error())
			result.Attempts = attempt
			result.Duration = time.Since(start)
			observeSpecialistCall(call.Specialist, call.Operation, "timeout", result.Duration)
			return result
		case <-time.After(backoff):
		}
	}

	// A single-attempt mutation keeps its original failure kind; only
	// genuinely exhausted retry loops report RetriesExhausted.
	kind := types.FailureRetriesExhausted
	if maxAttempts == 1 {
		kind = types.ClassifyFailure(lastErr)
	}

	result := FailureResult(call, kind, lastErr.Error())
	result.Attempts = maxAttempts
	result.Duration = time.Since(start)
	observeSpecialistCall(call.Specialist, call.Operation, string(kind), result.Duration)
	return result
}

// backoffDelay computes exponential backoff with jitter for the given
// attempt number (1-based).
func (inv *Invoker) backoffDelay(attempt int) time.Duration {
	backoff := inv.baseDelay << uint(attempt-1)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	// Up to 10% jitter to avoid thundering herd on a recovering handler.
	jitter := time.Duration(rand.Int63n(int64(backoff)/10 + 1))
	return backoff + jitter
}

// storeIdempotent records a successful mutating result for replay.
func (inv *Invoker) storeIdempotent(ctx context.Context, call OperationCall, payload map[string]string) {
	if !call.Mutating || call.IdempotencyKey == "" || inv.idempotency == nil {
		return
	}
	if err := inv.idempotency.Put(ctx, call.Specialist, call.Operation, call.IdempotencyKey, payload); err != nil {
		log.Printf("[Invoker] Failed to store idempotency entry for %s/%s: %v", call.Specialist, call.Operation, err)
	}
}
