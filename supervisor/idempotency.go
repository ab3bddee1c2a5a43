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
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore caches results of mutating operations keyed by a
// caller-supplied idempotency key. A retried booking with the same key
// replays the stored result instead of booking twice; this is what
// makes retrying mutating calls safe.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultIdempotencyTTL is how long stored results are replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

// NewIdempotencyStore connects to Redis at the given address. Returns
// an error if the server is unreachable so startup can fail fast
// instead of discovering the problem mid-booking.
func NewIdempotencyStore(addr, password string) (*IdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	log.Printf("[Idempotency] Connected to Redis at %s", addr)
	return &IdempotencyStore{
		client: client,
		ttl:    DefaultIdempotencyTTL,
	}, nil
}

// storageKey namespaces idempotency keys per specialist operation so
// the same caller key can safely cover a flight and a hotel booking.
func storageKey(specialist, operation, key string) string {
	return fmt.Sprintf("tripflow:idem:%s:%s:%s", specialist, operation, key)
}

// Get returns a previously stored result for the key, if any.
func (s *IdempotencyStore) Get(ctx context.Context, specialist, operation, key string) (map[string]string, bool, error) {
	raw, err := s.client.Get(ctx, storageKey(specialist, operation, key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	return payload, true, nil
}

// Put stores a successful result under the key.
func (s *IdempotencyStore) Put(ctx context.Context, specialist, operation, key string, payload map[string]string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency entry: %w", err)
	}

	if err := s.client.Set(ctx, storageKey(specialist, operation, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency store failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *IdempotencyStore) Close() error {
	return s.client.Close()
}
