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

/*
Package supervisor implements the TripFlow request dispatch and
response consolidation orchestrator.

One coordination cycle handles one user request:

	request -> Analyzer -> Coordinator -> {Invoker x N} -> Consolidator -> response

The Analyzer classifies the request into specialist operations using
the static Registry (keyword matching by default, optionally a
Bedrock-backed model). The Coordinator fans out the resulting calls
concurrently under a configured concurrency cap and cycle deadline,
collecting results in completion order. The Invoker retries transient
transport failures with exponential backoff; mutating operations are
only retried when an idempotency key makes replay safe. The
Consolidator merges whatever completed into a single response,
resolving field conflicts by specialist priority and always
enumerating failures.

# HTTP API

	POST /api/v1/requests     run one coordination cycle
	GET  /api/v1/specialists  list the specialist roster
	GET  /health              liveness
	GET  /prometheus          Prometheus metrics

# Configuration

The specialist roster and coordination settings come from a YAML file
(TRIPFLOW_CONFIG, default config/supervisor.yaml). Optional
environment variables:

	PORT                   HTTP port (default 8080)
	SPECIALIST_ENDPOINT    remote specialist base URL (HTTP transport)
	REDIS_ADDR             idempotency store address
	BEDROCK_REGION         enables the model-backed classifier
	BEDROCK_MODEL          Bedrock model ID override
	SUPERVISOR_JWT_SECRET  enables bearer-token auth on /api/v1
*/
package supervisor
