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

// Package types holds the error taxonomy shared between the supervisor
// and the specialist handlers.
//
// Specialist handlers report failures as either *ValidationError (bad
// input, never retried) or *TransportError (infrastructure problem,
// retried with backoff). The supervisor classifies any failure into a
// FailureKind, which is what ends up in the consolidated response.
package types
