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

// Package specialists implements the four travel specialist handlers
// (flight-booking, hotel-booking, car-rental, travel-planner) over the
// relational travel store.
//
// Each handler exposes Handle(ctx, operation, args) and reports
// failures through the shared taxonomy: *types.ValidationError for bad
// input or empty results (never retried) and *types.TransportError for
// database problems (retried by the supervisor). Bookings generate a
// reference of the form FL/HT/CR/IT + timestamp.
package specialists
