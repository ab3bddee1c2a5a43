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

package main

import (
	"context"
	"log"
	"os"

	"tripflow/specialists"
	"tripflow/supervisor"
)

func main() {
	opts := supervisor.RunOptions{}

	// With a remote specialist endpoint the supervisor needs no local
	// handlers and no database connection of its own.
	if os.Getenv("SPECIALIST_ENDPOINT") == "" {
		db, err := specialists.OpenStore(context.Background())
		if err != nil {
			log.Fatalf("Store error: %v", err)
		}
		defer db.Close()

		opts.Handlers = map[string]supervisor.SpecialistHandler{
			"flight-booking": specialists.NewFlightHandler(db),
			"hotel-booking":  specialists.NewHotelHandler(db),
			"car-rental":     specialists.NewCarHandler(db),
			"travel-planner": specialists.NewPlannerHandler(db),
		}
	}

	supervisor.Run(opts)
}
