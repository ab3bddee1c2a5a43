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

package specialists

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripflow/shared/logger"
	"tripflow/shared/types"
)

// PlannerHandler implements the travel-planner specialist: destination
// research, itinerary generation and advisories. It is the keyword
// fallback, so generic travel requests land here.
type PlannerHandler struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPlannerHandler creates the travel-planner specialist.
func NewPlannerHandler(db *sql.DB) *PlannerHandler {
	return &PlannerHandler{db: db, log: logger.New("travel-planner")}
}

// Handle dispatches one planner operation.
func (h *PlannerHandler) Handle(ctx context.Context, operation string, args map[string]string) (map[string]string, error) {
	switch operation {
	case "get_destination_info":
		return h.destinationInfo(ctx, args)
	case "create_itinerary":
		return h.createItinerary(ctx, args)
	case "get_travel_advisories":
		return h.travelAdvisories(ctx, args)
	default:
		return nil, types.ErrNotFound
	}
}

// destinationInfo returns destination details plus top attractions.
func (h *PlannerHandler) destinationInfo(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "destination"); err != nil {
		return nil, err
	}

	var destinationID int
	var name, country, description, bestSeason string
	err := h.db.QueryRowContext(ctx,
		`SELECT destination_id, destination_name, country, description, best_season
		 FROM destinations WHERE destination_name ILIKE '%' || $1 || '%'
		 ORDER BY destination_id LIMIT 1`,
		args["destination"]).Scan(&destinationID, &name, &country, &description, &bestSeason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("unknown destination %q", args["destination"])
	}
	if err != nil {
		return nil, dbError("get_destination_info", err)
	}

	result := map[string]string{
		"destination": name,
		"country":     country,
		"description": description,
		"best_season": bestSeason,
	}

	// info_type narrows the answer; default includes attractions.
	infoType := args["info_type"]
	if infoType == "" || infoType == "attractions" {
		rows, err := h.db.QueryContext(ctx,
			`SELECT attraction_name, category, description, entry_fee
			 FROM attractions WHERE destination_id = $1
			 ORDER BY rating DESC LIMIT 10`,
			destinationID)
		if err != nil {
			return nil, dbError("get_destination_info", err)
		}
		defer rows.Close()

		attractions, count, err := rowsToJSON(rows)
		if err != nil {
			return nil, dbError("get_destination_info", err)
		}
		result["attractions"] = attractions
		result["attraction_count"] = fmt.Sprintf("%d", count)
	}

	return result, nil
}

// createItinerary builds a day-by-day plan from the destination's top
// attractions and stores it.
func (h *PlannerHandler) createItinerary(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "destination", "duration"); err != nil {
		return nil, err
	}
	duration, err := intArg(args, "duration", 1, 30)
	if err != nil {
		return nil, err
	}

	var destinationID int
	var name string
	err = h.db.QueryRowContext(ctx,
		`SELECT destination_id, destination_name FROM destinations
		 WHERE destination_name ILIKE '%' || $1 || '%'
		 ORDER BY destination_id LIMIT 1`,
		args["destination"]).Scan(&destinationID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("unknown destination %q", args["destination"])
	}
	if err != nil {
		return nil, dbError("create_itinerary", err)
	}

	interestFilter := args["interests"]
	rows, err := h.db.QueryContext(ctx,
		`SELECT attraction_name, category, recommended_duration
		 FROM attractions WHERE destination_id = $1
		   AND ($2 = '' OR category ILIKE '%' || $2 || '%')
		 ORDER BY rating DESC`,
		destinationID, interestFilter)
	if err != nil {
		return nil, dbError("create_itinerary", err)
	}
	defer rows.Close()

	type stop struct {
		Attraction string `json:"attraction"`
		Category   string `json:"category"`
		Duration   string `json:"recommended_duration"`
	}
	var stops []stop
	for rows.Next() {
		var s stop
		if err := rows.Scan(&s.Attraction, &s.Category, &s.Duration); err != nil {
			return nil, dbError("create_itinerary", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("create_itinerary", err)
	}
	if len(stops) == 0 {
		return nil, types.NewValidationError("no attractions found for %s", name)
	}

	// Round-robin the attractions across the days of the stay.
	days := make([][]stop, duration)
	for i, s := range stops {
		day := i % duration
		days[day] = append(days[day], s)
	}
	plan, err := json.Marshal(days)
	if err != nil {
		return nil, dbError("create_itinerary", err)
	}

	reference := bookingReference("IT", time.Now())
	if _, err := h.db.ExecContext(ctx,
		`INSERT INTO travel_itineraries (itinerary_reference, destination_id, duration_days, interests, budget, plan, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		reference, destinationID, duration, interestFilter, args["budget"], string(plan)); err != nil {
		return nil, dbError("create_itinerary", err)
	}

	h.log.Info("", "itinerary created", map[string]interface{}{
		"itinerary_reference": reference,
		"destination":         name,
		"duration_days":       duration,
	})

	return map[string]string{
		"itinerary_reference": reference,
		"destination":         name,
		"duration_days":       fmt.Sprintf("%d", duration),
		"itinerary":           string(plan),
	}, nil
}

// travelAdvisories returns active advisories for a destination. An
// advisory-free destination is a successful empty answer, not an error.
func (h *PlannerHandler) travelAdvisories(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "destination"); err != nil {
		return nil, err
	}

	var destinationID int
	err := h.db.QueryRowContext(ctx,
		`SELECT destination_id FROM destinations
		 WHERE destination_name ILIKE '%' || $1 || '%'
		 ORDER BY destination_id LIMIT 1`,
		args["destination"]).Scan(&destinationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("unknown destination %q", args["destination"])
	}
	if err != nil {
		return nil, dbError("get_travel_advisories", err)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT advisory_level, title, details, issued_at
		 FROM travel_advisories
		 WHERE destination_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		 ORDER BY issued_at DESC`,
		destinationID)
	if err != nil {
		return nil, dbError("get_travel_advisories", err)
	}
	defer rows.Close()

	advisories, count, err := rowsToJSON(rows)
	if err != nil {
		return nil, dbError("get_travel_advisories", err)
	}

	return map[string]string{
		"destination":    args["destination"],
		"advisories":     advisories,
		"advisory_count": fmt.Sprintf("%d", count),
	}, nil
}
