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
	"errors"
	"fmt"
	"time"

	"tripflow/shared/logger"
	"tripflow/shared/types"
)

// FlightHandler implements the flight-booking specialist over the
// relational store.
type FlightHandler struct {
	db  *sql.DB
	log *logger.Logger
}

// NewFlightHandler creates the flight specialist.
func NewFlightHandler(db *sql.DB) *FlightHandler {
	return &FlightHandler{db: db, log: logger.New("flight-booking")}
}

// Handle dispatches one flight operation.
func (h *FlightHandler) Handle(ctx context.Context, operation string, args map[string]string) (map[string]string, error) {
	switch operation {
	case "search_flights":
		return h.searchFlights(ctx, args)
	case "book_flight":
		return h.bookFlight(ctx, args)
	case "cancel_flight":
		return h.cancelFlight(ctx, args)
	default:
		return nil, types.ErrNotFound
	}
}

const flightSearchQuery = `
SELECT f.flight_id, f.flight_number, al.airline_name,
       dep.airport_code AS origin, arr.airport_code AS destination,
       f.departure_time, f.arrival_time, f.base_price, f.available_seats
FROM flights f
JOIN airlines al ON al.airline_id = f.airline_id
JOIN airports dep ON dep.airport_id = f.origin_airport_id
JOIN airports arr ON arr.airport_id = f.destination_airport_id
WHERE (dep.airport_code = $1 OR dep.city ILIKE '%' || $1 || '%')
  AND (arr.airport_code = $2 OR arr.city ILIKE '%' || $2 || '%')
  AND f.departure_time::date = $3::date
  AND f.available_seats >= $4
ORDER BY f.base_price`

// searchFlights finds flights matching origin, destination and date
// with enough seats. Read-only, safe to retry.
func (h *FlightHandler) searchFlights(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "origin", "destination", "departure_date", "passengers"); err != nil {
		return nil, err
	}
	passengers, err := intArg(args, "passengers", 1, 9)
	if err != nil {
		return nil, err
	}
	if _, err := dateArg(args, "departure_date"); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, flightSearchQuery,
		args["origin"], args["destination"], args["departure_date"], passengers)
	if err != nil {
		return nil, dbError("search_flights", err)
	}
	defer rows.Close()

	flights, count, err := rowsToJSON(rows)
	if err != nil {
		return nil, dbError("search_flights", err)
	}
	if count == 0 {
		return nil, types.NewValidationError("no flights found from %s to %s on %s",
			args["origin"], args["destination"], args["departure_date"])
	}

	result := map[string]string{
		"flights":      flights,
		"flight_count": fmt.Sprintf("%d", count),
		"origin":       args["origin"],
		"destination":  args["destination"],
	}

	// Optional return leg.
	if returnDate := args["return_date"]; returnDate != "" {
		if _, err := dateArg(args, "return_date"); err != nil {
			return nil, err
		}
		returnRows, err := h.db.QueryContext(ctx, flightSearchQuery,
			args["destination"], args["origin"], returnDate, passengers)
		if err != nil {
			return nil, dbError("search_flights", err)
		}
		defer returnRows.Close()

		returnFlights, returnCount, err := rowsToJSON(returnRows)
		if err != nil {
			return nil, dbError("search_flights", err)
		}
		result["return_flights"] = returnFlights
		result["return_flight_count"] = fmt.Sprintf("%d", returnCount)
	}

	return result, nil
}

// bookFlight reserves one seat on a flight inside a transaction.
// Mutating: the supervisor only retries it under an idempotency key.
func (h *FlightHandler) bookFlight(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "flight_id", "passenger_name"); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("book_flight", err)
	}
	defer tx.Rollback()

	var price string
	var seats int
	err = tx.QueryRowContext(ctx,
		`SELECT base_price, available_seats FROM flights WHERE flight_id = $1 FOR UPDATE`,
		args["flight_id"]).Scan(&price, &seats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("flight %s not found", args["flight_id"])
	}
	if err != nil {
		return nil, dbError("book_flight", err)
	}
	if seats < 1 {
		return nil, types.NewValidationError("flight %s is fully booked", args["flight_id"])
	}

	reference := bookingReference("FL", time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO flight_bookings (booking_reference, flight_id, passenger_name, total_price, booking_status, created_at)
		 VALUES ($1, $2, $3, $4, 'confirmed', NOW())`,
		reference, args["flight_id"], args["passenger_name"], price); err != nil {
		return nil, dbError("book_flight", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE flights SET available_seats = available_seats - 1 WHERE flight_id = $1`,
		args["flight_id"]); err != nil {
		return nil, dbError("book_flight", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("book_flight", err)
	}

	h.log.Info("", "flight booked", map[string]interface{}{
		"booking_reference": reference,
		"flight_id":         args["flight_id"],
	})

	return map[string]string{
		"booking_reference": reference,
		"booking_status":    "confirmed",
		"total_price":       price,
	}, nil
}

// cancelFlight cancels a confirmed booking and releases the seat.
func (h *FlightHandler) cancelFlight(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "booking_reference"); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("cancel_flight", err)
	}
	defer tx.Rollback()

	var flightID string
	err = tx.QueryRowContext(ctx,
		`UPDATE flight_bookings SET booking_status = 'cancelled'
		 WHERE booking_reference = $1 AND booking_status = 'confirmed'
		 RETURNING flight_id`,
		args["booking_reference"]).Scan(&flightID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("no confirmed booking %s", args["booking_reference"])
	}
	if err != nil {
		return nil, dbError("cancel_flight", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE flights SET available_seats = available_seats + 1 WHERE flight_id = $1`,
		flightID); err != nil {
		return nil, dbError("cancel_flight", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("cancel_flight", err)
	}

	return map[string]string{
		"booking_reference": args["booking_reference"],
		"booking_status":    "cancelled",
	}, nil
}
