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

// CarHandler implements the car-rental specialist.
type CarHandler struct {
	db  *sql.DB
	log *logger.Logger
}

// NewCarHandler creates the car-rental specialist.
func NewCarHandler(db *sql.DB) *CarHandler {
	return &CarHandler{db: db, log: logger.New("car-rental")}
}

// Handle dispatches one car-rental operation.
func (h *CarHandler) Handle(ctx context.Context, operation string, args map[string]string) (map[string]string, error) {
	switch operation {
	case "search_cars":
		return h.searchCars(ctx, args)
	case "book_car":
		return h.bookCar(ctx, args)
	case "cancel_rental":
		return h.cancelRental(ctx, args)
	default:
		return nil, types.ErrNotFound
	}
}

const carSearchQuery = `
SELECT av.vehicle_id, av.make, av.model, av.daily_rate,
       vc.category_name, vc.passenger_capacity,
       loc.location_name AS pickup_location
FROM available_vehicles av
JOIN vehicle_categories vc ON vc.category_id = av.category_id
JOIN car_rental_locations loc ON loc.location_id = av.location_id
WHERE loc.city ILIKE '%' || $1 || '%'
  AND av.is_available = TRUE
  AND ($2 = '' OR vc.category_name ILIKE '%' || $2 || '%')
ORDER BY av.daily_rate`

// searchCars finds available vehicles at the pickup location.
func (h *CarHandler) searchCars(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "pickup_location", "dropoff_location", "pickup_date", "dropoff_date"); err != nil {
		return nil, err
	}
	pickup, err := dateArg(args, "pickup_date")
	if err != nil {
		return nil, err
	}
	dropoff, err := dateArg(args, "dropoff_date")
	if err != nil {
		return nil, err
	}
	if !dropoff.After(pickup) {
		return nil, types.NewValidationError("dropoff_date must be after pickup_date")
	}

	rows, err := h.db.QueryContext(ctx, carSearchQuery, args["pickup_location"], args["car_type"])
	if err != nil {
		return nil, dbError("search_cars", err)
	}
	defer rows.Close()

	cars, count, err := rowsToJSON(rows)
	if err != nil {
		return nil, dbError("search_cars", err)
	}
	if count == 0 {
		return nil, types.NewValidationError("no cars available in %s", args["pickup_location"])
	}

	return map[string]string{
		"cars":            cars,
		"car_count":       fmt.Sprintf("%d", count),
		"pickup_location": args["pickup_location"],
		"rental_days":     fmt.Sprintf("%d", int(dropoff.Sub(pickup).Hours()/24)),
	}, nil
}

// bookCar reserves a vehicle for the rental period.
func (h *CarHandler) bookCar(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "vehicle_id", "pickup_date", "dropoff_date", "driver_name"); err != nil {
		return nil, err
	}
	pickup, err := dateArg(args, "pickup_date")
	if err != nil {
		return nil, err
	}
	dropoff, err := dateArg(args, "dropoff_date")
	if err != nil {
		return nil, err
	}
	days := int(dropoff.Sub(pickup).Hours() / 24)
	if days < 1 {
		return nil, types.NewValidationError("rental must be at least one day")
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("book_car", err)
	}
	defer tx.Rollback()

	var dailyRate float64
	var available bool
	err = tx.QueryRowContext(ctx,
		`SELECT daily_rate, is_available FROM available_vehicles WHERE vehicle_id = $1 FOR UPDATE`,
		args["vehicle_id"]).Scan(&dailyRate, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("vehicle %s not found", args["vehicle_id"])
	}
	if err != nil {
		return nil, dbError("book_car", err)
	}
	if !available {
		return nil, types.NewValidationError("vehicle %s is no longer available", args["vehicle_id"])
	}

	reference := bookingReference("CR", time.Now())
	total := dailyRate * float64(days)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO car_rental_bookings (booking_reference, vehicle_id, driver_name, pickup_date, dropoff_date, total_price, booking_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'confirmed', NOW())`,
		reference, args["vehicle_id"], args["driver_name"],
		args["pickup_date"], args["dropoff_date"], total); err != nil {
		return nil, dbError("book_car", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE available_vehicles SET is_available = FALSE WHERE vehicle_id = $1`,
		args["vehicle_id"]); err != nil {
		return nil, dbError("book_car", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("book_car", err)
	}

	h.log.Info("", "car booked", map[string]interface{}{
		"booking_reference": reference,
		"vehicle_id":        args["vehicle_id"],
		"days":              days,
	})

	return map[string]string{
		"booking_reference": reference,
		"booking_status":    "confirmed",
		"rental_days":       fmt.Sprintf("%d", days),
		"total_price":       fmt.Sprintf("%.2f", total),
	}, nil
}

// cancelRental cancels a confirmed rental and frees the vehicle.
func (h *CarHandler) cancelRental(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "booking_id"); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("cancel_rental", err)
	}
	defer tx.Rollback()

	var vehicleID string
	err = tx.QueryRowContext(ctx,
		`UPDATE car_rental_bookings SET booking_status = 'cancelled'
		 WHERE booking_reference = $1 AND booking_status = 'confirmed'
		 RETURNING vehicle_id`,
		args["booking_id"]).Scan(&vehicleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("no confirmed rental %s", args["booking_id"])
	}
	if err != nil {
		return nil, dbError("cancel_rental", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE available_vehicles SET is_available = TRUE WHERE vehicle_id = $1`,
		vehicleID); err != nil {
		return nil, dbError("cancel_rental", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("cancel_rental", err)
	}

	return map[string]string{
		"booking_reference": args["booking_id"],
		"booking_status":    "cancelled",
	}, nil
}
