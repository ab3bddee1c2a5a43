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

// HotelHandler implements the hotel-booking specialist.
type HotelHandler struct {
	db  *sql.DB
	log *logger.Logger
}

// NewHotelHandler creates the hotel specialist.
func NewHotelHandler(db *sql.DB) *HotelHandler {
	return &HotelHandler{db: db, log: logger.New("hotel-booking")}
}

// Handle dispatches one hotel operation.
func (h *HotelHandler) Handle(ctx context.Context, operation string, args map[string]string) (map[string]string, error) {
	switch operation {
	case "search_hotels":
		return h.searchHotels(ctx, args)
	case "book_hotel":
		return h.bookHotel(ctx, args)
	case "modify_reservation":
		return h.modifyReservation(ctx, args)
	default:
		return nil, types.ErrNotFound
	}
}

const hotelSearchQuery = `
SELECT h.hotel_id, h.hotel_name, h.city, h.star_rating,
       rt.room_type_id, rt.room_type_name, rt.max_occupancy, rt.price_per_night
FROM hotels h
JOIN room_types rt ON rt.hotel_id = h.hotel_id
WHERE h.city ILIKE '%' || $1 || '%'
  AND rt.max_occupancy >= $2
  AND ($3 = '' OR rt.room_type_name ILIKE '%' || $3 || '%')
ORDER BY h.star_rating DESC, rt.price_per_night`

// searchHotels finds rooms in a location that fit the party size.
func (h *HotelHandler) searchHotels(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "location", "check_in_date", "check_out_date", "guests"); err != nil {
		return nil, err
	}
	guests, err := intArg(args, "guests", 1, 12)
	if err != nil {
		return nil, err
	}
	checkIn, err := dateArg(args, "check_in_date")
	if err != nil {
		return nil, err
	}
	checkOut, err := dateArg(args, "check_out_date")
	if err != nil {
		return nil, err
	}
	if !checkOut.After(checkIn) {
		return nil, types.NewValidationError("check_out_date must be after check_in_date")
	}

	rows, err := h.db.QueryContext(ctx, hotelSearchQuery, args["location"], guests, args["room_type"])
	if err != nil {
		return nil, dbError("search_hotels", err)
	}
	defer rows.Close()

	hotels, count, err := rowsToJSON(rows)
	if err != nil {
		return nil, dbError("search_hotels", err)
	}
	if count == 0 {
		return nil, types.NewValidationError("no hotels found in %s for those dates", args["location"])
	}

	return map[string]string{
		"hotels":      hotels,
		"hotel_count": fmt.Sprintf("%d", count),
		"location":    args["location"],
		"nights":      fmt.Sprintf("%d", int(checkOut.Sub(checkIn).Hours()/24)),
	}, nil
}

// bookHotel reserves a room for the stay.
func (h *HotelHandler) bookHotel(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "hotel_id", "room_type_id", "check_in_date", "check_out_date", "guest_name"); err != nil {
		return nil, err
	}
	checkIn, err := dateArg(args, "check_in_date")
	if err != nil {
		return nil, err
	}
	checkOut, err := dateArg(args, "check_out_date")
	if err != nil {
		return nil, err
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights < 1 {
		return nil, types.NewValidationError("stay must be at least one night")
	}

	var pricePerNight float64
	err = h.db.QueryRowContext(ctx,
		`SELECT price_per_night FROM room_types WHERE room_type_id = $1 AND hotel_id = $2`,
		args["room_type_id"], args["hotel_id"]).Scan(&pricePerNight)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewValidationError("room type %s not found at hotel %s", args["room_type_id"], args["hotel_id"])
	}
	if err != nil {
		return nil, dbError("book_hotel", err)
	}

	reference := bookingReference("HT", time.Now())
	total := pricePerNight * float64(nights)
	if _, err := h.db.ExecContext(ctx,
		`INSERT INTO hotel_bookings (booking_reference, hotel_id, room_type_id, guest_name, check_in_date, check_out_date, total_price, booking_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed', NOW())`,
		reference, args["hotel_id"], args["room_type_id"], args["guest_name"],
		args["check_in_date"], args["check_out_date"], total); err != nil {
		return nil, dbError("book_hotel", err)
	}

	h.log.Info("", "hotel booked", map[string]interface{}{
		"booking_reference": reference,
		"hotel_id":          args["hotel_id"],
		"nights":            nights,
	})

	return map[string]string{
		"booking_reference": reference,
		"booking_status":    "confirmed",
		"nights":            fmt.Sprintf("%d", nights),
		"total_price":       fmt.Sprintf("%.2f", total),
	}, nil
}

// modifyReservation records a modification request against an
// existing confirmed reservation.
func (h *HotelHandler) modifyReservation(ctx context.Context, args map[string]string) (map[string]string, error) {
	if err := requireArgs(args, "reservation_id", "modifications"); err != nil {
		return nil, err
	}

	result, err := h.db.ExecContext(ctx,
		`UPDATE hotel_bookings SET modifications = $2, updated_at = NOW()
		 WHERE booking_reference = $1 AND booking_status = 'confirmed'`,
		args["reservation_id"], args["modifications"])
	if err != nil {
		return nil, dbError("modify_reservation", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, dbError("modify_reservation", err)
	}
	if affected == 0 {
		return nil, types.NewValidationError("no confirmed reservation %s", args["reservation_id"])
	}

	return map[string]string{
		"booking_reference": args["reservation_id"],
		"booking_status":    "modified",
		"modifications":     args["modifications"],
	}, nil
}
