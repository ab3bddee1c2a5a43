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
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/shared/types"
)

func newCarHandlerForTest(t *testing.T) (*CarHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCarHandler(db), mock
}

func carSearchArgs() map[string]string {
	return map[string]string{
		"pickup_location":  "Rome",
		"dropoff_location": "Rome",
		"pickup_date":      "2026-09-10",
		"dropoff_date":     "2026-09-14",
	}
}

func TestSearchCars(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	columns := []string{"vehicle_id", "make", "model", "daily_rate",
		"category_name", "passenger_capacity", "pickup_location"}
	mock.ExpectQuery(`SELECT av\.vehicle_id, av\.make`).
		WithArgs("Rome", "").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("1", "Fiat", "500", "45.00", "Compact", 4, "Rome Termini"))

	payload, err := handler.Handle(context.Background(), "search_cars", carSearchArgs())
	require.NoError(t, err)

	assert.Equal(t, "1", payload["car_count"])
	assert.Equal(t, "4", payload["rental_days"])
	assert.Contains(t, payload["cars"], "Fiat")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchCarsValidation(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	args := carSearchArgs()
	args["dropoff_date"] = "2026-09-10"
	_, err := handler.Handle(context.Background(), "search_cars", args)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "dropoff_date must be after pickup_date")

	_, err = handler.Handle(context.Background(), "search_cars", map[string]string{})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "missing required parameter")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCar(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT daily_rate, is_available FROM available_vehicles WHERE vehicle_id = \$1 FOR UPDATE`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"daily_rate", "is_available"}).AddRow(45.0, true))
	mock.ExpectExec(`INSERT INTO car_rental_bookings`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE available_vehicles SET is_available = FALSE`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload, err := handler.Handle(context.Background(), "book_car", map[string]string{
		"vehicle_id":   "1",
		"pickup_date":  "2026-09-10",
		"dropoff_date": "2026-09-14",
		"driver_name":  "Ada Lovelace",
	})
	require.NoError(t, err)

	assert.Equal(t, "confirmed", payload["booking_status"])
	assert.Equal(t, "4", payload["rental_days"])
	assert.Equal(t, "180.00", payload["total_price"])
	assert.True(t, strings.HasPrefix(payload["booking_reference"], "CR"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCarNoLongerAvailable(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"daily_rate", "is_available"}).AddRow(45.0, false))
	mock.ExpectRollback()

	_, err := handler.Handle(context.Background(), "book_car", map[string]string{
		"vehicle_id":   "1",
		"pickup_date":  "2026-09-10",
		"dropoff_date": "2026-09-14",
		"driver_name":  "Ada Lovelace",
	})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "no longer available")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRental(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE car_rental_bookings SET booking_status = 'cancelled'`).
		WithArgs("CR20260910120000").
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow("1"))
	mock.ExpectExec(`UPDATE available_vehicles SET is_available = TRUE`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload, err := handler.Handle(context.Background(), "cancel_rental", map[string]string{
		"booking_id": "CR20260910120000",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", payload["booking_status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRentalUnknown(t *testing.T) {
	handler, mock := newCarHandlerForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE car_rental_bookings`).
		WithArgs("CR404").
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}))
	mock.ExpectRollback()

	_, err := handler.Handle(context.Background(), "cancel_rental", map[string]string{
		"booking_id": "CR404",
	})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "no confirmed rental")
}
