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
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tripflow/shared/types"
)

// requireArgs checks that every named argument is present and
// non-empty, reporting all missing names at once.
func requireArgs(args map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		if args[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return types.NewValidationError("missing required parameter(s): %v", missing)
	}
	return nil
}

// intArg parses an integer argument and enforces an inclusive range.
func intArg(args map[string]string, name string, min, max int) (int, error) {
	value, err := strconv.Atoi(args[name])
	if err != nil {
		return 0, types.NewValidationError("%s must be a number, got %q", name, args[name])
	}
	if value < min || value > max {
		return 0, types.NewValidationError("%s must be between %d and %d", name, min, max)
	}
	return value, nil
}

// dateArg parses a YYYY-MM-DD argument.
func dateArg(args map[string]string, name string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", args[name])
	if err != nil {
		return time.Time{}, types.NewValidationError("%s must be YYYY-MM-DD, got %q", name, args[name])
	}
	return parsed, nil
}

// dbError wraps database failures as retryable transport errors.
func dbError(op string, err error) error {
	return types.NewTransportError(fmt.Sprintf("database error in %s", op), err)
}

// rowsToJSON drains rows into a JSON array of objects keyed by column
// name. NULLs become empty strings; everything is stringified since
// specialist payloads are string maps.
func rowsToJSON(rows *sql.Rows) (string, int, error) {
	columns, err := rows.Columns()
	if err != nil {
		return "", 0, err
	}

	records := []map[string]string{}
	values := make([]sql.NullString, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return "", 0, err
		}
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			record[col] = values[i].String
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	encoded, err := json.Marshal(records)
	if err != nil {
		return "", 0, err
	}
	return string(encoded), len(records), nil
}

// bookingReference generates a reference like FL20250827153000 from a
// two-letter prefix and the current time.
func bookingReference(prefix string, now time.Time) string {
	return prefix + now.Format("20060102150405")
}
