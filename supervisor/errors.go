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

package supervisor

import (
	"fmt"
	"strings"
)

// NoActionableIntentError means no registered specialist can handle the
// request. Terminal for the cycle; retrying cannot change the outcome.
type NoActionableIntentError struct {
	Text string
}

func (e *NoActionableIntentError) Error() string {
	return "no actionable intent: no registered specialist can handle this request"
}

// MissingParametersError means a selected operation is missing required
// parameters. The analyzer never guesses defaults for required fields.
type MissingParametersError struct {
	Operation string
	Missing   []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing required parameters for %s: %s",
		e.Operation, strings.Join(e.Missing, ", "))
}
