// Copyright 2026 Matdan Labs
//
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

package ledger

import (
	"errors"
	"fmt"
)

// Code identifies a declared program failure. Declared failures are
// deterministic outcomes of program logic, as opposed to commit-time
// conflicts, and are safe to surface to callers as-is.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeAlreadyIssued Code = "ALREADY_ISSUED"
	CodeAlreadyUsed   Code = "ALREADY_USED"
	CodeAlreadyVoted  Code = "ALREADY_VOTED"
	CodeNotEligible   Code = "NOT_ELIGIBLE"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeExpired       Code = "EXPIRED"
	CodeInvalidToken  Code = "INVALID_TOKEN"
	CodeInvalidState  Code = "INVALID_STATE"
)

// Error is a declared program failure with a stable code
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:   code,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ErrorCode extracts the declared failure code from an error. The second
// return value is false when the error is not a declared program failure
// (for example a storage error or a commit-time conflict).
func ErrorCode(err error) (Code, bool) {
	var progErr *Error
	if errors.As(err, &progErr) {
		return progErr.Code, true
	}
	return "", false
}
