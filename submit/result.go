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

package submit

// Status is the outcome class of a submitted transaction
type Status int

const (
	// StatusUnknown means no committed or invalidated outcome was observed
	// within the caller's deadline. The transaction may still commit; the
	// caller must not assume non-commitment. Outcome() resolves it once the
	// transaction lands in a block.
	StatusUnknown Status = iota
	// StatusCommitted means the transaction validated and was applied
	StatusCommitted
	// StatusDeclined means program logic rejected the proposal with a
	// declared, deterministic failure
	StatusDeclined
	// StatusConflict means commit-time validation found a stale read-set
	// version and invalidated the transaction. Conflicts are never retried
	// automatically: only the caller knows whether re-submission of a
	// non-idempotent intent is safe.
	StatusConflict
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusDeclined:
		return "declined"
	case StatusConflict:
		return "conflict"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Result is the caller-visible outcome of a submission
type Result struct {
	Value       any
	Err         error
	TxID        string
	Status      Status
	BlockNumber uint64
}
