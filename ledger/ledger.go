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

// Package ledger implements the election state machine executed against the
// record store: voter enrollment, entitlement token lifecycle, vote
// recording, and query-time tally aggregation.
//
// All operations run inside a caller-provided record store transaction.
// Programs never hold state between calls; the record store is the only
// shared mutable resource. Keys that encode at-most-once facts (issuance
// markers, vote records) are written exactly once and never touched again,
// so commit-time conflict detection alone is sufficient to serialize racing
// writers.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
)

// DefaultTokenTTL is the validity window applied to issued voting tokens
const DefaultTokenTTL = time.Hour

type LedgerConfig struct {
	Logger *slog.Logger
	// TokenTTL overrides the token validity window
	TokenTTL time.Duration
	// NowFunc overrides the clock, for testing
	NowFunc func() time.Time
}

// Ledger executes the election programs. It carries no mutable state of its
// own and is safe for concurrent use.
type Ledger struct {
	logger   *slog.Logger
	tokenTTL time.Duration
	now      func() time.Time
}

func NewLedger(cfg LedgerConfig) *Ledger {
	l := &Ledger{
		logger:   cfg.Logger,
		tokenTTL: cfg.TokenTTL,
		now:      cfg.NowFunc,
	}
	if l.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if l.tokenTTL <= 0 {
		l.tokenTTL = DefaultTokenTTL
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// getRecord reads and unmarshals a record. Missing keys are reported as
// types.ErrKeyNotFound; callers translate to the appropriate declared error.
func (l *Ledger) getRecord(txn *database.Txn, key []byte, v any) error {
	data, err := txn.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal record %q: %w", string(key), err)
	}
	return nil
}

func (l *Ledger) putRecord(txn *database.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record %q: %w", string(key), err)
	}
	return txn.Set(key, data)
}

// validateID rejects empty identifiers and identifiers containing the
// composite-key separator byte
func validateID(name, value string) error {
	if value == "" {
		return newError(CodeInvalidState, "%s must not be empty", name)
	}
	if bytes.IndexByte([]byte(value), types.KeySeparator()) >= 0 {
		return newError(CodeInvalidState, "%s contains reserved byte", name)
	}
	return nil
}
