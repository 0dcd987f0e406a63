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

package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matdan-labs/matdan/database/types"
)

// Txn is a handle to a record store transaction. Reads observe a stable
// snapshot; Commit reports types.ErrKeyConflict when any key read by this
// transaction was written by another transaction since the snapshot was
// taken. The metadata (block log) store is deliberately outside transaction
// scope, since it only records outcomes that the record store has already
// decided.
type Txn struct {
	db        *Database
	recordTxn types.Txn
	lock      sync.Mutex
	finished  bool
	readWrite bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		recordTxn: db.Record().NewTransaction(readWrite),
		readWrite: readWrite,
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Get retrieves a record value. Missing keys return types.ErrKeyNotFound.
func (t *Txn) Get(key []byte) ([]byte, error) {
	return t.db.Record().Get(t.recordTxn, key)
}

// Exists reports whether a record key is present, without copying the value
func (t *Txn) Exists(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Set stores a record value
func (t *Txn) Set(key, value []byte) error {
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	return t.db.Record().Set(t.recordTxn, key, value)
}

// NewIterator returns a prefix iterator over record keys. The caller must
// Close() the iterator before committing or rolling back the transaction.
func (t *Txn) NewIterator(prefix []byte) (types.RecordIterator, error) {
	return t.db.Record().NewIterator(t.recordTxn, prefix)
}

// Do executes the specified function in the context of the transaction. Any
// errors returned will result in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		return t.rollback()
	}
	if err := t.recordTxn.Commit(); err != nil {
		t.finished = true
		return err
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	err := t.recordTxn.Rollback()
	t.finished = true
	return err
}
