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

package types

import "errors"

// Txn is a handle to an in-progress store transaction. The concrete type is
// owned by the store plugin that created it.
type Txn interface {
	Commit() error
	Rollback() error
}

// RecordItem is a single key/value pair yielded by a RecordIterator
type RecordItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// RecordIterator iterates records within a key prefix, in key order
type RecordIterator interface {
	Rewind()
	Seek(prefix []byte)
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() RecordItem
	Close()
	Err() error
}

// ErrKeyNotFound is returned by record reads when a key is missing
var ErrKeyNotFound = errors.New("record key not found")

// ErrKeyConflict is returned on commit when a key read by the transaction
// was written by another transaction that committed after this transaction's
// snapshot was taken. This is the commit-time invalidation primitive that
// the ledger programs rely on for their write-once guarantees.
var ErrKeyConflict = errors.New("record key conflict at commit")

// ErrNilTxn is returned when a nil transaction is provided
var ErrNilTxn = errors.New("nil transaction")

// ErrTxnWrongType is returned when a transaction from a different store
// implementation is provided
var ErrTxnWrongType = errors.New("transaction is wrong type for store")

// ErrTxnFinished is returned when a transaction has already been committed
// or rolled back
var ErrTxnFinished = errors.New("transaction already finished")

// ErrTxnReadOnly is returned when a write is attempted in a read-only
// transaction
var ErrTxnReadOnly = errors.New("transaction is read-only")

// ErrRecordStoreUnavailable is returned when the record store is not available
var ErrRecordStoreUnavailable = errors.New("record store unavailable")
