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

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matdan-labs/matdan/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *RecordStoreBadger
	tx       *badger.Txn
	finished bool
}

func newBadgerTxn(store *RecordStoreBadger, tx *badger.Txn) *badgerTxn {
	return &badgerTxn{store: store, tx: tx}
}

// validateTxn validates a types.Txn for this RecordStore and returns the
// underlying *badgerTxn if valid.
func (d *RecordStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	bTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if bTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if err := bTxn.validate(); err != nil {
		return nil, err
	}
	return bTxn, nil
}

func (t *badgerTxn) validate() error {
	if t.finished {
		return types.ErrTxnFinished
	}
	if t.tx == nil {
		return types.ErrRecordStoreUnavailable
	}
	return nil
}

// Commit commits the transaction. A commit-time version mismatch on any key
// in the transaction's read set is reported as types.ErrKeyConflict.
func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	if t.tx == nil {
		t.finished = true
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			t.finished = true
			return types.ErrKeyConflict
		}
		return err
	}
	t.finished = true
	return nil
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	if t.tx != nil {
		t.tx.Discard()
	}
	t.finished = true
	return nil
}

type badgerIterator struct {
	iter *badger.Iterator
}

func (it *badgerIterator) Rewind()            { it.iter.Rewind() }
func (it *badgerIterator) Seek(prefix []byte) { it.iter.Seek(prefix) }

func (it *badgerIterator) ValidForPrefix(p []byte) bool {
	return it.iter.ValidForPrefix(p)
}
func (it *badgerIterator) Next() { it.iter.Next() }

func (it *badgerIterator) Item() types.RecordItem {
	return &badgerItem{item: it.iter.Item()}
}
func (it *badgerIterator) Close()     { it.iter.Close() }
func (it *badgerIterator) Err() error { return nil }

type badgerItem struct {
	item *badger.Item
}

func (i *badgerItem) Key() []byte {
	return i.item.KeyCopy(nil)
}

func (i *badgerItem) ValueCopy(dst []byte) ([]byte, error) {
	return i.item.ValueCopy(dst)
}

// RecordStoreBadger stores all ledger records in badger. Conflict detection
// stays enabled so that concurrent transactions touching the same keys are
// serialized by first-writer-wins at commit time.
type RecordStoreBadger struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	gcTicker     *time.Ticker
	gcStopCh     chan struct{}
	dataDir      string
	gcWg         sync.WaitGroup
	gcEnabled    bool
}

// New creates a new record store. An empty dataDir selects an in-memory
// store, which is useful for testing.
func New(opts ...RecordStoreBadgerOptionFunc) (*RecordStoreBadger, error) {
	db := &RecordStoreBadger{}
	for _, opt := range opts {
		opt(db)
	}

	var recordDb *badger.DB
	var err error

	if db.dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(db.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		recordDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(db.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(db.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		recordDir := filepath.Join(db.dataDir, "records")
		badgerOpts := badger.DefaultOptions(recordDir).
			WithLogger(newBadgerLogger(db.logger)).
			WithLoggingLevel(badger.WARNING)
		recordDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		db.gcEnabled = true
	}
	db.db = recordDb
	db.init()
	return db, nil
}

func (d *RecordStoreBadger) init() {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.gcEnabled {
		d.gcTicker = time.NewTicker(5 * time.Minute)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.valueLogGc(d.gcTicker, d.gcStopCh)
	}
}

func (d *RecordStoreBadger) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := d.DB().RunValueLogGC(0.5)
			if err != nil {
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("record DB: GC failure: %s", err),
						"component", "database",
					)
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// Close stops background GC and closes the database handle
func (d *RecordStoreBadger) Close() error {
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		if d.gcStopCh != nil {
			close(d.gcStopCh)
			d.gcStopCh = nil
		}
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	return d.DB().Close()
}

// DB returns the database handle
func (d *RecordStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *RecordStoreBadger) NewTransaction(readWrite bool) types.Txn {
	return newBadgerTxn(d, d.DB().NewTransaction(readWrite))
}

// Get retrieves a value within a transaction. The read is recorded in the
// transaction's read set for commit-time conflict checking.
func (d *RecordStoreBadger) Get(
	txn types.Txn,
	key []byte,
) ([]byte, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := bTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (d *RecordStoreBadger) Set(txn types.Txn, key, val []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return bTxn.tx.Set(key, val)
}

// NewIterator creates a prefix iterator within a transaction.
//
// Items returned by Item() must only be accessed while the transaction used
// to create the iterator is still active.
func (d *RecordStoreBadger) NewIterator(
	txn types.Txn,
	prefix []byte,
) (types.RecordIterator, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	iterOpts := badger.IteratorOptions{
		Prefix:         prefix,
		PrefetchValues: true,
		PrefetchSize:   100,
	}
	return &badgerIterator{iter: bTxn.tx.NewIterator(iterOpts)}, nil
}
