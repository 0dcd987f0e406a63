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
	"io"
	"log/slog"

	"github.com/matdan-labs/matdan/database/plugin/metadata"
	"github.com/matdan-labs/matdan/database/plugin/record"
	"github.com/prometheus/client_golang/prometheus"

	// Register storage plugins
	_ "github.com/matdan-labs/matdan/database/plugin/metadata/sqlite"
	_ "github.com/matdan-labs/matdan/database/plugin/record/badger"
)

const (
	DefaultRecordPlugin   = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	RecordPlugin   string
	MetadataPlugin string
}

// Database couples the versioned record store that ledger entities live in
// with the metadata store holding the committed block log
type Database struct {
	logger   *slog.Logger
	record   record.RecordStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Record returns the underlying record store instance
func (d *Database) Record() record.RecordStore {
	return d.record
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new record store transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	metadataErr := d.Metadata().Close()
	err = errors.Join(err, metadataErr)
	recordErr := d.Record().Close()
	err = errors.Join(err, recordErr)
	return err
}

// New creates a new database instance with optional persistence using the
// provided data directory
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	recordPlugin := cfg.RecordPlugin
	if recordPlugin == "" {
		recordPlugin = DefaultRecordPlugin
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	metadataDb, err := metadata.New(
		metadataPlugin,
		cfg.DataDir,
		logger,
		cfg.PromRegistry,
	)
	if err != nil {
		return nil, err
	}
	recordDb, err := record.New(
		recordPlugin,
		cfg.DataDir,
		logger,
		cfg.PromRegistry,
	)
	if err != nil {
		return nil, err
	}
	db := &Database{
		logger:   logger,
		record:   recordDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	return db, nil
}
