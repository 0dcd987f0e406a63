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

package sqlite

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/matdan-labs/matdan/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MetadataStoreSqlite is a SQLite-based implementation of the metadata
// store. It provides persistent storage for the committed block log.
type MetadataStoreSqlite struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	dataDir      string
}

// New creates a SQLite metadata store. Uses in-memory database if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	var metadataDb *gorm.DB
	var err error
	if dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode with sync disabled, since the block log can be
		// rebuilt from the record store on loss
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	db := &MetadataStoreSqlite{
		db:           metadataDb,
		dataDir:      dataDir,
		logger:       logger,
		promRegistry: promRegistry,
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

// Close closes the underlying database connection
func (d *MetadataStoreSqlite) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the gorm database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}

// AddBlock appends a committed block and its transaction outcomes
func (d *MetadataStoreSqlite) AddBlock(
	block *models.Block,
	txs []models.BlockTransaction,
) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(block); result.Error != nil {
			return result.Error
		}
		if len(txs) > 0 {
			if result := tx.Create(&txs); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}

// GetBlock returns the block with the given number
func (d *MetadataStoreSqlite) GetBlock(number uint64) (*models.Block, error) {
	var block models.Block
	result := d.db.Where("number = ?", number).First(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrBlockNotFound
		}
		return nil, result.Error
	}
	return &block, nil
}

// GetBlockTransaction returns the committed outcome of a transaction by ID.
// This is the lookup path for resolving transactions whose submission
// outcome was reported as unknown.
func (d *MetadataStoreSqlite) GetBlockTransaction(
	txID string,
) (*models.BlockTransaction, error) {
	var blockTx models.BlockTransaction
	result := d.db.Where("tx_id = ?", txID).First(&blockTx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrBlockTransactionNotFound
		}
		return nil, result.Error
	}
	return &blockTx, nil
}

// GetTipBlockNumber returns the highest committed block number, or zero when
// no block has been committed yet
func (d *MetadataStoreSqlite) GetTipBlockNumber() (uint64, error) {
	var block models.Block
	result := d.db.Order("number DESC").First(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return block.Number, nil
}

// RecentBlocks returns up to limit blocks in descending block-number order
func (d *MetadataStoreSqlite) RecentBlocks(limit int) ([]models.Block, error) {
	var blocks []models.Block
	result := d.db.Order("number DESC").Limit(limit).Find(&blocks)
	if result.Error != nil {
		return nil, result.Error
	}
	return blocks, nil
}
