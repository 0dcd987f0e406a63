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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/matdan-labs/matdan/database/models"
	"github.com/matdan-labs/matdan/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetadataStore persists the committed block log. It is an audit/reporting
// surface only; ledger state lives exclusively in the record store.
type MetadataStore interface {
	Close() error
	DB() *gorm.DB
	AddBlock(block *models.Block, txs []models.BlockTransaction) error
	GetBlock(number uint64) (*models.Block, error)
	GetBlockTransaction(txID string) (*models.BlockTransaction, error)
	GetTipBlockNumber() (uint64, error)
	RecentBlocks(limit int) ([]models.Block, error)
}

// New returns the metadata store plugin selected by name
func New(
	pluginName string,
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.New(
		plugin.PluginTypeMetadata,
		pluginName,
		dataDir,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	store, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return store, nil
}
