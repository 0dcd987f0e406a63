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

package record

import (
	"fmt"
	"log/slog"

	"github.com/matdan-labs/matdan/database/plugin"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

// RecordStore is the versioned key-value substrate that all ledger entities
// live in. Transactions are snapshot-isolated: reads are tracked, and Commit
// returns types.ErrKeyConflict when any read key was written by a
// transaction that committed after this transaction's snapshot.
type RecordStore interface {
	Close() error
	NewTransaction(readWrite bool) types.Txn
	Get(txn types.Txn, key []byte) ([]byte, error)
	Set(txn types.Txn, key []byte, value []byte) error
	NewIterator(txn types.Txn, prefix []byte) (types.RecordIterator, error)
}

// New returns the record store plugin selected by name
func New(
	pluginName string,
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (RecordStore, error) {
	p, err := plugin.New(
		plugin.PluginTypeRecord,
		pluginName,
		dataDir,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	store, ok := p.(RecordStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement RecordStore interface",
			pluginName,
		)
	}
	return store, nil
}
