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
	"log/slog"

	"github.com/matdan-labs/matdan/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

// Register plugin
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:        plugin.PluginTypeRecord,
			Name:        "badger",
			Description: "Badger key-value store with snapshot-isolated transactions",
			NewFunc: func(
				dataDir string,
				logger *slog.Logger,
				promRegistry prometheus.Registerer,
			) (any, error) {
				return New(
					WithDataDir(dataDir),
					WithLogger(logger),
					WithPromRegistry(promRegistry),
				)
			},
		},
	)
}
