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

package plugin

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PluginType int

const (
	PluginTypeRecord PluginType = iota
	PluginTypeMetadata
)

// PluginTypeName returns a human-readable name for a plugin type
func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeRecord:
		return "record"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// NewFunc constructs a plugin instance. An empty dataDir selects in-memory
// storage where the plugin supports it.
type NewFunc func(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (any, error)

type PluginEntry struct {
	NewFunc     NewFunc
	Name        string
	Description string
	Type        PluginType
}

var (
	pluginEntries []PluginEntry
	pluginMutex   sync.RWMutex
)

// Register adds a plugin entry to the registry. It's expected to be called
// from an init() function in the plugin package.
func Register(entry PluginEntry) {
	pluginMutex.Lock()
	defer pluginMutex.Unlock()
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugins returns the registered plugin entries for a plugin type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()
	var ret []PluginEntry
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	return ret
}

// New creates an instance of the named plugin
func New(
	pluginType PluginType,
	pluginName string,
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (any, error) {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()
	for _, entry := range pluginEntries {
		if entry.Type != pluginType || entry.Name != pluginName {
			continue
		}
		p, err := entry.NewFunc(dataDir, logger, promRegistry)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to create %s plugin '%s': %w",
				PluginTypeName(pluginType),
				pluginName,
				err,
			)
		}
		return p, nil
	}
	return nil, fmt.Errorf(
		"%s plugin '%s' not found",
		PluginTypeName(pluginType),
		pluginName,
	)
}
