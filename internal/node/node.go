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

package node

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/event"
	"github.com/matdan-labs/matdan/internal/config"
	"github.com/matdan-labs/matdan/ledger"
	"github.com/matdan-labs/matdan/submit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Node wires the record store, ledger programs, event bus, and submission
// client together
type Node struct {
	config       *config.Config
	logger       *slog.Logger
	promRegistry *prometheus.Registry
	db           *database.Database
	eventBus     *event.EventBus
	ledger       *ledger.Ledger
	client       *submit.Client
}

// New assembles a node from config
func New(cfg *config.Config, logger *slog.Logger) (*Node, error) {
	promRegistry := prometheus.NewRegistry()
	db, err := database.New(&database.Config{
		Logger:         logger,
		PromRegistry:   promRegistry,
		DataDir:        cfg.DataDir,
		RecordPlugin:   cfg.RecordPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	eventBus := event.NewEventBus(promRegistry, logger)
	l := ledger.NewLedger(ledger.LedgerConfig{
		Logger:   logger,
		TokenTTL: cfg.TokenTTLDuration(),
	})
	client, err := submit.NewClient(submit.ClientConfig{
		Logger:           logger,
		EventBus:         eventBus,
		PromRegistry:     promRegistry,
		DB:               db,
		BlockCutInterval: cfg.BlockCutIntervalDuration(),
		MaxBlockTxs:      cfg.MaxBlockTxs,
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating submission client: %w", err)
	}
	n := &Node{
		config:       cfg,
		logger:       logger,
		promRegistry: promRegistry,
		db:           db,
		eventBus:     eventBus,
		ledger:       l,
		client:       client,
	}
	// Log committed blocks
	eventBus.SubscribeFunc(
		submit.BlockCommitEventType,
		func(evt event.Event) {
			if data, ok := evt.Data.(submit.BlockCommitEvent); ok {
				logger.Info(
					"block committed",
					"component", "node",
					"block", data.Number,
					"txs", data.TxCount,
					"valid", data.ValidTxs,
				)
			}
		},
	)
	return n, nil
}

// Database returns the node's database
func (n *Node) Database() *database.Database {
	return n.db
}

// Ledger returns the node's ledger program set
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Client returns the node's submission client
func (n *Node) Client() *submit.Client {
	return n.client
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Stop shuts the node down in dependency order
func (n *Node) Stop() error {
	n.client.Stop()
	return n.db.Close()
}

// Run assembles a node and blocks until shutdown is requested via signal
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	n, err := New(cfg, logger)
	if err != nil {
		return err
	}

	// Metrics listener
	var metricsSrv *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle(
			"/metrics",
			promhttp.HandlerFor(
				n.promRegistry,
				promhttp.HandlerOpts{},
			),
		)
		metricsSrv = &http.Server{
			Addr: fmt.Sprintf(
				"%s:%d",
				cfg.BindAddr,
				cfg.MetricsPort,
			),
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
		}
		go func() {
			logger.Info(
				"serving prometheus metrics",
				"component", "node",
				"address", metricsSrv.Addr,
			)
			if err := metricsSrv.ListenAndServe(); err != nil &&
				err != http.ErrServerClosed {
				logger.Error(
					"metrics listener failed",
					"component", "node",
					"error", err,
				)
			}
		}()
	}

	// Wait for interrupt
	signalCtx, signalStop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer signalStop()
	<-signalCtx.Done()
	logger.Info("shutting down", "component", "node")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeoutDuration(),
	)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(
				"metrics listener shutdown failed",
				"component", "node",
				"error", err,
			)
		}
	}
	return n.Stop()
}
