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

// Package submit owns the boundary between caller intent and ledger
// outcome. A proposal is simulated against a snapshot transaction, ordered
// into a block, and validated at commit time against the currently
// committed key versions. The three outcome classes a caller can observe
// (committed, declined, conflict) plus the deadline-bounded unknown outcome
// are modeled explicitly; a conflict is never retried on the caller's
// behalf.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/models"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/matdan-labs/matdan/event"
	"github.com/matdan-labs/matdan/identity"
	"github.com/matdan-labs/matdan/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	BlockCommitEventType   event.EventType = "submit.block_commit"
	TxInvalidatedEventType event.EventType = "submit.tx_invalidated"

	DefaultBlockCutInterval = 200 * time.Millisecond
	DefaultMaxBlockTxs      = 100

	orderQueueSize = 1000
)

type BlockCommitEvent struct {
	Number   uint64
	TxCount  int
	ValidTxs int
}

type TxInvalidatedEvent struct {
	TxID      string
	Operation string
}

// ErrStopped is returned by Submit after the client has been stopped
var ErrStopped = errors.New("submission client stopped")

// ProgramFunc executes a ledger program within a transaction and returns
// the caller-visible value
type ProgramFunc func(txn *database.Txn) (any, error)

// Proposal is one caller intent to mutate ledger state
type Proposal struct {
	Program   ProgramFunc
	Operation string
	Submitter identity.Identity
}

type ClientConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	DB           *database.Database
	// BlockCutInterval is the longest a simulated transaction waits before
	// its block is cut. Caller-observed commit latency is bounded by this,
	// not by lock contention.
	BlockCutInterval time.Duration
	// MaxBlockTxs cuts a block early once this many transactions are queued
	MaxBlockTxs int
}

type pendingTx struct {
	txn       *database.Txn
	value     any
	resCh     chan Result
	txID      string
	operation string
	submitter identity.Identity
}

// Client submits proposed transactions and interprets their outcomes
type Client struct {
	config  ClientConfig
	metrics struct {
		txsCommitted   prometheus.Counter
		txsDeclined    prometheus.Counter
		txsInvalidated prometheus.Counter
		queueDepth     prometheus.Gauge
	}
	logger      *slog.Logger
	eventBus    *event.EventBus
	db          *database.Database
	orderCh     chan *pendingTx
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
	blockNumber uint64
}

// NewClient creates a submission client and starts its ordering/apply loop
func NewClient(config ClientConfig) (*Client, error) {
	if config.DB == nil {
		return nil, errors.New("no database provided")
	}
	c := &Client{
		config:   config,
		logger:   config.Logger,
		eventBus: config.EventBus,
		db:       config.DB,
		orderCh:  make(chan *pendingTx, orderQueueSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if c.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if c.config.BlockCutInterval <= 0 {
		c.config.BlockCutInterval = DefaultBlockCutInterval
	}
	if c.config.MaxBlockTxs <= 0 {
		c.config.MaxBlockTxs = DefaultMaxBlockTxs
	}
	// Resume block numbering from the committed block log
	tip, err := c.db.Metadata().GetTipBlockNumber()
	if err != nil {
		return nil, fmt.Errorf("reading block log tip: %w", err)
	}
	c.blockNumber = tip
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	c.metrics.txsCommitted = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "matdan_submit_txs_committed_total",
			Help: "total transactions committed as valid",
		},
	)
	c.metrics.txsDeclined = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "matdan_submit_txs_declined_total",
			Help: "total proposals declined by program logic",
		},
	)
	c.metrics.txsInvalidated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "matdan_submit_txs_invalidated_total",
			Help: "total transactions invalidated by commit-time conflict",
		},
	)
	c.metrics.queueDepth = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "matdan_submit_queue_depth",
			Help: "transactions awaiting ordering",
		},
	)
	go c.applyLoop()
	return c, nil
}

// Stop shuts down the ordering/apply loop. Transactions still queued are
// rolled back and reported as unknown.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
}

// Submit simulates a proposal and forwards it for ordering, then waits for
// the commit outcome. The returned error is reserved for infrastructure
// failures; program-declared failures and conflicts are reported in the
// Result. When ctx expires before an outcome is observed the Result status
// is StatusUnknown and the transaction may still commit later.
func (c *Client) Submit(ctx context.Context, prop Proposal) (Result, error) {
	if prop.Program == nil {
		return Result{}, errors.New("proposal has no program")
	}
	txID := uuid.NewString()
	// Simulate against a snapshot. No locks are held; many submissions may
	// simulate concurrently.
	txn := c.db.Transaction(true)
	value, err := prop.Program(txn)
	if err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			c.logger.Warn(
				"rollback after declined simulation failed",
				"component", "submit",
				"error", rbErr,
			)
		}
		if _, ok := ledger.ErrorCode(err); ok {
			c.metrics.txsDeclined.Inc()
			c.logger.Debug(
				"proposal declined",
				"component", "submit",
				"operation", prop.Operation,
				"tx_id", txID,
				"error", err,
			)
			return Result{
				Status: StatusDeclined,
				TxID:   txID,
				Err:    err,
			}, nil
		}
		return Result{}, fmt.Errorf("simulation failed: %w", err)
	}
	pending := &pendingTx{
		txn:       txn,
		value:     value,
		txID:      txID,
		operation: prop.Operation,
		submitter: prop.Submitter,
		resCh:     make(chan Result, 1),
	}
	// The order queue is buffered, so a send could succeed after the apply
	// loop has already drained and exited. Refuse new work once stopped.
	select {
	case <-c.stopCh:
		if rbErr := txn.Rollback(); rbErr != nil {
			c.logger.Warn(
				"rollback on stop failed",
				"component", "submit",
				"error", rbErr,
			)
		}
		return Result{}, ErrStopped
	default:
	}
	select {
	case c.orderCh <- pending:
		c.metrics.queueDepth.Inc()
	case <-c.stopCh:
		if rbErr := txn.Rollback(); rbErr != nil {
			c.logger.Warn(
				"rollback on stop failed",
				"component", "submit",
				"error", rbErr,
			)
		}
		return Result{}, ErrStopped
	case <-ctx.Done():
		if rbErr := txn.Rollback(); rbErr != nil {
			c.logger.Warn(
				"rollback on deadline failed",
				"component", "submit",
				"error", rbErr,
			)
		}
		return Result{Status: StatusUnknown, TxID: txID}, nil
	}
	select {
	case res := <-pending.resCh:
		return res, nil
	case <-ctx.Done():
		// The transaction is already ordered and will land in a block.
		// Its outcome can be resolved later via Outcome().
		return Result{Status: StatusUnknown, TxID: txID}, nil
	}
}

// Query runs a read-only program against a snapshot, bypassing ordering.
// Tallies and verification reads take this path.
func (c *Client) Query(fn ProgramFunc) (any, error) {
	txn := c.db.Transaction(false)
	defer func() {
		if err := txn.Rollback(); err != nil {
			c.logger.Warn(
				"query rollback failed",
				"component", "submit",
				"error", err,
			)
		}
	}()
	return fn(txn)
}

// Outcome resolves the committed outcome of a transaction by ID from the
// block log. Transactions that have not landed in a block yet report
// StatusUnknown.
func (c *Client) Outcome(txID string) (Result, error) {
	blockTx, err := c.db.Metadata().GetBlockTransaction(txID)
	if err != nil {
		if errors.Is(err, models.ErrBlockTransactionNotFound) {
			return Result{Status: StatusUnknown, TxID: txID}, nil
		}
		return Result{}, err
	}
	res := Result{
		TxID:        txID,
		BlockNumber: blockTx.BlockNumber,
	}
	switch blockTx.ValidationCode {
	case models.TxValidationValid:
		res.Status = StatusCommitted
	case models.TxValidationConflict:
		res.Status = StatusConflict
		res.Err = types.ErrKeyConflict
	default:
		res.Status = StatusUnknown
	}
	return res, nil
}
