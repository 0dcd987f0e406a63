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

package submit

import (
	"errors"
	"time"

	"github.com/matdan-labs/matdan/database/models"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/matdan-labs/matdan/event"
)

// applyLoop serializes simulated transactions into blocks. A block is cut
// when MaxBlockTxs transactions are queued or BlockCutInterval has elapsed
// since the first queued transaction, whichever comes first.
func (c *Client) applyLoop() {
	defer close(c.doneCh)
	timer := time.NewTimer(c.config.BlockCutInterval)
	if !timer.Stop() {
		<-timer.C
	}
	var batch []*pendingTx
	for {
		select {
		case tx := <-c.orderCh:
			c.metrics.queueDepth.Dec()
			if len(batch) == 0 {
				timer.Reset(c.config.BlockCutInterval)
			}
			batch = append(batch, tx)
			if len(batch) >= c.config.MaxBlockTxs {
				if !timer.Stop() {
					<-timer.C
				}
				c.commitBlock(batch)
				batch = nil
			}
		case <-timer.C:
			if len(batch) > 0 {
				c.commitBlock(batch)
				batch = nil
			}
		case <-c.stopCh:
			if len(batch) > 0 {
				// Commit what was already ordered so no accepted
				// transaction is silently dropped
				c.commitBlock(batch)
			}
			c.drainOnStop()
			return
		}
	}
}

// drainOnStop rolls back transactions that were queued but never ordered
// into a block and reports them as unknown
func (c *Client) drainOnStop() {
	for {
		select {
		case tx := <-c.orderCh:
			c.metrics.queueDepth.Dec()
			if err := tx.txn.Rollback(); err != nil {
				c.logger.Warn(
					"rollback on stop failed",
					"component", "submit",
					"tx_id", tx.txID,
					"error", err,
				)
			}
			tx.resCh <- Result{Status: StatusUnknown, TxID: tx.txID}
		default:
			return
		}
	}
}

// commitBlock applies one block of ordered transactions. Each transaction's
// read set is validated against the currently committed key versions: a
// stale read invalidates the transaction while the rest of the block still
// commits. First writer wins; there is no other concurrency control.
func (c *Client) commitBlock(batch []*pendingTx) {
	c.blockNumber++
	now := time.Now()
	blockTxs := make([]models.BlockTransaction, 0, len(batch))
	validTxs := 0
	for _, tx := range batch {
		res := Result{
			TxID:        tx.txID,
			BlockNumber: c.blockNumber,
		}
		validationCode := models.TxValidationValid
		err := tx.txn.Commit()
		switch {
		case err == nil:
			res.Status = StatusCommitted
			res.Value = tx.value
			validTxs++
			c.metrics.txsCommitted.Inc()
		case errors.Is(err, types.ErrKeyConflict):
			res.Status = StatusConflict
			res.Err = err
			validationCode = models.TxValidationConflict
			c.metrics.txsInvalidated.Inc()
			c.logger.Info(
				"transaction invalidated by conflict",
				"component", "submit",
				"operation", tx.operation,
				"tx_id", tx.txID,
				"block", c.blockNumber,
			)
			if c.eventBus != nil {
				c.eventBus.Publish(
					TxInvalidatedEventType,
					event.NewEvent(
						TxInvalidatedEventType,
						TxInvalidatedEvent{
							TxID:      tx.txID,
							Operation: tx.operation,
						},
					),
				)
			}
		default:
			// Storage failure, not a version conflict. The outcome is
			// indeterminate from the caller's point of view.
			res.Status = StatusUnknown
			res.Err = err
			validationCode = models.TxValidationFailed
			c.logger.Error(
				"transaction commit failed",
				"component", "submit",
				"operation", tx.operation,
				"tx_id", tx.txID,
				"error", err,
			)
		}
		blockTxs = append(blockTxs, models.BlockTransaction{
			BlockNumber:    c.blockNumber,
			TxID:           tx.txID,
			Operation:      tx.operation,
			SubmitterID:    tx.submitter.ID,
			ValidationCode: validationCode,
			CommittedAt:    now,
		})
		tx.resCh <- res
	}
	block := &models.Block{
		Number:   c.blockNumber,
		CutAt:    now,
		TxCount:  len(batch),
		ValidTxs: validTxs,
	}
	if err := c.db.Metadata().AddBlock(block, blockTxs); err != nil {
		c.logger.Error(
			"appending block to audit log failed",
			"component", "submit",
			"block", c.blockNumber,
			"error", err,
		)
	}
	if c.eventBus != nil {
		c.eventBus.Publish(
			BlockCommitEventType,
			event.NewEvent(
				BlockCommitEventType,
				BlockCommitEvent{
					Number:   c.blockNumber,
					TxCount:  len(batch),
					ValidTxs: validTxs,
				},
			),
		)
	}
	c.logger.Debug(
		"block committed",
		"component", "submit",
		"block", c.blockNumber,
		"txs", len(batch),
		"valid", validTxs,
	)
}
