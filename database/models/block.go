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

package models

import (
	"errors"
	"time"
)

var ErrBlockNotFound = errors.New("block not found")

var ErrBlockTransactionNotFound = errors.New("block transaction not found")

// Validation codes recorded for each ordered transaction
const (
	TxValidationValid    = "VALID"
	TxValidationConflict = "CONFLICT"
	TxValidationFailed   = "FAILED"
)

// Block is one committed batch of ordered transactions. The block log is an
// append-only audit trail; invalidated transactions stay in their block with
// a non-VALID validation code.
type Block struct {
	ID       uint      `gorm:"primarykey"`
	Number   uint64    `gorm:"uniqueIndex"`
	CutAt    time.Time `gorm:"index"`
	TxCount  int
	ValidTxs int
}

func (Block) TableName() string {
	return "block"
}

// BlockTransaction is the committed outcome of a single ordered transaction
type BlockTransaction struct {
	ID             uint   `gorm:"primarykey"`
	BlockNumber    uint64 `gorm:"index"`
	TxID           string `gorm:"uniqueIndex;size:64"`
	Operation      string `gorm:"index;size:64"`
	SubmitterID    string `gorm:"index;size:128"`
	ValidationCode string `gorm:"size:16"`
	CommittedAt    time.Time
}

func (BlockTransaction) TableName() string {
	return "block_transaction"
}

// Valid returns true if the transaction was applied to the record store
func (t *BlockTransaction) Valid() bool {
	return t.ValidationCode == TxValidationValid
}
