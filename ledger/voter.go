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

package ledger

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/matdan-labs/matdan/identity"
)

// Voter is an enrollment record, keyed by the voter hash. Raw voter
// identifiers never reach the ledger; both the key and the credential are
// salted hashes computed by the caller (see the identity package).
type Voter struct {
	VoterHash      string    `json:"voterHash"`
	AadharHash     string    `json:"aadharHash"`
	ConstituencyID string    `json:"constituencyId"`
	Eligible       bool      `json:"eligible"`
	Registered     bool      `json:"registered"`
	RegisteredAt   time.Time `json:"registeredAt"`
}

type RegisterVoterParams struct {
	VoterHash      string
	AadharHash     string
	ConstituencyID string
	Eligible       bool
}

// RegisterVoter creates a voter enrollment record. Only admin identities may
// enroll voters. Fails with ALREADY_EXISTS when the voter hash is present.
func (l *Ledger) RegisterVoter(
	txn *database.Txn,
	ident identity.Identity,
	params RegisterVoterParams,
) (*Voter, error) {
	if !ident.IsAdmin() {
		return nil, newError(
			CodeUnauthorized,
			"identity %s may not register voters",
			ident.ID,
		)
	}
	if err := validateID("voterHash", params.VoterHash); err != nil {
		return nil, err
	}
	if err := validateID("aadharHash", params.AadharHash); err != nil {
		return nil, err
	}
	if err := validateID("constituencyId", params.ConstituencyID); err != nil {
		return nil, err
	}
	key := types.VoterKey(params.VoterHash)
	exists, err := txn.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(
			CodeAlreadyExists,
			"voter %s already registered",
			params.VoterHash,
		)
	}
	voter := &Voter{
		VoterHash:      params.VoterHash,
		AadharHash:     params.AadharHash,
		ConstituencyID: params.ConstituencyID,
		Eligible:       params.Eligible,
		Registered:     true,
		RegisteredAt:   l.now(),
	}
	if err := l.putRecord(txn, key, voter); err != nil {
		return nil, err
	}
	return voter, nil
}

// GetVoter returns a voter record. The supplied credential hash must match
// the stored one: only the credential holder can read their own record,
// which defends against enumeration of voter hashes.
func (l *Ledger) GetVoter(
	txn *database.Txn,
	voterHash string,
	aadharHash string,
) (*Voter, error) {
	var voter Voter
	err := l.getRecord(txn, types.VoterKey(voterHash), &voter)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(CodeNotFound, "voter %s not found", voterHash)
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare(
		[]byte(voter.AadharHash),
		[]byte(aadharHash),
	) != 1 {
		return nil, newError(CodeUnauthorized, "credential mismatch")
	}
	return &voter, nil
}

// VoterVerification is the result of VerifyVoter
type VoterVerification struct {
	Eligible bool `json:"eligible"`
	HasVoted bool `json:"hasVoted"`
}

// VerifyVoter reports whether a voter is eligible to vote in an election and
// whether they have already done so
func (l *Ledger) VerifyVoter(
	txn *database.Txn,
	voterHash string,
	electionID string,
) (*VoterVerification, error) {
	var voter Voter
	err := l.getRecord(txn, types.VoterKey(voterHash), &voter)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(CodeNotFound, "voter %s not found", voterHash)
		}
		return nil, err
	}
	hasVoted, err := txn.Exists(types.VoteRecordKey(electionID, voterHash))
	if err != nil {
		return nil, err
	}
	return &VoterVerification{
		Eligible: voter.Registered && voter.Eligible,
		HasVoted: hasVoted,
	}, nil
}

// VoterStatus is the public, non-sensitive view of a voter in an election.
// It never exposes the candidate chosen.
type VoterStatus struct {
	ConstituencyID string `json:"constituencyId"`
	HasVoted       bool   `json:"hasVoted"`
}

// GetVoterStatus returns the public voting status for a voter in an election
func (l *Ledger) GetVoterStatus(
	txn *database.Txn,
	voterHash string,
	electionID string,
) (*VoterStatus, error) {
	var voter Voter
	err := l.getRecord(txn, types.VoterKey(voterHash), &voter)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(CodeNotFound, "voter %s not found", voterHash)
		}
		return nil, err
	}
	hasVoted, err := txn.Exists(types.VoteRecordKey(electionID, voterHash))
	if err != nil {
		return nil, err
	}
	return &VoterStatus{
		ConstituencyID: voter.ConstituencyID,
		HasVoted:       hasVoted,
	}, nil
}
