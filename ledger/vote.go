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
	"errors"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
)

// VoteRecord is one cast ballot, keyed by (electionID, voterHash). The
// record is immutable and never updated or deleted; its existence is the
// sole source of truth for "already voted". Each vote is an independent key
// rather than an increment of a per-candidate counter, so concurrent votes
// for the same candidate never contend on a shared key.
type VoteRecord struct {
	ElectionID  string    `json:"electionId"`
	VoterHash   string    `json:"voterHash"`
	CandidateID string    `json:"candidateId"`
	CastAt      time.Time `json:"castAt"`
}

type CastVoteParams struct {
	ElectionID  string
	VoterHash   string
	CandidateID string
	TokenID     string
}

// CastVote records a ballot. The vote record existence check is a second
// gate alongside token consumption: a double vote must be impossible even
// if a voter hash is somehow presented with two distinct valid tokens.
func (l *Ledger) CastVote(
	txn *database.Txn,
	params CastVoteParams,
) (*VoteRecord, error) {
	election, err := l.GetElection(txn, params.ElectionID)
	if err != nil {
		return nil, err
	}
	if election.Status != ElectionStatusActive {
		return nil, newError(
			CodeInvalidState,
			"election %s is %s, voting requires ACTIVE",
			params.ElectionID,
			election.Status,
		)
	}
	var candidate Candidate
	err = l.getRecord(
		txn,
		types.CandidateKey(params.ElectionID, params.CandidateID),
		&candidate,
	)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(
				CodeNotFound,
				"candidate %s not found in election %s",
				params.CandidateID,
				params.ElectionID,
			)
		}
		return nil, err
	}
	token, err := l.getToken(txn, params.TokenID)
	if err != nil {
		return nil, err
	}
	if token.ElectionID != params.ElectionID ||
		token.VoterHash != params.VoterHash {
		return nil, newError(
			CodeInvalidToken,
			"token %s was not issued for this voter and election",
			params.TokenID,
		)
	}
	if candidate.ConstituencyID != token.ConstituencyID {
		return nil, newError(
			CodeNotEligible,
			"candidate %s is outside voter constituency %s",
			params.CandidateID,
			token.ConstituencyID,
		)
	}
	voteKey := types.VoteRecordKey(params.ElectionID, params.VoterHash)
	voted, err := txn.Exists(voteKey)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, newError(
			CodeAlreadyVoted,
			"voter %s already voted in election %s",
			params.VoterHash,
			params.ElectionID,
		)
	}
	if _, err := l.UseVotingToken(txn, params.TokenID); err != nil {
		return nil, err
	}
	vote := &VoteRecord{
		ElectionID:  params.ElectionID,
		VoterHash:   params.VoterHash,
		CandidateID: params.CandidateID,
		CastAt:      l.now(),
	}
	if err := l.putRecord(txn, voteKey, vote); err != nil {
		return nil, err
	}
	return vote, nil
}
