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
	"encoding/json"
	"fmt"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
)

// Tallies are computed at read time by scanning vote records. No mutable
// aggregate exists anywhere in the store, so tally reads never contend with
// concurrent voting.

// forEachRecord scans all records under a prefix and unmarshals each value
// into a fresh T before invoking fn
func forEachRecord[T any](
	txn *database.Txn,
	prefix []byte,
	fn func(*T) error,
) error {
	iter, err := txn.NewIterator(prefix)
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf(
				"unmarshal record %q: %w",
				string(item.Key()),
				err,
			)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	return iter.Err()
}

// GetCandidateVoteCount counts votes for one candidate by scanning the
// election's vote records
func (l *Ledger) GetCandidateVoteCount(
	txn *database.Txn,
	electionID string,
	candidateID string,
) (int, error) {
	exists, err := txn.Exists(types.CandidateKey(electionID, candidateID))
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, newError(
			CodeNotFound,
			"candidate %s not found in election %s",
			candidateID,
			electionID,
		)
	}
	var count int
	err = forEachRecord(
		txn,
		types.VoteRecordElectionPrefix(electionID),
		func(vote *VoteRecord) error {
			if vote.CandidateID == candidateID {
				count++
			}
			return nil
		},
	)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CandidateResult is one candidate's tally within election results
type CandidateResult struct {
	CandidateID    string `json:"candidateId"`
	Name           string `json:"name"`
	PartyID        string `json:"partyId"`
	ConstituencyID string `json:"constituencyId"`
	Votes          int    `json:"votes"`
}

// ElectionResults is the full tally of an election
type ElectionResults struct {
	ElectionID string            `json:"electionId"`
	Status     ElectionStatus    `json:"status"`
	TotalVotes int               `json:"totalVotes"`
	Results    []CandidateResult `json:"results"`
}

// GetElectionResults tallies every candidate in an election, including
// candidates with zero votes. Results are ordered by candidate ID.
func (l *Ledger) GetElectionResults(
	txn *database.Txn,
	electionID string,
) (*ElectionResults, error) {
	election, err := l.GetElection(txn, electionID)
	if err != nil {
		return nil, err
	}
	// Candidate keys sort by candidate ID within the election prefix
	var results []CandidateResult
	byCandidate := make(map[string]int)
	err = forEachRecord(
		txn,
		types.CandidateKeyElectionPrefix(electionID),
		func(candidate *Candidate) error {
			byCandidate[candidate.CandidateID] = len(results)
			results = append(results, CandidateResult{
				CandidateID:    candidate.CandidateID,
				Name:           candidate.Name,
				PartyID:        candidate.PartyID,
				ConstituencyID: candidate.ConstituencyID,
			})
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	totalVotes := 0
	err = forEachRecord(
		txn,
		types.VoteRecordElectionPrefix(electionID),
		func(vote *VoteRecord) error {
			totalVotes++
			if idx, ok := byCandidate[vote.CandidateID]; ok {
				results[idx].Votes++
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &ElectionResults{
		ElectionID: electionID,
		Status:     election.Status,
		TotalVotes: totalVotes,
		Results:    results,
	}, nil
}

// ConstituencyTurnout is a reporting view of participation in one
// constituency
type ConstituencyTurnout struct {
	ConstituencyID string  `json:"constituencyId"`
	ElectionID     string  `json:"electionId"`
	TotalVoters    int     `json:"totalVoters"`
	VotedVoters    int     `json:"votedVoters"`
	Percentage     float64 `json:"percentage"`
}

// GetConstituencyTurnout reports turnout for a constituency. This is a
// linear scan over registered voters and is a reporting operation, not part
// of the voting hot path.
func (l *Ledger) GetConstituencyTurnout(
	txn *database.Txn,
	constituencyID string,
	electionID string,
) (*ConstituencyTurnout, error) {
	election, err := l.GetElection(txn, electionID)
	if err != nil {
		return nil, err
	}
	if !election.HasConstituency(constituencyID) {
		return nil, newError(
			CodeNotFound,
			"constituency %s is not part of election %s",
			constituencyID,
			electionID,
		)
	}
	turnout := &ConstituencyTurnout{
		ConstituencyID: constituencyID,
		ElectionID:     electionID,
	}
	var voterHashes []string
	err = forEachRecord(
		txn,
		types.VoterKeyPrefixBytes(),
		func(voter *Voter) error {
			if voter.ConstituencyID == constituencyID && voter.Registered {
				voterHashes = append(voterHashes, voter.VoterHash)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	turnout.TotalVoters = len(voterHashes)
	for _, voterHash := range voterHashes {
		voted, err := txn.Exists(
			types.VoteRecordKey(electionID, voterHash),
		)
		if err != nil {
			return nil, err
		}
		if voted {
			turnout.VotedVoters++
		}
	}
	if turnout.TotalVoters > 0 {
		turnout.Percentage = float64(
			turnout.VotedVoters,
		) / float64(turnout.TotalVoters) * 100
	}
	return turnout, nil
}
