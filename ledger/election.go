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
	"slices"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/matdan-labs/matdan/identity"
)

type ElectionStatus string

const (
	ElectionStatusCreated   ElectionStatus = "CREATED"
	ElectionStatusUpcoming  ElectionStatus = "UPCOMING"
	ElectionStatusActive    ElectionStatus = "ACTIVE"
	ElectionStatusEnded     ElectionStatus = "ENDED"
	ElectionStatusCancelled ElectionStatus = "CANCELLED"
)

// Terminal returns true for statuses that no transition may leave
func (s ElectionStatus) Terminal() bool {
	return s == ElectionStatusEnded || s == ElectionStatusCancelled
}

// CanTransition reports whether a status change is allowed. Transitions are
// monotonic along CREATED -> UPCOMING -> ACTIVE -> ENDED, with CANCELLED
// reachable from any non-terminal status.
func (s ElectionStatus) CanTransition(next ElectionStatus) bool {
	if next == ElectionStatusCancelled {
		return !s.Terminal()
	}
	switch s {
	case ElectionStatusCreated:
		return next == ElectionStatusUpcoming || next == ElectionStatusActive
	case ElectionStatusUpcoming:
		return next == ElectionStatusActive
	case ElectionStatusActive:
		return next == ElectionStatusEnded
	default:
		return false
	}
}

// Election is the administrative record of a single election
type Election struct {
	ElectionID     string         `json:"electionId"`
	Name           string         `json:"name"`
	Status         ElectionStatus `json:"status"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	Constituencies []string       `json:"constituencies"`
}

// HasConstituency reports whether a constituency participates in the election
func (e *Election) HasConstituency(constituencyID string) bool {
	return slices.Contains(e.Constituencies, constituencyID)
}

// Candidate belongs to exactly one election and constituency
type Candidate struct {
	CandidateID    string `json:"candidateId"`
	ElectionID     string `json:"electionId"`
	ConstituencyID string `json:"constituencyId"`
	PartyID        string `json:"partyId"`
	Name           string `json:"name"`
}

type CreateElectionParams struct {
	ElectionID     string
	Name           string
	StartTime      time.Time
	EndTime        time.Time
	Constituencies []string
}

// CreateElection creates an election in CREATED status. Admin only.
func (l *Ledger) CreateElection(
	txn *database.Txn,
	ident identity.Identity,
	params CreateElectionParams,
) (*Election, error) {
	if !ident.IsAdmin() {
		return nil, newError(
			CodeUnauthorized,
			"identity %s may not create elections",
			ident.ID,
		)
	}
	if err := validateID("electionId", params.ElectionID); err != nil {
		return nil, err
	}
	if len(params.Constituencies) == 0 {
		return nil, newError(
			CodeInvalidState,
			"election requires at least one constituency",
		)
	}
	for _, constituencyID := range params.Constituencies {
		if err := validateID("constituencyId", constituencyID); err != nil {
			return nil, err
		}
	}
	key := types.ElectionKey(params.ElectionID)
	exists, err := txn.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(
			CodeAlreadyExists,
			"election %s already exists",
			params.ElectionID,
		)
	}
	election := &Election{
		ElectionID:     params.ElectionID,
		Name:           params.Name,
		Status:         ElectionStatusCreated,
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		Constituencies: params.Constituencies,
	}
	if err := l.putRecord(txn, key, election); err != nil {
		return nil, err
	}
	return election, nil
}

// GetElection returns an election record
func (l *Ledger) GetElection(
	txn *database.Txn,
	electionID string,
) (*Election, error) {
	var election Election
	err := l.getRecord(txn, types.ElectionKey(electionID), &election)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(
				CodeNotFound,
				"election %s not found",
				electionID,
			)
		}
		return nil, err
	}
	return &election, nil
}

type RegisterCandidateParams struct {
	CandidateID    string
	ElectionID     string
	ConstituencyID string
	PartyID        string
	Name           string
}

// RegisterCandidate adds a candidate to an election. Admin only. Candidates
// may only be registered before the election becomes ACTIVE.
func (l *Ledger) RegisterCandidate(
	txn *database.Txn,
	ident identity.Identity,
	params RegisterCandidateParams,
) (*Candidate, error) {
	if !ident.IsAdmin() {
		return nil, newError(
			CodeUnauthorized,
			"identity %s may not register candidates",
			ident.ID,
		)
	}
	if err := validateID("candidateId", params.CandidateID); err != nil {
		return nil, err
	}
	election, err := l.GetElection(txn, params.ElectionID)
	if err != nil {
		return nil, err
	}
	switch election.Status {
	case ElectionStatusCreated, ElectionStatusUpcoming:
	default:
		return nil, newError(
			CodeInvalidState,
			"election %s is %s, cannot register candidates",
			params.ElectionID,
			election.Status,
		)
	}
	if !election.HasConstituency(params.ConstituencyID) {
		return nil, newError(
			CodeInvalidState,
			"constituency %s is not part of election %s",
			params.ConstituencyID,
			params.ElectionID,
		)
	}
	key := types.CandidateKey(params.ElectionID, params.CandidateID)
	exists, err := txn.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(
			CodeAlreadyExists,
			"candidate %s already registered in election %s",
			params.CandidateID,
			params.ElectionID,
		)
	}
	candidate := &Candidate{
		CandidateID:    params.CandidateID,
		ElectionID:     params.ElectionID,
		ConstituencyID: params.ConstituencyID,
		PartyID:        params.PartyID,
		Name:           params.Name,
	}
	if err := l.putRecord(txn, key, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// transitionElection applies a status change after validating it
func (l *Ledger) transitionElection(
	txn *database.Txn,
	ident identity.Identity,
	electionID string,
	next ElectionStatus,
) (*Election, error) {
	if !ident.IsAdmin() {
		return nil, newError(
			CodeUnauthorized,
			"identity %s may not change election status",
			ident.ID,
		)
	}
	election, err := l.GetElection(txn, electionID)
	if err != nil {
		return nil, err
	}
	if !election.Status.CanTransition(next) {
		return nil, newError(
			CodeInvalidState,
			"election %s cannot transition %s -> %s",
			electionID,
			election.Status,
			next,
		)
	}
	election.Status = next
	key := types.ElectionKey(electionID)
	if err := l.putRecord(txn, key, election); err != nil {
		return nil, err
	}
	return election, nil
}

// ScheduleElection moves an election from CREATED to UPCOMING
func (l *Ledger) ScheduleElection(
	txn *database.Txn,
	ident identity.Identity,
	electionID string,
) (*Election, error) {
	return l.transitionElection(txn, ident, electionID, ElectionStatusUpcoming)
}

// StartElection moves an election to ACTIVE. Voting is accepted only while
// an election is ACTIVE.
func (l *Ledger) StartElection(
	txn *database.Txn,
	ident identity.Identity,
	electionID string,
) (*Election, error) {
	return l.transitionElection(txn, ident, electionID, ElectionStatusActive)
}

// EndElection moves an election to ENDED, which is terminal
func (l *Ledger) EndElection(
	txn *database.Txn,
	ident identity.Identity,
	electionID string,
) (*Election, error) {
	return l.transitionElection(txn, ident, electionID, ElectionStatusEnded)
}

// CancelElection moves an election to CANCELLED from any non-terminal status
func (l *Ledger) CancelElection(
	txn *database.Txn,
	ident identity.Identity,
	electionID string,
) (*Election, error) {
	return l.transitionElection(txn, ident, electionID, ElectionStatusCancelled)
}
