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

// Token is a single-use voting entitlement. Its lifecycle is monotonic:
// ISSUED -> USED, or ISSUED -> EXPIRED where expiry is derived from the
// clock rather than stored as a transition. Setting Used is the only
// mutation ever applied to a token record.
type Token struct {
	TokenID        string     `json:"tokenId"`
	ElectionID     string     `json:"electionId"`
	VoterHash      string     `json:"voterHash"`
	ConstituencyID string     `json:"constituencyId"`
	Proof          string     `json:"proof"`
	IssuedAt       time.Time  `json:"issuedAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	Used           bool       `json:"used"`
	UsedAt         *time.Time `json:"usedAt,omitempty"`
}

// Expired reports whether the token has passed its validity window
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// issuanceMarker is the value stored under the (electionID, voterHash)
// issuance marker key. The key's existence is the sole source of truth for
// "already issued"; the marker is never deleted.
type issuanceMarker struct {
	TokenID  string    `json:"tokenId"`
	IssuedAt time.Time `json:"issuedAt"`
}

type IssueVotingTokenParams struct {
	VoterHash  string
	ElectionID string
	TokenID    string
	Proof      string
}

// IssueVotingToken issues a single-use voting entitlement for a voter in an
// election. The issuance marker for (electionID, voterHash) is read and then
// written in the same transaction, so two racing issuances for the same pair
// can never both commit: the second is invalidated at commit time even when
// both simulated against a marker-free snapshot.
func (l *Ledger) IssueVotingToken(
	txn *database.Txn,
	params IssueVotingTokenParams,
) (*Token, error) {
	if err := validateID("tokenId", params.TokenID); err != nil {
		return nil, err
	}
	var voter Voter
	err := l.getRecord(txn, types.VoterKey(params.VoterHash), &voter)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(
				CodeNotFound,
				"voter %s not found",
				params.VoterHash,
			)
		}
		return nil, err
	}
	if !voter.Registered || !voter.Eligible {
		return nil, newError(
			CodeNotEligible,
			"voter %s is not eligible",
			params.VoterHash,
		)
	}
	election, err := l.GetElection(txn, params.ElectionID)
	if err != nil {
		return nil, err
	}
	if election.Status.Terminal() {
		return nil, newError(
			CodeInvalidState,
			"election %s is %s",
			params.ElectionID,
			election.Status,
		)
	}
	if !election.HasConstituency(voter.ConstituencyID) {
		return nil, newError(
			CodeNotEligible,
			"constituency %s is not part of election %s",
			voter.ConstituencyID,
			params.ElectionID,
		)
	}
	markerKey := types.IssuanceMarkerKey(params.ElectionID, params.VoterHash)
	issued, err := txn.Exists(markerKey)
	if err != nil {
		return nil, err
	}
	if issued {
		return nil, newError(
			CodeAlreadyIssued,
			"token already issued for voter %s in election %s",
			params.VoterHash,
			params.ElectionID,
		)
	}
	tokenKey := types.TokenKey(params.TokenID)
	exists, err := txn.Exists(tokenKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(
			CodeAlreadyExists,
			"token %s already exists",
			params.TokenID,
		)
	}
	// Placeholder proof validation: presence only. A real eligibility proof
	// scheme would be verified here.
	if params.Proof == "" {
		return nil, newError(CodeInvalidToken, "eligibility proof is empty")
	}
	now := l.now()
	token := &Token{
		TokenID:        params.TokenID,
		ElectionID:     params.ElectionID,
		VoterHash:      params.VoterHash,
		ConstituencyID: voter.ConstituencyID,
		Proof:          params.Proof,
		IssuedAt:       now,
		ExpiresAt:      now.Add(l.tokenTTL),
	}
	if err := l.putRecord(txn, tokenKey, token); err != nil {
		return nil, err
	}
	marker := &issuanceMarker{
		TokenID:  params.TokenID,
		IssuedAt: now,
	}
	if err := l.putRecord(txn, markerKey, marker); err != nil {
		return nil, err
	}
	return token, nil
}

// getToken reads a token record, translating a missing key to NOT_FOUND
func (l *Ledger) getToken(
	txn *database.Txn,
	tokenID string,
) (*Token, error) {
	var token Token
	err := l.getRecord(txn, types.TokenKey(tokenID), &token)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return nil, newError(CodeNotFound, "token %s not found", tokenID)
		}
		return nil, err
	}
	return &token, nil
}

// UseVotingToken consumes a token. Consuming an already-used or expired
// token always fails and never mutates state.
func (l *Ledger) UseVotingToken(
	txn *database.Txn,
	tokenID string,
) (*Token, error) {
	token, err := l.getToken(txn, tokenID)
	if err != nil {
		return nil, err
	}
	if token.Used {
		return nil, newError(CodeAlreadyUsed, "token %s already used", tokenID)
	}
	now := l.now()
	if token.Expired(now) {
		return nil, newError(CodeExpired, "token %s expired", tokenID)
	}
	token.Used = true
	token.UsedAt = &now
	if err := l.putRecord(txn, types.TokenKey(tokenID), token); err != nil {
		return nil, err
	}
	return token, nil
}

// TokenVerification is the result of VerifyToken
type TokenVerification struct {
	Used    bool `json:"used"`
	Expired bool `json:"expired"`
	Valid   bool `json:"valid"`
}

// VerifyToken reports a token's validity without side effects
func (l *Ledger) VerifyToken(
	txn *database.Txn,
	tokenID string,
) (*TokenVerification, error) {
	token, err := l.getToken(txn, tokenID)
	if err != nil {
		return nil, err
	}
	expired := token.Expired(l.now())
	return &TokenVerification{
		Used:    token.Used,
		Expired: expired,
		Valid:   !token.Used && !expired,
	}, nil
}
