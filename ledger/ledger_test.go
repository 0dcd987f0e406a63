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

package ledger_test

import (
	"sync"
	"testing"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/identity"
	"github.com/matdan-labs/matdan/ledger"

	"github.com/stretchr/testify/require"
)

var (
	testAdmin  = identity.Identity{ID: "eci-admin", Org: "ECI", Role: identity.RoleAdmin}
	testMember = identity.Identity{ID: "booth-7", Org: "ECI", Role: identity.RoleMember}
)

// testClock is a settable clock shared with the ledger under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger(t *testing.T) (*ledger.Ledger, *database.Database, *testClock) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	clock := &testClock{now: time.Now()}
	l := ledger.NewLedger(ledger.LedgerConfig{
		NowFunc: clock.Now,
	})
	return l, db, clock
}

func runTxn(
	t *testing.T,
	db *database.Database,
	fn func(*database.Txn) error,
) error {
	t.Helper()
	return db.Transaction(true).Do(fn)
}

func queryTxn(
	t *testing.T,
	db *database.Database,
	fn func(*database.Txn) error,
) error {
	t.Helper()
	txn := db.Transaction(false)
	defer txn.Rollback() //nolint:errcheck
	return fn(txn)
}

func requireCode(t *testing.T, err error, expected ledger.Code) {
	t.Helper()
	require.Error(t, err)
	code, ok := ledger.ErrorCode(err)
	require.True(t, ok, "expected declared failure, got: %v", err)
	require.Equal(t, expected, code, "unexpected failure code: %v", err)
}

// seedElection registers a voter in C1, creates election E1 over [C1],
// registers candidate K1, and starts the election
func seedElection(
	t *testing.T,
	l *ledger.Ledger,
	db *database.Database,
) {
	t.Helper()
	err := runTxn(t, db, func(txn *database.Txn) error {
		if _, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		}); err != nil {
			return err
		}
		if _, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1"},
		}); err != nil {
			return err
		}
		if _, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K1",
			ElectionID:     "E1",
			ConstituencyID: "C1",
			PartyID:        "P1",
			Name:           "Candidate One",
		}); err != nil {
			return err
		}
		_, err := l.StartElection(txn, testAdmin, "E1")
		return err
	})
	require.NoError(t, err)
}

func TestElectionScenario(t *testing.T) {
	l, db, _ := newTestLedger(t)
	seedElection(t, l, db)

	// Issue voting token T1 for V1 in E1
	err := runTxn(t, db, func(txn *database.Txn) error {
		token, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      identity.ProofDigest("V1", "secret"),
		})
		if err != nil {
			return err
		}
		require.False(t, token.Used)
		require.Equal(t, "C1", token.ConstituencyID)
		return nil
	})
	require.NoError(t, err)

	// A second issuance for the same voter and election must fail
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T2",
			Proof:      identity.ProofDigest("V1", "secret"),
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyIssued)

	// Cast the vote
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CastVote(txn, ledger.CastVoteParams{
			ElectionID:  "E1",
			VoterHash:   "V1",
			CandidateID: "K1",
			TokenID:     "T1",
		})
		return err
	})
	require.NoError(t, err)

	// The token is now consumed and the vote recorded
	err = queryTxn(t, db, func(txn *database.Txn) error {
		verification, err := l.VerifyToken(txn, "T1")
		require.NoError(t, err)
		require.True(t, verification.Used)
		require.False(t, verification.Valid)

		status, err := l.GetVoterStatus(txn, "V1", "E1")
		require.NoError(t, err)
		require.True(t, status.HasVoted)
		require.Equal(t, "C1", status.ConstituencyID)

		count, err := l.GetCandidateVoteCount(txn, "E1", "K1")
		require.NoError(t, err)
		require.Equal(t, 1, count)

		turnout, err := l.GetConstituencyTurnout(txn, "C1", "E1")
		require.NoError(t, err)
		require.Equal(t, 1, turnout.TotalVoters)
		require.Equal(t, 1, turnout.VotedVoters)
		require.InDelta(t, 100.0, turnout.Percentage, 0.001)
		return nil
	})
	require.NoError(t, err)

	// A second vote for the same voter must fail
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CastVote(txn, ledger.CastVoteParams{
			ElectionID:  "E1",
			VoterHash:   "V1",
			CandidateID: "K1",
			TokenID:     "T1",
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyVoted)

	// End the election; voting is then rejected
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.EndElection(txn, testAdmin, "E1")
		return err
	})
	require.NoError(t, err)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CastVote(txn, ledger.CastVoteParams{
			ElectionID:  "E1",
			VoterHash:   "V1",
			CandidateID: "K1",
			TokenID:     "T1",
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)
}

func TestRegisterVoter(t *testing.T) {
	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testMember, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		})
		return err
	})
	requireCode(t, err, ledger.CodeUnauthorized)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		})
		return err
	})
	require.NoError(t, err)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A2",
			ConstituencyID: "C2",
			Eligible:       true,
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyExists)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "",
			AadharHash:     "A3",
			ConstituencyID: "C1",
			Eligible:       true,
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)
}

func TestGetVoter(t *testing.T) {
	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		})
		return err
	})
	require.NoError(t, err)

	err = queryTxn(t, db, func(txn *database.Txn) error {
		voter, err := l.GetVoter(txn, "V1", "A1")
		require.NoError(t, err)
		require.Equal(t, "C1", voter.ConstituencyID)
		require.True(t, voter.Registered)
		return nil
	})
	require.NoError(t, err)

	err = queryTxn(t, db, func(txn *database.Txn) error {
		_, err := l.GetVoter(txn, "V1", "wrong-credential")
		return err
	})
	requireCode(t, err, ledger.CodeUnauthorized)

	err = queryTxn(t, db, func(txn *database.Txn) error {
		_, err := l.GetVoter(txn, "V9", "A1")
		return err
	})
	requireCode(t, err, ledger.CodeNotFound)
}

func TestVerifyVoter(t *testing.T) {
	l, db, _ := newTestLedger(t)
	seedElection(t, l, db)

	err := queryTxn(t, db, func(txn *database.Txn) error {
		verification, err := l.VerifyVoter(txn, "V1", "E1")
		require.NoError(t, err)
		require.True(t, verification.Eligible)
		require.False(t, verification.HasVoted)
		return nil
	})
	require.NoError(t, err)

	err = queryTxn(t, db, func(txn *database.Txn) error {
		_, err := l.VerifyVoter(txn, "V9", "E1")
		return err
	})
	requireCode(t, err, ledger.CodeNotFound)
}

func TestElectionTransitions(t *testing.T) {
	testDefs := []struct {
		from    ledger.ElectionStatus
		to      ledger.ElectionStatus
		allowed bool
	}{
		{ledger.ElectionStatusCreated, ledger.ElectionStatusUpcoming, true},
		{ledger.ElectionStatusCreated, ledger.ElectionStatusActive, true},
		{ledger.ElectionStatusCreated, ledger.ElectionStatusCancelled, true},
		{ledger.ElectionStatusCreated, ledger.ElectionStatusEnded, false},
		{ledger.ElectionStatusUpcoming, ledger.ElectionStatusActive, true},
		{ledger.ElectionStatusUpcoming, ledger.ElectionStatusCreated, false},
		{ledger.ElectionStatusActive, ledger.ElectionStatusEnded, true},
		{ledger.ElectionStatusActive, ledger.ElectionStatusUpcoming, false},
		{ledger.ElectionStatusActive, ledger.ElectionStatusCancelled, true},
		{ledger.ElectionStatusEnded, ledger.ElectionStatusActive, false},
		{ledger.ElectionStatusEnded, ledger.ElectionStatusCancelled, false},
		{ledger.ElectionStatusCancelled, ledger.ElectionStatusActive, false},
	}
	for _, testDef := range testDefs {
		require.Equal(
			t,
			testDef.allowed,
			testDef.from.CanTransition(testDef.to),
			"%s -> %s", testDef.from, testDef.to,
		)
	}

	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1"},
		})
		return err
	})
	require.NoError(t, err)

	// Schedule, start, end
	err = runTxn(t, db, func(txn *database.Txn) error {
		if _, err := l.ScheduleElection(txn, testAdmin, "E1"); err != nil {
			return err
		}
		if _, err := l.StartElection(txn, testAdmin, "E1"); err != nil {
			return err
		}
		_, err := l.EndElection(txn, testAdmin, "E1")
		return err
	})
	require.NoError(t, err)

	// ENDED is terminal
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.StartElection(txn, testAdmin, "E1")
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CancelElection(txn, testAdmin, "E1")
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)

	// Non-admin identities cannot transition elections
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E2",
			Name:           "By-Election",
			Constituencies: []string{"C1"},
		})
		return err
	})
	require.NoError(t, err)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.StartElection(txn, testMember, "E2")
		return err
	})
	requireCode(t, err, ledger.CodeUnauthorized)
}

func TestCreateElectionValidation(t *testing.T) {
	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID: "E1",
			Name:       "No Constituencies",
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1"},
		})
		return err
	})
	require.NoError(t, err)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "Duplicate",
			Constituencies: []string{"C2"},
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyExists)
}

func TestRegisterCandidate(t *testing.T) {
	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1"},
		})
		return err
	})
	require.NoError(t, err)

	// Constituency must belong to the election
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K1",
			ElectionID:     "E1",
			ConstituencyID: "C9",
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K1",
			ElectionID:     "E1",
			ConstituencyID: "C1",
			PartyID:        "P1",
			Name:           "Candidate One",
		})
		return err
	})
	require.NoError(t, err)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K1",
			ElectionID:     "E1",
			ConstituencyID: "C1",
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyExists)

	// No registrations once the election is ACTIVE
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.StartElection(txn, testAdmin, "E1")
		return err
	})
	require.NoError(t, err)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K2",
			ElectionID:     "E1",
			ConstituencyID: "C1",
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidState)
}

func TestIssueVotingTokenValidation(t *testing.T) {
	l, db, _ := newTestLedger(t)
	seedElection(t, l, db)
	err := runTxn(t, db, func(txn *database.Txn) error {
		// Voter in a constituency outside the election
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V2",
			AadharHash:     "A2",
			ConstituencyID: "C9",
			Eligible:       true,
		})
		if err != nil {
			return err
		}
		// Ineligible voter
		_, err = l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V3",
			AadharHash:     "A3",
			ConstituencyID: "C1",
			Eligible:       false,
		})
		return err
	})
	require.NoError(t, err)

	testDefs := []struct {
		name         string
		params       ledger.IssueVotingTokenParams
		expectedCode ledger.Code
	}{
		{
			name: "unknown voter",
			params: ledger.IssueVotingTokenParams{
				VoterHash:  "V9",
				ElectionID: "E1",
				TokenID:    "T1",
				Proof:      "proof",
			},
			expectedCode: ledger.CodeNotFound,
		},
		{
			name: "ineligible voter",
			params: ledger.IssueVotingTokenParams{
				VoterHash:  "V3",
				ElectionID: "E1",
				TokenID:    "T1",
				Proof:      "proof",
			},
			expectedCode: ledger.CodeNotEligible,
		},
		{
			name: "constituency outside election",
			params: ledger.IssueVotingTokenParams{
				VoterHash:  "V2",
				ElectionID: "E1",
				TokenID:    "T1",
				Proof:      "proof",
			},
			expectedCode: ledger.CodeNotEligible,
		},
		{
			name: "unknown election",
			params: ledger.IssueVotingTokenParams{
				VoterHash:  "V1",
				ElectionID: "E9",
				TokenID:    "T1",
				Proof:      "proof",
			},
			expectedCode: ledger.CodeNotFound,
		},
		{
			name: "empty proof",
			params: ledger.IssueVotingTokenParams{
				VoterHash:  "V1",
				ElectionID: "E1",
				TokenID:    "T1",
			},
			expectedCode: ledger.CodeInvalidToken,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := runTxn(t, db, func(txn *database.Txn) error {
				_, err := l.IssueVotingToken(txn, testDef.params)
				return err
			})
			requireCode(t, err, testDef.expectedCode)
		})
	}

	// Duplicate token ID for a different voter
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      "proof",
		})
		return err
	})
	require.NoError(t, err)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V4",
			AadharHash:     "A4",
			ConstituencyID: "C1",
			Eligible:       true,
		})
		return err
	})
	require.NoError(t, err)
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V4",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      "proof",
		})
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyExists)
}

func TestTokenExpiry(t *testing.T) {
	l, db, clock := newTestLedger(t)
	seedElection(t, l, db)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      "proof",
		})
		return err
	})
	require.NoError(t, err)

	// VerifyToken has no side effects: repeated checks leave the token valid
	for range 2 {
		err = queryTxn(t, db, func(txn *database.Txn) error {
			verification, err := l.VerifyToken(txn, "T1")
			require.NoError(t, err)
			require.True(t, verification.Valid)
			require.False(t, verification.Used)
			require.False(t, verification.Expired)
			return nil
		})
		require.NoError(t, err)
	}

	clock.Advance(ledger.DefaultTokenTTL + time.Minute)

	err = queryTxn(t, db, func(txn *database.Txn) error {
		verification, err := l.VerifyToken(txn, "T1")
		require.NoError(t, err)
		require.True(t, verification.Expired)
		require.False(t, verification.Valid)
		return nil
	})
	require.NoError(t, err)

	// An expired token cannot be consumed
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.UseVotingToken(txn, "T1")
		return err
	})
	requireCode(t, err, ledger.CodeExpired)

	// Expiry did not mutate the record
	err = queryTxn(t, db, func(txn *database.Txn) error {
		verification, err := l.VerifyToken(txn, "T1")
		require.NoError(t, err)
		require.False(t, verification.Used)
		return nil
	})
	require.NoError(t, err)
}

func TestUseVotingToken(t *testing.T) {
	l, db, _ := newTestLedger(t)
	seedElection(t, l, db)
	err := runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      "proof",
		})
		return err
	})
	require.NoError(t, err)

	err = runTxn(t, db, func(txn *database.Txn) error {
		token, err := l.UseVotingToken(txn, "T1")
		if err != nil {
			return err
		}
		require.True(t, token.Used)
		require.NotNil(t, token.UsedAt)
		return nil
	})
	require.NoError(t, err)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.UseVotingToken(txn, "T1")
		return err
	})
	requireCode(t, err, ledger.CodeAlreadyUsed)

	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.UseVotingToken(txn, "T9")
		return err
	})
	requireCode(t, err, ledger.CodeNotFound)
}

func TestCastVoteValidation(t *testing.T) {
	l, db, _ := newTestLedger(t)
	seedElection(t, l, db)
	err := runTxn(t, db, func(txn *database.Txn) error {
		// A second voter with their own token
		if _, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V2",
			AadharHash:     "A2",
			ConstituencyID: "C1",
			Eligible:       true,
		}); err != nil {
			return err
		}
		if _, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V1",
			ElectionID: "E1",
			TokenID:    "T1",
			Proof:      "proof",
		}); err != nil {
			return err
		}
		_, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
			VoterHash:  "V2",
			ElectionID: "E1",
			TokenID:    "T2",
			Proof:      "proof",
		})
		return err
	})
	require.NoError(t, err)

	// Unknown candidate
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CastVote(txn, ledger.CastVoteParams{
			ElectionID:  "E1",
			VoterHash:   "V1",
			CandidateID: "K9",
			TokenID:     "T1",
		})
		return err
	})
	requireCode(t, err, ledger.CodeNotFound)

	// Token issued to a different voter
	err = runTxn(t, db, func(txn *database.Txn) error {
		_, err := l.CastVote(txn, ledger.CastVoteParams{
			ElectionID:  "E1",
			VoterHash:   "V1",
			CandidateID: "K1",
			TokenID:     "T2",
		})
		return err
	})
	requireCode(t, err, ledger.CodeInvalidToken)

	// Failed attempts consumed nothing
	err = queryTxn(t, db, func(txn *database.Txn) error {
		verification, err := l.VerifyToken(txn, "T1")
		require.NoError(t, err)
		require.True(t, verification.Valid)
		return nil
	})
	require.NoError(t, err)
}

func TestElectionResults(t *testing.T) {
	l, db, _ := newTestLedger(t)
	err := runTxn(t, db, func(txn *database.Txn) error {
		if _, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1", "C2"},
		}); err != nil {
			return err
		}
		for _, candidate := range []ledger.RegisterCandidateParams{
			{CandidateID: "K1", ElectionID: "E1", ConstituencyID: "C1", PartyID: "P1", Name: "One"},
			{CandidateID: "K2", ElectionID: "E1", ConstituencyID: "C1", PartyID: "P2", Name: "Two"},
			{CandidateID: "K3", ElectionID: "E1", ConstituencyID: "C2", PartyID: "P1", Name: "Three"},
		} {
			if _, err := l.RegisterCandidate(txn, testAdmin, candidate); err != nil {
				return err
			}
		}
		voters := []ledger.RegisterVoterParams{
			{VoterHash: "V1", AadharHash: "A1", ConstituencyID: "C1", Eligible: true},
			{VoterHash: "V2", AadharHash: "A2", ConstituencyID: "C1", Eligible: true},
			{VoterHash: "V3", AadharHash: "A3", ConstituencyID: "C2", Eligible: true},
		}
		for _, voter := range voters {
			if _, err := l.RegisterVoter(txn, testAdmin, voter); err != nil {
				return err
			}
		}
		_, err := l.StartElection(txn, testAdmin, "E1")
		return err
	})
	require.NoError(t, err)

	// V1 and V2 vote K1, V3 abstains
	for _, vote := range []struct {
		voterHash   string
		tokenID     string
		candidateID string
	}{
		{"V1", "T1", "K1"},
		{"V2", "T2", "K1"},
	} {
		err = runTxn(t, db, func(txn *database.Txn) error {
			if _, err := l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
				VoterHash:  vote.voterHash,
				ElectionID: "E1",
				TokenID:    vote.tokenID,
				Proof:      "proof",
			}); err != nil {
				return err
			}
			_, err := l.CastVote(txn, ledger.CastVoteParams{
				ElectionID:  "E1",
				VoterHash:   vote.voterHash,
				CandidateID: vote.candidateID,
				TokenID:     vote.tokenID,
			})
			return err
		})
		require.NoError(t, err)
	}

	err = queryTxn(t, db, func(txn *database.Txn) error {
		results, err := l.GetElectionResults(txn, "E1")
		require.NoError(t, err)
		require.Equal(t, 2, results.TotalVotes)
		require.Len(t, results.Results, 3)
		// Ordered by candidate ID, zero-vote candidates included
		require.Equal(t, "K1", results.Results[0].CandidateID)
		require.Equal(t, 2, results.Results[0].Votes)
		require.Equal(t, "K2", results.Results[1].CandidateID)
		require.Equal(t, 0, results.Results[1].Votes)
		require.Equal(t, "K3", results.Results[2].CandidateID)
		require.Equal(t, 0, results.Results[2].Votes)

		count, err := l.GetCandidateVoteCount(txn, "E1", "K2")
		require.NoError(t, err)
		require.Equal(t, 0, count)
		_, err = l.GetCandidateVoteCount(txn, "E1", "K9")
		requireCode(t, err, ledger.CodeNotFound)

		turnout, err := l.GetConstituencyTurnout(txn, "C1", "E1")
		require.NoError(t, err)
		require.Equal(t, 2, turnout.TotalVoters)
		require.Equal(t, 2, turnout.VotedVoters)
		turnout, err = l.GetConstituencyTurnout(txn, "C2", "E1")
		require.NoError(t, err)
		require.Equal(t, 1, turnout.TotalVoters)
		require.Equal(t, 0, turnout.VotedVoters)
		require.InDelta(t, 0.0, turnout.Percentage, 0.001)
		_, err = l.GetConstituencyTurnout(txn, "C9", "E1")
		requireCode(t, err, ledger.CodeNotFound)
		return nil
	})
	require.NoError(t, err)
}
