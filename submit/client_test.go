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

package submit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matdan-labs/matdan/database"
	"github.com/matdan-labs/matdan/database/types"
	"github.com/matdan-labs/matdan/identity"
	"github.com/matdan-labs/matdan/ledger"
	"github.com/matdan-labs/matdan/submit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testAdmin = identity.Identity{
	ID:   "eci-admin",
	Org:  "ECI",
	Role: identity.RoleAdmin,
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(
	t *testing.T,
) (*submit.Client, *ledger.Ledger, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	client, err := submit.NewClient(submit.ClientConfig{
		DB:               db,
		BlockCutInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Stop()
		db.Close() //nolint:errcheck
	})
	l := ledger.NewLedger(ledger.LedgerConfig{})
	return client, l, db
}

func submitAndWait(
	t *testing.T,
	client *submit.Client,
	operation string,
	program submit.ProgramFunc,
) submit.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := client.Submit(ctx, submit.Proposal{
		Program:   program,
		Operation: operation,
		Submitter: testAdmin,
	})
	require.NoError(t, err)
	return res
}

// seedElection commits a voter, an election over the voter's constituency,
// and a candidate, then starts the election
func seedElection(
	t *testing.T,
	client *submit.Client,
	l *ledger.Ledger,
) {
	t.Helper()
	res := submitAndWait(t, client, "seed", func(txn *database.Txn) (any, error) {
		if _, err := l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		}); err != nil {
			return nil, err
		}
		if _, err := l.CreateElection(txn, testAdmin, ledger.CreateElectionParams{
			ElectionID:     "E1",
			Name:           "General Election",
			Constituencies: []string{"C1"},
		}); err != nil {
			return nil, err
		}
		if _, err := l.RegisterCandidate(txn, testAdmin, ledger.RegisterCandidateParams{
			CandidateID:    "K1",
			ElectionID:     "E1",
			ConstituencyID: "C1",
			PartyID:        "P1",
			Name:           "Candidate One",
		}); err != nil {
			return nil, err
		}
		return l.StartElection(txn, testAdmin, "E1")
	})
	require.Equal(t, submit.StatusCommitted, res.Status)
}

func TestSubmitCommitted(t *testing.T) {
	client, l, _ := newTestClient(t)
	res := submitAndWait(
		t,
		client,
		"registerVoter",
		func(txn *database.Txn) (any, error) {
			return l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
				VoterHash:      "V1",
				AadharHash:     "A1",
				ConstituencyID: "C1",
				Eligible:       true,
			})
		},
	)
	require.Equal(t, submit.StatusCommitted, res.Status)
	require.NoError(t, res.Err)
	require.NotZero(t, res.BlockNumber)
	voter, ok := res.Value.(*ledger.Voter)
	require.True(t, ok, "unexpected result value type %T", res.Value)
	require.Equal(t, "V1", voter.VoterHash)

	// The committed outcome is resolvable from the block log
	outcome, err := client.Outcome(res.TxID)
	require.NoError(t, err)
	require.Equal(t, submit.StatusCommitted, outcome.Status)
	require.Equal(t, res.BlockNumber, outcome.BlockNumber)
}

func TestSubmitDeclined(t *testing.T) {
	client, l, _ := newTestClient(t)
	register := func(txn *database.Txn) (any, error) {
		return l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
			VoterHash:      "V1",
			AadharHash:     "A1",
			ConstituencyID: "C1",
			Eligible:       true,
		})
	}
	res := submitAndWait(t, client, "registerVoter", register)
	require.Equal(t, submit.StatusCommitted, res.Status)

	res = submitAndWait(t, client, "registerVoter", register)
	require.Equal(t, submit.StatusDeclined, res.Status)
	code, ok := ledger.ErrorCode(res.Err)
	require.True(t, ok)
	require.Equal(t, ledger.CodeAlreadyExists, code)

	// Declined proposals are never ordered into a block
	outcome, err := client.Outcome(res.TxID)
	require.NoError(t, err)
	require.Equal(t, submit.StatusUnknown, outcome.Status)
}

func TestOutcomeUnknownTx(t *testing.T) {
	client, _, _ := newTestClient(t)
	outcome, err := client.Outcome(uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, submit.StatusUnknown, outcome.Status)
}

func TestQuery(t *testing.T) {
	client, l, _ := newTestClient(t)
	seedElection(t, client, l)
	value, err := client.Query(func(txn *database.Txn) (any, error) {
		return l.GetElection(txn, "E1")
	})
	require.NoError(t, err)
	election, ok := value.(*ledger.Election)
	require.True(t, ok)
	require.Equal(t, ledger.ElectionStatusActive, election.Status)
}

// TestConcurrentIssuance submits racing token issuances for the same voter
// and election. At most one may commit; the rest are either declined after
// observing the committed issuance marker or invalidated by conflict. None
// are retried.
func TestConcurrentIssuance(t *testing.T) {
	client, l, _ := newTestClient(t)
	seedElection(t, client, l)

	const racers = 8
	results := make([]submit.Result, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokenID := fmt.Sprintf("T%d", i)
			results[i] = submitAndWait(
				t,
				client,
				"issueVotingToken",
				func(txn *database.Txn) (any, error) {
					return l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
						VoterHash:  "V1",
						ElectionID: "E1",
						TokenID:    tokenID,
						Proof:      "proof",
					})
				},
			)
		}()
	}
	wg.Wait()

	committed := 0
	for _, res := range results {
		switch res.Status {
		case submit.StatusCommitted:
			committed++
		case submit.StatusDeclined:
			code, ok := ledger.ErrorCode(res.Err)
			require.True(t, ok)
			require.Equal(t, ledger.CodeAlreadyIssued, code)
		case submit.StatusConflict:
			require.ErrorIs(t, res.Err, types.ErrKeyConflict)
		default:
			t.Fatalf("unexpected status %s", res.Status)
		}
	}
	require.Equal(t, 1, committed, "exactly one issuance must commit")
}

// TestConcurrentCastVote submits racing votes spending the same token. At
// most one ballot may be recorded.
func TestConcurrentCastVote(t *testing.T) {
	client, l, _ := newTestClient(t)
	seedElection(t, client, l)
	res := submitAndWait(
		t,
		client,
		"issueVotingToken",
		func(txn *database.Txn) (any, error) {
			return l.IssueVotingToken(txn, ledger.IssueVotingTokenParams{
				VoterHash:  "V1",
				ElectionID: "E1",
				TokenID:    "T1",
				Proof:      "proof",
			})
		},
	)
	require.Equal(t, submit.StatusCommitted, res.Status)

	const racers = 8
	results := make([]submit.Result, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = submitAndWait(
				t,
				client,
				"castVote",
				func(txn *database.Txn) (any, error) {
					return l.CastVote(txn, ledger.CastVoteParams{
						ElectionID:  "E1",
						VoterHash:   "V1",
						CandidateID: "K1",
						TokenID:     "T1",
					})
				},
			)
		}()
	}
	wg.Wait()

	committed := 0
	for _, res := range results {
		switch res.Status {
		case submit.StatusCommitted:
			committed++
		case submit.StatusDeclined:
			code, ok := ledger.ErrorCode(res.Err)
			require.True(t, ok)
			require.Contains(
				t,
				[]ledger.Code{ledger.CodeAlreadyVoted, ledger.CodeAlreadyUsed},
				code,
			)
		case submit.StatusConflict:
			require.ErrorIs(t, res.Err, types.ErrKeyConflict)
		default:
			t.Fatalf("unexpected status %s", res.Status)
		}
	}
	require.Equal(t, 1, committed, "exactly one vote must commit")

	value, err := client.Query(func(txn *database.Txn) (any, error) {
		return l.GetCandidateVoteCount(txn, "E1", "K1")
	})
	require.NoError(t, err)
	require.Equal(t, 1, value.(int))
}

func TestSubmitAfterStop(t *testing.T) {
	client, l, _ := newTestClient(t)
	client.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.Submit(ctx, submit.Proposal{
		Program: func(txn *database.Txn) (any, error) {
			return l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
				VoterHash:      "V1",
				AadharHash:     "A1",
				ConstituencyID: "C1",
				Eligible:       true,
			})
		},
		Operation: "registerVoter",
		Submitter: testAdmin,
	})
	require.ErrorIs(t, err, submit.ErrStopped)
}

func TestBlockCutByMaxTxs(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	client, err := submit.NewClient(submit.ClientConfig{
		DB: db,
		// Long interval so only the tx-count threshold can cut the block
		BlockCutInterval: time.Hour,
		MaxBlockTxs:      2,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Stop()
		db.Close() //nolint:errcheck
	})
	l := ledger.NewLedger(ledger.LedgerConfig{})

	results := make([]submit.Result, 2)
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voterHash := fmt.Sprintf("V%d", i)
			results[i] = submitAndWait(
				t,
				client,
				"registerVoter",
				func(txn *database.Txn) (any, error) {
					return l.RegisterVoter(txn, testAdmin, ledger.RegisterVoterParams{
						VoterHash:      voterHash,
						AadharHash:     "A1",
						ConstituencyID: "C1",
						Eligible:       true,
					})
				},
			)
		}()
	}
	wg.Wait()
	require.Equal(t, submit.StatusCommitted, results[0].Status)
	require.Equal(t, submit.StatusCommitted, results[1].Status)
	require.Equal(
		t,
		results[0].BlockNumber,
		results[1].BlockNumber,
		"both transactions should land in the same block",
	)
}
