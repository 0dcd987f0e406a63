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

package types

// Key namespaces within the record store. Each entity family gets its own
// prefix so that range scans over one family never touch another.
const (
	VoterKeyPrefix          = "vr"
	ElectionKeyPrefix       = "el"
	CandidateKeyPrefix      = "cd"
	TokenKeyPrefix          = "tk"
	IssuanceMarkerKeyPrefix = "im"
	VoteRecordKeyPrefix     = "br"
)

// keySep separates components of a composite key. Identifiers are validated
// to never contain this byte before a key is built.
const keySep = 0x1e

// KeySeparator returns the byte used to separate composite key components
func KeySeparator() byte {
	return keySep
}

func buildKey(prefix string, parts ...string) []byte {
	key := []byte(prefix)
	for i, part := range parts {
		if i > 0 {
			key = append(key, keySep)
		}
		key = append(key, []byte(part)...)
	}
	return key
}

func VoterKey(voterHash string) []byte {
	return buildKey(VoterKeyPrefix, voterHash)
}

func VoterKeyPrefixBytes() []byte {
	return []byte(VoterKeyPrefix)
}

func ElectionKey(electionID string) []byte {
	return buildKey(ElectionKeyPrefix, electionID)
}

func CandidateKey(electionID, candidateID string) []byte {
	return buildKey(CandidateKeyPrefix, electionID, candidateID)
}

// CandidateKeyElectionPrefix returns the scan prefix covering all candidates
// registered for the given election
func CandidateKeyElectionPrefix(electionID string) []byte {
	key := buildKey(CandidateKeyPrefix, electionID)
	return append(key, keySep)
}

func TokenKey(tokenID string) []byte {
	return buildKey(TokenKeyPrefix, tokenID)
}

// IssuanceMarkerKey is the composite (electionID, voterHash) key whose
// existence is the sole source of truth for "token already issued". Marker
// keys are written once and never deleted.
func IssuanceMarkerKey(electionID, voterHash string) []byte {
	return buildKey(IssuanceMarkerKeyPrefix, electionID, voterHash)
}

// VoteRecordKey is the composite (electionID, voterHash) key whose existence
// is the sole source of truth for "already voted". Vote record keys are
// written once and never updated or deleted.
func VoteRecordKey(electionID, voterHash string) []byte {
	return buildKey(VoteRecordKeyPrefix, electionID, voterHash)
}

// VoteRecordElectionPrefix returns the scan prefix covering all vote records
// cast in the given election
func VoteRecordElectionPrefix(electionID string) []byte {
	key := buildKey(VoteRecordKeyPrefix, electionID)
	return append(key, keySep)
}
