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

// Package identity holds the submitter identity model and the hashing
// helpers used to derive voter and credential hashes. How identities are
// minted (certificates, organizational trust) is owned by an external
// membership service; this package only models what the ledger programs
// consume.
package identity

import (
	"crypto/hmac"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

type Role string

const (
	// RoleAdmin identifies election-authority identities allowed to run
	// administrative operations
	RoleAdmin Role = "admin"
	// RoleMember identifies ordinary member identities
	RoleMember Role = "member"
)

// Identity is the submitting party of a transaction proposal
type Identity struct {
	ID   string
	Org  string
	Role Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HashID returns the hex-encoded SHA3-256 digest of a salted identifier.
// Voter hashes and credential hashes are both derived this way so raw
// identifiers never reach the ledger.
func HashID(id string, salt string) string {
	digest := sha3.Sum256([]byte(salt + ":" + id))
	return hex.EncodeToString(digest[:])
}

// ProofDigest computes the eligibility proof carried on a token issuance
// request as a keyed hash over the voter hash.
//
// This is a placeholder commitment, not a security boundary: a real
// deployment needs a zero-knowledge eligibility proof here, which this
// scheme does not provide.
func ProofDigest(voterHash string, secret string) string {
	mac := hmac.New(sha3.New256, []byte(secret))
	mac.Write([]byte(voterHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyProofDigest checks a proof produced by ProofDigest in constant time
func VerifyProofDigest(voterHash, secret, proof string) bool {
	want, err := hex.DecodeString(ProofDigest(voterHash, secret))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(proof)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
