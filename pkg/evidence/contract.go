/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"encoding/hex"
	"strings"
)

// Evidence contract methods.
const (
	MethodCreateEvidence                  = "createEvidence"
	MethodCreateEvidenceWithExtraKey      = "createEvidenceWithExtraKey"
	MethodAddSignatureAndLogs             = "addSignatureAndLogs"
	MethodAddSignatureAndLogsWithExtraKey = "addSignatureAndLogsWithExtraKey"
	MethodSetAttribute                    = "setAttribute"
	MethodRevoke                          = "revoke"
	MethodGetLatestRelatedBlock           = "getLatestRelatedBlock"
	MethodGetHashByExtraKey               = "getHashByExtraKey"
)

// SignatureBatch is the parameter list of the create and add-signature methods.  All slices
// are parallel.
type SignatureBatch struct {
	Hashes     []string `json:"hashes"`
	Signers    []string `json:"signers"`
	Signatures []string `json:"sigs"`
	Logs       []string `json:"logs"`
	Updated    []int64  `json:"updated"`
	ExtraKeys  []string `json:"extraKeys,omitempty"`
}

// Len returns the number of entries when all slices agree, and -1 otherwise.
func (b *SignatureBatch) Len() int {
	n := len(b.Hashes)
	if len(b.Signers) != n || len(b.Signatures) != n || len(b.Logs) != n || len(b.Updated) != n {
		return -1
	}
	if b.ExtraKeys != nil && len(b.ExtraKeys) != n {
		return -1
	}

	return n
}

// AttributeBatch is the parameter list of setAttribute.
type AttributeBatch struct {
	Hashes  []string `json:"hashes"`
	Signers []string `json:"signers"`
	Keys    []string `json:"keys"`
	Values  []string `json:"values"`
	Updated []int64  `json:"updated"`
}

func (b *AttributeBatch) Len() int {
	n := len(b.Hashes)
	if len(b.Signers) != n || len(b.Keys) != n || len(b.Values) != n || len(b.Updated) != n {
		return -1
	}

	return n
}

// RevokeParams is the parameter of revoke.
type RevokeParams struct {
	Hash    string `json:"hash"`
	Signer  string `json:"signer"`
	Revoked bool   `json:"revoked"`
	Updated int64  `json:"updated"`
}

// HashQuery is the parameter of getLatestRelatedBlock.
type HashQuery struct {
	Hash string `json:"hash"`
}

// KeyQuery is the parameter of getHashByExtraKey.
type KeyQuery struct {
	Key string `json:"key"`
}

// IsValidHash reports whether s is a 0x-prefixed 32 byte hex digest.
func IsValidHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func validEntries(hashes []string, updated []int64) bool {
	for i := range hashes {
		if !IsValidHash(hashes[i]) || updated[i] < 0 {
			return false
		}
	}
	return true
}

// Valid reports whether the batch is well formed.
func (b *SignatureBatch) Valid() bool {
	return b.Len() >= 0 && validEntries(b.Hashes, b.Updated)
}

// Valid reports whether the batch is well formed.
func (b *AttributeBatch) Valid() bool {
	return b.Len() >= 0 && validEntries(b.Hashes, b.Updated)
}
