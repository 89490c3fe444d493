/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"sort"
)

// SignInfo is one signer's view of an evidence record.
type SignInfo struct {
	Signature string   `json:"signature"`
	Logs      []string `json:"logs"`
	Timestamp int64    `json:"timestamp"`
	Revoked   *bool    `json:"revoked,omitempty"`
}

// Info is the reconstructed state of an evidence record.
type Info struct {
	CredentialHash string               `json:"credentialHash"`
	SignInfo       map[string]*SignInfo `json:"signInfo"`
}

// Signers returns the signer identifiers in sorted order.
func (i *Info) Signers() []string {
	out := make([]string, 0, len(i.SignInfo))
	for k := range i.SignInfo {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// IsRevoked reports whether signer has revoked the evidence.
func (i *Info) IsRevoked(signer string) bool {
	si, ok := i.SignInfo[signer]
	return ok && si.Revoked != nil && *si.Revoked
}

// Notification is published after a successful evidence write.
type Notification struct {
	Type      string   `json:"type"`
	Hashes    []string `json:"hashes"`
	Signer    string   `json:"signer"`
	Block     uint64   `json:"block"`
	Timestamp int64    `json:"timestamp"`
}

// Notification types.
const (
	NotificationCreated   = "evidence.created"
	NotificationLogged    = "evidence.logged"
	NotificationAttribute = "evidence.attribute"
	NotificationRevoked   = "evidence.revoked"
	NotificationUnrevoked = "evidence.unrevoked"
)
