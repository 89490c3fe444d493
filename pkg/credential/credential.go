/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential issues, selectively discloses and verifies salted-hash commitment
// credentials.
package credential

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/signature"
)

const DefaultContext = "https://www.w3.org/2018/credentials/v1"

// Credential is a signed claim.  Dates are unix seconds.
type Credential struct {
	Context        string      `json:"context"`
	ID             string      `json:"id"`
	CptID          int         `json:"cptId"`
	Issuer         string      `json:"issuer"`
	IssuanceDate   int64       `json:"issuranceDate"`
	ExpirationDate int64       `json:"expirationDate"`
	Claim          *claim.Tree `json:"claim"`
	Signature      string      `json:"signature"`
}

// Bundle pairs a credential with its salt tree.  The salt of an undisclosed field is the
// claim.NotDisclosed sentinel.
type Bundle struct {
	Credential *Credential `json:"credential"`
	Salt       *claim.Tree `json:"salt"`
}

// IssueArgs is the input of Service.Issue.
type IssueArgs struct {
	CptID          int
	Issuer         string
	ExpirationDate int64
	Claim          *claim.Tree
	Key            *btcec.PrivateKey
}

// Copy returns a deep copy of the bundle.
func (r *Bundle) Copy() *Bundle {
	if r == nil {
		return nil
	}

	out := &Bundle{Salt: r.Salt.Copy()}
	if r.Credential != nil {
		c := *r.Credential
		c.Claim = r.Credential.Claim.Copy()
		out.Credential = &c
	}

	return out
}

// Hash is the 0x-prefixed Keccak-256 of the bundle's thumbprint.  Redaction does not change it,
// so it is the evidence hash of the credential.
func (r *Bundle) Hash() (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}

	tp, err := Thumbprint(r.Credential, r.Salt)
	if err != nil {
		return "", err
	}

	return "0x" + hex.EncodeToString(signature.Keccak256(tp)), nil
}

// IsExpired reports whether the credential has expired at now.
func (r *Credential) IsExpired(now time.Time) bool {
	return r.ExpirationDate <= now.Unix()
}

func (r *Bundle) check() error {
	if r == nil || r.Credential == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "credential is required")
	}
	if r.Credential.Claim == nil || r.Salt == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "credential claim and salt are required")
	}

	return nil
}

// Thumbprint is the canonical byte string that the issuer signs: the credential fields except
// the signature, as sorted-key JSON, with the claim replaced by its field hash tree.
func Thumbprint(c *Credential, salt *claim.Tree) ([]byte, error) {
	hashes, err := hashTree(c.Claim, salt, "")
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"context":        c.Context,
		"id":             c.ID,
		"cptId":          c.CptID,
		"issuer":         c.Issuer,
		"issuranceDate":  c.IssuanceDate,
		"expirationDate": c.ExpirationDate,
		"claim":          hashes,
	}

	b, err := json.Marshal(fields)
	return b, errors.Wrap(err, "unable to serialize thumbprint")
}

// A redacted leaf already holds FieldHash(value, salt), so it contributes itself.
func hashTree(c, salt *claim.Tree, path string) (map[string]interface{}, error) {
	if c == nil || salt == nil || c.Len() != salt.Len() {
		return nil, errors.Wrapf(errcode.ErrStructuralMismatch, "salt does not match claim at %q", path)
	}

	out := make(map[string]interface{}, c.Len())
	for _, k := range c.Keys() {
		cn, _ := c.Get(k)
		sn, ok := salt.Get(k)
		if !ok {
			return nil, errors.Wrapf(errcode.ErrStructuralMismatch, "no salt for field %s%s", path, k)
		}

		csub, cIsTree := cn.(*claim.Tree)
		ssub, sIsTree := sn.(*claim.Tree)
		if cIsTree != sIsTree {
			return nil, errors.Wrapf(errcode.ErrStructuralMismatch, "salt does not match claim at %s%s", path, k)
		}

		if cIsTree {
			sub, err := hashTree(csub, ssub, path+k+".")
			if err != nil {
				return nil, err
			}
			out[k] = sub
			continue
		}

		value := cn.(claim.Scalar).String()
		if claim.IsNotDisclosed(sn) {
			out[k] = value
			continue
		}
		out[k] = claim.FieldHash(value, sn.(claim.Scalar).String())
	}

	return out, nil
}
