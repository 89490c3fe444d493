/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claim

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Disclosure policy leaf values.
const (
	NotDisclosed = 0
	Disclosed    = 1
)

// DefaultSaltLength is the number of random bytes behind each salt.
const DefaultSaltLength = 16

// NotDisclosedLeaf is the salt leaf left behind by redaction.
var NotDisclosedLeaf = Scalar{Value: json.Number("0")}

type saltOptions struct {
	length int
	rand   io.Reader
}

// SaltOption configures GenerateSaltTree.
type SaltOption func(opts *saltOptions)

// WithSaltLength sets the number of random bytes per salt.
func WithSaltLength(n int) SaltOption {
	return func(opts *saltOptions) {
		opts.length = n
	}
}

// WithRandom sets the entropy source.
func WithRandom(r io.Reader) SaltOption {
	return func(opts *saltOptions) {
		opts.rand = r
	}
}

// GenerateSaltTree returns a tree with the same keys and nesting as claim where every scalar
// leaf is replaced by an independent base58 salt.
func GenerateSaltTree(claim *Tree, opts ...SaltOption) (*Tree, error) {
	if claim == nil {
		return nil, errors.New("claim tree is required")
	}

	o := &saltOptions{length: DefaultSaltLength, rand: rand.Reader}
	for _, opt := range opts {
		opt(o)
	}
	if o.length <= 0 {
		return nil, errors.Errorf("invalid salt length %d", o.length)
	}

	return saltTree(claim, o)
}

func saltTree(claim *Tree, o *saltOptions) (*Tree, error) {
	out := NewTree()
	for _, k := range claim.keys {
		if sub, ok := claim.children[k].(*Tree); ok {
			s, err := saltTree(sub, o)
			if err != nil {
				return nil, err
			}
			out.Set(k, s)
			continue
		}

		b := make([]byte, o.length)
		if _, err := io.ReadFull(o.rand, b); err != nil {
			return nil, errors.Wrap(err, "unable to read salt entropy")
		}
		out.SetValue(k, base58.Encode(b))
	}

	return out, nil
}

// IsNotDisclosed reports whether n is the redacted salt sentinel.
func IsNotDisclosed(n Node) bool {
	s, ok := n.(Scalar)
	return ok && s.Value != nil && s.String() == "0"
}

// DisclosureValue reads a policy leaf.  Only 0 and 1 are legal.
func DisclosureValue(n Node) (int, bool) {
	s, ok := n.(Scalar)
	if !ok || s.Value == nil {
		return 0, false
	}

	switch s.String() {
	case "0":
		return NotDisclosed, true
	case "1":
		return Disclosed, true
	}

	return 0, false
}

// FieldHash commits to a single claim field: the 0x-prefixed hex Keccak-256 of value ‖ salt.
func FieldHash(value, salt string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(value))
	_, _ = h.Write([]byte(salt))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
