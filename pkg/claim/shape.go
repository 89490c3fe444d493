/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claim

import (
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/errcode"
)

// SameShape reports whether a and b have identical key sets at every level, with subtrees in
// the same places.
func SameShape(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Len() != b.Len() {
		return false
	}

	for _, k := range a.keys {
		bn, ok := b.children[k]
		if !ok {
			return false
		}

		asub, aIsTree := a.children[k].(*Tree)
		bsub, bIsTree := bn.(*Tree)
		if aIsTree != bIsTree {
			return false
		}
		if aIsTree && !SameShape(asub, bsub) {
			return false
		}
	}

	return true
}

// ValidateShapes returns nil only when claim, salt and disclosure are all present and share
// one shape.
func ValidateShapes(claim, salt, disclosure *Tree) error {
	if claim == nil || salt == nil || disclosure == nil {
		return errors.Wrap(errcode.ErrStructuralMismatch, "claim, salt and disclosure trees are required")
	}

	if !SameShape(claim, salt) {
		return errors.Wrap(errcode.ErrStructuralMismatch, "salt tree does not match claim tree")
	}

	if !SameShape(claim, disclosure) {
		return errors.Wrap(errcode.ErrStructuralMismatch, "disclosure tree does not match claim tree")
	}

	return nil
}
