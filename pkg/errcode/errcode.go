/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package errcode holds the coded failures surfaced by the credential and evidence services.
package errcode

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a typed failure with a stable numeric code.
type Error struct {
	Code int
	Desc string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d)", e.Desc, e.Code)
}

func newError(code int, desc string) *Error {
	return &Error{Code: code, Desc: desc}
}

var (
	ErrInputIllegal = newError(160004, "input parameter is illegal")

	ErrCredentialError             = newError(100400, "credential operation failed")
	ErrIssuerMismatch              = newError(100403, "credential issuer does not match")
	ErrSignatureInvalid            = newError(100404, "credential signature does not verify")
	ErrSignatureBroken             = newError(100405, "credential signature is broken")
	ErrIdentityDocumentUnavailable = newError(100406, "issuer identity document is unavailable")
	ErrCredentialExpired           = newError(100409, "credential is expired")
	ErrClaimSchemaMismatch         = newError(100419, "claim does not match the declared schema")
	ErrStructuralMismatch          = newError(100420, "claim, salt and disclosure shapes differ")
	ErrPublicKeyNotExists          = newError(100421, "public key is empty")
	ErrClaimPolicyNotExist         = newError(100422, "claim policy is missing")
	ErrPolicyValueIllegal          = newError(100423, "disclosure policy value is illegal")
	ErrDisclosureSaltMismatch      = newError(100424, "disclosure value does not match salt value")
	ErrPresenterMismatch           = newError(100425, "presenter does not match the challenge")
	ErrCptIDMismatch               = newError(100426, "presentation credentials do not match the policy")
	ErrSchemaNotFound              = newError(100427, "claim schema is not registered")

	ErrEvidenceNotFound      = newError(100500, "evidence does not exist on chain")
	ErrEvidenceAlreadyExists = newError(100501, "evidence already exists on chain")
	ErrLedgerCallFailure     = newError(100502, "ledger call failed")
)

// Is reports whether err, or the cause it wraps, is target.
func Is(err error, target *Error) bool {
	if err == nil {
		return false
	}

	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == target.Code {
			return true
		}

		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}

	return false
}

// Code extracts the failure code carried by err, or the generic credential failure code when
// err carries none.
func Code(err error) int {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Code
	}

	return ErrCredentialError.Code
}
