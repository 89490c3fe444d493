/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/credential"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/util"
)

// IssueRequest asks for a credential over Claim.  Issuer defaults to the identifier of the
// signing key.
type IssueRequest struct {
	CptID          int         `json:"cptId"`
	Issuer         string      `json:"issuer,omitempty"`
	ExpirationDate int64       `json:"expirationDate"`
	Claim          *claim.Tree `json:"claim"`
	PrivateKey     string      `json:"privateKey,omitempty"`
}

type RedactRequest struct {
	Credential *credential.Bundle `json:"credential"`
	Disclosure *claim.Tree        `json:"disclosure"`
}

// VerifyRequest checks Credential against PublicKey when set, and otherwise against the
// document of Issuer, which defaults to the credential's own issuer.
type VerifyRequest struct {
	Credential *credential.Bundle `json:"credential"`
	Issuer     string             `json:"issuer,omitempty"`
	PublicKey  string             `json:"publicKey,omitempty"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

func (r *APIServer) issueCredential(w http.ResponseWriter, req *http.Request) {
	in := &IssueRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	issuer := in.Issuer
	if issuer == "" {
		issuer = r.vdr.ID(signature.Address(key.PubKey()))
	}

	b, err := r.creds.Issue(&credential.IssueArgs{
		CptID:          in.CptID,
		Issuer:         issuer,
		ExpirationDate: in.ExpirationDate,
		Claim:          in.Claim,
		Key:            key,
	})
	if err != nil {
		util.WriteError(w, err)
		return
	}

	logger.Debugf("issued credential %s for cptId %d", b.Credential.ID, b.Credential.CptID)
	util.WriteJSON(w, b)
}

func (r *APIServer) redactCredential(w http.ResponseWriter, req *http.Request) {
	in := &RedactRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	b, err := r.creds.Redact(in.Credential, in.Disclosure)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, b)
}

func (r *APIServer) verifyCredential(w http.ResponseWriter, req *http.Request) {
	in := &VerifyRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	if in.Credential == nil || in.Credential.Credential == nil {
		util.WriteError(w, errors.Wrap(errcode.ErrInputIllegal, "credential is required"))
		return
	}

	var err error
	if in.PublicKey != "" {
		err = r.creds.VerifyWithKey(in.Credential, in.PublicKey)
	} else {
		issuer := in.Issuer
		if issuer == "" {
			issuer = in.Credential.Credential.Issuer
		}
		err = r.creds.Verify(req.Context(), in.Credential, issuer)
	}

	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &VerifyResponse{Verified: true})
}

func (r *APIServer) verifyPolicy(w http.ResponseWriter, req *http.Request) {
	in := &RedactRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	if err := r.creds.VerifyPresentationPolicy(in.Credential, in.Disclosure); err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &VerifyResponse{Verified: true})
}
