/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/credential"
	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/util"
)

type ChallengeRequest struct {
	PresenterID string `json:"presenterId"`
}

type CreatePresentationRequest struct {
	Credentials []*credential.Bundle           `json:"credentials"`
	Policy      *credential.PresentationPolicy `json:"policy"`
	Challenge   *credential.Challenge          `json:"challenge"`
	PrivateKey  string                         `json:"privateKey,omitempty"`
}

type VerifyPresentationRequest struct {
	PresenterID  string                         `json:"presenterId"`
	Policy       *credential.PresentationPolicy `json:"policy"`
	Challenge    *credential.Challenge          `json:"challenge"`
	Presentation *credential.Presentation       `json:"presentation"`
}

func (r *APIServer) createChallenge(w http.ResponseWriter, req *http.Request) {
	in := &ChallengeRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	if _, err := did.Parse(in.PresenterID); err != nil {
		util.WriteError(w, errors.Wrap(errcode.ErrInputIllegal, err.Error()))
		return
	}

	util.WriteJSON(w, credential.NewChallenge(in.PresenterID))
}

func (r *APIServer) createPresentation(w http.ResponseWriter, req *http.Request) {
	in := &CreatePresentationRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	p, err := r.creds.CreatePresentation(in.Credentials, in.Policy, in.Challenge, key)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, p)
}

func (r *APIServer) verifyPresentation(w http.ResponseWriter, req *http.Request) {
	in := &VerifyPresentationRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	err := r.creds.VerifyPresentation(req.Context(), in.PresenterID, in.Policy, in.Challenge, in.Presentation)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &VerifyResponse{Verified: true})
}
