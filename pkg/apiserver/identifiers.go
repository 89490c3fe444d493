/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"

	"github.com/pkg/errors"
	"goji.io/pat"

	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/util"
	"github.com/scoir/attestor/pkg/vdr"
)

type RegisterRequest struct {
	PrivateKey string `json:"privateKey,omitempty"`
}

type RegisterResponse struct {
	ID     string `json:"id"`
	Verkey string `json:"verkey"`
}

func (r *APIServer) registerIdentifier(w http.ResponseWriter, req *http.Request) {
	in := &RegisterRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	d, err := r.vdr.Register(req.Context(), key)
	if err != nil {
		util.WriteError(w, errors.Wrapf(errcode.ErrLedgerCallFailure, "unable to register identity: %v", err))
		return
	}

	util.WriteJSON(w, &RegisterResponse{ID: d.String(), Verkey: d.Verkey})
}

func (r *APIServer) resolveIdentifier(w http.ResponseWriter, req *http.Request) {
	id := pat.Param(req, "did")
	if _, err := did.Parse(id); err != nil {
		util.WriteError(w, errors.Wrap(errcode.ErrInputIllegal, err.Error()))
		return
	}

	out, err := r.resolver.Read(req.Context(), id)
	if err != nil {
		if errors.Cause(err) == vdr.ErrNotFound {
			util.WriteErrorStatus(w, http.StatusNotFound, errors.Wrap(errcode.ErrIdentityDocumentUnavailable, err.Error()))
			return
		}
		util.WriteError(w, errors.Wrap(errcode.ErrIdentityDocumentUnavailable, err.Error()))
		return
	}

	util.WriteJSON(w, out)
}
