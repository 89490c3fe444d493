/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"

	"goji.io/pat"

	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/util"
)

type CreateEvidenceRequest struct {
	Hash       string `json:"hash"`
	Log        string `json:"log"`
	CustomKey  string `json:"customKey,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

type CreateEvidenceResponse struct {
	Hash string `json:"hash"`
}

type BatchCreateEvidenceRequest struct {
	Entries    []*evidence.Entry `json:"entries"`
	PrivateKey string            `json:"privateKey,omitempty"`
}

type BatchCreateEvidenceResponse struct {
	Created []bool `json:"created"`
}

// AddLogRequest appends Log.  With Sign set the signer's signature over the hash is added too.
type AddLogRequest struct {
	Log        string `json:"log"`
	Sign       bool   `json:"sign,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

type SetAttributeRequest struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	PrivateKey string `json:"privateKey,omitempty"`
}

type RevokeRequest struct {
	Revoked    bool   `json:"revoked"`
	PrivateKey string `json:"privateKey,omitempty"`
}

func (r *APIServer) createEvidence(w http.ResponseWriter, req *http.Request) {
	in := &CreateEvidenceRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	var hash string
	if in.CustomKey != "" {
		hash, err = r.evidence.CreateEvidenceWithCustomKey(req.Context(), in.Hash, in.Log, in.CustomKey, key)
	} else {
		hash, err = r.evidence.CreateEvidence(req.Context(), in.Hash, in.Log, key)
	}

	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateEvidenceResponse{Hash: hash})
}

func (r *APIServer) batchCreateEvidence(w http.ResponseWriter, req *http.Request) {
	in := &BatchCreateEvidenceRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	withKeys := false
	for _, e := range in.Entries {
		if e != nil && e.CustomKey != "" {
			withKeys = true
			break
		}
	}

	var created []bool
	if withKeys {
		created, err = r.evidence.BatchCreateEvidenceWithCustomKey(req.Context(), in.Entries, key)
	} else {
		created, err = r.evidence.BatchCreateEvidence(req.Context(), in.Entries, key)
	}

	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &BatchCreateEvidenceResponse{Created: created})
}

func (r *APIServer) addLog(w http.ResponseWriter, req *http.Request) {
	in := &AddLogRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	hash := pat.Param(req, "hash")
	if in.Sign {
		err = r.evidence.AddSignatureAndLog(req.Context(), hash, in.Log, key)
	} else {
		err = r.evidence.AddLog(req.Context(), hash, in.Log, key)
	}

	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateEvidenceResponse{Hash: hash})
}

func (r *APIServer) addLogByCustomKey(w http.ResponseWriter, req *http.Request) {
	in := &AddLogRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	customKey := pat.Param(req, "key")
	if err := r.evidence.AddLogByCustomKey(req.Context(), customKey, in.Log, key); err != nil {
		util.WriteError(w, err)
		return
	}

	hash, err := r.evidence.GetHashByCustomKey(req.Context(), customKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateEvidenceResponse{Hash: hash})
}

func (r *APIServer) setAttribute(w http.ResponseWriter, req *http.Request) {
	in := &SetAttributeRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	hash := pat.Param(req, "hash")
	if err := r.evidence.SetAttribute(req.Context(), hash, in.Key, in.Value, key); err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateEvidenceResponse{Hash: hash})
}

func (r *APIServer) revoke(w http.ResponseWriter, req *http.Request) {
	in := &RevokeRequest{}
	if err := decode(req, in); err != nil {
		util.WriteError(w, err)
		return
	}

	key, err := r.signingKey(in.PrivateKey)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	hash := pat.Param(req, "hash")
	if err := r.evidence.Revoke(req.Context(), hash, in.Revoked, key); err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateEvidenceResponse{Hash: hash})
}

func (r *APIServer) getEvidence(w http.ResponseWriter, req *http.Request) {
	info, err := r.evidence.GetInfo(req.Context(), pat.Param(req, "hash"))
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, info)
}

func (r *APIServer) getEvidenceByCustomKey(w http.ResponseWriter, req *http.Request) {
	info, err := r.evidence.GetInfoByCustomKey(req.Context(), pat.Param(req, "key"))
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, info)
}
