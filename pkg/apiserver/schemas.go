/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package apiserver

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"goji.io/pat"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/util"
)

type CreateSchemaResponse struct {
	CptID int `json:"cptId"`
}

func (r *APIServer) createSchema(w http.ResponseWriter, req *http.Request) {
	s := &datastore.Schema{}
	if err := decode(req, s); err != nil {
		util.WriteError(w, err)
		return
	}

	if err := s.Validate(); err != nil {
		util.WriteError(w, err)
		return
	}

	id, err := r.schemaStore.InsertSchema(s)
	if err != nil {
		util.WriteError(w, errors.Wrapf(err, "failed to create schema %d", s.CptID))
		return
	}

	logger.Infof("registered schema %d (%s)", id, s.Name)
	util.WriteJSON(w, &CreateSchemaResponse{CptID: id})
}

func (r *APIServer) listSchema(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	critter := &datastore.SchemaCriteria{
		Name: q.Get("name"),
	}
	critter.Start, _ = strconv.Atoi(q.Get("start"))
	critter.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	results, err := r.schemaStore.ListSchema(critter)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, results)
}

func (r *APIServer) getSchema(w http.ResponseWriter, req *http.Request) {
	id, err := cptID(req)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	s, err := r.schemaStore.GetSchema(id)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, s)
}

func (r *APIServer) deleteSchema(w http.ResponseWriter, req *http.Request) {
	id, err := cptID(req)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	if err := r.schemaStore.DeleteSchema(id); err != nil {
		util.WriteError(w, err)
		return
	}

	util.WriteJSON(w, &CreateSchemaResponse{CptID: id})
}

func cptID(req *http.Request) (int, error) {
	id, err := strconv.Atoi(pat.Param(req, "id"))
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errcode.ErrInputIllegal, "invalid cptId %q", pat.Param(req, "id"))
	}

	return id, nil
}
