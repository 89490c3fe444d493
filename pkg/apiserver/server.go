/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package apiserver exposes the credential, evidence, schema and identifier operations as a
// JSON REST API.
package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/btcsuite/btcd/btcec"
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goji "goji.io"
	"goji.io/pat"

	"github.com/scoir/attestor/pkg/credential"
	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/resolver"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/vdr"
)

var logger = log.New("attestor/apiserver")

type APIServer struct {
	creds       *credential.Service
	evidence    *evidence.Service
	vdr         *vdr.VDR
	resolver    *resolver.Resolver
	schemaStore datastore.Store
	registry    *prometheus.Registry
	defaultKey  func() (*btcec.PrivateKey, error)
}

type provider interface {
	CredentialService() (*credential.Service, error)
	EvidenceService() (*evidence.Service, error)
	VDR() (*vdr.VDR, error)
	SchemaStore() (datastore.Store, error)
	SigningKey() (*btcec.PrivateKey, error)
	Registry() *prometheus.Registry
}

func New(ctx provider) (*APIServer, error) {
	var err error
	r := &APIServer{
		registry:   ctx.Registry(),
		defaultKey: ctx.SigningKey,
	}

	r.creds, err = ctx.CredentialService()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get credential service")
	}

	r.evidence, err = ctx.EvidenceService()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get evidence service")
	}

	r.vdr, err = ctx.VDR()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get VDR")
	}
	r.resolver = resolver.New(r.vdr.Method(), r.vdr)

	r.schemaStore, err = ctx.SchemaStore()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get schema store")
	}

	return r, nil
}

// Handler routes every API call.
func (r *APIServer) Handler() http.Handler {
	mux := goji.NewMux()

	mux.Handle(pat.Post("/credentials"), http.HandlerFunc(r.issueCredential))
	mux.Handle(pat.Post("/credentials/redact"), http.HandlerFunc(r.redactCredential))
	mux.Handle(pat.Post("/credentials/verify"), http.HandlerFunc(r.verifyCredential))
	mux.Handle(pat.Post("/credentials/policy"), http.HandlerFunc(r.verifyPolicy))

	mux.Handle(pat.Post("/presentations"), http.HandlerFunc(r.createPresentation))
	mux.Handle(pat.Post("/presentations/challenge"), http.HandlerFunc(r.createChallenge))
	mux.Handle(pat.Post("/presentations/verify"), http.HandlerFunc(r.verifyPresentation))

	mux.Handle(pat.Post("/schemas"), http.HandlerFunc(r.createSchema))
	mux.Handle(pat.Get("/schemas"), http.HandlerFunc(r.listSchema))
	mux.Handle(pat.Get("/schemas/:id"), http.HandlerFunc(r.getSchema))
	mux.Handle(pat.Delete("/schemas/:id"), http.HandlerFunc(r.deleteSchema))

	mux.Handle(pat.Post("/evidence"), http.HandlerFunc(r.createEvidence))
	mux.Handle(pat.Post("/evidence/batch"), http.HandlerFunc(r.batchCreateEvidence))
	mux.Handle(pat.Post("/evidence/:hash/logs"), http.HandlerFunc(r.addLog))
	mux.Handle(pat.Post("/evidence/:hash/attributes"), http.HandlerFunc(r.setAttribute))
	mux.Handle(pat.Post("/evidence/:hash/revocation"), http.HandlerFunc(r.revoke))
	mux.Handle(pat.Get("/evidence/:hash"), http.HandlerFunc(r.getEvidence))
	mux.Handle(pat.Post("/evidence/keys/:key/logs"), http.HandlerFunc(r.addLogByCustomKey))
	mux.Handle(pat.Get("/evidence/keys/:key"), http.HandlerFunc(r.getEvidenceByCustomKey))

	mux.Handle(pat.Post("/identifiers"), http.HandlerFunc(r.registerIdentifier))
	mux.Handle(pat.Get("/identifiers/:did"), http.HandlerFunc(r.resolveIdentifier))

	mux.Handle(pat.Get("/metrics"), promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	return mux
}

// signingKey parses privateKey, falling back to the configured ledger key when it is empty.
func (r *APIServer) signingKey(privateKey string) (*btcec.PrivateKey, error) {
	if privateKey != "" {
		key, err := signature.ParsePrivateKey(privateKey)
		if err != nil {
			return nil, errors.Wrapf(errcode.ErrInputIllegal, "invalid private key: %v", err)
		}
		return key, nil
	}

	key, err := r.defaultKey()
	if err != nil {
		return nil, errors.Wrapf(errcode.ErrInputIllegal, "no private key provided: %v", err)
	}

	return key, nil
}

func decode(req *http.Request, v interface{}) error {
	defer func() { _ = req.Body.Close() }()

	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid request body: %v", err)
	}

	return nil
}
