/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resolver wraps ledger DID documents in a DID resolution result.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	diddoc "github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/pkg/errors"
)

const (
	resolutionContext = "https://w3id.org/did-resolution/v1"
	driverID          = "did:%s"
	driver            = "AttestorLedgerDriver"
)

type documentResolver interface {
	ResolvePublicKeyDocument(ctx context.Context, id string) (*diddoc.Doc, error)
}

type Resolution struct {
	Context          interface{}            `json:"@context"`
	DIDDocument      map[string]interface{} `json:"didDocument"`
	ResolverMetadata map[string]interface{} `json:"resolverMetadata"`
	MethodMetadata   map[string]interface{} `json:"methodMetadata"`
}

type Resolver struct {
	methodName string
	vdr        documentResolver
	now        func() time.Time
}

func New(method string, vdr documentResolver) *Resolver {
	return &Resolver{
		methodName: method,
		vdr:        vdr,
		now:        time.Now,
	}
}

// Read resolves id.  Errors of the underlying resolver are returned unchanged.
func (r *Resolver) Read(ctx context.Context, id string) (*Resolution, error) {
	start := r.now()
	doc, err := r.vdr.ResolvePublicKeyDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	end := r.now()
	out := &Resolution{
		Context:     resolutionContext,
		DIDDocument: map[string]interface{}{},
		ResolverMetadata: map[string]interface{}{
			"driverId":  fmt.Sprintf(driverID, r.methodName),
			"driver":    driver,
			"retrieved": end,
			"duration":  end.Sub(start).Milliseconds(),
		},
		MethodMetadata: map[string]interface{}{},
	}

	if doc.Created != nil {
		out.MethodMetadata["created"] = doc.Created
	}
	if doc.Updated != nil {
		out.MethodMetadata["updated"] = doc.Updated
	}

	d, err := doc.JSONBytes()
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal doc")
	}

	err = json.Unmarshal(d, &out.DIDDocument)
	if err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal doc")
	}

	return out, nil
}
