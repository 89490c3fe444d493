/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr resolves issuer DID documents from the identity registry contract on the ledger.
package vdr

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec"
	diddoc "github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/signature"
)

const (
	schemaV1 = "https://w3id.org/did/v1"

	MethodRegisterIdentity = "registerIdentity"
	MethodGetDocument      = "getDocument"
)

var ErrNotFound = errors.New("did not found")

// IdentityRecord is the registry's view of one identity.
type IdentityRecord struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	Created   int64  `json:"created"`
	Updated   int64  `json:"updated"`
}

// RegisterParams is the parameter of registerIdentity.  PublicKey is base58 and must belong to
// the transaction sender.
type RegisterParams struct {
	PublicKey string `json:"publicKey"`
	Updated   int64  `json:"updated"`
}

// AddressQuery is the parameter of getDocument.
type AddressQuery struct {
	Address string `json:"address"`
}

type VDR struct {
	client     ledger.Client
	registry   string
	methodName string
	chainID    int
}

func New(client ledger.Client, registry, methodName string, chainID int) *VDR {
	if methodName == "" {
		methodName = did.DefaultMethod
	}

	return &VDR{
		client:     client,
		registry:   registry,
		methodName: methodName,
		chainID:    chainID,
	}
}

func (r *VDR) Method() string {
	return r.methodName
}

func (r *VDR) Accept(method string) bool {
	return method == r.methodName
}

// ID returns the identifier of the account at address.
func (r *VDR) ID(address string) string {
	v := &did.DIDValue{Method: r.methodName, ChainID: r.chainID, Address: address}
	return v.String()
}

// ResolvePublicKeyDocument reads the DID document of id from the registry.
func (r *VDR) ResolvePublicKeyDocument(ctx context.Context, id string) (*diddoc.Doc, error) {
	parsed, err := did.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing did failed in ledger resolver: (%w)", err)
	}

	if !r.Accept(parsed.Method) {
		return nil, fmt.Errorf("invalid method for ledger resolver: %s", parsed.Method)
	}

	if parsed.ChainID != r.chainID {
		return nil, fmt.Errorf("identifier %s belongs to chain %d, not %d", id, parsed.ChainID, r.chainID)
	}

	rec := &IdentityRecord{}
	err = r.client.Call(ctx, r.registry, MethodGetDocument, &AddressQuery{Address: parsed.Address}, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read identity %s", id)
	}

	if rec.PublicKey == "" {
		return nil, ErrNotFound
	}

	pub, err := did.ParseVerkey(rec.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "identity %s carries an invalid key", id)
	}

	if signature.Address(pub) != parsed.Address {
		return nil, errors.Errorf("identity %s key does not match its address", id)
	}

	return buildDoc(parsed.String(), pub.SerializeUncompressed(), millis(rec.Created), millis(rec.Updated)), nil
}

// Register anchors the public half of key on the ledger and returns its identifier.
func (r *VDR) Register(ctx context.Context, key *btcec.PrivateKey) (*did.DID, error) {
	id, kp, err := did.CreateMyDid(&did.MyDIDInfo{
		Seed:       signature.EncodePrivateKey(key),
		ChainID:    r.chainID,
		MethodName: r.methodName,
	})
	if err != nil {
		return nil, err
	}

	params := &RegisterParams{
		PublicKey: id.Verkey,
		Updated:   time.Now().UnixNano() / int64(time.Millisecond),
	}

	tx, err := ledger.NewTransaction(r.registry, MethodRegisterIdentity, params)
	if err != nil {
		return nil, err
	}

	if err = tx.Sign(kp.Priv()); err != nil {
		return nil, errors.Wrap(err, "unable to sign identity registration")
	}

	rcpt, err := r.client.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to register identity")
	}

	if rcpt.Status != ledger.StatusSuccess {
		return nil, errors.Errorf("identity registration failed in block %d", rcpt.BlockNumber)
	}

	return id, nil
}

// PublicKey returns the first secp256k1 key of doc.
func PublicKey(doc *diddoc.Doc) (*btcec.PublicKey, error) {
	if doc == nil {
		return nil, errors.New("did document is nil")
	}

	for _, pk := range doc.PublicKey {
		if pk.Type != signature.KeyType {
			continue
		}
		return signature.ParsePublicKey(pk.Value)
	}

	return nil, errors.Errorf("did document %s has no %s key", doc.ID, signature.KeyType)
}

func buildDoc(id string, pubKeyValue []byte, created, updated time.Time) *diddoc.Doc {
	pubKey := diddoc.NewPublicKeyFromBytes(id+"#keys-1", signature.KeyType, id, pubKeyValue)
	verMethod := diddoc.NewReferencedVerificationMethod(pubKey, diddoc.Authentication, true)

	return &diddoc.Doc{
		Context:        []string{schemaV1},
		ID:             id,
		PublicKey:      []diddoc.PublicKey{*pubKey},
		Authentication: []diddoc.VerificationMethod{*verMethod},
		Created:        &created,
		Updated:        &updated,
	}
}

func millis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
