/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger is the client side of the distributed ledger that anchors evidence records and
// issuer identity documents.
package ledger

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/signature"
)

// Receipt statuses.
const (
	StatusFailed  = 0
	StatusSuccess = 1
)

// Log is a single contract event.  Data is the 0x-prefixed hex ABI payload.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt is the outcome of one executed transaction.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Status          int    `json:"status"`
	Logs            []Log  `json:"logs"`
}

// Transaction is a signed contract invocation.
type Transaction struct {
	Contract  string          `json:"contract"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	From      string          `json:"from"`
	Nonce     string          `json:"nonce"`
	Signature string          `json:"signature,omitempty"`
}

// Client submits transactions to and reads state from the ledger.
type Client interface {
	SubmitTransaction(ctx context.Context, tx *Transaction) (*Receipt, error)
	ReceiptsByBlock(ctx context.Context, blockNumber uint64) ([]*Receipt, error)
	Call(ctx context.Context, contract, method string, params, out interface{}) error
	BlockNumber(ctx context.Context) (uint64, error)
}

// NewTransaction builds an unsigned invocation of method on contract.
func NewTransaction(contract, method string, params interface{}) (*Transaction, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to marshal params for %s", method)
	}

	return &Transaction{
		Contract: contract,
		Method:   method,
		Params:   raw,
		Nonce:    uuid.New().String(),
	}, nil
}

// Payload is the byte string covered by the transaction signature.
func (t *Transaction) Payload() ([]byte, error) {
	unsigned := *t
	unsigned.Signature = ""
	return json.Marshal(unsigned)
}

// Sign sets From to the key's address and signs the payload.
func (t *Transaction) Sign(key *btcec.PrivateKey) error {
	if key == nil {
		return errors.New("transaction signing key is required")
	}

	t.From = signature.Address(key.PubKey())
	if t.Nonce == "" {
		t.Nonce = uuid.New().String()
	}

	payload, err := t.Payload()
	if err != nil {
		return errors.Wrap(err, "unable to build transaction payload")
	}

	sig, err := signature.Sign(payload, key)
	if err != nil {
		return err
	}
	t.Signature = signature.EncodeSignature(sig)

	return nil
}

// Sender recovers the signing address and checks that it matches From.
func (t *Transaction) Sender() (string, error) {
	sig, err := signature.DecodeSignature(t.Signature)
	if err != nil {
		return "", errors.Wrap(err, "transaction signature is broken")
	}

	payload, err := t.Payload()
	if err != nil {
		return "", errors.Wrap(err, "unable to build transaction payload")
	}

	pub, err := signature.Recover(payload, sig)
	if err != nil {
		return "", err
	}

	addr := signature.Address(pub)
	if addr != t.From {
		return "", errors.Errorf("transaction signed by %s, not %s", addr, t.From)
	}

	return addr, nil
}
