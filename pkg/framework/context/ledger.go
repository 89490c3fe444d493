/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/framework"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/ledger/memledger"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/vdr"
)

func (r *Provider) LedgerConfig() (*framework.LedgerConfig, error) {
	lc, err := r.conf.Ledger()
	if err != nil {
		return nil, errors.Wrap(err, "ledger is not correctly configured")
	}

	return lc, nil
}

// LedgerClient talks JSON-RPC to the configured node, or hosts an in-memory ledger when the
// ledger is configured with memory: true.
func (r *Provider) LedgerClient() (ledger.Client, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.ledgerClient()
}

func (r *Provider) ledgerClient() (ledger.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	lc, err := r.LedgerConfig()
	if err != nil {
		return nil, err
	}

	if lc.Memory {
		logger.Infof("using in-memory ledger")
		r.client = memledger.New(lc.EvidenceContract, lc.RegistryContract)
	} else {
		r.client = ledger.NewRPCClient(lc.URL, ledger.WithTimeout(lc.Timeout))
	}

	return r.client, nil
}

func (r *Provider) VDR() (*vdr.VDR, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.getVDR()
}

func (r *Provider) getVDR() (*vdr.VDR, error) {
	if r.vdr != nil {
		return r.vdr, nil
	}

	client, err := r.ledgerClient()
	if err != nil {
		return nil, err
	}

	lc, err := r.LedgerConfig()
	if err != nil {
		return nil, err
	}

	r.vdr = vdr.New(client, lc.RegistryContract, lc.Method, lc.ChainID)
	return r.vdr, nil
}

// SigningKey is the key used when a request does not bring its own.  An in-memory ledger
// without a configured key gets a fresh one.
func (r *Provider) SigningKey() (*btcec.PrivateKey, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.key != nil {
		return r.key, nil
	}

	lc, err := r.LedgerConfig()
	if err != nil {
		return nil, err
	}

	if lc.PrivateKey != "" {
		r.key, err = signature.ParsePrivateKey(lc.PrivateKey)
		return r.key, errors.Wrap(err, "invalid ledger private key")
	}

	if !lc.Memory {
		return nil, errors.New("no ledger private key configured")
	}

	r.key, err = signature.GenerateKey()
	if err != nil {
		return nil, err
	}

	logger.Infof("generated signing key for address %s", signature.Address(r.key.PubKey()))
	return r.key, nil
}
