/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package memledger is an in-process ledger that executes the evidence and identity registry
// contracts.  Every submitted transaction is mined into its own block.
package memledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/vdr"
)

var logger = log.New("attestor/memledger")

var ErrUnknownContract = errors.New("unknown contract")

type record struct {
	latestBlock uint64
}

type Ledger struct {
	lock       sync.RWMutex
	evidence   string
	registry   string
	now        func() time.Time
	blocks     [][]*ledger.Receipt
	records    map[string]*record
	extraKeys  map[string]string
	identities map[string]*vdr.IdentityRecord
}

type Option func(l *Ledger)

// WithClock replaces the time source used for identity timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New returns an empty ledger hosting the evidence contract at evidenceAddr and the identity
// registry at registryAddr.
func New(evidenceAddr, registryAddr string, opts ...Option) *Ledger {
	l := &Ledger{
		evidence:   strings.ToLower(evidenceAddr),
		registry:   strings.ToLower(registryAddr),
		now:        time.Now,
		blocks:     [][]*ledger.Receipt{nil},
		records:    map[string]*record{},
		extraKeys:  map[string]string{},
		identities: map[string]*vdr.IdentityRecord{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (r *Ledger) SubmitTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sender, err := tx.Sender()
	if err != nil {
		return nil, errors.Wrap(err, "transaction rejected")
	}

	payload, err := tx.Payload()
	if err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	block := uint64(len(r.blocks))
	rcpt := &ledger.Receipt{
		TransactionHash: "0x" + hex.EncodeToString(signature.Keccak256(payload)),
		BlockNumber:     block,
		Status:          ledger.StatusSuccess,
		Logs:            []ledger.Log{},
	}

	logs, err := r.execute(tx, sender, block)
	if err != nil {
		logger.Warnf("transaction %s reverted: %v", rcpt.TransactionHash, err)
		rcpt.Status = ledger.StatusFailed
	} else {
		rcpt.Logs = logs
	}

	r.blocks = append(r.blocks, []*ledger.Receipt{rcpt})
	return rcpt, nil
}

func (r *Ledger) ReceiptsByBlock(ctx context.Context, blockNumber uint64) ([]*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	if blockNumber == 0 || blockNumber >= uint64(len(r.blocks)) {
		return nil, errors.Errorf("block %d does not exist", blockNumber)
	}

	return r.blocks[blockNumber], nil
}

func (r *Ledger) BlockNumber(_ context.Context) (uint64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return uint64(len(r.blocks) - 1), nil
}

// Call runs a view method.  params and out travel through JSON as they would over the wire.
func (r *Ledger) Call(ctx context.Context, contract, method string, params, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal params for %s", method)
	}

	r.lock.RLock()
	result, err := r.view(strings.ToLower(contract), method, raw)
	r.lock.RUnlock()
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	b, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, out)
}

func (r *Ledger) execute(tx *ledger.Transaction, sender string, block uint64) ([]ledger.Log, error) {
	switch strings.ToLower(tx.Contract) {
	case r.evidence:
		return r.executeEvidence(tx, sender, block)
	case r.registry:
		return nil, r.executeRegistry(tx, sender)
	}

	return nil, ErrUnknownContract
}

func (r *Ledger) view(contract, method string, raw json.RawMessage) (interface{}, error) {
	switch contract {
	case r.evidence:
		switch method {
		case evidence.MethodGetLatestRelatedBlock:
			q := &evidence.HashQuery{}
			if err := json.Unmarshal(raw, q); err != nil {
				return nil, errors.Wrap(err, "invalid getLatestRelatedBlock params")
			}
			if rec, ok := r.records[strings.ToLower(q.Hash)]; ok {
				return rec.latestBlock, nil
			}
			return uint64(0), nil
		case evidence.MethodGetHashByExtraKey:
			q := &evidence.KeyQuery{}
			if err := json.Unmarshal(raw, q); err != nil {
				return nil, errors.Wrap(err, "invalid getHashByExtraKey params")
			}
			return r.extraKeys[q.Key], nil
		}
	case r.registry:
		if method == vdr.MethodGetDocument {
			q := &vdr.AddressQuery{}
			if err := json.Unmarshal(raw, q); err != nil {
				return nil, errors.Wrap(err, "invalid getDocument params")
			}
			if rec, ok := r.identities[strings.ToLower(q.Address)]; ok {
				return rec, nil
			}
			return &vdr.IdentityRecord{}, nil
		}
	default:
		return nil, ErrUnknownContract
	}

	return nil, errors.Errorf("unknown method %s", method)
}

func (r *Ledger) executeRegistry(tx *ledger.Transaction, sender string) error {
	if tx.Method != vdr.MethodRegisterIdentity {
		return errors.Errorf("unknown method %s", tx.Method)
	}

	p := &vdr.RegisterParams{}
	if err := json.Unmarshal(tx.Params, p); err != nil {
		return errors.Wrap(err, "invalid registerIdentity params")
	}

	pub, err := did.ParseVerkey(p.PublicKey)
	if err != nil {
		return err
	}

	if signature.Address(pub) != sender {
		return errors.New("public key does not belong to sender")
	}

	now := r.now().UnixNano() / int64(time.Millisecond)
	rec, ok := r.identities[sender]
	if !ok {
		rec = &vdr.IdentityRecord{Address: sender, Created: now}
		r.identities[sender] = rec
	}
	rec.PublicKey = p.PublicKey
	rec.Updated = now

	return nil
}
