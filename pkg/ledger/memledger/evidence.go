/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package memledger

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/ledger"
)

func (r *Ledger) executeEvidence(tx *ledger.Transaction, sender string, block uint64) ([]ledger.Log, error) {
	switch tx.Method {
	case evidence.MethodCreateEvidence, evidence.MethodCreateEvidenceWithExtraKey:
		batch := &evidence.SignatureBatch{}
		if err := r.decodeBatch(tx, batch); err != nil {
			return nil, err
		}
		return r.create(batch, sender, block)
	case evidence.MethodAddSignatureAndLogs, evidence.MethodAddSignatureAndLogsWithExtraKey:
		batch := &evidence.SignatureBatch{}
		if err := r.decodeBatch(tx, batch); err != nil {
			return nil, err
		}
		return r.addSignatureAndLogs(batch, sender, block)
	case evidence.MethodSetAttribute:
		batch := &evidence.AttributeBatch{}
		if err := json.Unmarshal(tx.Params, batch); err != nil {
			return nil, errors.Wrap(err, "invalid setAttribute params")
		}
		if !batch.Valid() {
			return nil, errors.New("invalid setAttribute params")
		}
		return r.setAttribute(batch, sender, block)
	case evidence.MethodRevoke:
		p := &evidence.RevokeParams{}
		if err := json.Unmarshal(tx.Params, p); err != nil {
			return nil, errors.Wrap(err, "invalid revoke params")
		}
		key := evidence.RevokeKey
		if !p.Revoked {
			key = evidence.UnrevokeKey
		}
		batch := &evidence.AttributeBatch{
			Hashes:  []string{p.Hash},
			Signers: []string{p.Signer},
			Keys:    []string{key},
			Values:  []string{strconv.FormatBool(p.Revoked)},
			Updated: []int64{p.Updated},
		}
		if !batch.Valid() {
			return nil, errors.New("invalid revoke params")
		}
		return r.setAttribute(batch, sender, block)
	}

	return nil, errors.Errorf("unknown method %s", tx.Method)
}

func (r *Ledger) decodeBatch(tx *ledger.Transaction, batch *evidence.SignatureBatch) error {
	if err := json.Unmarshal(tx.Params, batch); err != nil {
		return errors.Wrapf(err, "invalid %s params", tx.Method)
	}

	if !batch.Valid() {
		return errors.Errorf("invalid %s params", tx.Method)
	}

	return nil
}

func (r *Ledger) create(batch *evidence.SignatureBatch, sender string, block uint64) ([]ledger.Log, error) {
	var logs []ledger.Log
	for i := range batch.Hashes {
		hash := strings.ToLower(batch.Hashes[i])
		if _, ok := r.records[hash]; ok || !r.signedBy(batch.Signers[i], sender) {
			continue
		}

		l, err := evidence.EncodeLog(r.evidence, &evidence.Event{
			Kind:      evidence.KindCreate,
			Hash:      hash,
			Signer:    sender,
			Signature: batch.Signatures[i],
			Log:       batch.Logs[i],
			UpdatedAt: batch.Updated[i],
		})
		if err != nil {
			return nil, err
		}

		r.records[hash] = &record{latestBlock: block}
		r.bindExtraKey(batch, i, hash)
		logs = append(logs, l)
	}

	return logs, nil
}

func (r *Ledger) addSignatureAndLogs(batch *evidence.SignatureBatch, sender string, block uint64) ([]ledger.Log, error) {
	var logs []ledger.Log
	for i := range batch.Hashes {
		hash := strings.ToLower(batch.Hashes[i])
		rec, ok := r.records[hash]
		if !ok || !r.signedBy(batch.Signers[i], sender) {
			continue
		}

		l, err := evidence.EncodeLog(r.evidence, &evidence.Event{
			Kind:          evidence.KindSignAndLog,
			Hash:          hash,
			Signer:        sender,
			Signature:     batch.Signatures[i],
			Log:           batch.Logs[i],
			UpdatedAt:     batch.Updated[i],
			PreviousBlock: rec.latestBlock,
		})
		if err != nil {
			return nil, err
		}

		rec.latestBlock = block
		r.bindExtraKey(batch, i, hash)
		logs = append(logs, l)
	}

	return logs, nil
}

func (r *Ledger) setAttribute(batch *evidence.AttributeBatch, sender string, block uint64) ([]ledger.Log, error) {
	var logs []ledger.Log
	for i := range batch.Hashes {
		hash := strings.ToLower(batch.Hashes[i])
		rec, ok := r.records[hash]
		if !ok || !r.signedBy(batch.Signers[i], sender) {
			continue
		}

		kind := evidence.KindAttribute
		switch strings.ToLower(batch.Keys[i]) {
		case evidence.RevokeKey:
			kind = evidence.KindRevoke
		case evidence.UnrevokeKey:
			kind = evidence.KindUnrevoke
		}

		l, err := evidence.EncodeLog(r.evidence, &evidence.Event{
			Kind:          kind,
			Hash:          hash,
			Signer:        sender,
			Key:           batch.Keys[i],
			Value:         batch.Values[i],
			UpdatedAt:     batch.Updated[i],
			PreviousBlock: rec.latestBlock,
		})
		if err != nil {
			return nil, err
		}

		rec.latestBlock = block
		logs = append(logs, l)
	}

	return logs, nil
}

func (r *Ledger) signedBy(signer, sender string) bool {
	return strings.EqualFold(signer, sender)
}

func (r *Ledger) bindExtraKey(batch *evidence.SignatureBatch, i int, hash string) {
	if batch.ExtraKeys == nil || batch.ExtraKeys[i] == "" {
		return
	}

	if _, ok := r.extraKeys[batch.ExtraKeys[i]]; !ok {
		r.extraKeys[batch.ExtraKeys[i]] = hash
	}
}
