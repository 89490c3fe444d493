/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/amqp"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/signature"
)

// Entry is one record of a batch create.
type Entry struct {
	Hash      string `json:"hash"`
	Log       string `json:"log"`
	CustomKey string `json:"customKey,omitempty"`
}

// Service writes evidence records to the ledger contract and reads them back through a Resolver.
type Service struct {
	client    ledger.Client
	resolver  *Resolver
	contract  string
	publisher amqp.Publisher
	now       func() time.Time
}

type ServiceOption func(s *Service)

// WithPublisher publishes a Notification after every successful write.
func WithPublisher(p amqp.Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithServiceClock replaces the time source of update timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(client ledger.Client, resolver *Resolver, contract string, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		resolver: resolver,
		contract: contract,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateEvidence anchors hash on the ledger, signed by key, with an initial log entry.
func (s *Service) CreateEvidence(ctx context.Context, hash, log string, key *btcec.PrivateKey) (string, error) {
	return s.createOne(ctx, hash, log, "", key)
}

// CreateEvidenceWithCustomKey is CreateEvidence that also binds customKey to hash.  The first
// binding of a key wins.
func (s *Service) CreateEvidenceWithCustomKey(ctx context.Context, hash, log, customKey string, key *btcec.PrivateKey) (string, error) {
	if customKey == "" {
		return "", errors.Wrap(errcode.ErrInputIllegal, "custom key is empty")
	}

	return s.createOne(ctx, hash, log, customKey, key)
}

func (s *Service) createOne(ctx context.Context, hash, log, customKey string, key *btcec.PrivateKey) (string, error) {
	created, err := s.createBatch(ctx, []*Entry{{Hash: hash, Log: log, CustomKey: customKey}}, customKey != "", key)
	if err != nil {
		return "", err
	}

	if !created[0] {
		return "", errors.Wrapf(errcode.ErrEvidenceAlreadyExists, "evidence %s", hash)
	}

	return hash, nil
}

// BatchCreateEvidence anchors every entry in one transaction.  The result reports per entry
// whether it was created; invalid hashes are skipped and report false.
func (s *Service) BatchCreateEvidence(ctx context.Context, entries []*Entry, key *btcec.PrivateKey) ([]bool, error) {
	return s.createBatch(ctx, entries, false, key)
}

// BatchCreateEvidenceWithCustomKey is BatchCreateEvidence binding each entry's CustomKey.
func (s *Service) BatchCreateEvidenceWithCustomKey(ctx context.Context, entries []*Entry, key *btcec.PrivateKey) ([]bool, error) {
	return s.createBatch(ctx, entries, true, key)
}

func (s *Service) createBatch(ctx context.Context, entries []*Entry, withKeys bool, key *btcec.PrivateKey) ([]bool, error) {
	if key == nil {
		return nil, errors.Wrap(errcode.ErrInputIllegal, "signing key is required")
	}
	if len(entries) == 0 {
		return nil, errors.Wrap(errcode.ErrInputIllegal, "no evidence entries")
	}

	signer := signature.Address(key.PubKey())
	now := s.timestamp()
	batch := &SignatureBatch{}
	if withKeys {
		batch.ExtraKeys = []string{}
	}

	for _, e := range entries {
		if e == nil || !IsValidHash(e.Hash) {
			continue
		}

		sig, err := signHash(e.Hash, key)
		if err != nil {
			return nil, err
		}

		batch.Hashes = append(batch.Hashes, strings.ToLower(e.Hash))
		batch.Signers = append(batch.Signers, signer)
		batch.Signatures = append(batch.Signatures, sig)
		batch.Logs = append(batch.Logs, e.Log)
		batch.Updated = append(batch.Updated, now)
		if withKeys {
			batch.ExtraKeys = append(batch.ExtraKeys, e.CustomKey)
		}
	}

	if len(batch.Hashes) == 0 {
		return nil, errors.Wrap(errcode.ErrInputIllegal, "no valid evidence hash")
	}

	method := MethodCreateEvidence
	if withKeys {
		method = MethodCreateEvidenceWithExtraKey
	}

	rcpt, err := s.submit(ctx, method, batch, key)
	if err != nil {
		return nil, err
	}

	emitted := map[string]bool{}
	for _, ev := range s.events(rcpt) {
		if ev.Kind == KindCreate && ev.Signer == signer {
			emitted[ev.Hash] = true
		}
	}

	out := make([]bool, len(entries))
	var hashes []string
	for i, e := range entries {
		if e == nil || !IsValidHash(e.Hash) {
			continue
		}
		h := strings.ToLower(e.Hash)
		out[i] = emitted[h]
		if out[i] {
			hashes = append(hashes, h)
		}
	}

	if len(hashes) > 0 {
		s.notify(NotificationCreated, hashes, signer, rcpt.BlockNumber)
	}

	return out, nil
}

// AddSignatureAndLog co-signs an existing record and appends log.
func (s *Service) AddSignatureAndLog(ctx context.Context, hash, log string, key *btcec.PrivateKey) error {
	if key == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "signing key is required")
	}
	if !IsValidHash(hash) {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid evidence hash %q", hash)
	}

	sig, err := signHash(hash, key)
	if err != nil {
		return err
	}

	return s.update(ctx, hash, sig, log, "", key)
}

// AddLog appends log to the signer's entry of an existing record.
func (s *Service) AddLog(ctx context.Context, hash, log string, key *btcec.PrivateKey) error {
	if !IsValidHash(hash) {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid evidence hash %q", hash)
	}
	if log == "" {
		return errors.Wrap(errcode.ErrInputIllegal, "log is empty")
	}

	return s.update(ctx, hash, "", log, "", key)
}

// AddLogByCustomKey is AddLog addressing the record through its custom key.
func (s *Service) AddLogByCustomKey(ctx context.Context, customKey, log string, key *btcec.PrivateKey) error {
	hash, err := s.GetHashByCustomKey(ctx, customKey)
	if err != nil {
		return err
	}

	if log == "" {
		return errors.Wrap(errcode.ErrInputIllegal, "log is empty")
	}

	return s.update(ctx, hash, "", log, customKey, key)
}

func (s *Service) update(ctx context.Context, hash, sig, log, customKey string, key *btcec.PrivateKey) error {
	if key == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "signing key is required")
	}

	signer := signature.Address(key.PubKey())
	hash = strings.ToLower(hash)
	batch := &SignatureBatch{
		Hashes:     []string{hash},
		Signers:    []string{signer},
		Signatures: []string{sig},
		Logs:       []string{log},
		Updated:    []int64{s.timestamp()},
	}

	method := MethodAddSignatureAndLogs
	if customKey != "" {
		method = MethodAddSignatureAndLogsWithExtraKey
		batch.ExtraKeys = []string{customKey}
	}

	rcpt, err := s.submit(ctx, method, batch, key)
	if err != nil {
		return err
	}

	if !s.emitted(rcpt, hash, signer) {
		return errors.Wrapf(errcode.ErrEvidenceNotFound, "evidence %s", hash)
	}

	s.notify(NotificationLogged, []string{hash}, signer, rcpt.BlockNumber)
	return nil
}

// SetAttribute records an arbitrary key/value pair against the signer's entry.  The revoke
// and unrevoke keys are reserved for Revoke.
func (s *Service) SetAttribute(ctx context.Context, hash, attrKey, value string, key *btcec.PrivateKey) error {
	if !IsValidHash(hash) {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid evidence hash %q", hash)
	}

	switch strings.ToLower(attrKey) {
	case "", RevokeKey, UnrevokeKey:
		return errors.Wrapf(errcode.ErrInputIllegal, "attribute key %q is not allowed", attrKey)
	}

	if key == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "signing key is required")
	}

	signer := signature.Address(key.PubKey())
	hash = strings.ToLower(hash)
	rcpt, err := s.submit(ctx, MethodSetAttribute, &AttributeBatch{
		Hashes:  []string{hash},
		Signers: []string{signer},
		Keys:    []string{attrKey},
		Values:  []string{value},
		Updated: []int64{s.timestamp()},
	}, key)
	if err != nil {
		return err
	}

	if !s.emitted(rcpt, hash, signer) {
		return errors.Wrapf(errcode.ErrEvidenceNotFound, "evidence %s", hash)
	}

	s.notify(NotificationAttribute, []string{hash}, signer, rcpt.BlockNumber)
	return nil
}

// Revoke sets the signer's revocation state of hash.  Passing false unrevokes.
func (s *Service) Revoke(ctx context.Context, hash string, revoked bool, key *btcec.PrivateKey) error {
	if !IsValidHash(hash) {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid evidence hash %q", hash)
	}
	if key == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "signing key is required")
	}

	signer := signature.Address(key.PubKey())
	hash = strings.ToLower(hash)
	rcpt, err := s.submit(ctx, MethodRevoke, &RevokeParams{
		Hash:    hash,
		Signer:  signer,
		Revoked: revoked,
		Updated: s.timestamp(),
	}, key)
	if err != nil {
		return err
	}

	if !s.emitted(rcpt, hash, signer) {
		return errors.Wrapf(errcode.ErrEvidenceNotFound, "evidence %s", hash)
	}

	typ := NotificationRevoked
	if !revoked {
		typ = NotificationUnrevoked
	}
	s.notify(typ, []string{hash}, signer, rcpt.BlockNumber)

	return nil
}

// GetInfo reconstructs the current state of hash.
func (s *Service) GetInfo(ctx context.Context, hash string) (*Info, error) {
	if !IsValidHash(hash) {
		return nil, errors.Wrapf(errcode.ErrInputIllegal, "invalid evidence hash %q", hash)
	}

	hash = strings.ToLower(hash)
	var latest uint64
	err := s.client.Call(ctx, s.contract, MethodGetLatestRelatedBlock, &HashQuery{Hash: hash}, &latest)
	if err != nil {
		return nil, errors.Wrapf(errcode.ErrLedgerCallFailure, "latest block of %s: %v", hash, err)
	}

	if latest == 0 {
		return nil, errors.Wrapf(errcode.ErrEvidenceNotFound, "evidence %s", hash)
	}

	return s.resolver.Resolve(ctx, hash, latest), nil
}

// GetInfoByCustomKey is GetInfo addressing the record through its custom key.
func (s *Service) GetInfoByCustomKey(ctx context.Context, customKey string) (*Info, error) {
	hash, err := s.GetHashByCustomKey(ctx, customKey)
	if err != nil {
		return nil, err
	}

	return s.GetInfo(ctx, hash)
}

// GetHashByCustomKey returns the hash bound to customKey.
func (s *Service) GetHashByCustomKey(ctx context.Context, customKey string) (string, error) {
	if customKey == "" {
		return "", errors.Wrap(errcode.ErrInputIllegal, "custom key is empty")
	}

	var hash string
	err := s.client.Call(ctx, s.contract, MethodGetHashByExtraKey, &KeyQuery{Key: customKey}, &hash)
	if err != nil {
		return "", errors.Wrapf(errcode.ErrLedgerCallFailure, "hash of key %s: %v", customKey, err)
	}

	if hash == "" {
		return "", errors.Wrapf(errcode.ErrEvidenceNotFound, "custom key %s", customKey)
	}

	return hash, nil
}

// VerifySigner checks that the signature recorded for signer in info was made over the
// evidence hash by pub.
func VerifySigner(info *Info, signer string, pub *btcec.PublicKey) error {
	if info == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "evidence info is nil")
	}
	if pub == nil {
		return errcode.ErrPublicKeyNotExists
	}

	si, ok := info.SignInfo[signer]
	if !ok || si.Signature == "" {
		return errors.Wrapf(errcode.ErrEvidenceNotFound, "no signature from %s", signer)
	}

	raw, err := signature.DecodeSignature(si.Signature)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(info.CredentialHash, "0x"))
	if err != nil {
		return errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}

	ok, err = signature.Verify(digest, raw, pub)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}
	if !ok {
		return errcode.ErrSignatureInvalid
	}

	return nil
}

func (s *Service) submit(ctx context.Context, method string, params interface{}, key *btcec.PrivateKey) (*ledger.Receipt, error) {
	tx, err := ledger.NewTransaction(s.contract, method, params)
	if err != nil {
		return nil, errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}

	if err = tx.Sign(key); err != nil {
		return nil, errors.Wrapf(errcode.ErrInputIllegal, "unable to sign %s: %v", method, err)
	}

	rcpt, err := s.client.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, errors.Wrapf(errcode.ErrLedgerCallFailure, "%s: %v", method, err)
	}

	if rcpt == nil || rcpt.Status != ledger.StatusSuccess {
		return nil, errors.Wrapf(errcode.ErrLedgerCallFailure, "%s was reverted", method)
	}

	return rcpt, nil
}

func (s *Service) events(rcpt *ledger.Receipt) []*Event {
	var out []*Event
	for _, l := range rcpt.Logs {
		if !strings.EqualFold(l.Address, s.contract) {
			continue
		}

		ev, err := DecodeLog(l)
		if err != nil {
			logger.Debugf("ignoring log of transaction %s: %v", rcpt.TransactionHash, err)
			continue
		}
		out = append(out, ev)
	}

	return out
}

func (s *Service) emitted(rcpt *ledger.Receipt, hash, signer string) bool {
	for _, ev := range s.events(rcpt) {
		if ev.Hash == hash && ev.Signer == signer {
			return true
		}
	}

	return false
}

func (s *Service) notify(typ string, hashes []string, signer string, block uint64) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(&Notification{
		Type:      typ,
		Hashes:    hashes,
		Signer:    signer,
		Block:     block,
		Timestamp: s.timestamp(),
	})
	if err != nil {
		logger.Errorf("unable to marshal %s notification: %v", typ, err)
		return
	}

	if err = s.publisher.Publish(body, "application/json"); err != nil {
		logger.Warnf("unable to publish %s notification for block %d: %v", typ, block, err)
	}
}

func (s *Service) timestamp() int64 {
	return s.now().UnixNano() / int64(time.Millisecond)
}

func signHash(hash string, key *btcec.PrivateKey) (string, error) {
	digest, err := hex.DecodeString(strings.TrimPrefix(hash, "0x"))
	if err != nil {
		return "", errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}

	sig, err := signature.Sign(digest, key)
	if err != nil {
		return "", err
	}

	return signature.EncodeSignature(sig), nil
}
