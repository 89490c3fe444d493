/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/amqp/mocks"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/ledger/memledger"
	mockledger "github.com/scoir/attestor/pkg/mock/ledger"
	"github.com/scoir/attestor/pkg/signature"
)

const (
	contract = "0x00000000000000000000000000000000000000e1"
	registry = "0x00000000000000000000000000000000000000e2"
)

var (
	fixedNow = time.Unix(1600000000, 0)
	fixedMs  = fixedNow.UnixNano() / int64(time.Millisecond)
)

func mustKey(t *testing.T, s string) *btcec.PrivateKey {
	k, err := signature.ParsePrivateKey(s)
	require.NoError(t, err)
	return k
}

func newService(client ledger.Client, opts ...evidence.ServiceOption) *evidence.Service {
	resolver := evidence.NewResolver(client, evidence.NewReceiptCache())
	opts = append([]evidence.ServiceOption{evidence.WithServiceClock(func() time.Time { return fixedNow })}, opts...)
	return evidence.NewService(client, resolver, contract, opts...)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(memledger.New(contract, registry))
	issuer := mustKey(t, "1")
	cosigner := mustKey(t, "2")
	issuerAddr := signature.Address(issuer.PubKey())
	cosignerAddr := signature.Address(cosigner.PubKey())
	hash := signature.Keccak256Hex("diploma")

	got, err := svc.CreateEvidence(ctx, hash, "issued", issuer)
	require.NoError(t, err)
	require.Equal(t, hash, got)

	require.NoError(t, svc.AddLog(ctx, hash, "mailed", issuer))
	require.NoError(t, svc.AddLog(ctx, hash, "received", issuer))
	require.NoError(t, svc.AddSignatureAndLog(ctx, hash, "countersigned", cosigner))
	require.NoError(t, svc.SetAttribute(ctx, hash, "grade", "A", issuer))
	require.NoError(t, svc.Revoke(ctx, hash, true, issuer))

	info, err := svc.GetInfo(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, hash, info.CredentialHash)
	require.ElementsMatch(t, []string{issuerAddr, cosignerAddr}, info.Signers())

	si := info.SignInfo[issuerAddr]
	require.Equal(t, []string{"issued", "mailed", "received"}, si.Logs)
	require.Equal(t, fixedMs, si.Timestamp)
	require.True(t, info.IsRevoked(issuerAddr))
	require.NoError(t, evidence.VerifySigner(info, issuerAddr, issuer.PubKey()))

	co := info.SignInfo[cosignerAddr]
	require.Equal(t, []string{"countersigned"}, co.Logs)
	require.False(t, info.IsRevoked(cosignerAddr))
	require.NoError(t, evidence.VerifySigner(info, cosignerAddr, cosigner.PubKey()))

	t.Run("wrong key", func(t *testing.T) {
		err := evidence.VerifySigner(info, issuerAddr, cosigner.PubKey())
		require.True(t, errcode.Is(err, errcode.ErrSignatureInvalid))
	})

	t.Run("unknown signer", func(t *testing.T) {
		err := evidence.VerifySigner(info, "0xabc", issuer.PubKey())
		require.True(t, errcode.Is(err, errcode.ErrEvidenceNotFound))
	})

	t.Run("unrevoke wins over older revoke", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, hash, false, issuer))

		info, err := svc.GetInfo(ctx, hash)
		require.NoError(t, err)
		require.False(t, info.IsRevoked(issuerAddr))
		require.NotNil(t, info.SignInfo[issuerAddr].Revoked)
	})

	t.Run("duplicate create", func(t *testing.T) {
		_, err := svc.CreateEvidence(ctx, hash, "again", issuer)
		require.True(t, errcode.Is(err, errcode.ErrEvidenceAlreadyExists))
	})
}

func TestServiceMissingEvidence(t *testing.T) {
	ctx := context.Background()
	svc := newService(memledger.New(contract, registry))
	k := mustKey(t, "1")
	hash := signature.Keccak256Hex("nothing here")

	tests := []struct {
		name string
		call func() error
	}{
		{name: "add log", call: func() error { return svc.AddLog(ctx, hash, "l", k) }},
		{name: "add signature", call: func() error { return svc.AddSignatureAndLog(ctx, hash, "l", k) }},
		{name: "set attribute", call: func() error { return svc.SetAttribute(ctx, hash, "k", "v", k) }},
		{name: "revoke", call: func() error { return svc.Revoke(ctx, hash, true, k) }},
		{name: "get info", call: func() error { _, err := svc.GetInfo(ctx, hash); return err }},
		{name: "hash by key", call: func() error { _, err := svc.GetHashByCustomKey(ctx, "missing"); return err }},
		{name: "info by key", call: func() error { _, err := svc.GetInfoByCustomKey(ctx, "missing"); return err }},
		{name: "log by key", call: func() error { return svc.AddLogByCustomKey(ctx, "missing", "l", k) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			require.True(t, errcode.Is(err, errcode.ErrEvidenceNotFound), err.Error())
		})
	}
}

func TestServiceIllegalInput(t *testing.T) {
	ctx := context.Background()
	svc := newService(memledger.New(contract, registry))
	k := mustKey(t, "1")
	hash := signature.Keccak256Hex("input")

	tests := []struct {
		name string
		call func() error
	}{
		{name: "short hash", call: func() error { _, err := svc.CreateEvidence(ctx, "0x1234", "l", k); return err }},
		{name: "no prefix", call: func() error { _, err := svc.CreateEvidence(ctx, hash[2:]+"00", "l", k); return err }},
		{name: "not hex", call: func() error { return svc.AddLog(ctx, "0x"+string(make([]byte, 64)), "l", k) }},
		{name: "nil key", call: func() error { _, err := svc.CreateEvidence(ctx, hash, "l", nil); return err }},
		{name: "empty log", call: func() error { return svc.AddLog(ctx, hash, "", k) }},
		{name: "reserved attribute", call: func() error { return svc.SetAttribute(ctx, hash, "Revoke", "true", k) }},
		{name: "empty attribute", call: func() error { return svc.SetAttribute(ctx, hash, "", "v", k) }},
		{name: "empty custom key", call: func() error { _, err := svc.CreateEvidenceWithCustomKey(ctx, hash, "l", "", k); return err }},
		{name: "empty batch", call: func() error { _, err := svc.BatchCreateEvidence(ctx, nil, k); return err }},
		{name: "batch of bad hashes", call: func() error {
			_, err := svc.BatchCreateEvidence(ctx, []*evidence.Entry{{Hash: "0x00"}}, k)
			return err
		}},
		{name: "get info", call: func() error { _, err := svc.GetInfo(ctx, "abc"); return err }},
		{name: "revoke", call: func() error { return svc.Revoke(ctx, "", true, k) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			require.True(t, errcode.Is(err, errcode.ErrInputIllegal), err.Error())
		})
	}
}

func TestServiceCustomKeys(t *testing.T) {
	ctx := context.Background()
	svc := newService(memledger.New(contract, registry))
	k := mustKey(t, "1")
	addr := signature.Address(k.PubKey())
	hash := signature.Keccak256Hex("transcript")

	_, err := svc.CreateEvidenceWithCustomKey(ctx, hash, "issued", "degree-42", k)
	require.NoError(t, err)

	got, err := svc.GetHashByCustomKey(ctx, "degree-42")
	require.NoError(t, err)
	require.Equal(t, hash, got)

	require.NoError(t, svc.AddLogByCustomKey(ctx, "degree-42", "sealed", k))

	info, err := svc.GetInfoByCustomKey(ctx, "degree-42")
	require.NoError(t, err)
	require.Equal(t, []string{"issued", "sealed"}, info.SignInfo[addr].Logs)

	t.Run("first binding wins", func(t *testing.T) {
		other := signature.Keccak256Hex("other transcript")
		_, err := svc.CreateEvidenceWithCustomKey(ctx, other, "issued", "degree-42", k)
		require.NoError(t, err)

		got, err := svc.GetHashByCustomKey(ctx, "degree-42")
		require.NoError(t, err)
		require.Equal(t, hash, got)
	})
}

func TestServiceBatchCreate(t *testing.T) {
	ctx := context.Background()
	svc := newService(memledger.New(contract, registry))
	k := mustKey(t, "1")
	addr := signature.Address(k.PubKey())

	a := signature.Keccak256Hex("a")
	b := signature.Keccak256Hex("b")
	existing := signature.Keccak256Hex("existing")

	_, err := svc.CreateEvidence(ctx, existing, "first", k)
	require.NoError(t, err)

	created, err := svc.BatchCreateEvidence(ctx, []*evidence.Entry{
		{Hash: a, Log: "la"},
		{Hash: "0xnope"},
		{Hash: b, Log: "lb"},
		{Hash: existing, Log: "again"},
	}, k)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, false}, created)

	info, err := svc.GetInfo(ctx, b)
	require.NoError(t, err)
	require.Equal(t, []string{"lb"}, info.SignInfo[addr].Logs)

	t.Run("with custom keys", func(t *testing.T) {
		c := signature.Keccak256Hex("c")
		created, err := svc.BatchCreateEvidenceWithCustomKey(ctx, []*evidence.Entry{
			{Hash: c, Log: "lc", CustomKey: "key-c"},
		}, k)
		require.NoError(t, err)
		require.Equal(t, []bool{true}, created)

		got, err := svc.GetHashByCustomKey(ctx, "key-c")
		require.NoError(t, err)
		require.Equal(t, c, got)
	})

	t.Run("all existing", func(t *testing.T) {
		created, err := svc.BatchCreateEvidence(ctx, []*evidence.Entry{{Hash: a}, {Hash: b}}, k)
		require.NoError(t, err)
		require.Equal(t, []bool{false, false}, created)
	})
}

func TestServiceLedgerFailures(t *testing.T) {
	ctx := context.Background()
	k := mustKey(t, "1")
	hash := signature.Keccak256Hex("x")

	t.Run("submit error", func(t *testing.T) {
		client := &mockledger.MockLedgerClient{SubmitTransactionErr: errors.New("connection refused")}
		_, err := newService(client).CreateEvidence(ctx, hash, "l", k)
		require.True(t, errcode.Is(err, errcode.ErrLedgerCallFailure))
		require.Contains(t, err.Error(), "connection refused")
	})

	t.Run("reverted", func(t *testing.T) {
		client := &mockledger.MockLedgerClient{
			SubmitTransactionValue: &ledger.Receipt{Status: ledger.StatusFailed, BlockNumber: 3},
		}
		err := newService(client).Revoke(ctx, hash, true, k)
		require.True(t, errcode.Is(err, errcode.ErrLedgerCallFailure))
	})

	t.Run("logs from another contract", func(t *testing.T) {
		l, err := evidence.EncodeLog("0xfeed", &evidence.Event{
			Kind: evidence.KindCreate, Hash: hash, Signer: signature.Address(k.PubKey()), Signature: "s",
		})
		require.NoError(t, err)

		client := &mockledger.MockLedgerClient{
			SubmitTransactionValue: &ledger.Receipt{Status: ledger.StatusSuccess, BlockNumber: 3, Logs: []ledger.Log{l}},
		}
		_, err = newService(client).CreateEvidence(ctx, hash, "l", k)
		require.True(t, errcode.Is(err, errcode.ErrEvidenceAlreadyExists))
	})

	t.Run("call error", func(t *testing.T) {
		client := &mockledger.MockLedgerClient{CallErr: errors.New("timeout")}
		svc := newService(client)

		_, err := svc.GetInfo(ctx, hash)
		require.True(t, errcode.Is(err, errcode.ErrLedgerCallFailure))

		_, err = svc.GetHashByCustomKey(ctx, "k")
		require.True(t, errcode.Is(err, errcode.ErrLedgerCallFailure))
	})

	t.Run("signed transaction", func(t *testing.T) {
		client := &mockledger.MockLedgerClient{SubmitTransactionValue: &ledger.Receipt{Status: ledger.StatusSuccess}}
		_ = newService(client).AddLog(ctx, hash, "l", k)

		require.Len(t, client.Submitted, 1)
		tx := client.Submitted[0]
		require.Equal(t, contract, tx.Contract)
		require.Equal(t, evidence.MethodAddSignatureAndLogs, tx.Method)

		sender, err := tx.Sender()
		require.NoError(t, err)
		require.Equal(t, signature.Address(k.PubKey()), sender)

		batch := &evidence.SignatureBatch{}
		require.NoError(t, json.Unmarshal(tx.Params, batch))
		require.Equal(t, []int64{fixedMs}, batch.Updated)
		require.Equal(t, []string{""}, batch.Signatures)
	})
}

func TestServiceNotifications(t *testing.T) {
	ctx := context.Background()
	k := mustKey(t, "1")
	hash := signature.Keccak256Hex("notify")

	var published []*evidence.Notification
	publisher := &mocks.Publisher{}
	publisher.On("Publish", mock.Anything, "application/json").Run(func(args mock.Arguments) {
		n := &evidence.Notification{}
		require.NoError(t, json.Unmarshal(args.Get(0).([]byte), n))
		published = append(published, n)
	}).Return(nil)

	svc := newService(memledger.New(contract, registry), evidence.WithPublisher(publisher))
	_, err := svc.CreateEvidence(ctx, hash, "l", k)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, hash, false, k))

	require.Len(t, published, 2)
	require.Equal(t, evidence.NotificationCreated, published[0].Type)
	require.Equal(t, []string{hash}, published[0].Hashes)
	require.Equal(t, uint64(1), published[0].Block)
	require.Equal(t, evidence.NotificationUnrevoked, published[1].Type)
	require.Equal(t, signature.Address(k.PubKey()), published[1].Signer)
	require.Equal(t, fixedMs, published[1].Timestamp)

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		failing := &mocks.Publisher{}
		failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

		svc := newService(memledger.New(contract, registry), evidence.WithPublisher(failing))
		_, err := svc.CreateEvidence(ctx, hash, "l", k)
		require.NoError(t, err)
		failing.AssertNumberOfCalls(t, "Publish", 1)
	})
}
