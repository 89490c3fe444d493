/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	diddoc "github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/datastore/mem"
	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/ledger/memledger"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/vdr"
)

const (
	evidenceAddr = "0x00000000000000000000000000000000000000e1"
	registryAddr = "0x00000000000000000000000000000000000000e2"
	chainID      = 7
	cptDegree    = 1001

	degreeClaim = `{"name":"zhang san","gender":"F","age":18,"school":{"name":"MIT","city":"Boston"}}`
	disclosure  = `{"name":1,"gender":0,"age":0,"school":{"name":1,"city":0}}`
)

var fixedNow = time.Unix(1600000000, 0)

type fixture struct {
	svc     *Service
	vdr     *vdr.VDR
	schemas datastore.Store
	issuer  *did.DID
	key     *btcec.PrivateKey
}

type failingResolver struct{}

func (failingResolver) ResolvePublicKeyDocument(context.Context, string) (*diddoc.Doc, error) {
	return nil, errors.New("resolver offline")
}

func setup(t *testing.T) *fixture {
	l := memledger.New(evidenceAddr, registryAddr)
	v := vdr.New(l, registryAddr, "", chainID)

	key, issuer := register(t, v)

	store, err := mem.NewProvider().OpenStore(datastore.SchemaC)
	require.NoError(t, err)
	_, err = store.InsertSchema(&datastore.Schema{
		CptID: cptDegree,
		Name:  "degree",
		Attributes: []*datastore.Attribute{
			{Name: "name"},
			{Name: "gender"},
			{Name: "age"},
			{Name: "school", Attributes: []*datastore.Attribute{{Name: "name"}, {Name: "city"}}},
		},
	})
	require.NoError(t, err)

	return &fixture{
		svc:     New(v, store, WithClock(func() time.Time { return fixedNow })),
		vdr:     v,
		schemas: store,
		issuer:  issuer,
		key:     key,
	}
}

func register(t *testing.T, v *vdr.VDR) (*btcec.PrivateKey, *did.DID) {
	key, err := signature.GenerateKey()
	require.NoError(t, err)

	id, err := v.Register(context.Background(), key)
	require.NoError(t, err)

	return key, id
}

func tree(t *testing.T, s string) *claim.Tree {
	out, err := claim.Parse([]byte(s))
	require.NoError(t, err)
	return out
}

func (f *fixture) args(t *testing.T) *IssueArgs {
	return &IssueArgs{
		CptID:          cptDegree,
		Issuer:         f.issuer.String(),
		ExpirationDate: fixedNow.Add(24 * time.Hour).Unix(),
		Claim:          tree(t, degreeClaim),
		Key:            f.key,
	}
}

func (f *fixture) issue(t *testing.T) *Bundle {
	b, err := f.svc.Issue(f.args(t))
	require.NoError(t, err)
	return b
}

func requireCode(t *testing.T, err error, code *errcode.Error) {
	require.Error(t, err)
	require.True(t, errcode.Is(err, code), "expected %v, got %v", code, err)
}

func TestIssueAndVerify(t *testing.T) {
	f := setup(t)
	args := f.args(t)

	b, err := f.svc.Issue(args)
	require.NoError(t, err)

	cred := b.Credential
	require.Equal(t, DefaultContext, cred.Context)
	require.Regexp(t, "^urn:uuid:", cred.ID)
	require.Equal(t, cptDegree, cred.CptID)
	require.Equal(t, f.issuer.String(), cred.Issuer)
	require.Equal(t, fixedNow.Unix(), cred.IssuanceDate)
	require.NotEmpty(t, cred.Signature)
	require.True(t, claim.SameShape(cred.Claim, b.Salt))

	t.Run("resolved issuer", func(t *testing.T) {
		require.NoError(t, f.svc.Verify(context.Background(), b, f.issuer.String()))
	})

	t.Run("issuer key", func(t *testing.T) {
		require.NoError(t, f.svc.VerifyWithKey(b, f.issuer.Verkey))
	})

	t.Run("caller claim is not shared", func(t *testing.T) {
		args.Claim.SetValue("name", "li si")
		require.NoError(t, f.svc.Verify(context.Background(), b, f.issuer.String()))
	})

	t.Run("wire form", func(t *testing.T) {
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		require.Contains(t, string(raw), `"issuranceDate":1600000000`)

		got := &Bundle{}
		require.NoError(t, json.Unmarshal(raw, got))
		require.NoError(t, f.svc.Verify(context.Background(), got, f.issuer.String()))
	})

	t.Run("float leaves survive the wire", func(t *testing.T) {
		for _, v := range []float64{1e21, 1e-7, 0.5, 123456789.25} {
			a := f.args(t)
			a.Claim.SetValue("age", v)
			issued, err := f.svc.Issue(a)
			require.NoError(t, err)
			require.NoError(t, f.svc.Verify(context.Background(), issued, f.issuer.String()))

			raw, err := json.Marshal(issued)
			require.NoError(t, err)
			got := &Bundle{}
			require.NoError(t, json.Unmarshal(raw, got))
			require.NoError(t, f.svc.Verify(context.Background(), got, f.issuer.String()), "age %v", v)
		}
	})

	t.Run("leaf rendering carries no type", func(t *testing.T) {
		a := f.args(t)
		a.Claim.SetValue("age", json.Number("18"))
		issued, err := f.svc.Issue(a)
		require.NoError(t, err)

		swapped := issued.Copy()
		swapped.Credential.Claim.SetValue("age", "18")
		require.NoError(t, f.svc.VerifyWithKey(swapped, f.issuer.Verkey))
	})

	t.Run("fresh salts", func(t *testing.T) {
		other := f.issue(t)
		require.NotEqual(t, b.Credential.ID, other.Credential.ID)

		s1, _ := b.Salt.Get("name")
		s2, _ := other.Salt.Get("name")
		require.NotEqual(t, s1, s2)
	})
}

func TestIssueErrors(t *testing.T) {
	f := setup(t)
	otherKey, err := signature.GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(a *IssueArgs)
		code   *errcode.Error
	}{
		{name: "zero cptId", mutate: func(a *IssueArgs) { a.CptID = 0 }, code: errcode.ErrInputIllegal},
		{name: "nil claim", mutate: func(a *IssueArgs) { a.Claim = nil }, code: errcode.ErrInputIllegal},
		{name: "empty claim", mutate: func(a *IssueArgs) { a.Claim = claim.NewTree() }, code: errcode.ErrInputIllegal},
		{name: "no key", mutate: func(a *IssueArgs) { a.Key = nil }, code: errcode.ErrInputIllegal},
		{name: "expired", mutate: func(a *IssueArgs) { a.ExpirationDate = fixedNow.Unix() }, code: errcode.ErrInputIllegal},
		{name: "bad issuer", mutate: func(a *IssueArgs) { a.Issuer = "zhang san" }, code: errcode.ErrInputIllegal},
		{name: "foreign key", mutate: func(a *IssueArgs) { a.Key = otherKey }, code: errcode.ErrInputIllegal},
		{name: "unknown cptId", mutate: func(a *IssueArgs) { a.CptID = 42 }, code: errcode.ErrSchemaNotFound},
		{name: "missing field", mutate: func(a *IssueArgs) {
			a.Claim = tree(t, `{"name":"zhang san","gender":"F","school":{"name":"MIT","city":"Boston"}}`)
		}, code: errcode.ErrClaimSchemaMismatch},
		{name: "nested mismatch", mutate: func(a *IssueArgs) {
			a.Claim = tree(t, `{"name":"zhang san","gender":"F","age":18,"school":"MIT"}`)
		}, code: errcode.ErrClaimSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := f.args(t)
			tt.mutate(args)

			b, err := f.svc.Issue(args)
			require.Nil(t, b)
			requireCode(t, err, tt.code)
		})
	}
}

func TestRedact(t *testing.T) {
	f := setup(t)
	b := f.issue(t)
	original := b.Copy()

	redacted, err := f.svc.Redact(b, tree(t, disclosure))
	require.NoError(t, err)
	require.Equal(t, original, b)

	t.Run("hidden fields", func(t *testing.T) {
		salt, _ := original.Salt.Get("gender")
		value, _ := redacted.Credential.Claim.Get("gender")
		require.Equal(t, claim.FieldHash("F", salt.(claim.Scalar).String()), value.(claim.Scalar).String())
		require.NotEqual(t, "F", value.(claim.Scalar).String())

		hidden, _ := redacted.Salt.Get("gender")
		require.True(t, claim.IsNotDisclosed(hidden))

		school, _ := redacted.Salt.Get("school")
		city, _ := school.(*claim.Tree).Get("city")
		require.True(t, claim.IsNotDisclosed(city))
	})

	t.Run("disclosed fields", func(t *testing.T) {
		name, _ := redacted.Credential.Claim.Get("name")
		require.Equal(t, "zhang san", name.(claim.Scalar).String())

		salt, _ := redacted.Salt.Get("name")
		orig, _ := original.Salt.Get("name")
		require.Equal(t, orig, salt)
	})

	t.Run("still verifies", func(t *testing.T) {
		require.NoError(t, f.svc.Verify(context.Background(), redacted, f.issuer.String()))

		h1, err := original.Hash()
		require.NoError(t, err)
		h2, err := redacted.Hash()
		require.NoError(t, err)
		require.Equal(t, h1, h2)
	})

	t.Run("idempotent", func(t *testing.T) {
		again, err := f.svc.Redact(redacted, tree(t, disclosure))
		require.NoError(t, err)
		require.Equal(t, redacted, again)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name       string
			bundle     *Bundle
			disclosure string
			code       *errcode.Error
		}{
			{name: "missing field", bundle: original, disclosure: `{"name":1,"gender":0,"school":{"name":1,"city":0}}`, code: errcode.ErrStructuralMismatch},
			{name: "extra field", bundle: original, disclosure: `{"name":1,"gender":0,"age":0,"id":0,"school":{"name":1,"city":0}}`, code: errcode.ErrStructuralMismatch},
			{name: "flattened", bundle: original, disclosure: `{"name":1,"gender":0,"age":0,"school":1}`, code: errcode.ErrStructuralMismatch},
			{name: "illegal value", bundle: original, disclosure: `{"name":2,"gender":0,"age":0,"school":{"name":1,"city":0}}`, code: errcode.ErrPolicyValueIllegal},
			{name: "reveal hidden", bundle: redacted, disclosure: `{"name":1,"gender":1,"age":0,"school":{"name":1,"city":0}}`, code: errcode.ErrDisclosureSaltMismatch},
			{name: "no credential", bundle: &Bundle{}, disclosure: disclosure, code: errcode.ErrInputIllegal},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				out, err := f.svc.Redact(tt.bundle, tree(t, tt.disclosure))
				require.Nil(t, out)
				requireCode(t, err, tt.code)
			})
		}

		_, err := f.svc.Redact(original, nil)
		requireCode(t, err, errcode.ErrStructuralMismatch)
	})
}

func TestVerifyFailures(t *testing.T) {
	f := setup(t)
	b := f.issue(t)
	ctx := context.Background()

	otherKey, err := signature.GenerateKey()
	require.NoError(t, err)

	t.Run("tampered claim", func(t *testing.T) {
		tampered := b.Copy()
		tampered.Credential.Claim.SetValue("name", "li si")
		requireCode(t, f.svc.Verify(ctx, tampered, f.issuer.String()), errcode.ErrSignatureInvalid)
	})

	t.Run("tampered expiration", func(t *testing.T) {
		tampered := b.Copy()
		tampered.Credential.ExpirationDate++
		requireCode(t, f.svc.VerifyWithKey(tampered, f.issuer.Verkey), errcode.ErrSignatureInvalid)
	})

	t.Run("tampered salt", func(t *testing.T) {
		tampered := b.Copy()
		tampered.Salt.SetValue("age", "aaaaaaaaaaaaaaaaaaaaaa")
		requireCode(t, f.svc.VerifyWithKey(tampered, f.issuer.Verkey), errcode.ErrSignatureInvalid)
	})

	t.Run("broken signature", func(t *testing.T) {
		broken := b.Copy()
		broken.Credential.Signature = "abc"
		requireCode(t, f.svc.Verify(ctx, broken, f.issuer.String()), errcode.ErrSignatureBroken)
	})

	t.Run("other key", func(t *testing.T) {
		verkey := did.NewKeyPair(otherKey).Verkey()
		requireCode(t, f.svc.VerifyWithKey(b, verkey), errcode.ErrSignatureInvalid)
	})

	t.Run("no key", func(t *testing.T) {
		requireCode(t, f.svc.VerifyWithKey(b, ""), errcode.ErrPublicKeyNotExists)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other := f.vdr.ID(signature.Address(otherKey.PubKey()))
		requireCode(t, f.svc.Verify(ctx, b, other), errcode.ErrIssuerMismatch)
	})

	t.Run("unregistered issuer", func(t *testing.T) {
		args := f.args(t)
		args.Key = otherKey
		args.Issuer = f.vdr.ID(signature.Address(otherKey.PubKey()))

		unknown, err := f.svc.Issue(args)
		require.NoError(t, err)
		requireCode(t, f.svc.Verify(ctx, unknown, args.Issuer), errcode.ErrIdentityDocumentUnavailable)
	})

	t.Run("resolver failure", func(t *testing.T) {
		svc := New(failingResolver{}, f.schemas, WithClock(func() time.Time { return fixedNow }))
		requireCode(t, svc.Verify(ctx, b, f.issuer.String()), errcode.ErrIdentityDocumentUnavailable)
	})

	t.Run("salt shape", func(t *testing.T) {
		bad := b.Copy()
		bad.Salt.Set("school", claim.Scalar{Value: "aaaaaaaaaaaaaaaaaaaaaa"})
		requireCode(t, f.svc.VerifyWithKey(bad, f.issuer.Verkey), errcode.ErrStructuralMismatch)
	})

	t.Run("missing salt", func(t *testing.T) {
		requireCode(t, f.svc.VerifyWithKey(&Bundle{Credential: b.Credential}, f.issuer.Verkey), errcode.ErrInputIllegal)
	})

	t.Run("expired", func(t *testing.T) {
		later := func() time.Time { return fixedNow.Add(48 * time.Hour) }

		svc := New(f.vdr, f.schemas, WithClock(later))
		requireCode(t, svc.Verify(ctx, b, f.issuer.String()), errcode.ErrCredentialExpired)

		svc = New(f.vdr, f.schemas, WithClock(later), WithExpiryCheck(false))
		require.NoError(t, svc.Verify(ctx, b, f.issuer.String()))
	})
}

func TestVerifyPresentationPolicy(t *testing.T) {
	f := setup(t)
	b := f.issue(t)

	redacted, err := f.svc.Redact(b, tree(t, disclosure))
	require.NoError(t, err)

	emptySalt := redacted.Copy()
	emptySalt.Salt.SetValue("name", "")

	shortSalt := redacted.Copy()
	shortSalt.Salt.SetValue("name", "x")

	tests := []struct {
		name       string
		bundle     *Bundle
		disclosure string
		code       *errcode.Error
	}{
		{name: "consistent", bundle: redacted, disclosure: disclosure},
		{name: "all disclosed", bundle: b, disclosure: `{"name":1,"gender":1,"age":1,"school":{"name":1,"city":1}}`},
		{name: "subset of fields", bundle: redacted, disclosure: `{"name":1,"school":{"city":0}}`},
		{name: "disclosed but hidden", bundle: redacted, disclosure: `{"name":1,"gender":1}`, code: errcode.ErrDisclosureSaltMismatch},
		{name: "hidden but disclosed", bundle: b, disclosure: `{"name":0}`, code: errcode.ErrDisclosureSaltMismatch},
		{name: "nested hidden but disclosed", bundle: redacted, disclosure: `{"school":{"name":0}}`, code: errcode.ErrDisclosureSaltMismatch},
		{name: "illegal value", bundle: redacted, disclosure: `{"name":3}`, code: errcode.ErrPolicyValueIllegal},
		{name: "text value", bundle: redacted, disclosure: `{"name":"yes"}`, code: errcode.ErrPolicyValueIllegal},
		{name: "unknown field", bundle: redacted, disclosure: `{"nickname":1}`, code: errcode.ErrPolicyValueIllegal},
		{name: "empty salt", bundle: emptySalt, disclosure: `{"name":1}`, code: errcode.ErrPolicyValueIllegal},
		{name: "sentinel sized salt", bundle: shortSalt, disclosure: `{"name":1}`, code: errcode.ErrDisclosureSaltMismatch},
		{name: "subtree for leaf", bundle: redacted, disclosure: `{"school":1}`, code: errcode.ErrStructuralMismatch},
		{name: "leaf for subtree", bundle: redacted, disclosure: `{"name":{"first":1}}`, code: errcode.ErrStructuralMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.VerifyPresentationPolicy(tt.bundle, tree(t, tt.disclosure))
			if tt.code == nil {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tt.code)
		})
	}

	requireCode(t, f.svc.VerifyPresentationPolicy(redacted, nil), errcode.ErrClaimPolicyNotExist)
}
