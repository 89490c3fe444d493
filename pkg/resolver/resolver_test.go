package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	diddoc "github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/signature"
)

type docResolver struct {
	doc *diddoc.Doc
	err error
}

func (r *docResolver) ResolvePublicKeyDocument(_ context.Context, _ string) (*diddoc.Doc, error) {
	return r.doc, r.err
}

func testDoc(key *btcec.PrivateKey, created time.Time) *diddoc.Doc {
	id := "did:attest:101:" + signature.Address(key.PubKey())
	pk := diddoc.NewPublicKeyFromBytes(id+"#keys-1", signature.KeyType, id, key.PubKey().SerializeUncompressed())

	return &diddoc.Doc{
		Context:   []string{"https://w3id.org/did/v1"},
		ID:        id,
		PublicKey: []diddoc.PublicKey{*pk},
		Created:   &created,
		Updated:   &created,
	}
}

func TestResolver_Read(t *testing.T) {
	key, err := signature.GenerateKey()
	require.NoError(t, err)

	created := time.Date(2020, time.September, 1, 12, 0, 0, 0, time.UTC)
	doc := testDoc(key, created)

	r := New("attest", &docResolver{doc: doc})
	tick := created
	r.now = func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	}

	out, err := r.Read(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, resolutionContext, out.Context)
	require.Equal(t, doc.ID, out.DIDDocument["id"])
	require.Equal(t, "did:attest", out.ResolverMetadata["driverId"])
	require.Equal(t, driver, out.ResolverMetadata["driver"])
	require.Equal(t, int64(5), out.ResolverMetadata["duration"])
	require.Equal(t, &created, out.MethodMetadata["created"])
}

func TestResolver_ReadError(t *testing.T) {
	boom := errors.New("boom")
	r := New("attest", &docResolver{err: boom})

	out, err := r.Read(context.Background(), "did:attest:101:0x00000000000000000000000000000000000000aa")
	require.Equal(t, boom, err)
	require.Nil(t, out)
}
