/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	other, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte(`{"claim":"value"}`)
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	require.Len(t, sig, Size)

	t.Run("valid", func(t *testing.T) {
		ok, err := Verify(msg, sig, key.PubKey())
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("wrong key", func(t *testing.T) {
		ok, err := Verify(msg, sig, other.PubKey())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("tampered message", func(t *testing.T) {
		ok, err := Verify([]byte(`{"claim":"other"}`), sig, key.PubKey())
		if err == nil {
			require.False(t, ok)
		}
	})

	t.Run("short signature", func(t *testing.T) {
		_, err := Verify(msg, sig[:10], key.PubKey())
		require.Error(t, err)
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := Verify(msg, sig, nil)
		require.Error(t, err)

		_, err = Sign(msg, nil)
		require.Error(t, err)
	})

	t.Run("wire form", func(t *testing.T) {
		decoded, err := DecodeSignature(EncodeSignature(sig))
		require.NoError(t, err)
		require.Equal(t, sig, decoded)

		_, err = DecodeSignature("not base64!")
		require.Error(t, err)

		_, err = DecodeSignature("AAAA")
		require.Error(t, err)
	})

	t.Run("recover", func(t *testing.T) {
		pub, err := Recover(msg, sig)
		require.NoError(t, err)
		require.True(t, pub.IsEqual(key.PubKey()))
	})
}

func TestParsePrivateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "hex", input: EncodePrivateKey(key)},
		{name: "decimal", input: key.D.String()},
		{name: "empty", input: " ", wantErr: true},
		{name: "bad hex", input: "0xzz", wantErr: true},
		{name: "bad decimal", input: "12ab", wantErr: true},
		{name: "too long", input: "0x" + strings.Repeat("ff", 33), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrivateKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, key.Serialize(), got.Serialize())
		})
	}
}

func TestAddress(t *testing.T) {
	// well known test vector: private key 1
	key, err := ParsePrivateKey("1")
	require.NoError(t, err)
	require.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", Address(key.PubKey()))

	pub, err := ParsePublicKey(key.PubKey().SerializeCompressed())
	require.NoError(t, err)
	require.Equal(t, Address(key.PubKey()), Address(pub))

	_, err = ParsePublicKey([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestKeccak256Hex(t *testing.T) {
	require.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(""))
	require.Equal(t, Keccak256([]byte("ab")), Keccak256([]byte("a"), []byte("b")))
}
