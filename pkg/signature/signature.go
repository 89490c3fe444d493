/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signature implements the secp256k1 keys and recoverable signatures used to sign
// credentials, presentations and ledger transactions.
package signature

import (
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	// Size is the length of a serialized signature: recovery header, R and S.
	Size = 65

	// KeyType is the DID document public key type for keys produced by this package.
	KeyType = "Secp256k1VerificationKey2018"
)

// GenerateKey creates a new random private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "error generating secp256k1 key")
	}

	return key, nil
}

// ParsePrivateKey accepts a private key as 0x-prefixed hex or as a decimal integer.
func ParsePrivateKey(s string) (*btcec.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("private key is empty")
	}

	var raw []byte
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		var err error
		raw, err = hex.DecodeString(s[2:])
		if err != nil {
			return nil, errors.Wrap(err, "invalid hex private key")
		}
	} else {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, errors.New("invalid decimal private key")
		}
		raw = n.Bytes()
	}

	if len(raw) == 0 || len(raw) > 32 {
		return nil, errors.Errorf("invalid private key length %d", len(raw))
	}

	key, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return key, nil
}

// EncodePrivateKey returns the 0x-prefixed hex form accepted by ParsePrivateKey.
func EncodePrivateKey(key *btcec.PrivateKey) string {
	return "0x" + hex.EncodeToString(key.Serialize())
}

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		_, _ = h.Write(d)
	}

	return h.Sum(nil)
}

// Keccak256Hex returns the 0x-prefixed hex Keccak-256 digest of s.
func Keccak256Hex(s string) string {
	return "0x" + hex.EncodeToString(Keccak256([]byte(s)))
}

// Sign produces a recoverable signature over the Keccak-256 digest of msg.
func Sign(msg []byte, key *btcec.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("private key is required to sign")
	}

	sig, err := btcec.SignCompact(btcec.S256(), key, Keccak256(msg), false)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sign message")
	}

	return sig, nil
}

// Recover returns the public key that produced sig over msg.
func Recover(msg, sig []byte) (*btcec.PublicKey, error) {
	if len(sig) != Size {
		return nil, errors.Errorf("invalid signature length %d", len(sig))
	}

	pub, _, err := btcec.RecoverCompact(btcec.S256(), sig, Keccak256(msg))
	if err != nil {
		return nil, errors.Wrap(err, "unable to recover public key from signature")
	}

	return pub, nil
}

// Verify reports whether sig over msg was produced by pub. An error means the signature
// could not be decoded at all.
func Verify(msg, sig []byte, pub *btcec.PublicKey) (bool, error) {
	if pub == nil {
		return false, errors.New("public key is required to verify")
	}

	recovered, err := Recover(msg, sig)
	if err != nil {
		return false, err
	}

	return recovered.IsEqual(pub), nil
}

// EncodeSignature returns the base64 wire form of sig.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature parses the base64 wire form of a signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "signature is not base64")
	}

	if len(sig) != Size {
		return nil, errors.Errorf("invalid signature length %d", len(sig))
	}

	return sig, nil
}

// ParsePublicKey parses a serialized (compressed or uncompressed) public key.
func ParsePublicKey(b []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(b, btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "invalid secp256k1 public key")
	}

	return pub, nil
}

// Address derives the 0x-prefixed ledger account address of pub.
func Address(pub *btcec.PublicKey) string {
	raw := pub.SerializeUncompressed()
	return "0x" + hex.EncodeToString(Keccak256(raw[1:])[12:])
}
