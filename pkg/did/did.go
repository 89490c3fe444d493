/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/signature"
)

// DefaultMethod is the DID method used when none is configured.
const DefaultMethod = "attest"

type KeyPair struct {
	key *btcec.PrivateKey
}

type MyDIDInfo struct {
	Seed       string
	ChainID    int
	MethodName string
}

func NewKeyPair(key *btcec.PrivateKey) *KeyPair {
	return &KeyPair{key: key}
}

// Verkey returns the base58 uncompressed public key.
func (r *KeyPair) Verkey() string {
	return base58.Encode(r.key.PubKey().SerializeUncompressed())
}

// ParseVerkey decodes a base58 verkey.
func ParseVerkey(verkey string) (*btcec.PublicKey, error) {
	raw, err := base58.Decode(verkey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 verkey")
	}

	return signature.ParsePublicKey(raw)
}

func (r *KeyPair) Priv() *btcec.PrivateKey {
	return r.key
}

func (r *KeyPair) Pub() *btcec.PublicKey {
	return r.key.PubKey()
}

type DIDValue struct {
	Method  string
	ChainID int
	Address string
}

func (r *DIDValue) String() string {
	method := r.Method
	if method == "" {
		method = DefaultMethod
	}
	return fmt.Sprintf("did:%s:%d:%s", method, r.ChainID, r.Address)
}

type DID struct {
	DIDVal DIDValue
	Verkey string
}

func (r *DID) String() string {
	return r.DIDVal.String()
}

// FromPublicKey derives the identifier owned by pub.
func FromPublicKey(method string, chainID int, pub *btcec.PublicKey) *DIDValue {
	return &DIDValue{Method: method, ChainID: chainID, Address: signature.Address(pub)}
}

// Parse splits an identifier of the form did:<method>:<chainID>:0x<address>.
func Parse(id string) (*DIDValue, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[0] != "did" || parts[1] == "" {
		return nil, errors.Errorf("invalid identifier %q", id)
	}

	chainID, err := strconv.Atoi(parts[2])
	if err != nil || chainID < 0 {
		return nil, errors.Errorf("invalid chain id in identifier %q", id)
	}

	addr := parts[3]
	if !IsAddress(addr) {
		return nil, errors.Errorf("invalid address in identifier %q", id)
	}

	return &DIDValue{Method: parts[1], ChainID: chainID, Address: strings.ToLower(addr)}, nil
}

// IsAddress reports whether s is a 0x-prefixed 20 byte hex address.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func CreateMyDid(info *MyDIDInfo) (*DID, *KeyPair, error) {
	var (
		key *btcec.PrivateKey
		err error
	)

	if info.Seed == "" {
		key, err = signature.GenerateKey()
	} else {
		key, err = signature.ParsePrivateKey(info.Seed)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to get key")
	}

	kp := NewKeyPair(key)
	out := &DID{
		DIDVal: *FromPublicKey(info.MethodName, info.ChainID, key.PubKey()),
		Verkey: kp.Verkey(),
	}

	return out, kp, nil
}
