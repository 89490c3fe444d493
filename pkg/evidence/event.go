/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/signature"
)

// Attribute keys with revocation meaning.
const (
	RevokeKey   = "revoke"
	UnrevokeKey = "unrevoke"
)

// Contract event signatures.  None of the arguments are indexed, so every field lives in the
// log data.
const (
	CreateEvidenceEvent        = "CreateEvidence(bytes32,address,string,string,uint256,uint256)"
	AttributeChangedEvent      = "EvidenceAttributeChanged(bytes32,address,string,string,uint256,uint256)"
	ExtraAttributeChangedEvent = "EvidenceExtraAttributeChanged(bytes32,address,string,string,uint256,uint256)"
)

const (
	wordSize  = 32
	headWords = 6
)

var (
	CreateEvidenceTopic        = signature.Keccak256Hex(CreateEvidenceEvent)
	AttributeChangedTopic      = signature.Keccak256Hex(AttributeChangedEvent)
	ExtraAttributeChangedTopic = signature.Keccak256Hex(ExtraAttributeChangedEvent)
)

// ErrUnknownEvent is returned for logs that are not evidence contract events.
var ErrUnknownEvent = errors.New("not an evidence event")

// Kind classifies a decoded event by the fields it populates.
type Kind int

const (
	KindEmpty Kind = iota
	KindCreate
	KindSignAndLog
	KindLogOnly
	KindSigOnly
	KindRevoke
	KindUnrevoke
	KindAttribute
)

var kindNames = map[Kind]string{
	KindEmpty:      "empty",
	KindCreate:     "create",
	KindSignAndLog: "sign+log",
	KindLogOnly:    "log",
	KindSigOnly:    "sig",
	KindRevoke:     "revoke",
	KindUnrevoke:   "unrevoke",
	KindAttribute:  "attribute",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Event is one decoded evidence change.
type Event struct {
	Kind          Kind
	Hash          string
	Signer        string
	Signature     string
	Log           string
	Key           string
	Value         string
	UpdatedAt     int64
	PreviousBlock uint64
}

// DecodeLog turns a raw contract log into an Event.
func DecodeLog(l ledger.Log) (*Event, error) {
	if len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	topic := strings.ToLower(l.Topics[0])
	switch topic {
	case CreateEvidenceTopic, AttributeChangedTopic, ExtraAttributeChangedTopic:
	default:
		return nil, ErrUnknownEvent
	}

	data, err := hex.DecodeString(strings.TrimPrefix(l.Data, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "event data is not hex")
	}

	if len(data) < headWords*wordSize {
		return nil, errors.Errorf("event data too short: %d bytes", len(data))
	}

	ev := &Event{
		Hash:   "0x" + hex.EncodeToString(word(data, 0)),
		Signer: "0x" + hex.EncodeToString(word(data, 1)[12:]),
	}

	first, err := decodeString(data, 2)
	if err != nil {
		return nil, err
	}
	second, err := decodeString(data, 3)
	if err != nil {
		return nil, err
	}

	updated := new(big.Int).SetBytes(word(data, 4))
	previous := new(big.Int).SetBytes(word(data, 5))
	if !updated.IsInt64() || !previous.IsUint64() {
		return nil, errors.New("event numeric field overflows")
	}
	ev.UpdatedAt = updated.Int64()
	ev.PreviousBlock = previous.Uint64()

	switch topic {
	case CreateEvidenceTopic:
		ev.Kind = KindCreate
		ev.Signature, ev.Log = first, second
	case AttributeChangedTopic:
		ev.Signature, ev.Log = first, second
		ev.Kind = classify(first, second)
	case ExtraAttributeChangedTopic:
		ev.Key, ev.Value = first, second
		switch strings.ToLower(first) {
		case RevokeKey:
			ev.Kind = KindRevoke
		case UnrevokeKey:
			ev.Kind = KindUnrevoke
		default:
			ev.Kind = KindAttribute
		}
	}

	return ev, nil
}

func classify(sig, log string) Kind {
	switch {
	case sig != "" && log != "":
		return KindSignAndLog
	case log != "":
		return KindLogOnly
	case sig != "":
		return KindSigOnly
	}

	return KindEmpty
}

// EncodeLog is the inverse of DecodeLog.
func EncodeLog(contract string, ev *Event) (ledger.Log, error) {
	var topic, first, second string
	switch ev.Kind {
	case KindCreate:
		topic, first, second = CreateEvidenceTopic, ev.Signature, ev.Log
	case KindSignAndLog, KindLogOnly, KindSigOnly, KindEmpty:
		topic, first, second = AttributeChangedTopic, ev.Signature, ev.Log
	case KindRevoke, KindUnrevoke, KindAttribute:
		topic, first, second = ExtraAttributeChangedTopic, ev.Key, ev.Value
	default:
		return ledger.Log{}, errors.Errorf("unknown event kind %d", ev.Kind)
	}

	if ev.UpdatedAt < 0 {
		return ledger.Log{}, errors.New("event timestamp is negative")
	}

	hash, err := decodeFixed(ev.Hash, 32)
	if err != nil {
		return ledger.Log{}, errors.Wrap(err, "invalid evidence hash")
	}
	signer, err := decodeFixed(ev.Signer, 20)
	if err != nil {
		return ledger.Log{}, errors.Wrap(err, "invalid signer address")
	}

	firstTail := encodeString(first)
	head := make([]byte, 0, headWords*wordSize)
	head = append(head, hash...)
	head = append(head, leftPad(signer)...)
	head = append(head, uintWord(uint64(headWords*wordSize))...)
	head = append(head, uintWord(uint64(headWords*wordSize+len(firstTail)))...)
	head = append(head, uintWord(uint64(ev.UpdatedAt))...)
	head = append(head, uintWord(ev.PreviousBlock)...)

	data := append(head, firstTail...)
	data = append(data, encodeString(second)...)

	return ledger.Log{
		Address: contract,
		Topics:  []string{topic},
		Data:    "0x" + hex.EncodeToString(data),
	}, nil
}

func word(data []byte, i int) []byte {
	return data[i*wordSize : (i+1)*wordSize]
}

func decodeString(data []byte, headIndex int) (string, error) {
	offset := new(big.Int).SetBytes(word(data, headIndex))
	if !offset.IsUint64() || offset.Uint64()+wordSize > uint64(len(data)) {
		return "", errors.New("event string offset out of range")
	}

	start := offset.Uint64()
	length := new(big.Int).SetBytes(data[start : start+wordSize])
	if !length.IsUint64() || length.Uint64() > uint64(len(data)) || start+wordSize+length.Uint64() > uint64(len(data)) {
		return "", errors.New("event string length out of range")
	}

	begin := start + wordSize
	return string(data[begin : begin+length.Uint64()]), nil
}

func encodeString(s string) []byte {
	padded := (len(s) + wordSize - 1) / wordSize * wordSize
	out := make([]byte, wordSize+padded)
	copy(out, uintWord(uint64(len(s))))
	copy(out[wordSize:], s)
	return out
}

func uintWord(n uint64) []byte {
	return leftPad(new(big.Int).SetUint64(n).Bytes())
}

func leftPad(b []byte) []byte {
	out := make([]byte, wordSize)
	copy(out[wordSize-len(b):], b)
	return out
}

func decodeFixed(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, errors.Errorf("expected %d bytes, got %d", size, len(b))
	}

	return b, nil
}
