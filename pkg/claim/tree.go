/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claim models the claim, salt and disclosure trees of a selectively disclosable
// credential.  All three share one shape: an ordered mapping from field name to either a
// scalar leaf or a nested tree.
package claim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Node is either a Scalar leaf or a *Tree.
type Node interface {
	isNode()
}

// Scalar is a leaf value.  Values decoded from JSON are string, json.Number, bool, nil or
// (for arrays) []interface{}.
type Scalar struct {
	Value interface{}
}

func (Scalar) isNode() {}

// String renders the leaf the way it is fed into field hashes.  Numbers use their JSON text so
// the rendering survives a wire round trip.  The rendering carries no type, so the number 18
// and the string "18" commit to the same field hash.
func (s Scalar) String() string {
	switch v := s.Value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		b, err := json.Marshal(v)
		if err != nil {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return string(b)
	case bool:
		return strconv.FormatBool(v)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON writes the underlying value.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// Tree is an ordered mapping of field names to nodes.  The zero value is not usable, use
// NewTree.
type Tree struct {
	keys     []string
	children map[string]Node
}

func (*Tree) isNode() {}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{children: map[string]Node{}}
}

// Set stores node under key.  A new key is appended, an existing key keeps its position.
func (t *Tree) Set(key string, node Node) *Tree {
	if _, ok := t.children[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.children[key] = node
	return t
}

// SetValue is shorthand for Set(key, Scalar{Value: v}).
func (t *Tree) SetValue(key string, v interface{}) *Tree {
	return t.Set(key, Scalar{Value: v})
}

// Get returns the node stored under key.
func (t *Tree) Get(key string) (Node, bool) {
	n, ok := t.children[key]
	return n, ok
}

// Keys returns the field names in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of fields at this level.
func (t *Tree) Len() int {
	return len(t.keys)
}

// Copy returns a deep copy of the tree.
func (t *Tree) Copy() *Tree {
	if t == nil {
		return nil
	}

	out := NewTree()
	for _, k := range t.keys {
		switch n := t.children[k].(type) {
		case *Tree:
			out.Set(k, n.Copy())
		default:
			out.Set(k, n)
		}
	}

	return out
}

// Map converts the tree into nested map[string]interface{} values.
func (t *Tree) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(t.keys))
	for _, k := range t.keys {
		switch n := t.children[k].(type) {
		case *Tree:
			out[k] = n.Map()
		case Scalar:
			out[k] = n.Value
		}
	}

	return out
}

// FromMap builds a tree from nested maps.  Go maps carry no order, so keys are sorted.
func FromMap(m map[string]interface{}) *Tree {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTree()
	for _, k := range keys {
		if sub, ok := m[k].(map[string]interface{}); ok {
			t.Set(k, FromMap(sub))
			continue
		}
		t.SetValue(k, m[k])
	}

	return t
}

// MarshalJSON writes the fields in insertion order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(t.children[k])
		if err != nil {
			return nil, errors.Wrapf(err, "unable to marshal field %s", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping field order and number text.
func (t *Tree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "invalid claim tree")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Errorf("claim tree must be a JSON object, got %v", tok)
	}

	t.keys = nil
	t.children = map[string]Node{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return errors.Wrap(err, "invalid claim tree key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("invalid claim tree key %v", tok)
		}

		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "invalid value for field %s", key)
		}

		node, err := parseNode(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid value for field %s", key)
		}
		t.Set(key, node)
	}

	if _, err = dec.Token(); err != nil {
		return errors.Wrap(err, "unterminated claim tree")
	}

	return nil
}

func parseNode(raw json.RawMessage) (Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		sub := NewTree()
		if err := sub.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return sub, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return Scalar{Value: v}, nil
}

// Parse decodes a JSON object into a tree.
func Parse(data []byte) (*Tree, error) {
	t := NewTree()
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, err
	}

	return t, nil
}
