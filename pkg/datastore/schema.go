/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/errcode"
)

type SchemaCriteria struct {
	Start, PageSize int
	Name            string
}

type SchemaList struct {
	Count  int       `json:"count"`
	Schema []*Schema `json:"schema"`
}

// Attribute is one expected claim field.  An attribute with children names a nested claim tree.
type Attribute struct {
	Name       string       `json:"name" bson:"name"`
	Attributes []*Attribute `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Schema maps a cptId to the field set its claims must carry.
type Schema struct {
	CptID      int          `json:"cptId" bson:"cptid"`
	Name       string       `json:"name" bson:"name"`
	Version    string       `json:"version" bson:"version"`
	Attributes []*Attribute `json:"attributes" bson:"attributes"`
}

// Value implements driver.Valuer
func (d Schema) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner
func (d *Schema) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &d)
	case string:
		return json.Unmarshal([]byte(v), &d)
	}

	return errors.New("type assertion to []byte failed")
}

// Validate checks that the schema is storable.
func (d *Schema) Validate() error {
	if d.CptID <= 0 {
		return errors.Wrap(errcode.ErrInputIllegal, "schema cptId must be positive")
	}
	if d.Name == "" {
		return errors.Wrap(errcode.ErrInputIllegal, "schema name is required")
	}
	if len(d.Attributes) == 0 {
		return errors.Wrap(errcode.ErrInputIllegal, "schema has no attributes")
	}

	return validateAttributes(d.Attributes, "")
}

func validateAttributes(attrs []*Attribute, path string) error {
	seen := map[string]bool{}
	for _, a := range attrs {
		if a == nil || a.Name == "" {
			return errors.Wrapf(errcode.ErrInputIllegal, "unnamed attribute under %q", path)
		}
		if seen[a.Name] {
			return errors.Wrapf(errcode.ErrInputIllegal, "duplicate attribute %s%s", path, a.Name)
		}
		seen[a.Name] = true

		if err := validateAttributes(a.Attributes, path+a.Name+"."); err != nil {
			return err
		}
	}

	return nil
}

// Match checks that the claim tree carries exactly the schema's fields at every level.
func (d *Schema) Match(t *claim.Tree) error {
	if t == nil {
		return errors.Wrap(errcode.ErrClaimSchemaMismatch, "claim is empty")
	}

	return match(d.Attributes, t, "")
}

func match(attrs []*Attribute, t *claim.Tree, path string) error {
	if len(attrs) != t.Len() {
		return errors.Wrapf(errcode.ErrClaimSchemaMismatch, "%s has fields %s, want %s",
			location(path), strings.Join(t.Keys(), ","), strings.Join(names(attrs), ","))
	}

	for _, a := range attrs {
		n, ok := t.Get(a.Name)
		if !ok {
			return errors.Wrapf(errcode.ErrClaimSchemaMismatch, "missing field %s%s", path, a.Name)
		}

		sub, nested := n.(*claim.Tree)
		switch {
		case len(a.Attributes) > 0 && !nested:
			return errors.Wrapf(errcode.ErrClaimSchemaMismatch, "field %s%s must be an object", path, a.Name)
		case len(a.Attributes) == 0 && nested && sub.Len() > 0:
			return errors.Wrapf(errcode.ErrClaimSchemaMismatch, "field %s%s must be a value", path, a.Name)
		case nested:
			if err := match(a.Attributes, sub, path+a.Name+"."); err != nil {
				return err
			}
		}
	}

	return nil
}

func names(attrs []*Attribute) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a.Name)
	}
	sort.Strings(out)
	return out
}

func location(path string) string {
	if path == "" {
		return "claim"
	}
	return strings.TrimSuffix(path, ".")
}

// AttributesOf derives the attribute tree of a sample claim.
func AttributesOf(t *claim.Tree) []*Attribute {
	out := make([]*Attribute, 0, t.Len())
	for _, k := range t.Keys() {
		n, _ := t.Get(k)
		a := &Attribute{Name: k}
		if sub, ok := n.(*claim.Tree); ok {
			a.Attributes = AttributesOf(sub)
		}
		out = append(out, a)
	}

	return out
}
