/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is a process local schema store for development and tests.
package mem

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
)

// Provider keeps one store per name space for the life of the process.
type Provider struct {
	stores map[string]*memStore
	sync.RWMutex
}

type memStore struct {
	lock    sync.RWMutex
	schemas map[int][]byte
}

func NewProvider() *Provider {
	return &Provider{stores: map[string]*memStore{}}
}

// OpenStore returns the store of name, creating it on first use.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	store, ok := p.stores[name]
	if !ok {
		store = &memStore{schemas: map[int][]byte{}}
		p.stores[name] = store
	}

	return store, nil
}

func (p *Provider) CloseStore(name string) error {
	p.Lock()
	defer p.Unlock()

	delete(p.stores, name)
	return nil
}

func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.stores = map[string]*memStore{}
	return nil
}

// Schemas are stored serialized so callers never share memory with the store.
func (r *memStore) InsertSchema(s *datastore.Schema) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	b, err := json.Marshal(s)
	if err != nil {
		return 0, errors.Wrap(err, "unable to insert schema")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.schemas[s.CptID]; ok {
		return 0, errors.Wrapf(errcode.ErrInputIllegal, "schema %d already exists", s.CptID)
	}
	r.schemas[s.CptID] = b

	return s.CptID, nil
}

func (r *memStore) ListSchema(c *datastore.SchemaCriteria) (*datastore.SchemaList, error) {
	if c == nil {
		c = &datastore.SchemaCriteria{
			Start:    0,
			PageSize: 10,
		}
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	ids := make([]int, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var matched []*datastore.Schema
	for _, id := range ids {
		s, err := decode(r.schemas[id])
		if err != nil {
			return nil, err
		}
		if c.Name != "" && !strings.Contains(s.Name, c.Name) {
			continue
		}
		matched = append(matched, s)
	}

	out := &datastore.SchemaList{
		Count:  len(matched),
		Schema: []*datastore.Schema{},
	}
	for i := c.Start; i < len(matched) && (c.PageSize <= 0 || i < c.Start+c.PageSize); i++ {
		out.Schema = append(out.Schema, matched[i])
	}

	return out, nil
}

func (r *memStore) GetSchema(cptID int) (*datastore.Schema, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	b, ok := r.schemas[cptID]
	if !ok {
		return nil, errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", cptID)
	}

	return decode(b)
}

func (r *memStore) DeleteSchema(cptID int) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.schemas, cptID)
	return nil
}

func (r *memStore) UpdateSchema(s *datastore.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "unable to update schema")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.schemas[s.CptID]; !ok {
		return errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", s.CptID)
	}
	r.schemas[s.CptID] = b

	return nil
}

func decode(b []byte) (*datastore.Schema, error) {
	s := &datastore.Schema{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, errors.Wrap(err, "unable to load schema")
	}

	return s, nil
}
