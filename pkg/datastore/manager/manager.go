/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package manager

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/framework"
)

// DataProviderManager hands out one provider per configured database.
type DataProviderManager struct {
	lock sync.Mutex
	dc   *framework.DatastoreConfig
	ds   map[string]datastore.Provider
}

func NewDataProviderManager(dc *framework.DatastoreConfig) *DataProviderManager {
	return &DataProviderManager{
		dc: dc,
		ds: map[string]datastore.Provider{},
	}
}

func (r *DataProviderManager) Config() *framework.DatastoreConfig {
	return r.dc
}

func (r *DataProviderManager) DefaultStoreProvider() (datastore.Provider, error) {
	return r.StorageProvider(r.dc)
}

// SchemaStore opens the schema registry of the default provider.
func (r *DataProviderManager) SchemaStore() (datastore.Store, error) {
	p, err := r.DefaultStoreProvider()
	if err != nil {
		return nil, err
	}

	return p.OpenStore(datastore.SchemaC)
}

func (r *DataProviderManager) StorageProvider(dc *framework.DatastoreConfig) (datastore.Provider, error) {
	if dc == nil {
		return nil, errors.New("no datastore configuration was provided")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	key := fmt.Sprintf("%s:%s", dc.Database, dc.Name())
	ds, ok := r.ds[key]
	if ok {
		return ds, nil
	}

	ds, err := dc.StorageProvider()
	if err != nil {
		return nil, err
	}

	r.ds[key] = ds

	return ds, nil
}

// Close closes every provider handed out so far.
func (r *DataProviderManager) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for key, ds := range r.ds {
		if err := ds.Close(); err != nil {
			return errors.Wrapf(err, "unable to close datastore %s", key)
		}
		delete(r.ds, key)
	}

	return nil
}
