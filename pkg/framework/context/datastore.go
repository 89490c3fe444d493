/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/datastore/manager"
)

func (r *Provider) Datastore() (datastore.Provider, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	dm, err := r.manager()
	if err != nil {
		return nil, err
	}

	return dm.DefaultStoreProvider()
}

func (r *Provider) SchemaStore() (datastore.Store, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.schemaStore()
}

func (r *Provider) schemaStore() (datastore.Store, error) {
	dm, err := r.manager()
	if err != nil {
		return nil, err
	}

	store, err := dm.SchemaStore()
	return store, errors.Wrap(err, "unable to open schema store")
}

func (r *Provider) manager() (*manager.DataProviderManager, error) {
	if r.dm != nil {
		return r.dm, nil
	}

	dc, err := r.conf.DataStore()
	if err != nil {
		return nil, errors.Wrap(err, "datastore is not correctly configured")
	}

	if dc == nil {
		return nil, errors.New("no datastore configuration was provided")
	}

	r.dm = manager.NewDataProviderManager(dc)
	return r.dm, nil
}
