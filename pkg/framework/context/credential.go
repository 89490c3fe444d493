/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/scoir/attestor/pkg/credential"
)

func (r *Provider) CredentialService() (*credential.Service, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.cred != nil {
		return r.cred, nil
	}

	v, err := r.getVDR()
	if err != nil {
		return nil, err
	}

	store, err := r.schemaStore()
	if err != nil {
		return nil, err
	}

	r.cred = credential.New(v, store)
	return r.cred, nil
}
