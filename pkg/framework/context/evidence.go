/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/evidence"
)

func (r *Provider) ReceiptCache() (*evidence.ReceiptCache, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.receiptCache()
}

func (r *Provider) receiptCache() (*evidence.ReceiptCache, error) {
	if r.cache != nil {
		return r.cache, nil
	}

	cc, err := r.conf.Cache()
	if err != nil {
		return nil, errors.Wrap(err, "receipt cache is not correctly configured")
	}

	r.cache = evidence.NewReceiptCache(
		evidence.WithTTL(cc.TTL),
		evidence.WithSize(cc.Size),
		evidence.WithThreshold(cc.Threshold),
		evidence.WithMetrics(r.metrics),
	)

	return r.cache, nil
}

func (r *Provider) Resolver() (*evidence.Resolver, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.getResolver()
}

func (r *Provider) getResolver() (*evidence.Resolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}

	client, err := r.ledgerClient()
	if err != nil {
		return nil, err
	}

	cache, err := r.receiptCache()
	if err != nil {
		return nil, err
	}

	v, err := r.getVDR()
	if err != nil {
		return nil, err
	}

	lc, err := r.LedgerConfig()
	if err != nil {
		return nil, err
	}

	r.resolver = evidence.NewResolver(client, cache,
		evidence.WithFetchTimeout(lc.Timeout),
		evidence.WithSignerID(v.ID),
		evidence.WithResolverMetrics(r.metrics),
	)

	return r.resolver, nil
}

// EvidenceService publishes change notifications when an amqp section is configured.
func (r *Provider) EvidenceService() (*evidence.Service, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.evidence != nil {
		return r.evidence, nil
	}

	client, err := r.ledgerClient()
	if err != nil {
		return nil, err
	}

	resolver, err := r.getResolver()
	if err != nil {
		return nil, err
	}

	lc, err := r.LedgerConfig()
	if err != nil {
		return nil, err
	}

	var opts []evidence.ServiceOption
	if p := r.getPublisher(); p != nil {
		opts = append(opts, evidence.WithPublisher(p))
	}

	r.evidence = evidence.NewService(client, resolver, lc.EvidenceContract, opts...)
	return r.evidence, nil
}
