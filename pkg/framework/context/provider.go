/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context builds the attestor services from configuration on first use.
package context

import (
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scoir/attestor/pkg/amqp"
	"github.com/scoir/attestor/pkg/config"
	"github.com/scoir/attestor/pkg/credential"
	"github.com/scoir/attestor/pkg/datastore/manager"
	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/ledger"
	"github.com/scoir/attestor/pkg/vdr"
)

var logger = log.New("attestor/context")

type Provider struct {
	conf config.Config
	lock sync.Mutex

	reg       *prometheus.Registry
	metrics   *evidence.Metrics
	dm        *manager.DataProviderManager
	client    ledger.Client
	vdr       *vdr.VDR
	key       *btcec.PrivateKey
	cache     *evidence.ReceiptCache
	resolver  *evidence.Resolver
	evidence  *evidence.Service
	cred      *credential.Service
	publisher amqp.Publisher
}

func NewProvider(conf config.Config) *Provider {
	reg := prometheus.NewRegistry()
	return &Provider{
		conf:    conf,
		reg:     reg,
		metrics: evidence.NewMetrics(reg),
	}
}

// Registry holds the metrics of every service built by this provider.
func (r *Provider) Registry() *prometheus.Registry {
	return r.reg
}

// Close releases the datastore connections and the notification publisher.
func (r *Provider) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			logger.Warnf("unable to close publisher: %v", err)
		}
		r.publisher = nil
	}

	if r.dm != nil {
		return r.dm.Close()
	}

	return nil
}
