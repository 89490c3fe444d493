/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"time"

	"github.com/bluele/gcache"

	"github.com/scoir/attestor/pkg/ledger"
)

const (
	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheSize      = 1000
	DefaultCacheThreshold = 1
)

type cacheOptions struct {
	ttl       time.Duration
	size      int
	threshold int
	clock     gcache.Clock
	metrics   *Metrics
}

// CacheOption configures a ReceiptCache.
type CacheOption func(opts *cacheOptions)

func WithTTL(d time.Duration) CacheOption {
	return func(opts *cacheOptions) {
		opts.ttl = d
	}
}

func WithSize(n int) CacheOption {
	return func(opts *cacheOptions) {
		opts.size = n
	}
}

// WithThreshold sets the receipt count a block must exceed to be cached.
func WithThreshold(n int) CacheOption {
	return func(opts *cacheOptions) {
		opts.threshold = n
	}
}

func WithClock(c gcache.Clock) CacheOption {
	return func(opts *cacheOptions) {
		opts.clock = c
	}
}

func WithMetrics(m *Metrics) CacheOption {
	return func(opts *cacheOptions) {
		opts.metrics = m
	}
}

// ReceiptCache holds decoded block receipt sets keyed by block number.  It is safe for
// concurrent use.
type ReceiptCache struct {
	store     gcache.Cache
	threshold int
	metrics   *Metrics
}

// NewReceiptCache builds an LRU cache whose entries expire after the configured TTL.
func NewReceiptCache(opts ...CacheOption) *ReceiptCache {
	o := &cacheOptions{
		ttl:       DefaultCacheTTL,
		size:      DefaultCacheSize,
		threshold: DefaultCacheThreshold,
		clock:     gcache.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.size <= 0 {
		o.size = DefaultCacheSize
	}

	return &ReceiptCache{
		store:     gcache.New(o.size).LRU().Expiration(o.ttl).Clock(o.clock).Build(),
		threshold: o.threshold,
		metrics:   o.metrics,
	}
}

// Get returns the cached receipts of block.
func (c *ReceiptCache) Get(block uint64) ([]*ledger.Receipt, bool) {
	v, err := c.store.Get(block)
	if err != nil {
		c.metrics.recordMiss()
		return nil, false
	}

	receipts, ok := v.([]*ledger.Receipt)
	if !ok {
		c.metrics.recordMiss()
		return nil, false
	}

	c.metrics.recordHit()
	return receipts, true
}

// Put caches receipts when there are more of them than the threshold, and reports whether
// they were stored.
func (c *ReceiptCache) Put(block uint64, receipts []*ledger.Receipt) bool {
	if len(receipts) <= c.threshold {
		return false
	}

	if err := c.store.Set(block, receipts); err != nil {
		logger.Warnf("unable to cache receipts of block %d: %v", block, err)
		return false
	}

	c.metrics.recordStore(c.store.Len(false))
	return true
}

// Has reports whether an unexpired entry exists for block.  Expiry follows the cache clock.
func (c *ReceiptCache) Has(block uint64) bool {
	_, err := c.store.GetIFPresent(block)
	return err == nil
}

// Len returns the number of unexpired entries.
func (c *ReceiptCache) Len() int {
	n := 0
	for _, k := range c.store.Keys(false) {
		if _, err := c.store.GetIFPresent(k); err == nil {
			n++
		}
	}

	return n
}
