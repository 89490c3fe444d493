/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"context"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"

	"github.com/scoir/attestor/pkg/ledger"
)

var logger = log.New("attestor/evidence")

const defaultFetchTimeout = 10 * time.Second

// Resolver rebuilds evidence state by walking the backward linked chain of blocks that carry
// its change events.
type Resolver struct {
	client       ledger.Client
	cache        *ReceiptCache
	fetchTimeout time.Duration
	signerID     func(address string) string
	metrics      *Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(r *Resolver)

// WithFetchTimeout bounds each block fetch.  A timed out fetch ends the walk.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.fetchTimeout = d
	}
}

// WithSignerID maps signer addresses to the identifiers used as SignInfo keys.
func WithSignerID(fn func(address string) string) ResolverOption {
	return func(r *Resolver) {
		r.signerID = fn
	}
}

func WithResolverMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver returns a Resolver.  cache may be nil.
func NewResolver(client ledger.Client, cache *ReceiptCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:       client,
		cache:        cache,
		fetchTimeout: defaultFetchTimeout,
		signerID:     func(address string) string { return address },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve walks from startBlock towards the genesis block.  A failed block fetch ends the walk
// and whatever was merged so far is returned.
func (r *Resolver) Resolve(ctx context.Context, hash string, startBlock uint64) *Info {
	w := &walk{
		hash:     strings.ToLower(hash),
		info:     &Info{CredentialHash: hash, SignInfo: map[string]*SignInfo{}},
		redo:     map[string][]string{},
		signerID: r.signerID,
	}

	visited := map[uint64]bool{}
	current := startBlock
	for current != 0 {
		if visited[current] {
			logger.Warnf("block %d already visited while resolving %s", current, hash)
			break
		}
		visited[current] = true

		receipts, err := r.fetch(ctx, current)
		if err != nil {
			r.metrics.recordFetchFailure()
			logger.Warnf("unable to fetch block %d while resolving %s: %v", current, hash, err)
			break
		}

		current = w.block(current, receipts)
	}

	w.flush()
	return w.info
}

func (r *Resolver) fetch(ctx context.Context, block uint64) ([]*ledger.Receipt, error) {
	if r.cache != nil {
		if receipts, ok := r.cache.Get(block); ok {
			return receipts, nil
		}
	}

	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	receipts, err := r.client.ReceiptsByBlock(ctx, block)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Put(block, receipts)
	}

	return receipts, nil
}

type walk struct {
	hash     string
	info     *Info
	redo     map[string][]string
	signerID func(string) string
}

// block merges every matching event of one block and returns the block to visit next, or 0.
func (w *walk) block(number uint64, receipts []*ledger.Receipt) uint64 {
	var next uint64
	for _, rcpt := range receipts {
		seen := map[string]bool{}
		for _, l := range rcpt.Logs {
			if len(l.Topics) == 0 {
				continue
			}

			topic := strings.ToLower(l.Topics[0])
			if seen[topic] {
				continue
			}
			seen[topic] = true

			for _, same := range rcpt.Logs {
				if len(same.Topics) == 0 || strings.ToLower(same.Topics[0]) != topic {
					continue
				}

				ev, err := DecodeLog(same)
				if err != nil {
					if err != ErrUnknownEvent {
						logger.Debugf("skipping undecodable log in block %d: %v", number, err)
					}
					continue
				}

				if ev.Hash != w.hash {
					continue
				}

				w.merge(ev)
				if ev.PreviousBlock != 0 && ev.PreviousBlock != number {
					next = ev.PreviousBlock
				}
			}
		}
	}

	return next
}

// merge applies one event.  Events arrive newest first, so the first signature, timestamp and
// revocation state seen for a signer are kept.  Logs collect in the redo buffer until a
// signature arrives, then move onto the front of the visible sequence.
func (w *walk) merge(ev *Event) {
	switch ev.Kind {
	case KindEmpty, KindAttribute:
		return
	}

	id := w.signerID(ev.Signer)
	si, ok := w.info.SignInfo[id]
	if !ok {
		si = &SignInfo{Logs: []string{}}
		w.info.SignInfo[id] = si
	}

	if si.Timestamp == 0 {
		si.Timestamp = ev.UpdatedAt
	}

	switch ev.Kind {
	case KindCreate, KindSignAndLog, KindLogOnly, KindSigOnly:
		if ev.Signature != "" && si.Signature == "" {
			si.Signature = ev.Signature
		}
		if ev.Log != "" {
			w.redo[id] = append([]string{ev.Log}, w.redo[id]...)
		}
		if ev.Signature != "" {
			si.Logs = append(append([]string{}, w.redo[id]...), si.Logs...)
			delete(w.redo, id)
		}
	case KindRevoke, KindUnrevoke:
		if si.Revoked == nil {
			revoked := ev.Kind == KindRevoke
			si.Revoked = &revoked
		}
	}
}

// flush moves logs that never met a signature onto the front of their signer's sequence.
func (w *walk) flush() {
	for id, pending := range w.redo {
		si := w.info.SignInfo[id]
		si.Logs = append(append([]string{}, pending...), si.Logs...)
	}
	w.redo = map[string][]string{}
}
