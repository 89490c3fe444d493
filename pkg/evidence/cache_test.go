/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bluele/gcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/ledger"
	mockledger "github.com/scoir/attestor/pkg/mock/ledger"
)

func receipts(n int) []*ledger.Receipt {
	out := make([]*ledger.Receipt, n)
	for i := range out {
		out[i] = &ledger.Receipt{TransactionHash: fmt.Sprintf("0x%02x", i), Status: ledger.StatusSuccess}
	}
	return out
}

func TestReceiptCachePolicy(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		count     int
		stored    bool
	}{
		{name: "empty block", threshold: 1, count: 0},
		{name: "single receipt", threshold: 1, count: 1},
		{name: "above threshold", threshold: 1, count: 2, stored: true},
		{name: "custom threshold below", threshold: 5, count: 5},
		{name: "custom threshold above", threshold: 5, count: 6, stored: true},
		{name: "zero threshold", threshold: 0, count: 1, stored: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewReceiptCache(WithThreshold(tt.threshold))
			require.Equal(t, tt.stored, cache.Put(7, receipts(tt.count)))
			require.Equal(t, tt.stored, cache.Has(7))

			got, ok := cache.Get(7)
			require.Equal(t, tt.stored, ok)
			if tt.stored {
				require.Len(t, got, tt.count)
			}
		})
	}
}

func TestReceiptCacheTTL(t *testing.T) {
	clock := gcache.NewFakeClock()
	cache := NewReceiptCache(WithClock(clock))

	require.True(t, cache.Put(1, receipts(3)))
	require.Equal(t, 1, cache.Len())

	clock.Advance(DefaultCacheTTL - time.Minute)
	_, ok := cache.Get(1)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(1)
	require.False(t, ok)
	require.False(t, cache.Has(1))
	require.Equal(t, 0, cache.Len())
}

func TestReceiptCacheFakeClockAgreement(t *testing.T) {
	clock := gcache.NewFakeClock()
	cache := NewReceiptCache(WithClock(clock), WithTTL(time.Hour))

	require.True(t, cache.Put(1, receipts(3)))
	require.True(t, cache.Put(2, receipts(2)))

	_, ok := cache.Get(1)
	require.True(t, ok)
	require.True(t, cache.Has(1))
	require.Equal(t, 2, cache.Len())

	clock.Advance(30 * time.Minute)
	require.True(t, cache.Put(3, receipts(2)))

	clock.Advance(31 * time.Minute)
	require.False(t, cache.Has(1))
	require.False(t, cache.Has(2))
	require.True(t, cache.Has(3))
	require.Equal(t, 1, cache.Len())
}

func TestReceiptCacheSize(t *testing.T) {
	cache := NewReceiptCache(WithSize(2))
	for i := uint64(1); i <= 3; i++ {
		require.True(t, cache.Put(i, receipts(2)))
	}

	require.False(t, cache.Has(1))
	require.True(t, cache.Has(2))
	require.True(t, cache.Has(3))
}

func TestReceiptCacheConcurrent(t *testing.T) {
	cache := NewReceiptCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for b := uint64(1); b <= 50; b++ {
				cache.Put(b, receipts(2))
				got, ok := cache.Get(b)
				if ok {
					require.Len(t, got, 2)
				}
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, cache.Len())
}

func TestResolveUsesCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clock := gcache.NewFakeClock()

	big := []*ledger.Receipt{
		receipt(t, &Event{Kind: KindSignAndLog, Signature: "s", Log: "l2", UpdatedAt: 2, PreviousBlock: 1}),
		receipt(t, &Event{Kind: KindSignAndLog, Hash: otherHash, Signature: "x", Log: "y"}),
	}
	small := []*ledger.Receipt{
		receipt(t, &Event{Kind: KindCreate, Signature: "s0", Log: "l1", UpdatedAt: 1}),
	}

	client := &mockledger.MockLedgerClient{
		Blocks: map[uint64][]*ledger.Receipt{1: small, 2: big},
	}
	cache := NewReceiptCache(WithClock(clock), WithMetrics(metrics))
	resolver := NewResolver(client, cache, WithResolverMetrics(metrics))

	for i := 0; i < 3; i++ {
		info := resolver.Resolve(context.Background(), testHash, 2)
		require.Equal(t, []string{"l1", "l2"}, info.SignInfo[testSigner].Logs)
	}

	require.True(t, cache.Has(2))
	require.False(t, cache.Has(1))
	require.Equal(t, 1, client.FetchCount(2))
	require.Equal(t, 3, client.FetchCount(1))

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.hits))
	require.Equal(t, float64(4), testutil.ToFloat64(metrics.misses))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.stores))

	clock.Advance(DefaultCacheTTL + time.Second)
	resolver.Resolve(context.Background(), testHash, 2)
	require.Equal(t, 2, client.FetchCount(2))

	t.Run("fetch failures counted", func(t *testing.T) {
		client.ReceiptsByBlockErr = map[uint64]error{9: fmt.Errorf("timeout")}
		resolver.Resolve(context.Background(), testHash, 9)
		require.Equal(t, float64(1), testutil.ToFloat64(metrics.fetchFailures))
	})
}
