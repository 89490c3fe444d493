package ledger

import (
	"context"
	"sync"

	"github.com/scoir/attestor/pkg/ledger"
)

type MockLedgerClient struct {
	SubmitTransactionErr   error
	SubmitTransactionValue *ledger.Receipt
	SubmitTransactionFunc  func(tx *ledger.Transaction) (*ledger.Receipt, error)
	Submitted              []*ledger.Transaction

	Blocks             map[uint64][]*ledger.Receipt
	ReceiptsByBlockErr map[uint64]error
	Fetches            map[uint64]int

	CallErr   error
	CallFunc  func(contract, method string, params, out interface{}) error
	CallCount int

	BlockNumberErr   error
	BlockNumberValue uint64

	lock sync.Mutex
}

func (r *MockLedgerClient) SubmitTransaction(_ context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	r.lock.Lock()
	r.Submitted = append(r.Submitted, tx)
	r.lock.Unlock()

	if r.SubmitTransactionErr != nil {
		return nil, r.SubmitTransactionErr
	}

	if r.SubmitTransactionFunc != nil {
		return r.SubmitTransactionFunc(tx)
	}

	return r.SubmitTransactionValue, nil
}

func (r *MockLedgerClient) ReceiptsByBlock(_ context.Context, blockNumber uint64) ([]*ledger.Receipt, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Fetches == nil {
		r.Fetches = map[uint64]int{}
	}
	r.Fetches[blockNumber]++

	if err, ok := r.ReceiptsByBlockErr[blockNumber]; ok {
		return nil, err
	}

	return r.Blocks[blockNumber], nil
}

func (r *MockLedgerClient) Call(_ context.Context, contract, method string, params, out interface{}) error {
	r.lock.Lock()
	r.CallCount++
	r.lock.Unlock()

	if r.CallErr != nil {
		return r.CallErr
	}

	if r.CallFunc != nil {
		return r.CallFunc(contract, method, params, out)
	}

	return nil
}

func (r *MockLedgerClient) BlockNumber(_ context.Context) (uint64, error) {
	if r.BlockNumberErr != nil {
		return 0, r.BlockNumberErr
	}

	return r.BlockNumberValue, nil
}

func (r *MockLedgerClient) FetchCount(blockNumber uint64) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.Fetches[blockNumber]
}
