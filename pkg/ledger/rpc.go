/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
)

var logger = log.New("attestor/ledger")

// JSON-RPC methods served by the ledger node.
const (
	MethodSendTransaction    = "ledger_sendTransaction"
	MethodGetReceiptsByBlock = "ledger_getReceiptsByBlock"
	MethodCall               = "ledger_call"
	MethodBlockNumber        = "ledger_blockNumber"
)

const defaultTimeout = 10 * time.Second

// CallRequest is the parameter of a read-only contract call.
type CallRequest struct {
	Contract string          `json:"contract"`
	Method   string          `json:"method"`
	Params   json.RawMessage `json:"params"`
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

// RPCClient talks JSON-RPC 2.0 over HTTP to a ledger node.
type RPCClient struct {
	url     string
	client  *http.Client
	timeout time.Duration
	nextID  uint64
}

// RPCOption configures an RPCClient.
type RPCOption func(c *RPCClient)

// WithTimeout bounds every call.  Zero disables the per call timeout.
func WithTimeout(d time.Duration) RPCOption {
	return func(c *RPCClient) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) RPCOption {
	return func(c *RPCClient) {
		c.client = hc
	}
}

// NewRPCClient returns a client for the node at url.
func NewRPCClient(url string, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		url:     url,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *RPCClient) SubmitTransaction(ctx context.Context, tx *Transaction) (*Receipt, error) {
	rcpt := &Receipt{}
	if err := c.call(ctx, MethodSendTransaction, []interface{}{tx}, rcpt); err != nil {
		return nil, err
	}

	return rcpt, nil
}

func (c *RPCClient) ReceiptsByBlock(ctx context.Context, blockNumber uint64) ([]*Receipt, error) {
	var out []*Receipt
	if err := c.call(ctx, MethodGetReceiptsByBlock, []interface{}{blockNumber}, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *RPCClient) Call(ctx context.Context, contract, method string, params, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal params for %s", method)
	}

	req := &CallRequest{Contract: contract, Method: method, Params: raw}
	return c.call(ctx, MethodCall, []interface{}{req}, out)
}

func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.call(ctx, MethodBlockNumber, []interface{}{}, &n); err != nil {
		return 0, err
	}

	return n, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := atomic.AddUint64(&c.nextID, 1)
	body, err := json.Marshal(&rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return errors.Wrapf(err, "unable to marshal %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "unable to create ledger request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", method)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("error closing ledger response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s request failed with status %d", method, resp.StatusCode)
	}

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s response", method)
	}

	rpcResp := &rpcResponse{}
	if err = json.Unmarshal(b, rpcResp); err != nil {
		return errors.Wrapf(err, "invalid %s response", method)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if rpcResp.ID != id {
		return errors.Errorf("%s response id %d does not match request id %d", method, rpcResp.ID, id)
	}

	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}

	return errors.Wrapf(json.Unmarshal(rpcResp.Result, out), "invalid %s result", method)
}
