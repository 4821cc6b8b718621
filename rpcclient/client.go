// Package rpcclient is a thin wrapper over the node's JSON-RPC HTTP
// endpoint and its WebSocket head-subscription stream.
//
// Grounded on zk/syncer/l1_syncer.go's IEtherman interface. Neither that
// file's round-robin-over-endpoints feature (there is a single
// RPC_HTTP_URL to talk to) nor its retry-with-backoff is carried forward:
// each call is one HTTP request, and a failure is returned to the caller.
// The shape of a narrow capability interface plus a concrete HTTP-backed
// implementation is kept.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ledgerwatch/log/v3"
)

// Client is the node client's capability surface.
type Client interface {
	LastBlockNumber(ctx context.Context) (uint32, error)
	BlockByNumber(ctx context.Context, number uint32) (*RawBlock, error)
	ReceiptsForBlock(ctx context.Context, number uint32) ([]*RawReceipt, error)
	TracesForBlock(ctx context.Context, number uint32) ([]*RawTrace, error)
	SubscribeNewHeads(ctx context.Context) (<-chan Hash, Subscription, error)
	BlockNumberByHash(ctx context.Context, hash Hash) (uint32, error)
	Close()
}

// Hash is a 32-byte hex hash as a string, matching the wire format; kept
// distinct from model.Hash so this package has no dependency on model.
type Hash = string

// Subscription lets the caller detect a dropped WS stream and unsubscribe.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

type httpClient struct {
	httpURL string
	wsURL   string
	hc      *http.Client
	reqID   atomic.Int64
	logger  log.Logger
}

// Config configures the Node Client.
type Config struct {
	HTTPURL        string
	WSURL          string
	RequestTimeout time.Duration
}

func New(cfg Config, logger log.Logger) Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		httpURL: cfg.HTTPURL,
		wsURL:   cfg.WSURL,
		hc:      &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *httpClient) Close() {}

func (c *httpClient) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := c.reqID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, decodeErr(method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpURL, bytes.NewReader(body))
	if err != nil {
		return nil, transportErr(method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, transportErr(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportErr(method, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, decodeErr(method, err)
	}
	if rpcResp.Error != nil {
		return nil, decodeErr(method, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, notFoundErr(method)
	}
	return rpcResp.Result, nil
}

func (c *httpClient) LastBlockNumber(ctx context.Context) (uint32, error) {
	raw, err := c.call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, decodeErr("eth_blockNumber", err)
	}
	n, err := parseHexUint(s)
	if err != nil {
		return 0, decodeErr("eth_blockNumber", err)
	}
	return uint32(n), nil
}

func (c *httpClient) BlockByNumber(ctx context.Context, number uint32) (*RawBlock, error) {
	raw, err := c.call(ctx, "eth_getBlockByNumber", []interface{}{hexUint(uint64(number)), true})
	if err != nil {
		return nil, err
	}
	var block RawBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, decodeErr("eth_getBlockByNumber", err)
	}
	return &block, nil
}

func (c *httpClient) BlockNumberByHash(ctx context.Context, hash Hash) (uint32, error) {
	raw, err := c.call(ctx, "eth_getBlockByHash", []interface{}{hash, false})
	if err != nil {
		return 0, err
	}
	var header struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return 0, decodeErr("eth_getBlockByHash", err)
	}
	n, err := parseHexUint(header.Number)
	if err != nil {
		return 0, decodeErr("eth_getBlockByHash", err)
	}
	return uint32(n), nil
}

func (c *httpClient) ReceiptsForBlock(ctx context.Context, number uint32) ([]*RawReceipt, error) {
	raw, err := c.call(ctx, "eth_getBlockReceipts", []interface{}{hexUint(uint64(number))})
	if err != nil {
		return nil, err
	}
	var receipts []*RawReceipt
	if err := json.Unmarshal(raw, &receipts); err != nil {
		return nil, decodeErr("eth_getBlockReceipts", err)
	}
	return receipts, nil
}

func (c *httpClient) TracesForBlock(ctx context.Context, number uint32) ([]*RawTrace, error) {
	raw, err := c.call(ctx, "debug_traceBlockByNumber", []interface{}{
		hexUint(uint64(number)),
		map[string]string{"tracer": "callTracer"},
	})
	if err != nil {
		return nil, err
	}

	var wrapped []struct {
		TxHash string       `json:"txHash"`
		Result rawCallFrame `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, decodeErr("debug_traceBlockByNumber", err)
	}

	var traces []*RawTrace
	for _, w := range wrapped {
		flattenCallFrame(w.TxHash, w.Result, "", &traces)
	}
	return traces, nil
}

func hexUint(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

func parseHexUint(s string) (uint64, error) {
	var n uint64
	_, err := fmt.Sscanf(s, "0x%x", &n)
	return n, err
}
