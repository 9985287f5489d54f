// Package chainclient provides uniform access to a single EVM JSON-RPC
// endpoint: block_number, get_block, get_logs, get_transaction,
// get_transaction_receipt and call. It is the only component that talks to
// an EVM RPC — see spec.md §4.1.
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// ErrTransient wraps the transient-RPC-error taxonomy item from spec.md §7.1
// (timeout, connection reset, JSON decode error, HTTP 5xx). Callers use
// errors.Is to detect it; it is never silently converted to empty results.
var ErrTransient = errors.New("chainclient: transient rpc error")

// Log is the chain-agnostic raw log record the Decoder consumes.
type Log struct {
	Address     string
	Topics      []string // hex-encoded, topics[0] is the event signature
	Data        []byte
	BlockNumber uint64
	TxHash      string
	TxIndex     uint
	LogIndex    uint
}

// Block carries the subset of header fields the pipeline needs. Fetched via
// a raw map decode rather than go-ethereum's types.Header so that
// proof-of-authority chains whose extraData exceeds the vanilla Ethereum
// clique bound still parse (see NewClient's poaMiddleware note).
type Block struct {
	Number    uint64
	Timestamp time.Time
	Hash      string
}

// TxData is the subset of a transaction the Decoder and gas accounting need.
type TxData struct {
	Hash     string
	Input    []byte
	From     string
	To       string
	BlockNum uint64
}

// Receipt carries gas accounting fields, including the handful of
// L2-specific extras (Arbitrum's feeStats, Optimism/Boba's l1Fee) that
// gas_stats (see gas.go) needs and that go-ethereum's types.Receipt doesn't
// expose.
type Receipt struct {
	GasUsed  uint64
	GasPrice *big.Int
	Status   uint64
	Raw      map[string]interface{} // full JSON-RPC result, for chain-specific extras
}

// ChainClient is the uniform per-chain RPC surface. All methods are retried
// with exponential backoff on transient errors; after the retry budget is
// exhausted, the error is returned to the caller rather than silently
// converted to an empty result.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, fromBlock, toBlock uint64, address string, topics []string) ([]Log, error)
	GetBlock(ctx context.Context, number uint64) (Block, error)
	GetTransaction(ctx context.Context, hash string) (TxData, error)
	GetTransactionReceipt(ctx context.Context, hash string) (Receipt, error)
	Call(ctx context.Context, contract string, data []byte, blockNumber *uint64) ([]byte, error)
}

// RetryPolicy configures the exponential backoff used around every RPC call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var defaultRetry = RetryPolicy{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}

// Client is the production ChainClient backed by go-ethereum's ethclient/rpc.
type Client struct {
	chainName string
	requiresPOA bool
	eth       *ethclient.Client
	rpc       *gethrpc.Client
	limiter   *rate.Limiter
	retry     RetryPolicy
}

// Option configures Client construction.
type Option func(*Client)

// WithRetryPolicy overrides the default retry/backoff schedule.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimit caps outbound requests/sec against this node, shared across
// every call this Client makes (spec.md §5 "connection pools").
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient dials url for chainName. requiresPOA marks chains (BSC, Polygon
// PoS, and other Clique-derived consensus chains) whose block headers carry
// extraData the vanilla go-ethereum decoder rejects; Client routes around
// this by decoding blocks through a raw JSON-RPC map instead of
// types.Header, which is the "proof-of-authority middleware" spec.md §4.1
// describes.
func NewClient(ctx context.Context, chainName, url string, requiresPOA bool, opts ...Option) (*Client, error) {
	rpcClient, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s (%s): %w", chainName, url, err)
	}
	c := &Client{
		chainName:   chainName,
		requiresPOA: requiresPOA,
		eth:         ethclient.NewClient(rpcClient),
		rpc:         rpcClient,
		retry:       defaultRetry,
		limiter:     rate.NewLimiter(rate.Limit(20), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// withRetry runs fn with exponential backoff on transient errors, capped at
// c.retry.MaxDelay and c.retry.MaxAttempts. Non-transient errors (e.g. a
// reverted call) are returned immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.retry.BaseDelay
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrTransient, c.chainName, lastErr)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"timeout", "connection reset", "eof", "i/o timeout", "502", "503", "504", "too many requests", "dial tcp"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.withRetry(ctx, func() error {
		v, err := c.eth.BlockNumber(ctx)
		if err != nil {
			return err
		}
		n = v
		return nil
	})
	return n, err
}

func (c *Client) GetLogs(ctx context.Context, fromBlock, toBlock uint64, address string, topics []string) ([]Log, error) {
	var topicHashes []common.Hash
	for _, t := range topics {
		topicHashes = append(topicHashes, common.HexToHash(t))
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(address)},
	}
	if len(topicHashes) > 0 {
		q.Topics = [][]common.Hash{topicHashes}
	}

	var logs []Log
	err := c.withRetry(ctx, func() error {
		raw, err := c.eth.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		logs = make([]Log, 0, len(raw))
		for _, l := range raw {
			topicsHex := make([]string, len(l.Topics))
			for i, t := range l.Topics {
				topicsHex[i] = t.Hex()
			}
			logs = append(logs, Log{
				Address:     strings.ToLower(l.Address.Hex()),
				Topics:      topicsHex,
				Data:        l.Data,
				BlockNumber: l.BlockNumber,
				TxHash:      l.TxHash.Hex(),
				TxIndex:     l.TxIndex,
				LogIndex:    l.Index,
			})
		}
		return nil
	})
	return logs, err
}

func (c *Client) GetBlock(ctx context.Context, number uint64) (Block, error) {
	var b Block
	err := c.withRetry(ctx, func() error {
		var raw map[string]interface{}
		err := c.rpc.CallContext(ctx, &raw, "eth_getBlockByNumber", hexUint(number), false)
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("block %d not found", number)
		}
		ts, err := hexToUint64(raw["timestamp"])
		if err != nil {
			return err
		}
		num, err := hexToUint64(raw["number"])
		if err != nil {
			return err
		}
		b = Block{
			Number:    num,
			Timestamp: time.Unix(int64(ts), 0).UTC(),
			Hash:      fmt.Sprintf("%v", raw["hash"]),
		}
		return nil
	})
	return b, err
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (TxData, error) {
	var tx TxData
	err := c.withRetry(ctx, func() error {
		var raw map[string]interface{}
		err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionByHash", hash)
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("tx %s not found", hash)
		}
		blockNum, _ := hexToUint64(raw["blockNumber"])
		input, _ := hexDecode(fmt.Sprintf("%v", raw["input"]))
		tx = TxData{
			Hash:     hash,
			Input:    input,
			From:     strings.ToLower(fmt.Sprintf("%v", raw["from"])),
			To:       strings.ToLower(fmt.Sprintf("%v", raw["to"])),
			BlockNum: blockNum,
		}
		return nil
	})
	return tx, err
}

func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (Receipt, error) {
	var r Receipt
	err := c.withRetry(ctx, func() error {
		var raw map[string]interface{}
		err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionReceipt", hash)
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("receipt %s not found", hash)
		}
		gasUsed, _ := hexToUint64(raw["gasUsed"])
		status, _ := hexToUint64(raw["status"])
		gasPrice := new(big.Int)
		if gp, ok := raw["effectiveGasPrice"]; ok {
			gasPrice, _ = hexToBigInt(gp)
		} else if gp, ok := raw["gasPrice"]; ok {
			gasPrice, _ = hexToBigInt(gp)
		}
		r = Receipt{GasUsed: gasUsed, GasPrice: gasPrice, Status: status, Raw: raw}
		return nil
	})
	return r, err
}

func (c *Client) Call(ctx context.Context, contract string, data []byte, blockNumber *uint64) ([]byte, error) {
	var out []byte
	err := c.withRetry(ctx, func() error {
		blockArg := "latest"
		if blockNumber != nil {
			blockArg = hexUint(*blockNumber)
		}
		callMsg := map[string]interface{}{
			"to":   contract,
			"data": "0x" + common.Bytes2Hex(data),
		}
		var resHex string
		err := c.rpc.CallContext(ctx, &resHex, "eth_call", callMsg, blockArg)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
				return fmt.Errorf("%w: %v", ErrContractNotDeployed, err)
			}
			return err
		}
		out, err = hexDecode(resHex)
		return err
	})
	return out, err
}

// ErrContractNotDeployed surfaces spec.md §7.6: a contract-call reverted on
// a historical block. It is never cached as a negative result.
var ErrContractNotDeployed = errors.New("chainclient: contract not deployed at requested block")

func hexUint(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return common.FromHex("0x" + s), nil
}

func hexToUint64(v interface{}) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("expected hex string, got %T", v)
	}
	n, err := hexToBigInt(s)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

func hexToBigInt(v interface{}) (*big.Int, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected hex string, got %T", v)
	}
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex integer %q", s)
	}
	return n, nil
}
