package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

var (
	// DefaultTimeout bounds every single RPC call made through the Client.
	DefaultTimeout = 15 * time.Second
	dialTimeout    = 10 * time.Second
)

// permanentErrorPatterns defines error patterns that indicate contract-level
// rejections that will never succeed by resending the same call.
var permanentErrorPatterns = []string{
	"execution reverted",
}

// IsPermanentError checks if an error represents a contract rejection.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range permanentErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Client wraps an ethclient.Client connected to a single JSON-RPC endpoint.
// Every call is bounded by Timeout and RPC errors are enriched with their
// code and revert data. Calls are not retried.
type Client struct {
	URI     string
	Timeout time.Duration
	chainID uint64
	eth     *ethclient.Client
}

// Dial connects to the endpoint and fetches its chain ID.
func Dial(ctx context.Context, uri string) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	rpcCli, err := gethrpc.DialContext(dialCtx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to dial web3 endpoint: %w", err)
	}
	cli := NewClient(ethclient.NewClient(rpcCli), uri)
	chainID, err := cli.fetchChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, err
	}
	cli.chainID = chainID
	log.Debugw("web3 endpoint connected", "chainID", chainID, "uri", redactURI(uri))
	return cli, nil
}

// NewClient wraps an already connected ethclient. The chain ID is fetched
// lazily by ChainID.
func NewClient(eth *ethclient.Client, uri string) *Client {
	return &Client{URI: uri, Timeout: DefaultTimeout, eth: eth}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// ChainID returns the chain ID reported by the endpoint.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if c.chainID != 0 {
		return c.chainID, nil
	}
	id, err := c.fetchChainID(ctx)
	if err != nil {
		return 0, err
	}
	c.chainID = id
	return id, nil
}

func (c *Client) fetchChainID(ctx context.Context) (uint64, error) {
	id, err := call(ctx, c, func(ctx context.Context) (*big.Int, error) {
		return c.eth.ChainID(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id.Uint64(), nil
}

// CodeAt returns the contract code of the given account.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.eth.CodeAt(ctx, account, blockNumber)
	})
}

// CallContract executes a message call without creating a transaction.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.eth.CallContract(ctx, msg, blockNumber)
	})
}

// EstimateGas estimates the gas needed to execute the message.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return call(ctx, c, func(ctx context.Context) (uint64, error) {
		return c.eth.EstimateGas(ctx, msg)
	})
}

// HeaderByNumber returns a block header, the latest one if number is nil.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return call(ctx, c, func(ctx context.Context) (*gethtypes.Header, error) {
		return c.eth.HeaderByNumber(ctx, number)
	})
}

// PendingNonceAt returns the next nonce of the account.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return call(ctx, c, func(ctx context.Context) (uint64, error) {
		return c.eth.PendingNonceAt(ctx, account)
	})
}

// SuggestGasPrice returns the legacy gas price suggested by the node.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, func(ctx context.Context) (*big.Int, error) {
		return c.eth.SuggestGasPrice(ctx)
	})
}

// SuggestGasTipCap returns the EIP-1559 priority fee suggested by the node.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, func(ctx context.Context) (*big.Int, error) {
		return c.eth.SuggestGasTipCap(ctx)
	})
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	_, err := call(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.eth.SendTransaction(ctx, tx)
	})
	return err
}

// TransactionReceipt returns the receipt of a mined transaction.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return call(ctx, c, func(ctx context.Context) (*gethtypes.Receipt, error) {
		return c.eth.TransactionReceipt(ctx, txHash)
	})
}

// BlockNumber returns the most recent block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, c, func(ctx context.Context) (uint64, error) {
		return c.eth.BlockNumber(ctx)
	})
}

// call runs fn with the client timeout and converts the returned error into
// an *RPCError when the endpoint provided a code or revert data.
func call[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	internalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := fn(internalCtx)
	if err != nil {
		var zero T
		if errors.Is(err, ethereum.NotFound) {
			return zero, err
		}
		rpcErr := ParseError(err)
		if rpcErr.Code != 0 || len(rpcErr.Data) > 0 {
			return zero, rpcErr
		}
		return zero, err
	}
	return res, nil
}

// redactURI hides query parameters, which carry the provider API key.
func redactURI(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i] + "?..."
	}
	return uri
}

// RPCError is the error returned by the RPC server
type RPCError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    hexutil.Bytes `json:"data"`
}

func (e *RPCError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (code: %d, data: %s)", e.Message, e.Code, e.Data.String())
}

func (e *RPCError) ErrorCode() int {
	return e.Code
}

func (e *RPCError) ErrorData() any {
	return e.Data
}

// ParseError tries to extract Data and Code from err to reconstruct an
// *RPCError. It returns nil if err is nil.
func ParseError(err error) *RPCError {
	if err == nil {
		return nil
	}
	if e, ok := err.(*RPCError); ok {
		return e
	}

	out := &RPCError{Message: err.Error()}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		out.Code = rpcErr.ErrorCode()
		out.Message = rpcErr.Error()
	}

	var dataErr gethrpc.DataError
	if errors.As(err, &dataErr) {
		switch v := dataErr.ErrorData().(type) {
		case []byte:
			out.Data = hexutil.Bytes(v)
		case string:
			if b, derr := hexutil.Decode(v); derr == nil {
				out.Data = hexutil.Bytes(b)
			}
		}
	}

	return out
}
