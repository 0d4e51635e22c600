// Package web3 provides access to the LayerZero endpoint contract: reading
// and writing OApp configurations and sending the signed transactions.
package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blockdaemon/lz-dvn-config/crypto/signatures/ethereum"
	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/blockdaemon/lz-dvn-config/web3/rpc"
	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// web3QueryTimeout is the timeout for web3 queries.
	web3QueryTimeout = 10 * time.Second

	// txStatusPollInterval is the interval between receipt queries in WaitTx.
	txStatusPollInterval = time.Second
)

var (
	// ErrNoSigner is returned when a transaction is requested before setting
	// the account signer.
	ErrNoSigner = errors.New("no account signer set")
	// ErrNoEndpoint is returned when the endpoint contract is not loaded.
	ErrNoEndpoint = errors.New("endpoint contract not loaded")
	// ErrTxReverted is returned by WaitTx when the transaction was mined but
	// its execution failed.
	ErrTxReverted = errors.New("transaction reverted")
)

// endpointABI is the parsed EndpointV2ABI.
var endpointABI = func() *abi.ABI {
	a, err := abi.JSON(strings.NewReader(EndpointV2ABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse endpoint ABI: %v", err))
	}
	return &a
}()

// Backend is the subset of the JSON-RPC API needed to query the endpoint
// and submit transactions. *rpc.Client implements it.
type Backend interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg gethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg gethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

var _ Backend = (*rpc.Client)(nil)

// Contracts contains the binding to the endpoint contract of one chain.
type Contracts struct {
	ChainID         uint64
	EndpointAddress common.Address
	EndpointABI     *abi.ABI

	backend Backend
	cli     *rpc.Client
	signer  *ethereum.Signer
}

// New dials the web3 endpoint and returns a Contracts instance for its chain.
func New(ctx context.Context, web3rpc string) (*Contracts, error) {
	cli, err := rpc.Dial(ctx, web3rpc)
	if err != nil {
		return nil, err
	}
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, err
	}
	c := NewWithBackend(cli, chainID)
	c.cli = cli

	lastBlock, err := cli.BlockNumber(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}
	log.Infow("web3 client initialized", "chainID", chainID, "lastBlock", lastBlock)
	return c, nil
}

// NewWithBackend returns a Contracts instance using the given backend.
func NewWithBackend(backend Backend, chainID uint64) *Contracts {
	return &Contracts{
		ChainID:     chainID,
		EndpointABI: endpointABI,
		backend:     backend,
	}
}

// Close releases the RPC connection, if any.
func (c *Contracts) Close() {
	if c.cli != nil {
		c.cli.Close()
	}
}

// SetAccountSigner sets the key used to sign transactions.
func (c *Contracts) SetAccountSigner(signer *ethereum.Signer) {
	c.signer = signer
}

// AccountAddress returns the address of the account used to sign
// transactions, or the zero address if there is none.
func (c *Contracts) AccountAddress() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// LoadEndpoint binds the endpoint contract at addr, checking that there is
// code deployed there.
func (c *Contracts) LoadEndpoint(ctx context.Context, addr common.Address) error {
	internalCtx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	code, err := c.backend.CodeAt(internalCtx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to get endpoint code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no contract deployed at endpoint address %s on chain %d", addr.Hex(), c.ChainID)
	}
	c.EndpointAddress = addr
	return nil
}

// CheckTxStatus checks the status of a transaction given its hash.
// Returns true if the transaction was successful, false otherwise.
func (c *Contracts) CheckTxStatus(ctx context.Context, txHash common.Hash) (bool, error) {
	internalCtx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	receipt, err := c.backend.TransactionReceipt(internalCtx, txHash)
	if err != nil {
		return false, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt.Status == gethtypes.ReceiptStatusSuccessful, nil
}

// WaitTx waits for a transaction to be mined. It returns ErrTxReverted if the
// transaction failed and an error if it is not mined before timeout.
func (c *Contracts) WaitTx(ctx context.Context, txHash common.Hash, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(txStatusPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt.Status == gethtypes.ReceiptStatusSuccessful:
			return nil
		case err == nil:
			return fmt.Errorf("%w: %s in block %d", ErrTxReverted, txHash.Hex(), receipt.BlockNumber)
		case !errors.Is(err, gethereum.NotFound):
			log.Debugw("failed to get receipt", "tx", txHash.Hex(), "error", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for tx %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// call packs the method arguments, calls the endpoint contract and unpacks
// the outputs.
func (c *Contracts) call(ctx context.Context, method string, args ...any) ([]any, error) {
	if c.EndpointAddress == (common.Address{}) {
		return nil, ErrNoEndpoint
	}
	data, err := c.EndpointABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	internalCtx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	out, err := c.backend.CallContract(internalCtx, gethereum.CallMsg{
		From: c.AccountAddress(),
		To:   &c.EndpointAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, c.explainRevert(err))
	}
	values, err := c.EndpointABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
