// Package web3test provides an in-memory LayerZero endpoint that implements
// web3.Backend, for tests of the packages built on top of web3.
package web3test

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/blockdaemon/lz-dvn-config/web3"
	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// EndpointABI is the parsed web3.EndpointV2ABI.
var EndpointABI = func() *abi.ABI {
	a, err := abi.JSON(strings.NewReader(web3.EndpointV2ABI))
	if err != nil {
		panic(err)
	}
	return &a
}()

// ErrorSelector returns the 4-byte selector of an endpoint custom error.
func ErrorSelector(name string) []byte {
	id := EndpointABI.Errors[name].ID
	return id[:4]
}

// revertError is the error returned by a node when a call reverts.
type revertError struct {
	data []byte
}

func (e *revertError) Error() string  { return "execution reverted" }
func (e *revertError) ErrorCode() int { return 3 }
func (e *revertError) ErrorData() any { return hexutil.Encode(e.data) }

type configKey struct {
	oapp, lib  common.Address
	eid, ctype uint32
}

// Endpoint emulates an EndpointV2 contract deployed at Address on a chain
// that mines every transaction as soon as it is sent.
type Endpoint struct {
	Address common.Address
	EID     uint32

	BaseFee     *big.Int
	TipCap      *big.Int
	GasPrice    *big.Int
	GasEstimate uint64
	EstimateErr error
	// Revert, if set, makes every setConfig revert with this data.
	Revert []byte

	mu        sync.Mutex
	configs   map[configKey][]byte
	supported map[uint32]bool
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*gethtypes.Receipt
	sent      []*gethtypes.Transaction
	calls     []string
}

var _ web3.Backend = (*Endpoint)(nil)

// NewEndpoint returns an endpoint with id eid deployed at address that has a
// library configured for the supported remote endpoint ids.
func NewEndpoint(address common.Address, eid uint32, supported ...uint32) *Endpoint {
	f := &Endpoint{
		Address:     address,
		EID:         eid,
		BaseFee:     big.NewInt(10_000_000_000),
		TipCap:      big.NewInt(1_000_000_000),
		GasPrice:    big.NewInt(20_000_000_000),
		GasEstimate: 100_000,
		configs:     make(map[configKey][]byte),
		supported:   make(map[uint32]bool),
		nonces:      make(map[common.Address]uint64),
		receipts:    make(map[common.Hash]*gethtypes.Receipt),
	}
	for _, id := range supported {
		f.supported[id] = true
	}
	return f
}

// StoreConfig sets the config returned by getConfig.
func (f *Endpoint) StoreConfig(oapp, lib common.Address, eid, configType uint32, config []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[configKey{oapp, lib, eid, configType}] = config
}

// Sent returns the transactions accepted so far.
func (f *Endpoint) Sent() []*gethtypes.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*gethtypes.Transaction(nil), f.sent...)
}

// Calls returns the backend methods called so far, in order. Contract calls
// are recorded with the name of the contract method.
func (f *Endpoint) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Endpoint) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *Endpoint) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.record("CodeAt")
	if account == f.Address {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (f *Endpoint) CallContract(_ context.Context, msg gethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || *msg.To != f.Address {
		f.record("CallContract")
		return nil, nil
	}
	method, args, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}
	f.record(method.Name)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch method.Name {
	case "getConfig":
		key := configKey{args[0].(common.Address), args[1].(common.Address), args[2].(uint32), args[3].(uint32)}
		return method.Outputs.Pack(f.configs[key])
	case "isSupportedEid":
		return method.Outputs.Pack(f.supported[args[0].(uint32)])
	case "eid":
		return method.Outputs.Pack(f.EID)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func (f *Endpoint) EstimateGas(_ context.Context, _ gethereum.CallMsg) (uint64, error) {
	f.record("EstimateGas")
	if f.Revert != nil {
		return 0, &revertError{data: f.Revert}
	}
	if f.EstimateErr != nil {
		return 0, f.EstimateErr
	}
	return f.GasEstimate, nil
}

func (f *Endpoint) HeaderByNumber(_ context.Context, _ *big.Int) (*gethtypes.Header, error) {
	f.record("HeaderByNumber")
	return &gethtypes.Header{Number: big.NewInt(100), BaseFee: f.BaseFee}, nil
}

func (f *Endpoint) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	f.record("PendingNonceAt")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonces[account], nil
}

func (f *Endpoint) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.record("SuggestGasPrice")
	return f.GasPrice, nil
}

func (f *Endpoint) SuggestGasTipCap(context.Context) (*big.Int, error) {
	f.record("SuggestGasTipCap")
	return f.TipCap, nil
}

func (f *Endpoint) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	f.record("SendTransaction")
	f.mu.Lock()
	defer f.mu.Unlock()
	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}
	if tx.Nonce() != f.nonces[from] {
		return fmt.Errorf("nonce too low")
	}
	f.nonces[from]++
	f.sent = append(f.sent, tx)

	status := gethtypes.ReceiptStatusSuccessful
	method, args, err := decode(tx.Data())
	if err != nil || method.Name != "setConfig" || f.applySetConfig(args) != nil {
		status = gethtypes.ReceiptStatusFailed
	}
	f.receipts[tx.Hash()] = &gethtypes.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(101),
	}
	return nil
}

func (f *Endpoint) TransactionReceipt(_ context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	f.record("TransactionReceipt")
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, gethereum.NotFound
	}
	return r, nil
}

func decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("short calldata")
	}
	method, err := EndpointABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

// applySetConfig stores the params. The sender is not checked against the
// OApp delegate.
func (f *Endpoint) applySetConfig(args []any) error {
	if f.Revert != nil {
		return &revertError{data: f.Revert}
	}
	oapp, lib := args[0].(common.Address), args[1].(common.Address)
	params := *abi.ConvertType(args[2], new([]web3.SetConfigParam)).(*[]web3.SetConfigParam)
	for _, p := range params {
		if !f.supported[p.Eid] {
			return &revertError{data: ErrorSelector("LZ_UnsupportedEid")}
		}
		f.configs[configKey{oapp, lib, p.Eid, p.ConfigType}] = p.Config
	}
	return nil
}
