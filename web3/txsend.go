package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/blockdaemon/lz-dvn-config/web3/rpc"
	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TxOptions tune the transaction sent by SetConfig. The zero value means
// EIP-1559 fees suggested by the node and an estimated gas limit.
type TxOptions struct {
	// GasPrice forces a legacy transaction with this gas price.
	GasPrice *big.Int
	// GasLimit skips the gas estimation when not zero.
	GasLimit uint64
}

// sendTx builds a transaction calling the endpoint contract with data, signs
// it with the account signer and sends it. It returns the transaction hash
// once the node accepted it.
func (c *Contracts) sendTx(ctx context.Context, data []byte, opts *TxOptions) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, ErrNoSigner
	}
	if c.EndpointAddress == (common.Address{}) {
		return common.Hash{}, ErrNoEndpoint
	}
	if opts == nil {
		opts = &TxOptions{}
	}
	from := c.AccountAddress()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	var fees FeeCaps
	if opts.GasPrice != nil {
		fees.GasPrice = new(big.Int).Set(opts.GasPrice)
	} else if fees, err = c.SuggestInitialFees(ctx); err != nil {
		return common.Hash{}, fmt.Errorf("initial fees: %w", err)
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		if gasLimit, err = c.estimateGas(ctx, from, data, fees); err != nil {
			return common.Hash{}, err
		}
	}

	chainID := new(big.Int).SetUint64(c.ChainID)
	var inner gethtypes.TxData
	if fees.IsLegacy() {
		inner = &gethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: fees.GasPrice,
			Gas:      gasLimit,
			To:       &c.EndpointAddress,
			Value:    big.NewInt(0),
			Data:     data,
		}
	} else {
		inner = &gethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: fees.TipCap,
			GasFeeCap: fees.FeeCap,
			Gas:       gasLimit,
			To:        &c.EndpointAddress,
			Value:     big.NewInt(0),
			Data:      data,
		}
	}
	tx, err := c.signer.SignTx(gethtypes.NewTx(inner), chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	log.Tracew("sending transaction",
		"hash", tx.Hash().Hex(),
		"from", from.Hex(),
		"to", c.EndpointAddress.Hex(),
		"nonce", nonce,
		"gas", gasLimit,
		"type", tx.Type(),
		"gasPrice", tx.GasPrice().String(),
		"gasTipCap", tx.GasTipCap().String(),
		"gasFeeCap", tx.GasFeeCap().String())

	if err := c.backend.SendTransaction(ctx, tx); err != nil && !isAlreadyKnown(err) {
		return common.Hash{}, fmt.Errorf("send tx failed: %w", c.explainRevert(err))
	}
	return tx.Hash(), nil
}

// estimateGas asks the node for the gas needed by the call and adds a safety
// margin. If the node cannot estimate it, DefaultGasLimit is used, unless the
// call is rejected by the contract, in which case the decoded revert is
// returned since the transaction would fail anyway.
func (c *Contracts) estimateGas(ctx context.Context, from common.Address, data []byte, fees FeeCaps) (uint64, error) {
	msg := gethereum.CallMsg{
		From:      from,
		To:        &c.EndpointAddress,
		GasPrice:  fees.GasPrice,
		GasTipCap: fees.TipCap,
		GasFeeCap: fees.FeeCap,
		Data:      data,
	}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		if rpc.IsPermanentError(err) {
			return 0, fmt.Errorf("estimate gas: %w", c.explainRevert(err))
		}
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		log.Warnw("failed to estimate gas, using default limit", "error", err, "gasLimit", DefaultGasLimit)
		return DefaultGasLimit, nil
	}
	return withGasMargin(gas), nil
}
