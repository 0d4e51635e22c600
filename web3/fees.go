package web3

import (
	"context"
	"fmt"
	"math/big"
)

// FeeCaps holds the gas pricing of a transaction. When GasPrice is set the
// transaction is sent as a legacy one and the EIP-1559 caps are ignored.
type FeeCaps struct {
	TipCap   *big.Int // maxPriorityFeePerGas
	FeeCap   *big.Int // maxFeePerGas
	GasPrice *big.Int // legacy gas price
}

// IsLegacy reports whether the fees describe a legacy transaction.
func (f FeeCaps) IsLegacy() bool {
	return f.GasPrice != nil
}

const (
	// FixedGasPriceGwei is the legacy gas price used when the caller asks for
	// an explicit gas price instead of the network suggestion.
	FixedGasPriceGwei = int64(500)

	// gas limit margin ~+10% (x1.1) over the node estimate
	gasMarginNum = int64(110)
	gasMarginDen = int64(100)

	// DefaultGasLimit is used when the node cannot estimate the gas.
	DefaultGasLimit = uint64(300_000)
)

// FixedGasPrice returns FixedGasPriceGwei in wei.
func FixedGasPrice() *big.Int {
	return gwei(FixedGasPriceGwei)
}

// SuggestInitialFees returns FeeCaps built from on-chain conditions:
// feeCap = 2*baseFee + tip. Chains whose latest header carries no base fee
// get a legacy gas price suggested by the node.
func (c *Contracts) SuggestInitialFees(ctx context.Context) (FeeCaps, error) {
	var fees FeeCaps

	h, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return fees, fmt.Errorf("header by number: %w", err)
	}
	if h.BaseFee == nil {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return fees, fmt.Errorf("suggest gas price: %w", err)
		}
		fees.GasPrice = price
		return fees, nil
	}

	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return fees, fmt.Errorf("suggest tip: %w", err)
	}

	feeCap := new(big.Int).Mul(h.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	fees.TipCap = tip
	fees.FeeCap = maxBig(feeCap, tip)
	return fees, nil
}

// withGasMargin adds the safety margin to a gas estimate.
func withGasMargin(gas uint64) uint64 {
	return mulFrac(new(big.Int).SetUint64(gas), gasMarginNum, gasMarginDen).Uint64()
}

func mulFrac(x *big.Int, num, den int64) *big.Int {
	if x == nil {
		return nil
	}
	xx := new(big.Int).Set(x)
	xx.Mul(xx, big.NewInt(num))
	xx.Div(xx, big.NewInt(den))
	return xx
}

func maxBig(vals ...*big.Int) *big.Int {
	var best *big.Int
	for _, v := range vals {
		if v == nil {
			continue
		}
		if best == nil || v.Cmp(best) > 0 {
			best = new(big.Int).Set(v)
		}
	}
	if best == nil {
		return big.NewInt(0)
	}
	return best
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}
