package web3_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/blockdaemon/lz-dvn-config/crypto/signatures/ethereum"
	"github.com/blockdaemon/lz-dvn-config/web3"
	"github.com/blockdaemon/lz-dvn-config/web3/web3test"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	qt "github.com/frankban/quicktest"
)

const testChainID = uint64(1337)

var (
	testEndpoint = common.HexToAddress("0x1a44076050125825900e736c501f859c50fE728c")
	testOApp     = common.HexToAddress("0x0000000000000000000000000000000000000a99")
	testLib      = common.HexToAddress("0xbB2Ea70C9E858123480642Cf96acbcCE1372dCe1")
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newTestContracts(c *qt.C, backend *web3test.Endpoint) *web3.Contracts {
	contracts := web3.NewWithBackend(backend, testChainID)
	signer, err := ethereum.NewSignerFromHex(testKey)
	c.Assert(err, qt.IsNil)
	contracts.SetAccountSigner(signer)
	c.Assert(contracts.LoadEndpoint(context.Background(), testEndpoint), qt.IsNil)
	return contracts
}

func TestLoadEndpoint(t *testing.T) {
	c := qt.New(t)
	contracts := web3.NewWithBackend(web3test.NewEndpoint(testEndpoint, 30101), testChainID)

	err := contracts.LoadEndpoint(context.Background(), common.HexToAddress("0x01"))
	c.Assert(err, qt.ErrorMatches, "no contract deployed at endpoint address .*")

	_, err = contracts.IsSupportedEid(context.Background(), 30110)
	c.Assert(err, qt.ErrorIs, web3.ErrNoEndpoint)

	c.Assert(contracts.LoadEndpoint(context.Background(), testEndpoint), qt.IsNil)
	c.Assert(contracts.EndpointAddress, qt.Equals, testEndpoint)
	eid, err := contracts.EID(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(eid, qt.Equals, uint32(30101))
}

func TestAccountAddress(t *testing.T) {
	c := qt.New(t)
	contracts := web3.NewWithBackend(web3test.NewEndpoint(testEndpoint, 30101), testChainID)
	c.Assert(contracts.AccountAddress(), qt.Equals, common.Address{})

	signer, err := ethereum.NewSignerFromHex(testKey)
	c.Assert(err, qt.IsNil)
	contracts.SetAccountSigner(signer)
	c.Assert(contracts.AccountAddress(), qt.Equals, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
}

func TestIsSupportedEid(t *testing.T) {
	c := qt.New(t)
	contracts := newTestContracts(c, web3test.NewEndpoint(testEndpoint, 30101, 30110))

	ok, err := contracts.IsSupportedEid(context.Background(), 30110)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = contracts.IsSupportedEid(context.Background(), 30999)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestSetConfig(t *testing.T) {
	c := qt.New(t)
	backend := web3test.NewEndpoint(testEndpoint, 30101, 30110)
	contracts := newTestContracts(c, backend)
	ctx := context.Background()

	config, err := contracts.GetConfig(ctx, testOApp, testLib, 30110, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(config, qt.HasLen, 0)

	_, err = contracts.SetConfig(ctx, testOApp, testLib, nil, nil)
	c.Assert(err, qt.ErrorMatches, "no config params")

	params := []web3.SetConfigParam{{Eid: 30110, ConfigType: 2, Config: []byte{0xca, 0xfe}}}
	hash, err := contracts.SetConfig(ctx, testOApp, testLib, params, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(backend.Sent(), qt.HasLen, 1)
	c.Assert(hash, qt.Equals, backend.Sent()[0].Hash())

	c.Assert(contracts.WaitTx(ctx, hash, time.Second), qt.IsNil)
	ok, err := contracts.CheckTxStatus(ctx, hash)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	config, err = contracts.GetConfig(ctx, testOApp, testLib, 30110, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(config, qt.DeepEquals, []byte{0xca, 0xfe})

	c.Run("dynamic fee transaction", func(c *qt.C) {
		tx := backend.Sent()[0]
		c.Assert(tx.Type(), qt.Equals, uint8(gethtypes.DynamicFeeTxType))
		c.Assert(tx.ChainId().Uint64(), qt.Equals, testChainID)
		c.Assert(tx.Nonce(), qt.Equals, uint64(0))
		c.Assert(*tx.To(), qt.Equals, testEndpoint)
		// 100k estimate plus 10%
		c.Assert(tx.Gas(), qt.Equals, uint64(110_000))
		c.Assert(tx.GasTipCap().Cmp(backend.TipCap), qt.Equals, 0)
		// 2 * 10 gwei + 1 gwei
		c.Assert(tx.GasFeeCap().Cmp(big.NewInt(21_000_000_000)), qt.Equals, 0)
	})

	c.Run("legacy transaction with fixed gas price", func(c *qt.C) {
		hash, err := contracts.SetConfig(ctx, testOApp, testLib, params, &web3.TxOptions{GasPrice: web3.FixedGasPrice()})
		c.Assert(err, qt.IsNil)
		tx := backend.Sent()[1]
		c.Assert(tx.Hash(), qt.Equals, hash)
		c.Assert(tx.Type(), qt.Equals, uint8(gethtypes.LegacyTxType))
		c.Assert(tx.Nonce(), qt.Equals, uint64(1))
		c.Assert(tx.GasPrice().String(), qt.Equals, "500000000000")
		from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(int64(testChainID))), tx)
		c.Assert(err, qt.IsNil)
		c.Assert(from, qt.Equals, contracts.AccountAddress())
	})

	c.Run("explicit gas limit", func(c *qt.C) {
		_, err := contracts.SetConfig(ctx, testOApp, testLib, params, &web3.TxOptions{GasLimit: 77_000})
		c.Assert(err, qt.IsNil)
		c.Assert(backend.Sent()[2].Gas(), qt.Equals, uint64(77_000))
	})
}

func TestSetConfigFees(t *testing.T) {
	c := qt.New(t)
	params := []web3.SetConfigParam{{Eid: 30110, ConfigType: 2, Config: []byte{0x01}}}

	c.Run("pre-london chain", func(c *qt.C) {
		backend := web3test.NewEndpoint(testEndpoint, 30101, 30110)
		backend.BaseFee = nil
		contracts := newTestContracts(c, backend)
		_, err := contracts.SetConfig(context.Background(), testOApp, testLib, params, nil)
		c.Assert(err, qt.IsNil)
		tx := backend.Sent()[0]
		c.Assert(tx.Type(), qt.Equals, uint8(gethtypes.LegacyTxType))
		c.Assert(tx.GasPrice().Cmp(backend.GasPrice), qt.Equals, 0)
	})

	c.Run("gas estimation failure", func(c *qt.C) {
		backend := web3test.NewEndpoint(testEndpoint, 30101, 30110)
		backend.EstimateErr = errors.New("gas required exceeds allowance")
		contracts := newTestContracts(c, backend)
		_, err := contracts.SetConfig(context.Background(), testOApp, testLib, params, nil)
		c.Assert(err, qt.IsNil)
		c.Assert(backend.Sent()[0].Gas(), qt.Equals, web3.DefaultGasLimit)
	})
}

func TestSetConfigRevert(t *testing.T) {
	c := qt.New(t)
	backend := web3test.NewEndpoint(testEndpoint, 30101, 30110)
	backend.Revert = web3test.ErrorSelector("LZ_Unauthorized")
	contracts := newTestContracts(c, backend)

	params := []web3.SetConfigParam{{Eid: 30110, ConfigType: 2, Config: []byte{0x01}}}
	_, err := contracts.SetConfig(context.Background(), testOApp, testLib, params, nil)
	c.Assert(err, qt.ErrorIs, web3.ErrReverted)
	c.Assert(err, qt.ErrorMatches, ".*LZ_Unauthorized.*")
	c.Assert(backend.Sent(), qt.HasLen, 0)
}

func TestSetConfigNoSigner(t *testing.T) {
	c := qt.New(t)
	contracts := web3.NewWithBackend(web3test.NewEndpoint(testEndpoint, 30101, 30110), testChainID)
	c.Assert(contracts.LoadEndpoint(context.Background(), testEndpoint), qt.IsNil)

	params := []web3.SetConfigParam{{Eid: 30110, ConfigType: 2}}
	_, err := contracts.SetConfig(context.Background(), testOApp, testLib, params, nil)
	c.Assert(err, qt.ErrorIs, web3.ErrNoSigner)
}

func TestWaitTx(t *testing.T) {
	c := qt.New(t)
	backend := web3test.NewEndpoint(testEndpoint, 30101)
	contracts := newTestContracts(c, backend)

	// never mined
	err := contracts.WaitTx(context.Background(), common.HexToHash("0x01"), 50*time.Millisecond)
	c.Assert(err, qt.ErrorIs, context.DeadlineExceeded)

	// mined but failed: the endpoint does not support the eid
	params := []web3.SetConfigParam{{Eid: 30999, ConfigType: 2, Config: []byte{0x01}}}
	hash, err := contracts.SetConfig(context.Background(), testOApp, testLib, params, &web3.TxOptions{GasLimit: 100_000})
	c.Assert(err, qt.IsNil)
	err = contracts.WaitTx(context.Background(), hash, time.Second)
	c.Assert(err, qt.ErrorIs, web3.ErrTxReverted)
	ok, err := contracts.CheckTxStatus(context.Background(), hash)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestDecodeRevert(t *testing.T) {
	c := qt.New(t)
	contracts := web3.NewWithBackend(web3test.NewEndpoint(testEndpoint, 30101), testChainID)

	reason, ok := contracts.DecodeRevert(web3test.ErrorSelector("LZ_ULN_Unsorted"))
	c.Assert(ok, qt.IsTrue)
	c.Assert(reason, qt.Equals, "LZ_ULN_Unsorted")

	abiErr := web3test.EndpointABI.Errors["LZ_ULN_UnsupportedEid"]
	args, err := abiErr.Inputs.Pack(uint32(30999))
	c.Assert(err, qt.IsNil)
	reason, ok = contracts.DecodeRevert(append(web3test.ErrorSelector("LZ_ULN_UnsupportedEid"), args...))
	c.Assert(ok, qt.IsTrue)
	c.Assert(reason, qt.Equals, "LZ_ULN_UnsupportedEid(30999)")

	_, ok = contracts.DecodeRevert([]byte{0xde, 0xad, 0xbe, 0xef})
	c.Assert(ok, qt.IsFalse)
	_, ok = contracts.DecodeRevert(nil)
	c.Assert(ok, qt.IsFalse)
}
