package dvn

import (
	"context"
	"errors"
	"testing"

	"github.com/blockdaemon/lz-dvn-config/config"
	"github.com/blockdaemon/lz-dvn-config/uln"
	"github.com/blockdaemon/lz-dvn-config/web3"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
)

var (
	testOApp = common.HexToAddress("0x0000000000000000000000000000000000000a99")
	testLib  = common.HexToAddress("0xbB2Ea70C9E858123480642Cf96acbcCE1372dCe1")
)

type configKey struct {
	eid, configType uint32
}

// fakeEndpoint keeps the configs of a single OApp and library in memory.
type fakeEndpoint struct {
	eid       uint32
	loaded    []common.Address
	supported map[uint32]bool
	configs   map[configKey][]byte
	sent      []web3.SetConfigParam
	opts      *web3.TxOptions
	getErr    error
	sendErr   error
}

func newFakeEndpoint(eid uint32, supported ...uint32) *fakeEndpoint {
	f := &fakeEndpoint{
		eid:       eid,
		supported: make(map[uint32]bool),
		configs:   make(map[configKey][]byte),
	}
	for _, eid := range supported {
		f.supported[eid] = true
	}
	return f
}

func (f *fakeEndpoint) LoadEndpoint(_ context.Context, addr common.Address) error {
	f.loaded = append(f.loaded, addr)
	return nil
}

func (f *fakeEndpoint) EID(context.Context) (uint32, error) {
	return f.eid, nil
}

func (f *fakeEndpoint) IsSupportedEid(_ context.Context, eid uint32) (bool, error) {
	return f.supported[eid], nil
}

func (f *fakeEndpoint) GetConfig(_ context.Context, oapp, lib common.Address, eid, configType uint32) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if oapp != testOApp || lib != testLib {
		return nil, errors.New("unexpected oapp or library")
	}
	return f.configs[configKey{eid, configType}], nil
}

func (f *fakeEndpoint) SetConfig(_ context.Context, oapp, lib common.Address, params []web3.SetConfigParam, opts *web3.TxOptions) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	for _, p := range params {
		f.configs[configKey{p.Eid, p.ConfigType}] = p.Config
	}
	f.sent = append(f.sent, params...)
	f.opts = opts
	return common.HexToHash("0xabcdef"), nil
}

func TestGetConfig(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("default config", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109)
		encoded, err := uln.Encode(uln.NewSingleDVN(15, common.HexToAddress("0x01")))
		c.Assert(err, qt.IsNil)
		endpoint.configs[configKey{30110, uln.ConfigTypeULN}] = encoded

		tool := New(endpoint, testOApp, testLib)
		cfg, err := tool.GetConfig(ctx, "Polygon", "arbitrum")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Confirmations, qt.Equals, uint64(15))
		c.Assert(cfg.RequiredDVNs, qt.DeepEquals, []common.Address{common.HexToAddress("0x01")})
		c.Assert(endpoint.loaded, qt.DeepEquals, []common.Address{config.Networks[config.Polygon].Endpoint})

		// the endpoint is bound only once
		_, err = tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.IsNil)
		c.Assert(endpoint.loaded, qt.HasLen, 1)
	})

	c.Run("unknown network", func(c *qt.C) {
		tool := New(newFakeEndpoint(30109), testOApp, testLib)
		_, err := tool.GetConfig(ctx, "polygon", "solana")
		c.Assert(err, qt.ErrorIs, ErrGetConfig)
		c.Assert(err, qt.ErrorIs, config.ErrUnknownNetwork)

		_, err = tool.GetConfig(ctx, "goerli", "polygon")
		c.Assert(err, qt.ErrorIs, config.ErrUnknownNetwork)
	})

	c.Run("contract failure", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109)
		endpoint.getErr = errors.New("execution reverted")
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.ErrorIs, ErrGetConfig)
		c.Assert(err, qt.ErrorMatches, "error getting config: execution reverted")
	})

	c.Run("endpoint id mismatch", func(c *qt.C) {
		endpoint := newFakeEndpoint(30110)
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.ErrorIs, ErrGetConfig)
		c.Assert(err, qt.ErrorIs, ErrEndpointMismatch)
		c.Assert(err, qt.ErrorMatches, ".*reports eid 30110, expected 30109")

		// nothing is cached after a mismatch
		encoded, err := uln.Encode(uln.NewSingleDVN(0, common.HexToAddress("0x01")))
		c.Assert(err, qt.IsNil)
		endpoint.configs[configKey{30110, uln.ConfigTypeULN}] = encoded
		endpoint.eid = 30109
		_, err = tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.IsNil)
		c.Assert(endpoint.loaded, qt.HasLen, 2)
	})

	c.Run("malformed config", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109)
		endpoint.configs[configKey{30110, uln.ConfigTypeULN}] = []byte{0x01, 0x02}
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.ErrorIs, ErrGetConfig)
	})
}

func TestSetOracle(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("target DVN is configured", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109, 30110)
		tool := New(endpoint, testOApp, testLib)

		hash, err := tool.SetOracle(ctx, "polygon", "arbitrum", false)
		c.Assert(err, qt.IsNil)
		c.Assert(hash, qt.Equals, common.HexToHash("0xabcdef"))
		c.Assert(endpoint.opts, qt.IsNil)
		c.Assert(endpoint.sent, qt.HasLen, 1)
		c.Assert(endpoint.sent[0].Eid, qt.Equals, uint32(30110))
		c.Assert(endpoint.sent[0].ConfigType, qt.Equals, uln.ConfigTypeULN)

		cfg, err := tool.GetConfig(ctx, "polygon", "arbitrum")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg, qt.DeepEquals, uln.NewSingleDVN(0, config.Networks[config.Arbitrum].DVN))
	})

	c.Run("fixed gas price", func(c *qt.C) {
		endpoint := newFakeEndpoint(30184, 30101)
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.SetOracle(ctx, "base", "ethereum", true)
		c.Assert(err, qt.IsNil)
		c.Assert(endpoint.opts, qt.IsNotNil)
		c.Assert(endpoint.opts.GasPrice.String(), qt.Equals, "500000000000")
	})

	c.Run("unsupported eid", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109)
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.SetOracle(ctx, "polygon", "arbitrum", false)
		c.Assert(err, qt.ErrorIs, ErrEndpointNotSupported)
		c.Assert(endpoint.sent, qt.HasLen, 0)
	})

	c.Run("unknown network", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109, 30110)
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.SetOracle(ctx, "polygon", "solana", false)
		c.Assert(err, qt.ErrorIs, config.ErrUnknownNetwork)
		_, err = tool.SetOracle(ctx, "goerli", "arbitrum", false)
		c.Assert(err, qt.ErrorIs, config.ErrUnknownNetwork)
		c.Assert(endpoint.sent, qt.HasLen, 0)
	})

	c.Run("send failure", func(c *qt.C) {
		endpoint := newFakeEndpoint(30109, 30110)
		endpoint.sendErr = errors.New("insufficient funds for gas * price + value")
		tool := New(endpoint, testOApp, testLib)
		_, err := tool.SetOracle(ctx, "polygon", "arbitrum", false)
		c.Assert(err, qt.ErrorMatches, "insufficient funds.*")
	})
}
