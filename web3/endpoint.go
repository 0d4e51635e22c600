package web3

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SetConfigParam mirrors the SetConfigParam solidity struct taken by the
// endpoint setConfig function.
type SetConfigParam struct {
	Eid        uint32 `abi:"eid"`
	ConfigType uint32 `abi:"configType"`
	Config     []byte `abi:"config"`
}

func (p SetConfigParam) String() string {
	return fmt.Sprintf("{eid: %d, configType: %d, config: %#x}", p.Eid, p.ConfigType, p.Config)
}

// IsSupportedEid returns whether the endpoint has a default library
// configured for the remote endpoint id.
func (c *Contracts) IsSupportedEid(ctx context.Context, eid uint32) (bool, error) {
	out, err := c.call(ctx, "isSupportedEid", eid)
	if err != nil {
		return false, err
	}
	supported, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isSupportedEid output type %T", out[0])
	}
	return supported, nil
}

// EID returns the endpoint id of the loaded endpoint contract.
func (c *Contracts) EID(ctx context.Context) (uint32, error) {
	out, err := c.call(ctx, "eid")
	if err != nil {
		return 0, err
	}
	eid, ok := out[0].(uint32)
	if !ok {
		return 0, fmt.Errorf("unexpected eid output type %T", out[0])
	}
	return eid, nil
}

// GetConfig returns the raw configuration of the given type stored by the
// endpoint for the OApp, message library and remote endpoint id.
func (c *Contracts) GetConfig(ctx context.Context, oapp, lib common.Address, eid, configType uint32) ([]byte, error) {
	out, err := c.call(ctx, "getConfig", oapp, lib, eid, configType)
	if err != nil {
		return nil, err
	}
	config, ok := out[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected getConfig output type %T", out[0])
	}
	return config, nil
}

// SetConfig sends a transaction updating the configuration of the OApp for
// the given message library. It returns the hash of the transaction, which
// may not be mined yet; use WaitTx to wait for it.
func (c *Contracts) SetConfig(ctx context.Context, oapp, lib common.Address, params []SetConfigParam, opts *TxOptions) (common.Hash, error) {
	if len(params) == 0 {
		return common.Hash{}, fmt.Errorf("no config params")
	}
	data, err := c.EndpointABI.Pack("setConfig", oapp, lib, params)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack setConfig: %w", err)
	}
	return c.sendTx(ctx, data, opts)
}
