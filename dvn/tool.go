// Package dvn reads and updates the DVN configuration of a LayerZero OApp
// on the endpoint of its source network.
package dvn

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockdaemon/lz-dvn-config/config"
	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/blockdaemon/lz-dvn-config/uln"
	"github.com/blockdaemon/lz-dvn-config/web3"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrGetConfig wraps any failure reading the ULN config from the endpoint.
	ErrGetConfig = errors.New("error getting config")
	// ErrEndpointNotSupported is returned when the source endpoint has no
	// library configured for the target endpoint id.
	ErrEndpointNotSupported = errors.New("endpoint not supported")
	// ErrEndpointMismatch is returned when the contract at the endpoint
	// address of the source network reports a different endpoint id.
	ErrEndpointMismatch = errors.New("endpoint id mismatch")
)

// Endpoint is the endpoint contract API used by the Tool. *web3.Contracts
// implements it.
type Endpoint interface {
	LoadEndpoint(ctx context.Context, addr common.Address) error
	EID(ctx context.Context) (uint32, error)
	IsSupportedEid(ctx context.Context, eid uint32) (bool, error)
	GetConfig(ctx context.Context, oapp, lib common.Address, eid, configType uint32) ([]byte, error)
	SetConfig(ctx context.Context, oapp, lib common.Address, params []web3.SetConfigParam, opts *web3.TxOptions) (common.Hash, error)
}

var _ Endpoint = (*web3.Contracts)(nil)

// Tool configures the DVN of one OApp and message library.
type Tool struct {
	OApp       common.Address
	MessageLib common.Address

	endpoint Endpoint
	// loaded is the endpoint id of the bound endpoint, zero if none.
	loaded uint32
}

// New returns a Tool that talks to the endpoint through e, which must be
// connected to the chain of the source network used in the calls.
func New(e Endpoint, oapp, messageLib common.Address) *Tool {
	return &Tool{
		OApp:       oapp,
		MessageLib: messageLib,
		endpoint:   e,
	}
}

// GetConfig returns the ULN config stored by the source endpoint for the
// pathway to target.
func (t *Tool) GetConfig(ctx context.Context, source, target string) (*uln.Config, error) {
	cfg, err := t.getConfig(ctx, source, target)
	if err != nil {
		log.Errorw(err, "failed to get config")
		return nil, fmt.Errorf("%w: %w", ErrGetConfig, err)
	}
	return cfg, nil
}

func (t *Tool) getConfig(ctx context.Context, source, target string) (*uln.Config, error) {
	targetEID, err := config.EndpointID(target)
	if err != nil {
		return nil, err
	}
	sourceEID, err := t.loadEndpoint(ctx, source)
	if err != nil {
		return nil, err
	}
	raw, err := t.endpoint.GetConfig(ctx, t.OApp, t.MessageLib, targetEID, uln.ConfigTypeULN)
	if err != nil {
		return nil, err
	}
	cfg, err := uln.Decode(raw)
	if err != nil {
		return nil, err
	}
	log.Debugw("ULN config read",
		"sourceEID", sourceEID,
		"targetEID", targetEID,
		"config", cfg.String())
	return cfg, nil
}

// SetOracle sets the Blockdaemon DVN of the target network as the single
// required DVN of the OApp for the pathway from source to target. If gas is
// true the transaction is sent with a fixed legacy gas price. It returns the
// hash of the transaction once it has been accepted by the node.
func (t *Tool) SetOracle(ctx context.Context, source, target string, gas bool) (common.Hash, error) {
	targetNet, err := config.NetworkByName(target)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := t.loadEndpoint(ctx, source); err != nil {
		return common.Hash{}, err
	}

	ulnConfig := uln.NewSingleDVN(targetNet.Confirmations, config.RequiredDVNs(targetNet.Name)[0])
	if err := ulnConfig.Validate(); err != nil {
		return common.Hash{}, err
	}
	encoded, err := uln.Encode(ulnConfig)
	if err != nil {
		return common.Hash{}, err
	}
	log.Infow("setting oracle", "oapp", t.OApp.Hex(), "messageLib", t.MessageLib.Hex())
	log.Infof("ULN encoded config: %#x", encoded)

	param := web3.SetConfigParam{
		Eid:        targetNet.EID,
		ConfigType: uln.ConfigTypeULN,
		Config:     encoded,
	}
	log.Infof("OApp encoded config: %s", param)

	supported, err := t.endpoint.IsSupportedEid(ctx, targetNet.EID)
	if err != nil {
		return common.Hash{}, err
	}
	if !supported {
		return common.Hash{}, fmt.Errorf("%w: eid %d", ErrEndpointNotSupported, targetNet.EID)
	}

	var opts *web3.TxOptions
	if gas {
		opts = &web3.TxOptions{GasPrice: web3.FixedGasPrice()}
	}
	hash, err := t.endpoint.SetConfig(ctx, t.OApp, t.MessageLib, []web3.SetConfigParam{param}, opts)
	if err != nil {
		log.Errorw(err, "failed to send setConfig transaction")
		return common.Hash{}, err
	}
	log.Tracew("setConfig transaction sent", "hash", hash.Hex())
	return hash, nil
}

// loadEndpoint binds the endpoint contract of the source network, checks
// that it reports the endpoint id of the network and returns it.
func (t *Tool) loadEndpoint(ctx context.Context, source string) (uint32, error) {
	eid, err := config.EndpointID(source)
	if err != nil {
		return 0, err
	}
	if eid == t.loaded {
		return eid, nil
	}
	addr, err := config.EndpointAddress(eid)
	if err != nil {
		return 0, err
	}
	log.Infow("loading endpoint", "network", source, "eid", eid, "address", addr.Hex())
	if err := t.endpoint.LoadEndpoint(ctx, addr); err != nil {
		return 0, err
	}
	onchain, err := t.endpoint.EID(ctx)
	if err != nil {
		return 0, err
	}
	if onchain != eid {
		return 0, fmt.Errorf("%w: %s endpoint %s reports eid %d, expected %d",
			ErrEndpointMismatch, source, addr.Hex(), onchain, eid)
	}
	t.loaded = eid
	return eid, nil
}
