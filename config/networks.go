// Package config holds the static table of networks supported by the tool:
// LayerZero endpoint IDs, endpoint contract addresses, default DVNs and the
// Blockdaemon RPC endpoints for each chain.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// APIKeyPlaceholder is replaced by the Blockdaemon API key in the RPC URLs.
const APIKeyPlaceholder = "YOUR_API_KEY"

// ErrUnknownNetwork is returned for names or endpoint IDs not in the table.
var ErrUnknownNetwork = errors.New("unknown network")

// Network describes a chain where a LayerZero V2 endpoint is deployed.
type Network struct {
	Name    string
	EID     uint32
	ChainID uint64
	// Endpoint is the LayerZero endpoint contract of the chain.
	Endpoint common.Address
	// Confirmations is the block confirmation count written in the ULN
	// config. Zero keeps the LayerZero default for the pathway.
	Confirmations uint64
	// DVN is the Blockdaemon verifier set as required DVN when this network
	// is the remote side of the pathway.
	DVN      common.Address
	RPC      string
	Explorer string
}

const (
	Ethereum  = "ethereum"
	Avalanche = "avalanche"
	Polygon   = "polygon"
	Optimism  = "optimism"
	Arbitrum  = "arbitrum"
	Fantom    = "fantom"
	Base      = "base"
)

// Networks is the table of supported networks indexed by name.
var Networks = map[string]Network{
	Ethereum: {
		Name:     Ethereum,
		EID:      30101,
		ChainID:  1,
		Endpoint: common.HexToAddress("0x7e65bdd15c8db8995f80abf0d6593b57dc8be437"),
		DVN:      common.HexToAddress("0x7E65BDd15C8Db8995F80aBf0D6593b57dc8BE437"),
		RPC:      "https://svc.blockdaemon.com/ethereum/mainnet/native?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://etherscan.io/tx/",
	},
	Avalanche: {
		Name:     Avalanche,
		EID:      30106,
		ChainID:  43114,
		Endpoint: common.HexToAddress("0xffe42dc3927a240f3459e5ec27eaabd88727173e"),
		DVN:      common.HexToAddress("0xFfe42DC3927A240f3459e5ec27EAaBD88727173E"),
		RPC:      "https://svc.blockdaemon.com/avalanche/mainnet/native?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://avascan.info/blockchain/c/tx/",
	},
	Polygon: {
		Name:     Polygon,
		EID:      30109,
		ChainID:  137,
		Endpoint: common.HexToAddress("0xa6f5ddbf0bd4d03334523465439d301080574742"),
		DVN:      common.HexToAddress("0xa6F5DDBF0Bd4D03334523465439D301080574742"),
		RPC:      "https://svc.blockdaemon.com/polygon/mainnet/native/http-rpc?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://polygonscan.com/tx/",
	},
	Optimism: {
		Name:     Optimism,
		EID:      30111,
		ChainID:  10,
		Endpoint: common.HexToAddress("0x7b8a0fd9d6ae5011d5cbd3e85ed6d5510f98c9bf"),
		DVN:      common.HexToAddress("0x7B8a0fD9D6ae5011d5cBD3E85Ed6D5510F98c9Bf"),
		RPC:      "https://svc.blockdaemon.com/optimism/mainnet/native/http-rpc?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://optimistic.etherscan.io/tx/",
	},
	Arbitrum: {
		Name:     Arbitrum,
		EID:      30110,
		ChainID:  42161,
		Endpoint: common.HexToAddress("0xddaa92ce2d2fac3f7c5eae19136e438902ab46cc"),
		DVN:      common.HexToAddress("0xddaa92ce2d2fac3f7c5eae19136e438902ab46cc"),
		RPC:      "https://svc.blockdaemon.com/arbitrum/mainnet/native/http-rpc?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://arbiscan.io/tx/",
	},
	Fantom: {
		Name:     Fantom,
		EID:      30112,
		ChainID:  250,
		Endpoint: common.HexToAddress("0x313328609a9c38459cae56625fff7f2ad6dcde3b"),
		DVN:      common.HexToAddress("0x313328609a9C38459CaE56625FFf7F2AD6dcde3b"),
		RPC:      "https://svc.blockdaemon.com/fantom/mainnet/native/http-rpc?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://ftmscan.com/tx/",
	},
	Base: {
		Name:     Base,
		EID:      30184,
		ChainID:  8453,
		Endpoint: common.HexToAddress("0x41ef29f974fc9f6772654f005271c64210425391"),
		DVN:      common.HexToAddress("0x41ef29f974fc9f6772654f005271c64210425391"),
		RPC:      "https://svc.blockdaemon.com/base/mainnet/native/http-rpc?apiKey=" + APIKeyPlaceholder,
		Explorer: "https://basescan.org/tx/",
	},
}

// AvailableNetworks contains the sorted list of supported network names.
var AvailableNetworks = func() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}()

// NetworkByName returns the network registered under name. The lookup is
// case-insensitive and ignores surrounding spaces.
func NetworkByName(name string) (*Network, error) {
	n, ok := Networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q, available networks: %v", ErrUnknownNetwork, name, AvailableNetworks)
	}
	return &n, nil
}

// NetworkByEID returns the network whose LayerZero endpoint ID is eid.
func NetworkByEID(eid uint32) (*Network, error) {
	for _, n := range Networks {
		if n.EID == eid {
			return &n, nil
		}
	}
	return nil, fmt.Errorf("%w: no network with endpoint id %d", ErrUnknownNetwork, eid)
}

// EndpointID resolves a network name to its LayerZero endpoint ID.
func EndpointID(name string) (uint32, error) {
	n, err := NetworkByName(name)
	if err != nil {
		return 0, err
	}
	return n.EID, nil
}

// EndpointAddress resolves a LayerZero endpoint ID to the endpoint contract
// address deployed on that chain.
func EndpointAddress(eid uint32) (common.Address, error) {
	n, err := NetworkByEID(eid)
	if err != nil {
		return common.Address{}, err
	}
	return n.Endpoint, nil
}

// RequiredDVNs returns the required verifiers to configure for a pathway
// towards target. Unknown targets fall back to the Ethereum DVN.
func RequiredDVNs(target string) []common.Address {
	n, err := NetworkByName(target)
	if err != nil {
		return []common.Address{Networks[Ethereum].DVN}
	}
	return []common.Address{n.DVN}
}

// RPCURL returns the Blockdaemon RPC endpoint of the network with the API
// key filled in.
func RPCURL(name, apiKey string) (string, error) {
	n, err := NetworkByName(name)
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return "", fmt.Errorf("empty API key for network %s", n.Name)
	}
	return strings.ReplaceAll(n.RPC, APIKeyPlaceholder, apiKey), nil
}

// TxURL returns the block explorer link of a transaction, or an empty string
// if the network is unknown or has no explorer.
func TxURL(name string, txHash common.Hash) string {
	n, err := NetworkByName(name)
	if err != nil || n.Explorer == "" {
		return ""
	}
	return n.Explorer + txHash.Hex()
}
