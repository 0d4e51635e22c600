// Package uln encodes and decodes the Ultra Light Node configuration that a
// LayerZero V2 endpoint stores per (OApp, message library, remote EID).
package uln

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ConfigTypeULN is the config type id of the ULN configuration in the
// endpoint getConfig/setConfig calls. Type 1 is the executor config.
const ConfigTypeULN uint32 = 2

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid ULN config")

// Config mirrors the UlnConfig solidity struct. Field order and names must
// match the tuple components declared in ulnConfigArgs.
type Config struct {
	Confirmations        uint64
	RequiredDVNCount     uint8
	OptionalDVNCount     uint8
	OptionalDVNThreshold uint8
	RequiredDVNs         []common.Address
	OptionalDVNs         []common.Address
}

// ulnConfigArgs is tuple(uint64 confirmations, uint8 requiredDVNCount,
// uint8 optionalDVNCount, uint8 optionalDVNThreshold, address[] requiredDVNs,
// address[] optionalDVNs).
var ulnConfigArgs = func() abi.Arguments {
	t, err := abi.NewType("tuple", "UlnConfig", []abi.ArgumentMarshaling{
		{Name: "confirmations", Type: "uint64"},
		{Name: "requiredDVNCount", Type: "uint8"},
		{Name: "optionalDVNCount", Type: "uint8"},
		{Name: "optionalDVNThreshold", Type: "uint8"},
		{Name: "requiredDVNs", Type: "address[]"},
		{Name: "optionalDVNs", Type: "address[]"},
	})
	if err != nil {
		panic(fmt.Sprintf("uln: cannot build tuple type: %v", err))
	}
	return abi.Arguments{{Name: "config", Type: t}}
}()

// NewSingleDVN returns the configuration written by the tool: the given
// confirmation count, a single required DVN and no optional verifiers.
func NewSingleDVN(confirmations uint64, dvn common.Address) *Config {
	return &Config{
		Confirmations:        confirmations,
		RequiredDVNCount:     1,
		OptionalDVNCount:     0,
		OptionalDVNThreshold: 0,
		RequiredDVNs:         []common.Address{dvn},
		OptionalDVNs:         []common.Address{},
	}
}

// Validate checks the counts against the DVN lists. The endpoint also
// requires each list to be sorted ascending without duplicates.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if int(c.RequiredDVNCount) != len(c.RequiredDVNs) {
		return fmt.Errorf("%w: required count %d but %d required DVNs",
			ErrInvalidConfig, c.RequiredDVNCount, len(c.RequiredDVNs))
	}
	if int(c.OptionalDVNCount) != len(c.OptionalDVNs) {
		return fmt.Errorf("%w: optional count %d but %d optional DVNs",
			ErrInvalidConfig, c.OptionalDVNCount, len(c.OptionalDVNs))
	}
	if c.OptionalDVNThreshold > c.OptionalDVNCount {
		return fmt.Errorf("%w: optional threshold %d exceeds optional count %d",
			ErrInvalidConfig, c.OptionalDVNThreshold, c.OptionalDVNCount)
	}
	if c.OptionalDVNCount > 0 && c.OptionalDVNThreshold == 0 {
		return fmt.Errorf("%w: optional DVNs set with zero threshold", ErrInvalidConfig)
	}
	if err := assertSorted(c.RequiredDVNs); err != nil {
		return fmt.Errorf("%w: required DVNs: %v", ErrInvalidConfig, err)
	}
	if err := assertSorted(c.OptionalDVNs); err != nil {
		return fmt.Errorf("%w: optional DVNs: %v", ErrInvalidConfig, err)
	}
	return nil
}

func assertSorted(dvns []common.Address) error {
	for i := 1; i < len(dvns); i++ {
		if bytes.Compare(dvns[i-1].Bytes(), dvns[i].Bytes()) >= 0 {
			return fmt.Errorf("%s not strictly after %s", dvns[i].Hex(), dvns[i-1].Hex())
		}
	}
	return nil
}

// String returns a compact representation for logging.
func (c *Config) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("confirmations=%d required=%d%v optional=%d%v threshold=%d",
		c.Confirmations, c.RequiredDVNCount, c.RequiredDVNs,
		c.OptionalDVNCount, c.OptionalDVNs, c.OptionalDVNThreshold)
}

// Encode ABI-encodes the config as a single tuple argument, the format
// expected in SetConfigParam.config and returned by getConfig.
func Encode(c *Config) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot encode nil ULN config")
	}
	cfg := *c
	// abi packs nil slices fine, but keep the empty list explicit
	if cfg.RequiredDVNs == nil {
		cfg.RequiredDVNs = []common.Address{}
	}
	if cfg.OptionalDVNs == nil {
		cfg.OptionalDVNs = []common.Address{}
	}
	data, err := ulnConfigArgs.Pack(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ULN config: %w", err)
	}
	return data, nil
}

// Decode parses an ABI-encoded ULN config tuple.
func Decode(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode ULN config: empty data")
	}
	values, err := ulnConfigArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ULN config: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("failed to decode ULN config: expected 1 value, got %d", len(values))
	}
	cfg, ok := abi.ConvertType(values[0], new(Config)).(*Config)
	if !ok {
		return nil, fmt.Errorf("failed to decode ULN config: unexpected type %T", values[0])
	}
	return cfg, nil
}
