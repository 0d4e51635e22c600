package web3

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/blockdaemon/lz-dvn-config/web3/rpc"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrReverted wraps the decoded reason of a call rejected by the contract.
var ErrReverted = errors.New("execution reverted")

// DecodeRevert returns a human readable description of the revert data
// returned by the endpoint, matching it against the custom errors declared
// in EndpointV2ABI and the standard Error(string). It returns false if the
// data cannot be decoded.
func (c *Contracts) DecodeRevert(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	for name, abiErr := range c.EndpointABI.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}
		values, err := abiErr.Unpack(data)
		if err != nil {
			return name, true
		}
		args, ok := values.([]any)
		if !ok || len(args) == 0 {
			return name, true
		}
		strArgs := make([]string, 0, len(args))
		for _, a := range args {
			strArgs = append(strArgs, fmt.Sprint(a))
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(strArgs, ",")), true
	}
	return "", false
}

// explainRevert replaces the opaque revert data of err with the decoded
// reason, when possible. Other errors are returned unchanged.
func (c *Contracts) explainRevert(err error) error {
	if !rpc.IsPermanentError(err) {
		return err
	}
	rpcErr := rpc.ParseError(err)
	if reason, ok := c.DecodeRevert(rpcErr.Data); ok {
		return fmt.Errorf("%w: %s", ErrReverted, reason)
	}
	return fmt.Errorf("%w: %v", ErrReverted, err)
}

// isAlreadyKnown reports whether the node already holds the transaction in
// its pool.
func isAlreadyKnown(err error) bool {
	return containsErr(err, "already known")
}

func containsErr(err error, sub string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), strings.ToLower(sub))
}
