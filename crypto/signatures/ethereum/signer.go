// Package ethereum provides the account used to sign the endpoint
// transactions, derived from a BIP-39 mnemonic or a raw private key.
package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// DerivationPathTemplate is the BIP-44 path for Ethereum accounts, the same
// one used by ethers Wallet.fromPhrase and most wallets.
const DerivationPathTemplate = "m/44'/60'/0'/0/%d"

// Signer represents an ECDSA private key used to sign Ethereum
// transactions. It is a wrapper around the go-ethereum ecdsa.PrivateKey type.
type Signer ecdsa.PrivateKey

// Address returns the Ethereum address derived from the public key of the signer.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// HexPrivateKey returns the hex-encoded private key without 0x prefix.
func (s *Signer) HexPrivateKey() string {
	return common.Bytes2Hex(ethcrypto.FromECDSA((*ecdsa.PrivateKey)(s)))
}

// SignTx signs the transaction with the latest signer for the chain.
func (s *Signer) SignTx(tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	return signed, nil
}

// NewSignerFromHex creates a new ECDSA private key from a hex-encoded string,
// with or without 0x prefix.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	s, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not decode key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromMnemonic derives the account at the given index of the
// standard Ethereum derivation path from a BIP-39 mnemonic.
func NewSignerFromMnemonic(mnemonic string, index uint32) (*Signer, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, fmt.Errorf("empty mnemonic")
	}
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf(DerivationPathTemplate, index))
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path: %w", err)
	}
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("could not derive account %d: %w", index, err)
	}
	key, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("could not get private key of account %d: %w", index, err)
	}
	return (*Signer)(key), nil
}
