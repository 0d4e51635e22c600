// Command dvn-config sets the Blockdaemon DVN as the required verifier of a
// LayerZero OApp pathway and reports the ULN config before and after.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockdaemon/lz-dvn-config/config"
	"github.com/blockdaemon/lz-dvn-config/crypto/signatures/ethereum"
	"github.com/blockdaemon/lz-dvn-config/dvn"
	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/blockdaemon/lz-dvn-config/web3"
	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
)

func main() {
	// Load configuration
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting dvn-config", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Cancel the wait on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, web3.New)
	cancel()
	if err != nil {
		log.Fatalf("There was an error: %v", err)
	}
}

// connectFunc returns the endpoint contracts served by the web3 RPC URL.
type connectFunc func(ctx context.Context, web3rpc string) (*web3.Contracts, error)

// run connects to the source network, reads the current DVN config, sets the
// Blockdaemon DVN and reads the config again after cfg.Wait.
func run(ctx context.Context, cfg *Config, connect connectFunc) error {
	source, err := config.NetworkByName(cfg.Source)
	if err != nil {
		return err
	}

	signer, err := ethereum.NewSignerFromMnemonic(cfg.Mnemonic, cfg.Index)
	if err != nil {
		return fmt.Errorf("failed to derive signer: %w", err)
	}

	w3rpc := cfg.RPC
	if w3rpc == "" {
		if w3rpc, err = config.RPCURL(source.Name, cfg.APIKey); err != nil {
			return err
		}
	}

	log.Info("initializing web3 contracts")
	contracts, err := connect(ctx, w3rpc)
	if err != nil {
		return fmt.Errorf("failed to initialize web3 client: %w", err)
	}
	defer contracts.Close()
	if contracts.ChainID != source.ChainID {
		return fmt.Errorf("rpc endpoint serves chain %d, network %s is chain %d",
			contracts.ChainID, source.Name, source.ChainID)
	}
	contracts.SetAccountSigner(signer)

	log.Infow("contracts initialized",
		"chainId", contracts.ChainID,
		"account", contracts.AccountAddress().Hex(),
		"oapp", cfg.OApp,
		"source", source.Name,
		"target", cfg.Target,
		"endpoint", source.Endpoint.Hex())

	tool := dvn.New(contracts, common.HexToAddress(cfg.OApp), common.HexToAddress(cfg.MessageLib))

	initial, err := tool.GetConfig(ctx, cfg.Source, cfg.Target)
	if err != nil {
		return err
	}
	log.Infow("initial oracle", "requiredDVNs", initial.RequiredDVNs, "config", initial.String())
	if cfg.ReadOnly {
		return nil
	}

	hash, err := tool.SetOracle(ctx, cfg.Source, cfg.Target, cfg.GasPrice)
	if err != nil {
		log.Error("transaction unsuccessful")
		return err
	}
	log.Infow("change config transaction sent successfully",
		"hash", hash.Hex(),
		"explorer", config.TxURL(source.Name, hash))

	log.Infof("waiting %s for the oracle to update", cfg.Wait)
	if err := sleep(ctx, cfg.Wait); err != nil {
		return fmt.Errorf("wait interrupted: %w", err)
	}

	switch ok, err := contracts.CheckTxStatus(ctx, hash); {
	case err != nil:
		log.Warnw("could not get transaction status", "hash", hash.Hex(), "error", err)
	case !ok:
		log.Warnw("transaction reverted", "hash", hash.Hex())
	}

	updated, err := tool.GetConfig(ctx, cfg.Source, cfg.Target)
	if err != nil {
		return err
	}
	log.Infow("updated oracle", "requiredDVNs", updated.RequiredDVNs, "config", updated.String())
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
