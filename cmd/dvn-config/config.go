package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/blockdaemon/lz-dvn-config/config"
	"github.com/blockdaemon/lz-dvn-config/internal"
	"github.com/blockdaemon/lz-dvn-config/log"
	"github.com/blockdaemon/lz-dvn-config/web3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvFile   = ".env"
	defaultWait      = 120 * time.Second
	defaultLogLevel  = "debug"
	defaultLogOutput = "stdout"
	envPrefix        = "DVN"
)

// ErrMissingConfig is returned when a required setting is not defined.
var ErrMissingConfig = errors.New("ensure all variables are defined in your .env file")

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// envAliases maps config keys to the environment variables read besides the
// DVN_ prefixed ones.
var envAliases = map[string]string{
	"mnemonic":   "MNEMONIC",
	"oapp":       "OAPP_ADDRESS",
	"messagelib": "MESSAGE_LIB_ADDRESS",
	"source":     "SOURCE_NETWORK",
	"target":     "TARGET_NETWORK",
	"apikey":     "BLOCKDAEMON_API_KEY",
	"log.level":  "LOG_LEVEL",
}

// Config holds the application configuration
type Config struct {
	Mnemonic   string        `mapstructure:"mnemonic"`
	Index      uint32        `mapstructure:"index"`
	OApp       string        `mapstructure:"oapp"`
	MessageLib string        `mapstructure:"messagelib"`
	Source     string        `mapstructure:"source"`
	Target     string        `mapstructure:"target"`
	APIKey     string        `mapstructure:"apikey"`
	RPC        string        `mapstructure:"rpc"`
	GasPrice   bool          `mapstructure:"gasprice"`
	Wait       time.Duration `mapstructure:"wait"`
	ReadOnly   bool          `mapstructure:"read-only"`
	Log        LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, the .env file, environment
// variables, and defaults.
func loadConfig(args []string) (*Config, error) {
	v := viper.New()

	v.SetDefault("index", 0)
	v.SetDefault("wait", defaultWait)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)

	// Configure flags
	flags := flag.NewFlagSet("dvn-config", flag.ContinueOnError)
	envFile := flags.StringP("env", "e", defaultEnvFile, "dotenv file to load before reading the environment")
	flags.StringP("mnemonic", "m", "", "BIP-39 mnemonic of the OApp delegate account (required)")
	flags.Uint32P("index", "i", 0, "account index of the mnemonic derivation path m/44'/60'/0'/0/<index>")
	flags.String("oapp", "", "OApp contract address (required)")
	flags.String("messagelib", "", "send or receive message library address (required)")
	flags.StringP("source", "s", "", fmt.Sprintf("source network %v (required)", config.AvailableNetworks))
	flags.StringP("target", "t", "", fmt.Sprintf("target network %v (required)", config.AvailableNetworks))
	flags.StringP("apikey", "k", "", "Blockdaemon API key (required unless --rpc is set)")
	flags.String("rpc", "", "custom web3 rpc endpoint of the source network (overrides the Blockdaemon one)")
	flags.BoolP("gasprice", "g", false, fmt.Sprintf("send a legacy transaction with a fixed gas price of %d gwei", web3.FixedGasPriceGwei))
	flags.DurationP("wait", "w", defaultWait, "time to wait after the transaction before reading the config again")
	flags.Bool("read-only", false, "only read the current config, do not send any transaction")
	flags.StringP("log.level", "l", defaultLogLevel, fmt.Sprintf("log level %v", log.Levels))
	flags.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")

	// Configure usage information
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "dvn-config v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: dvn-config [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, DVN_MNEMONIC or DVN_LOG_LEVEL. The unprefixed variables\n")
		fmt.Fprintf(os.Stderr, "  %s are read too.\n", strings.Join(envAliasNames(), ", "))
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Read the current config of the polygon -> arbitrum pathway\n")
		fmt.Fprintf(os.Stderr, "  dvn-config --source=polygon --target=arbitrum --read-only\n\n")
		fmt.Fprintf(os.Stderr, "  # Set the DVN with a fixed gas price\n")
		fmt.Fprintf(os.Stderr, "  dvn-config --source=polygon --target=arbitrum --gasprice\n")
	}

	// Parse flags
	flags.SortFlags = false
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Variables already present in the environment take precedence over the
	// dotenv file.
	if err := godotenv.Load(*envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || flags.Changed("env") {
			return nil, fmt.Errorf("error loading %s: %w", *envFile, err)
		}
	}

	// Configure Viper to use environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("error binding env %s: %w", alias, err)
		}
	}

	// Bind flags to Viper
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.Target = strings.ToLower(strings.TrimSpace(cfg.Target))

	// log.Init panics on unknown levels and the package default ignores
	// them, so they are reported here.
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envAliasNames() []string {
	names := make([]string, 0, len(envAliases))
	for _, key := range []string{"mnemonic", "oapp", "messagelib", "source", "target", "apikey", "log.level"} {
		names = append(names, envAliases[key])
	}
	return names
}

// validateConfig validates the loaded configuration. It does not perform any
// network call.
func validateConfig(cfg *Config) error {
	// Validate required fields
	missing := []string{}
	required := []struct{ key, value string }{
		{"mnemonic", cfg.Mnemonic},
		{"oapp", cfg.OApp},
		{"messagelib", cfg.MessageLib},
		{"source", cfg.Source},
		{"target", cfg.Target},
	}
	if cfg.RPC == "" {
		required = append(required, struct{ key, value string }{"apikey", cfg.APIKey})
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, envAliases[r.key])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w, missing: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	// Validate addresses
	if !common.IsHexAddress(cfg.OApp) {
		return fmt.Errorf("invalid OApp address %q", cfg.OApp)
	}
	if !common.IsHexAddress(cfg.MessageLib) {
		return fmt.Errorf("invalid message library address %q", cfg.MessageLib)
	}

	// Validate networks
	if _, err := config.NetworkByName(cfg.Source); err != nil {
		return fmt.Errorf("invalid source network: %w", err)
	}
	if _, err := config.NetworkByName(cfg.Target); err != nil {
		return fmt.Errorf("invalid target network: %w", err)
	}
	if cfg.Source == cfg.Target {
		return fmt.Errorf("source and target networks must differ, got %s", cfg.Source)
	}

	if cfg.Wait < 0 {
		return fmt.Errorf("invalid wait duration %s", cfg.Wait)
	}
	return nil
}
