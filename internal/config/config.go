package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tech-monarch/ArtMintNFT/pkg/network"
)

// DefaultPath is read when no config file is given and it exists
const DefaultPath = "artmint.yaml"

// Config is the client configuration: a YAML file with environment overrides
type Config struct {
	// PrivateKey is only taken from the environment
	PrivateKey string `yaml:"-"`

	Contract ContractConfig `yaml:"contract"`
	Network  NetworkConfig  `yaml:"network"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Mint     MintConfig     `yaml:"mint"`

	WalletBridgeURL string `yaml:"wallet_bridge_url"`
	MetricsAddr     string `yaml:"metrics_addr"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
}

// ContractConfig locates the deployed contract
type ContractConfig struct {
	Address      string `yaml:"address"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

// NetworkConfig holds the allow-list and RPC endpoints
type NetworkConfig struct {
	AllowedChains  []uint64 `yaml:"allowed_chains"`
	PreferredChain uint64   `yaml:"preferred_chain"`
	// WalletChain is the chain the wallet starts on; zero means the preferred chain
	WalletChain     uint64 `yaml:"wallet_chain"`
	LocalhostRPC    string `yaml:"localhost_rpc"`
	MumbaiRPC       string `yaml:"mumbai_rpc"`
	PolygonRPC      string `yaml:"polygon_rpc"`
	InfuraProjectID string `yaml:"infura_project_id"`
}

// StorageConfig selects and configures the storage provider
type StorageConfig struct {
	Provider       string `yaml:"provider"`
	NFTStorageKey  string `yaml:"nft_storage_key"`
	PinataJWT      string `yaml:"pinata_jwt"`
	Endpoint       string `yaml:"endpoint"`
	LocalDir       string `yaml:"local_dir"`
	Gateway        string `yaml:"gateway"`
	PlaceholderURI string `yaml:"placeholder_uri"`
}

// LedgerConfig locates the local ledger and its optional mirror
type LedgerConfig struct {
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

// MintConfig tunes mint attempts
type MintConfig struct {
	PaymentSource      string        `yaml:"payment_source"`
	FixedPaymentWei    string        `yaml:"fixed_payment_wei"`
	FallbackPaymentWei string        `yaml:"fallback_payment_wei"`
	DryRun             bool          `yaml:"dry_run"`
	GasLimit           uint64        `yaml:"gas_limit"`
	ReceiptTimeout     time.Duration `yaml:"receipt_timeout"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	WALDir             string        `yaml:"wal_dir"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			AllowedChains:  []uint64{network.ChainLocalhost, network.ChainMumbai, network.ChainPolygon},
			PreferredChain: network.ChainMumbai,
		},
		Storage: StorageConfig{
			Provider:       "nftstorage",
			Gateway:        "https://ipfs.io/ipfs/{cid}",
			PlaceholderURI: "local-metadata.json",
		},
		Ledger: LedgerConfig{
			Path:     "all_minted_artworks.json",
			RedisKey: "artmint:ledger",
		},
		Mint: MintConfig{
			PaymentSource:      "contract",
			FallbackPaymentWei: "1000000000000000000",
			DryRun:             true,
			GasLimit:           300000,
			ReceiptTimeout:     5 * time.Minute,
			PollInterval:       2 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path tries DefaultPath; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("ARTMINT_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("POLYGON_PRIVATE_KEY", &c.PrivateKey)
	setString("PRIVATE_KEY", &c.PrivateKey)
	setString("CONTRACT_ADDRESS", &c.Contract.Address)
	setString("ARTIFACTS_DIR", &c.Contract.ArtifactsDir)
	setString("LOCALHOST_RPC", &c.Network.LocalhostRPC)
	setString("MUMBAI_RPC", &c.Network.MumbaiRPC)
	setString("POLYGON_RPC", &c.Network.PolygonRPC)
	setString("INFURA_PROJECT_ID", &c.Network.InfuraProjectID)
	setString("STORAGE_PROVIDER", &c.Storage.Provider)
	setString("NFT_STORAGE_KEY", &c.Storage.NFTStorageKey)
	setString("PINATA_JWT", &c.Storage.PinataJWT)
	setString("IPFS_GATEWAY", &c.Storage.Gateway)
	setString("LEDGER_PATH", &c.Ledger.Path)
	setString("WAL_DIR", &c.Mint.WALDir)
	setString("REDIS_URL", &c.Ledger.RedisURL)
	setString("WALLET_BRIDGE_URL", &c.WalletBridgeURL)
	setString("METRICS_ADDR", &c.MetricsAddr)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)
	setString("PAYMENT_SOURCE", &c.Mint.PaymentSource)
	setString("FIXED_PAYMENT_WEI", &c.Mint.FixedPaymentWei)

	if v := os.Getenv("ALLOWED_CHAINS"); v != "" {
		ids, err := ParseChainList(v)
		if err != nil {
			return fmt.Errorf("invalid ALLOWED_CHAINS: %w", err)
		}
		c.Network.AllowedChains = ids
	}
	if v := os.Getenv("PREFERRED_CHAIN"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PREFERRED_CHAIN: %w", err)
		}
		c.Network.PreferredChain = id
	}
	if v := os.Getenv("WALLET_CHAIN"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WALLET_CHAIN: %w", err)
		}
		c.Network.WalletChain = id
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN: %w", err)
		}
		c.Mint.DryRun = b
	}
	return nil
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	if len(c.Network.AllowedChains) == 0 {
		return fmt.Errorf("allowed_chains must not be empty")
	}
	if !containsChain(c.Network.AllowedChains, c.Network.PreferredChain) {
		return fmt.Errorf("preferred chain %d is not in the allow-list %v", c.Network.PreferredChain, c.Network.AllowedChains)
	}

	switch c.Storage.Provider {
	case "nftstorage", "pinata", "local", "none":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}

	switch c.Mint.PaymentSource {
	case "contract":
	case "fixed":
		if c.Mint.FixedPaymentWei == "" {
			return fmt.Errorf("payment source fixed requires fixed_payment_wei")
		}
	default:
		return fmt.Errorf("unknown payment source %q", c.Mint.PaymentSource)
	}

	if c.Mint.FixedPaymentWei != "" {
		if _, err := ParseWei(c.Mint.FixedPaymentWei); err != nil {
			return fmt.Errorf("fixed_payment_wei: %w", err)
		}
	}
	if _, err := ParseWei(c.Mint.FallbackPaymentWei); err != nil {
		return fmt.Errorf("fallback_payment_wei: %w", err)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// StartChain is the chain the wallet connects to first
func (c *Config) StartChain() uint64 {
	if c.Network.WalletChain != 0 {
		return c.Network.WalletChain
	}
	return c.Network.PreferredChain
}

// Endpoints returns the configured RPC URL per chain.
// An Infura project id fills in the Polygon endpoints that are not set explicitly.
func (c *Config) Endpoints() map[uint64]string {
	endpoints := make(map[uint64]string)

	mumbai, polygon := c.Network.MumbaiRPC, c.Network.PolygonRPC
	if id := c.Network.InfuraProjectID; id != "" {
		if mumbai == "" {
			mumbai = "https://polygon-mumbai.infura.io/v3/" + id
		}
		if polygon == "" {
			polygon = "https://polygon-mainnet.infura.io/v3/" + id
		}
	}

	for id, url := range map[uint64]string{
		network.ChainLocalhost: c.Network.LocalhostRPC,
		network.ChainMumbai:    mumbai,
		network.ChainPolygon:   polygon,
	} {
		if url != "" {
			endpoints[id] = url
		}
	}
	return endpoints
}

// ParseWei parses a non-negative decimal wei amount
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return v, nil
}

// ParseChainList parses a comma separated list of chain ids
func ParseChainList(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no chain ids in %q", s)
	}
	return ids, nil
}

func containsChain(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
