package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-monarch/ArtMintNFT/pkg/network"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ARTMINT_CONFIG", "PRIVATE_KEY", "POLYGON_PRIVATE_KEY", "CONTRACT_ADDRESS", "ARTIFACTS_DIR",
		"LOCALHOST_RPC", "MUMBAI_RPC", "POLYGON_RPC", "INFURA_PROJECT_ID", "STORAGE_PROVIDER",
		"NFT_STORAGE_KEY", "PINATA_JWT", "IPFS_GATEWAY", "LEDGER_PATH", "WAL_DIR", "REDIS_URL",
		"WALLET_BRIDGE_URL", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT", "PAYMENT_SOURCE",
		"FIXED_PAYMENT_WEI", "ALLOWED_CHAINS", "PREFERRED_CHAIN", "WALLET_CHAIN", "DRY_RUN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []uint64{network.ChainLocalhost, network.ChainMumbai, network.ChainPolygon}, cfg.Network.AllowedChains)
	assert.Equal(t, network.ChainMumbai, cfg.Network.PreferredChain)
	assert.Equal(t, network.ChainMumbai, cfg.StartChain())
	assert.Equal(t, "contract", cfg.Mint.PaymentSource)
	assert.True(t, cfg.Mint.DryRun)
	assert.Equal(t, "all_minted_artworks.json", cfg.Ledger.Path)
	assert.Equal(t, 5*time.Minute, cfg.Mint.ReceiptTimeout)
	assert.Empty(t, cfg.Endpoints())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "artmint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network:
  allowed_chains: [31337, 80001]
  preferred_chain: 31337
  mumbai_rpc: https://mumbai.example
storage:
  provider: local
mint:
  receipt_timeout: 30s
  dry_run: false
log_level: debug
`), 0644))

	t.Setenv("STORAGE_PROVIDER", "pinata")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("WALLET_CHAIN", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []uint64{31337, 80001}, cfg.Network.AllowedChains)
	assert.Equal(t, uint64(31337), cfg.Network.PreferredChain)
	assert.Equal(t, uint64(1), cfg.StartChain())
	assert.Equal(t, "pinata", cfg.Storage.Provider, "environment wins over the file")
	assert.Equal(t, "0xabc", cfg.PrivateKey)
	assert.Equal(t, 30*time.Second, cfg.Mint.ReceiptTimeout)
	assert.False(t, cfg.Mint.DryRun)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://mumbai.example", cfg.Endpoints()[network.ChainMumbai])
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ALLOWED_CHAINS", "80001,abc")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InfuraEndpoints(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("INFURA_PROJECT_ID", "proj")
	t.Setenv("POLYGON_RPC", "https://polygon.example")

	cfg, err := Load("")
	require.NoError(t, err)

	endpoints := cfg.Endpoints()
	assert.Equal(t, "https://polygon-mumbai.infura.io/v3/proj", endpoints[network.ChainMumbai])
	assert.Equal(t, "https://polygon.example", endpoints[network.ChainPolygon])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"preferred outside allow-list", func(c *Config) { c.Network.PreferredChain = 1 }},
		{"empty allow-list", func(c *Config) { c.Network.AllowedChains = nil }},
		{"unknown provider", func(c *Config) { c.Storage.Provider = "s3" }},
		{"unknown payment source", func(c *Config) { c.Mint.PaymentSource = "oracle" }},
		{"fixed without amount", func(c *Config) { c.Mint.PaymentSource = "fixed" }},
		{"non-numeric fixed amount", func(c *Config) {
			c.Mint.PaymentSource = "fixed"
			c.Mint.FixedPaymentWei = "1.5"
		}},
		{"negative fallback", func(c *Config) { c.Mint.FallbackPaymentWei = "-1" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseWei(t *testing.T) {
	v, err := ParseWei(" 1000000000000000000 ")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	for _, bad := range []string{"", "abc", "1e18", "-5"} {
		_, err := ParseWei(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseChainList(t *testing.T) {
	ids, err := ParseChainList("137, 80001,,31337")
	require.NoError(t, err)
	assert.Equal(t, []uint64{137, 80001, 31337}, ids)

	_, err = ParseChainList(" , ")
	assert.Error(t, err)
}
