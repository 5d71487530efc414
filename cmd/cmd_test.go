package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tech-monarch/ArtMintNFT/internal/config"
	"github.com/tech-monarch/ArtMintNFT/pkg/mint"
	"github.com/tech-monarch/ArtMintNFT/pkg/storage"
)

// TestCommandStructure verifies that all commands are properly registered
func TestCommandStructure(t *testing.T) {
	commands := [][]string{
		{"hash"}, {"mint"}, {"ledger"}, {"ledger", "list"}, {"ledger", "export"},
		{"networks"}, {"recover"}, {"token-uri"}, {"version"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			cmd, _, err := rootCmd.Find(path)
			if err != nil {
				t.Fatalf("Command '%v' not found: %v", path, err)
			}
			if cmd.Short == "" {
				t.Errorf("Command '%v' has no Short description", path)
			}
		})
	}
}

// TestFlagsExist verifies important flags are registered
func TestFlagsExist(t *testing.T) {
	tests := []struct {
		command  []string
		flagName string
	}{
		{[]string{"mint"}, "title"},
		{[]string{"mint"}, "artist"},
		{[]string{"mint"}, "description"},
		{[]string{"ledger", "export"}, "out"},
		{[]string{"ledger", "list"}, "from-mirror"},
		{[]string{"recover"}, "prune-older-than"},
		{[]string{"token-uri"}, "chain"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.command, "_")+"_"+tt.flagName, func(t *testing.T) {
			cmd, _, err := rootCmd.Find(tt.command)
			if err != nil {
				t.Fatalf("Command '%v' not found: %v", tt.command, err)
			}
			if cmd.Flags().Lookup(tt.flagName) == nil {
				t.Errorf("Flag '%s' not found on '%v'", tt.flagName, tt.command)
			}
		})
	}

	for _, name := range []string{"config", "log-level", "metrics-addr"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Global flag '%s' not found", name)
		}
	}
}

func TestMinterOptions(t *testing.T) {
	c := config.Default()
	c.Mint.PaymentSource = "fixed"
	c.Mint.FixedPaymentWei = "42"
	c.Mint.DryRun = false

	opts, err := minterOptions(c)
	if err != nil {
		t.Fatalf("minterOptions() error = %v", err)
	}
	if opts.PaymentSource != mint.PaymentFixed {
		t.Errorf("PaymentSource = %v, want %v", opts.PaymentSource, mint.PaymentFixed)
	}
	if opts.FixedPayment.String() != "42" {
		t.Errorf("FixedPayment = %v, want 42", opts.FixedPayment)
	}
	if opts.FallbackPayment.String() != "1000000000000000000" {
		t.Errorf("FallbackPayment = %v", opts.FallbackPayment)
	}
	if opts.DryRun {
		t.Error("DryRun should follow the config")
	}
	if opts.FallbackGasLimit != mint.DefaultGasLimit {
		t.Errorf("FallbackGasLimit = %v, want %v", opts.FallbackGasLimit, mint.DefaultGasLimit)
	}
}

func TestNewUploader(t *testing.T) {
	c := config.Default()

	c.Storage.Provider = storage.ProviderNone
	up, err := newUploader(c)
	if err != nil || up != nil {
		t.Errorf("newUploader(none) = %v, %v; want nil, nil", up, err)
	}

	c.Storage.Provider = storage.ProviderLocal
	c.Storage.LocalDir = t.TempDir()
	up, err = newUploader(c)
	if err != nil {
		t.Fatalf("newUploader(local) error = %v", err)
	}
	if up.Name() != storage.ProviderLocal {
		t.Errorf("Name() = %v, want %v", up.Name(), storage.ProviderLocal)
	}
}

func TestUserMessage(t *testing.T) {
	err := &mint.Error{Kind: mint.KindNetworkUnsupported, Reason: "wrong network: please switch to Polygon Mumbai Testnet (chain 80001)"}
	if got := userMessage(err); !strings.HasPrefix(got, "Wrong network:") {
		t.Errorf("userMessage() = %q", got)
	}
	if got := userMessage(errors.New("plain")); got != "plain" {
		t.Errorf("userMessage() = %q, want %q", got, "plain")
	}
}

func TestLedgerExportCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ARTMINT_CONFIG", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LEDGER_PATH", filepath.Join(dir, "ledger.json"))

	out := filepath.Join(dir, "export.json")
	rootCmd.SetArgs([]string{"ledger", "export", "--out", out})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("ledger export error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not a JSON array: %v\n%s", err, data)
	}
	if len(records) != 0 {
		t.Errorf("expected empty export, got %d records", len(records))
	}
}

func TestNetworksCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ARTMINT_CONFIG", "")
	t.Setenv("ALLOWED_CHAINS", "31337,80001")
	t.Setenv("PREFERRED_CHAIN", "80001")

	rootCmd.SetArgs([]string{"networks"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("networks error = %v", err)
	}
}
