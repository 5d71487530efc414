package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/config"
	"github.com/tech-monarch/ArtMintNFT/internal/logging"
	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
	"github.com/tech-monarch/ArtMintNFT/internal/ui"
)

var (
	// Loaded by the root command before any subcommand runs
	cfg *config.Config

	configPath  string
	logLevel    string
	metricsAddr string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "artmint",
	Short: "ArtMint - mint artwork as NFTs on Polygon",
	Long: ui.FormatTitle("ArtMint") + " - NFT minting client\n\n" +
		"Hashes an artwork, uploads it with its metadata to IPFS, mints it through the\n" +
		"ArtNFT contract and keeps a local ledger of everything minted.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// Execute runs the command tree until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(userMessage(err)))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default artmint.yaml, or $ARTMINT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(tokenURICmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads configuration, logging and metrics
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if metricsAddr != "" {
		c.MetricsAddr = metricsAddr
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(c.LogLevel, c.LogFormat, os.Stderr); err != nil {
		return err
	}
	cfg = c

	if cfg.MetricsAddr != "" {
		metrics.Serve(cmd.Context(), cfg.MetricsAddr)
		logrus.WithField("addr", cfg.MetricsAddr).Info("📊 Serving metrics")
	}
	return nil
}
