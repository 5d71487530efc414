package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

var (
	exportOut  string
	fromMirror bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the local ledger of minted artworks",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List minted artworks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, mirror, err := newLedger(cfg)
		if err != nil {
			return err
		}

		var records []types.LocalMintRecord
		if fromMirror {
			if mirror == nil {
				return fmt.Errorf("no ledger mirror configured (set REDIS_URL)")
			}
			defer mirror.Close()
			if err := mirror.Ping(cmd.Context()); err != nil {
				return err
			}
			records, err = mirror.Records(cmd.Context())
		} else {
			records, err = l.List()
		}
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println(ui.FormatInfo("No artworks minted yet"))
			return nil
		}

		for _, r := range records {
			tokenID := "?"
			if r.TokenID != nil {
				tokenID = *r.TokenID
			}
			fmt.Println(ui.FormatTitle(fmt.Sprintf("#%s %s", tokenID, r.Title)))
			fmt.Print(ui.FormatKV([]ui.KV{
				{Key: "Artist", Value: r.Artist},
				{Key: "Minted", Value: r.MintedAt.Local().Format("2006-01-02 15:04")},
				{Key: "Chain", Value: fmt.Sprintf("%d", r.ChainID)},
				{Key: "Transaction", Value: r.TxHash},
				{Key: "Token URI", Value: r.TokenURI},
				{Key: "SHA-256", Value: string(r.SHA256)},
			}))
		}
		fmt.Println(ui.FormatMuted(fmt.Sprintf("%d artwork(s)", len(records))))
		return nil
	},
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all minted artworks as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, err := newLedger(cfg)
		if err != nil {
			return err
		}

		if exportOut == "" || exportOut == "-" {
			return l.Export(os.Stdout)
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		if err := l.Export(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, ui.FormatSuccess("Exported to "+exportOut))
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().BoolVar(&fromMirror, "from-mirror", false, "read records from the Redis mirror")
	ledgerExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)
}
