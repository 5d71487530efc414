package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
)

var pruneOlderThan time.Duration

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Reconcile mint transactions that were submitted but never confirmed",
	Long: "Looks up the receipt of every pending mint in the journal. Confirmed mints are added\n" +
		"to the ledger, reverted ones are dropped. Nothing is ever resubmitted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.minter.Recover(ctx)
		if err != nil {
			return err
		}

		for _, r := range report.Confirmed {
			tokenID := "unknown"
			if id := r.TokenIDString(); id != nil {
				tokenID = *id
			}
			fmt.Println(ui.FormatSuccess(fmt.Sprintf("Confirmed %s (token %s)", r.TxHash, tokenID)))
		}
		for _, tx := range report.Reverted {
			fmt.Println(ui.FormatError("Reverted " + tx))
		}
		for _, tx := range report.Pending {
			fmt.Println(ui.FormatWarning("Still pending " + tx))
		}
		for _, tx := range report.Skipped {
			fmt.Println(ui.FormatMuted("Skipped " + tx + " (other chain or contract)"))
		}
		if len(report.Confirmed)+len(report.Reverted)+len(report.Pending)+len(report.Skipped) == 0 {
			fmt.Println(ui.FormatInfo("Nothing to recover"))
		}

		if pruneOlderThan > 0 {
			journal := a.minter.Journal()
			n, err := journal.CleanupOld(pruneOlderThan)
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Println(ui.FormatWarning(fmt.Sprintf("Pruned %d journal entries older than %s", n, pruneOlderThan)))
			}
		}
		return nil
	},
}

func init() {
	recoverCmd.Flags().DurationVar(&pruneOlderThan, "prune-older-than", 0, "drop journal entries not updated for this long (0 keeps all)")
}
