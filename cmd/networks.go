package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Show the networks minting is allowed on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry(cfg)
		if err != nil {
			return err
		}

		fmt.Println(ui.FormatMuted("Allowed chains: " + network.FormatAllowList(cfg.Network.AllowedChains)))
		for _, id := range cfg.Network.AllowedChains {
			title := fmt.Sprintf("Unknown (%d)", id)
			var rows []ui.KV
			if c, ok := registry.Lookup(id); ok {
				title = c.Label()
				rows = []ui.KV{
					{Key: "Chain ID", Value: fmt.Sprintf("%d (%s)", c.ID, c.AddParams().ChainID)},
					{Key: "RPC", Value: c.RPCURL},
					{Key: "Explorer", Value: c.ExplorerURL},
				}
			}
			if id == cfg.Network.PreferredChain {
				title += " " + ui.FormatMuted("(preferred)")
			}
			fmt.Println(ui.FormatTitle(title))
			fmt.Print(ui.FormatKV(rows))
		}
		return nil
	},
}
