package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Print the SHA-256 digest and CIDv1 of an artwork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, data, err := nft.LoadAsset(args[0])
		if err != nil {
			return err
		}
		cid, err := nft.ComputeCID(data)
		if err != nil {
			return err
		}

		fmt.Println(ui.FormatTitle(asset.Name))
		fmt.Print(ui.FormatKV([]ui.KV{
			{Key: "SHA-256", Value: string(asset.Hash)},
			{Key: "CID", Value: cid},
			{Key: "Size", Value: fmt.Sprintf("%d bytes", asset.Size)},
		}))
		return nil
	},
}
