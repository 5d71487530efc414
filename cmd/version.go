package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetBuildInfo()
		fmt.Println(ui.FormatTitle(info.Name + " " + version.GetVersionString()))
		fmt.Print(ui.FormatKV([]ui.KV{
			{Key: "Commit", Value: info.GitCommit},
			{Key: "Built", Value: info.BuildDate},
			{Key: "Go", Value: info.GoVersion},
			{Key: "Platform", Value: info.Platform},
		}))
	},
}
