package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/storage"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

var (
	mintTitle       string
	mintArtist      string
	mintDescription string
)

var mintCmd = &cobra.Command{
	Use:   "mint <file>",
	Short: "Upload an artwork and mint it",
	Long: "Hashes the artwork, checks the wallet network, uploads the image and its metadata,\n" +
		"submits the mint transaction and records the result in the local ledger.",
	Args: cobra.ExactArgs(1),
	RunE: runMint,
}

func init() {
	mintCmd.Flags().StringVarP(&mintTitle, "title", "t", "", "artwork title (default \""+nft.DefaultTitle+"\")")
	mintCmd.Flags().StringVarP(&mintArtist, "artist", "a", "", "artist name")
	mintCmd.Flags().StringVarP(&mintDescription, "description", "d", "", "artwork description")
}

func runMint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asset, _, err := nft.LoadAsset(args[0])
	if err != nil {
		return err
	}
	fmt.Println(ui.FormatInfo(fmt.Sprintf("%s %s", asset.Name, ui.FormatMuted(string(asset.Hash)))))

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.watch(ctx)

	a.session.SelectAsset(asset)
	intent := types.MintIntent{
		Title:       mintTitle,
		Artist:      mintArtist,
		Description: mintDescription,
		AssetHash:   asset.Hash,
		CreatedAt:   time.Now().UTC(),
	}

	chain := a.session.ChainContext()
	fmt.Println(ui.FormatInfo(fmt.Sprintf("Wallet %s on %s", a.wallet.Address().Hex(), chain.Network)))

	result, err := a.minter.Mint(ctx, intent)
	if err != nil {
		return err
	}

	tokenID := "unknown"
	if id := result.TokenIDString(); id != nil {
		tokenID = *id
	}

	fmt.Println(ui.FormatSuccess(ui.IconMint + " Minted " + nft.Title(intent)))
	rows := []ui.KV{
		{Key: "Token ID", Value: tokenID},
		{Key: "Contract", Value: result.ContractAddress},
		{Key: "Chain", Value: strconv.FormatUint(result.ChainID, 10)},
		{Key: "Block", Value: strconv.FormatUint(result.BlockNumber, 10)},
		{Key: "Transaction", Value: result.TxHash},
		{Key: "Explorer", Value: a.explorerTxURL(result.ChainID, result.TxHash)},
		{Key: "Token URI", Value: result.TokenURI},
	}
	if cid, ok := strings.CutPrefix(result.TokenURI, "ipfs://"); ok {
		rows = append(rows, ui.KV{Key: "Metadata", Value: storage.GatewayURL(cfg.Storage.Gateway, cid)})
	}
	fmt.Print(ui.FormatKV(rows))

	if result.NotRecorded {
		fmt.Println(ui.FormatWarning("The mint was confirmed but the local ledger could not be written; run 'artmint recover' to add it"))
	}
	if result.TokenID == nil {
		fmt.Println(ui.FormatWarning("The mint was confirmed but no token id was found in the receipt"))
	}
	return nil
}
