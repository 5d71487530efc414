package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/tech-monarch/ArtMintNFT/internal/ui"
	"github.com/tech-monarch/ArtMintNFT/pkg/mint"
)

var tokenURIChain uint64

var tokenURICmd = &cobra.Command{
	Use:   "token-uri <token-id>",
	Short: "Read the token URI stored by the contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, ok := new(big.Int).SetString(args[0], 10)
		if !ok || tokenID.Sign() < 0 {
			return fmt.Errorf("invalid token id %q", args[0])
		}

		registry, err := newRegistry(cfg)
		if err != nil {
			return err
		}
		deployment, err := newDeployment(cfg)
		if err != nil {
			return err
		}

		chainID := tokenURIChain
		if chainID == 0 {
			chainID = cfg.Network.PreferredChain
		}
		c, ok := registry.Lookup(chainID)
		if !ok || c.RPCURL == "" {
			return fmt.Errorf("no RPC endpoint for chain %d", chainID)
		}

		client, err := ethclient.DialContext(cmd.Context(), c.RPCURL)
		if err != nil {
			return fmt.Errorf("failed to connect to RPC: %w", err)
		}
		defer client.Close()

		uri, err := mint.NewChainClient(client, deployment.Address, deployment.ABI).TokenURI(cmd.Context(), tokenID)
		if err != nil {
			return err
		}

		fmt.Print(ui.FormatKV([]ui.KV{
			{Key: "Token ID", Value: tokenID.String()},
			{Key: "Contract", Value: deployment.Address.Hex()},
			{Key: "Token URI", Value: uri},
		}))
		return nil
	},
}

func init() {
	tokenURICmd.Flags().Uint64Var(&tokenURIChain, "chain", 0, "chain id to read from (default the preferred chain)")
}
