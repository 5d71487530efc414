package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/adapters/chain"
	"github.com/tech-monarch/ArtMintNFT/internal/config"
	"github.com/tech-monarch/ArtMintNFT/pkg/ledger"
	"github.com/tech-monarch/ArtMintNFT/pkg/mint"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/storage"
)

// app is the wired client for commands that talk to a chain
type app struct {
	cfg        *config.Config
	registry   *network.Registry
	deployment *nft.Deployment
	ledger     *ledger.Ledger
	mirror     *ledger.RedisMirror
	wallet     *chain.EthereumWallet
	session    *mint.Session
	minter     *mint.Minter
}

func newRegistry(c *config.Config) (*network.Registry, error) {
	registry := network.DefaultRegistry()
	for id, url := range c.Endpoints() {
		if err := registry.SetRPC(id, url); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func newDeployment(c *config.Config) (*nft.Deployment, error) {
	deployment, err := nft.LoadDeployment(c.Contract.ArtifactsDir)
	if err != nil {
		return nil, err
	}
	if c.Contract.Address != "" {
		if err := deployment.WithAddress(c.Contract.Address); err != nil {
			return nil, err
		}
	}
	return deployment, nil
}

func newLedger(c *config.Config) (*ledger.Ledger, *ledger.RedisMirror, error) {
	l, err := ledger.New(c.Ledger.Path)
	if err != nil {
		return nil, nil, err
	}
	if c.Ledger.RedisURL == "" {
		return l, nil, nil
	}
	mirror, err := ledger.NewRedisMirror(c.Ledger.RedisURL, c.Ledger.RedisKey)
	if err != nil {
		return nil, nil, err
	}
	return l.WithMirror(mirror), mirror, nil
}

func newUploader(c *config.Config) (storage.Uploader, error) {
	opts := storage.Options{
		Provider: c.Storage.Provider,
		Endpoint: c.Storage.Endpoint,
		LocalDir: c.Storage.LocalDir,
	}
	switch c.Storage.Provider {
	case storage.ProviderNFTStorage:
		opts.APIKey = c.Storage.NFTStorageKey
	case storage.ProviderPinata:
		opts.APIKey = c.Storage.PinataJWT
	}
	return storage.New(opts)
}

func minterOptions(c *config.Config) (mint.Options, error) {
	opts := mint.DefaultOptions()
	opts.PaymentSource = mint.PaymentSource(c.Mint.PaymentSource)
	opts.DryRun = c.Mint.DryRun
	opts.PlaceholderURI = c.Storage.PlaceholderURI
	opts.ReceiptTimeout = c.Mint.ReceiptTimeout
	opts.PollInterval = c.Mint.PollInterval
	opts.FallbackGasLimit = c.Mint.GasLimit

	fallback, err := config.ParseWei(c.Mint.FallbackPaymentWei)
	if err != nil {
		return opts, err
	}
	opts.FallbackPayment = fallback

	if c.Mint.FixedPaymentWei != "" {
		fixed, err := config.ParseWei(c.Mint.FixedPaymentWei)
		if err != nil {
			return opts, err
		}
		opts.FixedPayment = fixed
	}
	return opts, nil
}

// newApp wires the wallet, session and minter and connects the wallet
func newApp(ctx context.Context, c *config.Config) (*app, error) {
	if c.PrivateKey == "" {
		return nil, errors.New("PRIVATE_KEY is not set")
	}

	registry, err := newRegistry(c)
	if err != nil {
		return nil, err
	}
	gatekeeper, err := network.NewGatekeeper(registry, c.Network.AllowedChains, c.Network.PreferredChain)
	if err != nil {
		return nil, err
	}
	deployment, err := newDeployment(c)
	if err != nil {
		return nil, err
	}
	l, mirror, err := newLedger(c)
	if err != nil {
		return nil, err
	}
	uploader, err := newUploader(c)
	if err != nil {
		return nil, err
	}
	opts, err := minterOptions(c)
	if err != nil {
		return nil, err
	}

	// The wallet only knows explicitly configured chains plus the one it starts on;
	// other allowed chains are added through the gatekeeper when needed.
	start := c.StartChain()
	endpoints := c.Endpoints()
	if _, ok := endpoints[start]; !ok {
		if known, ok := registry.Lookup(start); ok && known.RPCURL != "" {
			endpoints[start] = known.RPCURL
		}
	}
	wallet, err := chain.NewEthereumWallet(c.PrivateKey, endpoints, start)
	if err != nil {
		return nil, err
	}

	session := mint.NewSession(wallet, gatekeeper)
	if err := session.Connect(ctx); err != nil {
		wallet.Close()
		return nil, err
	}

	journal := mint.NewJournal()
	if c.Mint.WALDir != "" {
		journal = mint.NewJournalWithDir(c.Mint.WALDir)
	}

	minter, err := mint.NewMinter(mint.MinterConfig{
		Session:    session,
		Deployment: deployment,
		Uploader:   uploader,
		Ledger:     l,
		Journal:    journal,
		Options:    opts,
	})
	if err != nil {
		wallet.Close()
		return nil, err
	}

	return &app{
		cfg:        c,
		registry:   registry,
		deployment: deployment,
		ledger:     l,
		mirror:     mirror,
		wallet:     wallet,
		session:    session,
		minter:     minter,
	}, nil
}

// watch feeds wallet notifications into the session until ctx ends
func (a *app) watch(ctx context.Context) {
	go a.session.Watch(ctx, a.wallet.Events())

	if a.cfg.WalletBridgeURL == "" {
		return
	}
	events := make(chan network.Event, 8)
	bridge := chain.NewBridge(a.cfg.WalletBridgeURL, a.wallet)
	go func() {
		if err := bridge.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Warn("⚠️ Wallet bridge stopped")
		}
	}()
	go a.session.Watch(ctx, events)
}

func (a *app) Close() {
	a.wallet.Close()
	if a.mirror != nil {
		a.mirror.Close()
	}
}

// explorerTxURL links a transaction on the chain's block explorer, if it has one
func (a *app) explorerTxURL(chainID uint64, txHash string) string {
	c, ok := a.registry.Lookup(chainID)
	if !ok || c.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%stx/%s", c.ExplorerURL, txHash)
}

// userMessage unwraps mint failures into their user-facing text
func userMessage(err error) string {
	var mintErr *mint.Error
	if errors.As(err, &mintErr) {
		return mintErr.UserMessage()
	}
	return err.Error()
}
