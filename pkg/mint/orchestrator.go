package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
	"github.com/tech-monarch/ArtMintNFT/pkg/ledger"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/storage"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// PaymentSource decides where the attached mint value comes from
type PaymentSource string

const (
	PaymentFromContract PaymentSource = "contract"
	PaymentFixed        PaymentSource = "fixed"
)

// Options tunes a Minter
type Options struct {
	PaymentSource PaymentSource
	// FixedPayment is attached when PaymentSource is PaymentFixed
	FixedPayment *big.Int
	// FallbackPayment is attached when reading MINTING_COST fails.
	// Demo use only: the contract may revert or refund.
	FallbackPayment *big.Int

	DryRun           bool
	PlaceholderURI   string
	ReceiptTimeout   time.Duration
	PollInterval     time.Duration
	FallbackGasLimit uint64
}

// DefaultOptions returns contract-sourced payment with a 1.0 unit fallback and dry runs on
func DefaultOptions() Options {
	return Options{
		PaymentSource:    PaymentFromContract,
		FallbackPayment:  nft.DefaultMintPrice(),
		DryRun:           true,
		PlaceholderURI:   storage.DefaultPlaceholderURI,
		ReceiptTimeout:   DefaultReceiptTimeout,
		PollInterval:     DefaultPollInterval,
		FallbackGasLimit: DefaultGasLimit,
	}
}

// MinterConfig wires a Minter
type MinterConfig struct {
	Session    *Session
	Deployment *nft.Deployment
	// Uploader is nil in placeholder mode
	Uploader storage.Uploader
	Ledger   *ledger.Ledger
	Journal  *Journal
	Options  Options
}

// Minter runs mint attempts, one at a time per session
type Minter struct {
	session    *Session
	deployment *nft.Deployment
	uploader   storage.Uploader
	ledger     *ledger.Ledger
	journal    *Journal
	opts       Options
}

// NewMinter validates cfg and creates a Minter
func NewMinter(cfg MinterConfig) (*Minter, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Deployment == nil {
		return nil, fmt.Errorf("deployment is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	opts := cfg.Options
	if opts.PaymentSource == "" {
		opts.PaymentSource = PaymentFromContract
	}
	if opts.PaymentSource == PaymentFixed && opts.FixedPayment == nil {
		return nil, fmt.Errorf("fixed payment source requires a payment amount")
	}
	if opts.FallbackPayment == nil {
		opts.FallbackPayment = nft.DefaultMintPrice()
	}
	if opts.PlaceholderURI == "" {
		opts.PlaceholderURI = storage.DefaultPlaceholderURI
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = DefaultReceiptTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FallbackGasLimit == 0 {
		opts.FallbackGasLimit = DefaultGasLimit
	}

	journal := cfg.Journal
	if journal == nil {
		journal = NewJournal()
	}

	return &Minter{
		session:    cfg.Session,
		deployment: cfg.Deployment,
		uploader:   cfg.Uploader,
		ledger:     cfg.Ledger,
		journal:    journal,
		opts:       opts,
	}, nil
}

// Session returns the minter's session
func (m *Minter) Session() *Session { return m.session }

// Journal returns the pending-transaction journal
func (m *Minter) Journal() *Journal { return m.journal }

func (m *Minter) chainClient() (*ChainClient, error) {
	backend, err := m.session.wallet.Backend()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain backend: %w", err)
	}
	return NewChainClient(backend, m.deployment.Address, m.deployment.ABI).WithPollInterval(m.opts.PollInterval), nil
}

// Mint performs exactly one mint attempt for intent.
// Failures are *Error values; no failure is retried.
func (m *Minter) Mint(ctx context.Context, intent types.MintIntent) (result *types.MintResult, err error) {
	if !m.session.acquire() {
		return nil, newError(KindPreconditionNotMet, "another mint is already in progress", nil)
	}
	defer m.session.release()

	start := time.Now()
	defer func() {
		outcome := "success"
		var mintErr *Error
		if errors.As(err, &mintErr) {
			outcome = string(mintErr.Kind)
		} else if err != nil {
			outcome = "error"
		}
		metrics.MintAttempts.WithLabelValues(outcome).Inc()
		if err == nil {
			metrics.MintDuration.Observe(time.Since(start).Seconds())
		}
	}()

	attemptID := uuid.NewString()
	log := logger.WithField("attempt", attemptID)

	// (1) digest present and bound to the selected asset
	_, accounts, asset := m.session.Snapshot()
	if intent.AssetHash == "" || asset == nil {
		return nil, newError(KindPreconditionNotMet, "generate the asset hash before minting", nil)
	}
	if intent.AssetHash != asset.Hash {
		return nil, newError(KindPreconditionNotMet, "asset was replaced since the hash was computed", nil)
	}
	if err := asset.Current(); errors.Is(err, nft.ErrAssetChanged) {
		return nil, newError(KindPreconditionNotMet, "asset was modified since the hash was computed", err)
	}
	if v := intent.Validate(); !v.IsValid {
		return nil, newError(KindPreconditionNotMet, "invalid mint details: "+strings.Join(v.Errors, "; "), nil)
	}

	// (2) wallet connected
	if len(accounts) == 0 {
		return nil, newError(KindPreconditionNotMet, "connect a wallet before minting", network.ErrNotConnected)
	}

	// (3) supported network
	status, err := m.session.EnsureNetwork(ctx)
	if err != nil {
		if errors.Is(err, network.ErrNotConnected) {
			return nil, newError(KindPreconditionNotMet, "connect a wallet before minting", err)
		}
		reason := status.Reason
		if reason == "" {
			reason = err.Error()
		}
		return nil, newError(KindNetworkUnsupported, reason, err)
	}

	// The attempt works on this snapshot from here on
	chain, accounts, _ := m.session.Snapshot()
	if !chain.Supported || chain.ChainID != status.ChainID {
		return nil, newError(KindNetworkUnsupported,
			fmt.Sprintf("network changed to %s during the network check", chain.Network), nil)
	}
	if len(accounts) == 0 {
		return nil, newError(KindPreconditionNotMet, "wallet disconnected", network.ErrNotConnected)
	}
	from := m.session.wallet.Address()

	// (4) asset file still present
	image, err := asset.Read()
	if err != nil {
		if errors.Is(err, nft.ErrAssetMissing) {
			return nil, newError(KindPreconditionNotMet, "asset file is no longer present", err)
		}
		return nil, newError(KindPreconditionNotMet, "asset can no longer be read as hashed", err)
	}

	log = log.WithFields(logrus.Fields{
		"chain_id": chain.ChainID,
		"asset":    intent.AssetHash.Short(),
	})
	log.Info("✅ Preconditions met")

	if pending, err := m.journal.FindByAsset(intent.AssetHash); err != nil {
		log.WithError(err).Warn("⚠️ Could not read pending journal")
	} else if len(pending) > 0 {
		log.WithField("pending_tx", pending[0].TxHash).
			Warn("⚠️ An earlier mint of this asset is still unconfirmed; this attempt may mint it twice")
	}

	// Storage
	var receipt *types.StorageReceipt
	if m.uploader == nil {
		receipt = storage.Placeholder(m.opts.PlaceholderURI)
		log.WithField("token_uri", receipt.TokenURI).Warn("⚠️ Storage bypassed, minting with placeholder token URI")
	} else {
		receipt, err = storage.Publish(ctx, m.uploader, intent, asset.Name, image)
		if err != nil {
			return nil, newError(KindUploadFailed, err.Error(), err)
		}
	}

	client, err := m.chainClient()
	if err != nil {
		return nil, newError(KindPreconditionNotMet, "chain backend unavailable", err)
	}

	value := m.resolvePayment(ctx, client, chain, log)

	gasLimit := m.opts.FallbackGasLimit
	if m.opts.DryRun {
		estimated, err := client.EstimateMint(ctx, from, receipt.TokenURI, value)
		if err != nil {
			log.WithError(err).Warn("⚠️ Dry run failed, submitting anyway")
		} else {
			gasLimit = estimated * 120 / 100 // 20% safety margin
		}
	}

	log.WithFields(logrus.Fields{
		"token_uri": receipt.TokenURI,
		"value_wei": value.String(),
		"gas_limit": gasLimit,
	}).Info("⛓️ Submitting mint transaction")

	tx, sendErr := client.SubmitMint(ctx, m.session.wallet, new(big.Int).SetUint64(chain.ChainID), receipt.TokenURI, value, gasLimit)
	if tx == nil {
		return nil, newError(KindChainCallReverted, sendErr.Error(), sendErr)
	}
	txHash := tx.Hash().Hex()
	log = log.WithField("tx", txHash)

	// Past this point the transaction exists regardless of the caller
	waitCtx := context.WithoutCancel(ctx)

	pending := &PendingMint{
		AttemptID:     attemptID,
		TxHash:        txHash,
		Wallet:        from.Hex(),
		Contract:      m.deployment.Address.Hex(),
		ChainID:       chain.ChainID,
		Value:         value.String(),
		Intent:        intent,
		Receipt:       *receipt,
		ImageFileName: asset.Name,
	}
	if err := m.journal.Save(pending); err != nil {
		log.WithError(err).Warn("⚠️ Failed to write pending journal entry")
	}

	if sendErr != nil {
		log.WithError(sendErr).Warn("⚠️ Node did not acknowledge the transaction, keeping journal entry")
		return nil, &Error{Kind: KindChainCallUnconfirmed, Reason: "broadcast not acknowledged", TxHash: txHash, Err: sendErr}
	}

	log.Info("⏳ Waiting for confirmation")
	waitStart := time.Now()
	mined, err := client.WaitMined(waitCtx, tx.Hash(), m.opts.ReceiptTimeout)
	metrics.ConfirmationDuration.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		return nil, &Error{Kind: KindChainCallUnconfirmed, Reason: "no receipt observed", TxHash: txHash, Err: err}
	}

	if mined.Status != ethtypes.ReceiptStatusSuccessful {
		reason := client.RevertReason(waitCtx, from, tx, mined)
		if err := m.journal.Delete(attemptID); err != nil {
			log.WithError(err).Warn("⚠️ Failed to delete journal entry")
		}
		return nil, &Error{Kind: KindChainCallReverted, Reason: reason, TxHash: txHash}
	}

	result = m.reconcile(log, client, mined, txHash, chain.ChainID, value, receipt.TokenURI)

	record := buildRecord(result, intent, receipt, asset.Name)
	if err := m.ledger.Append(waitCtx, record); err != nil {
		// The journal entry stays so Recover can add the record later
		log.WithError(err).Warn("⚠️ Mint confirmed but the local ledger append failed, keeping journal entry")
		result.NotRecorded = true
	} else if err := m.journal.Delete(attemptID); err != nil {
		log.WithError(err).Warn("⚠️ Failed to delete journal entry")
	}

	log.WithField("token_id", result.TokenID).Info("✅ Mint confirmed")
	return result, nil
}

// reconcile turns a successful receipt into a MintResult; a missing event leaves TokenID nil
func (m *Minter) reconcile(log *logrus.Entry, client *ChainClient, mined *ethtypes.Receipt, txHash string, chainID uint64, value *big.Int, submittedURI string) *types.MintResult {
	result := &types.MintResult{
		ContractAddress: m.deployment.Address.Hex(),
		TokenURI:        submittedURI,
		TxHash:          txHash,
		ChainID:         chainID,
		ValuePaid:       value,
	}
	if mined.BlockNumber != nil {
		result.BlockNumber = mined.BlockNumber.Uint64()
	}

	event, err := client.ParseReceipt(mined)
	if err != nil {
		metrics.EventParseMisses.Inc()
		log.WithError(err).Warn("⚠️ Mint confirmed but no token id found in the receipt")
		return result
	}

	result.TokenID = event.TokenID
	if event.TokenURI != "" {
		result.TokenURI = event.TokenURI
	}
	return result
}

func (m *Minter) resolvePayment(ctx context.Context, client *ChainClient, chain types.ChainContext, log *logrus.Entry) *big.Int {
	if m.opts.PaymentSource == PaymentFixed {
		return new(big.Int).Set(m.opts.FixedPayment)
	}
	if chain.MinPayment != nil {
		return chain.MinPayment
	}

	cost, err := client.MintingCost(ctx)
	if err != nil {
		metrics.PaymentFallbacks.Inc()
		log.WithError(err).WithField("fallback_wei", m.opts.FallbackPayment.String()).
			Warn("⚠️ Could not read MINTING_COST, using fallback payment (not for production)")
		return new(big.Int).Set(m.opts.FallbackPayment)
	}

	m.session.cachePayment(chain.Epoch, cost)
	return cost
}

func buildRecord(result *types.MintResult, intent types.MintIntent, receipt *types.StorageReceipt, imageName string) *types.LocalMintRecord {
	record := &types.LocalMintRecord{
		TokenID:     result.TokenIDString(),
		Contract:    result.ContractAddress,
		ChainID:     result.ChainID,
		TxHash:      result.TxHash,
		TokenURI:    result.TokenURI,
		Artist:      strings.TrimSpace(intent.Artist),
		Title:       nft.Title(intent),
		Description: strings.TrimSpace(intent.Description),
		SHA256:      intent.AssetHash,
		ImageCID:    receipt.ImageCID,
		MetadataCID: receipt.MetadataCID,
	}
	if imageName != "" {
		record.ImageFileName = &imageName
	}
	return record
}

// TokenURI reads the token URI the contract stores for tokenID
func (m *Minter) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	client, err := m.chainClient()
	if err != nil {
		return "", err
	}
	return client.TokenURI(ctx, tokenID)
}
