package mint

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

var logger = logrus.WithField("component", "mint")

// Wallet is the provider a session drives: network control, signing,
// and a contract backend for whatever chain it is currently on.
type Wallet interface {
	network.Provider
	Signer
	Backend() (Backend, error)
}

// Session is the client state shared between mint attempts.
// Cached chain state is replaced wholesale on reload or wallet notification;
// an attempt works on a snapshot and never sees those replacements.
type Session struct {
	wallet     Wallet
	gatekeeper *network.Gatekeeper

	mu       sync.RWMutex
	accounts []common.Address
	chain    types.ChainContext
	asset    *nft.Asset

	// holds one token while no attempt is in flight
	token chan struct{}
}

// NewSession creates a disconnected session
func NewSession(wallet Wallet, gatekeeper *network.Gatekeeper) *Session {
	token := make(chan struct{}, 1)
	token <- struct{}{}
	return &Session{
		wallet:     wallet,
		gatekeeper: gatekeeper,
		token:      token,
	}
}

// Connect requests accounts from the wallet and loads the chain context
func (s *Session) Connect(ctx context.Context) error {
	accounts, err := s.wallet.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return network.ErrNotConnected
	}

	logger.WithField("account", accounts[0].Hex()).Info("🔐 Wallet connected")
	return s.Reload(ctx)
}

// Reload re-derives accounts and chain context from the wallet.
// The cached minimum payment is discarded.
func (s *Session) Reload(ctx context.Context) error {
	accounts := s.wallet.Accounts()
	chainID, err := s.wallet.ChainID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = append([]common.Address(nil), accounts...)
	if err != nil {
		s.chain = types.ChainContext{Epoch: s.chain.Epoch + 1}
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	s.chain = s.contextFor(chainID, s.chain.Epoch+1)
	return nil
}

// contextFor must be called with s.mu held
func (s *Session) contextFor(chainID uint64, epoch uint64) types.ChainContext {
	name, symbol := s.gatekeeper.Registry().Label(chainID)
	return types.ChainContext{
		ChainID:   chainID,
		Network:   name,
		Symbol:    symbol,
		Supported: s.gatekeeper.Check(chainID) == network.StateSupported,
		Epoch:     epoch,
	}
}

// Watch applies wallet notifications until events is closed or ctx ends.
// Every message replaces the cached state it concerns.
func (s *Session) Watch(ctx context.Context, events <-chan network.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

func (s *Session) apply(ev network.Event) {
	metrics.WalletEvents.WithLabelValues(string(ev.Kind)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case network.AccountsChanged:
		s.accounts = append([]common.Address(nil), ev.Accounts...)
		s.chain = s.contextFor(s.chain.ChainID, s.chain.Epoch+1)
		logger.WithField("accounts", len(ev.Accounts)).Info("🔄 Accounts changed")
	case network.ChainChanged:
		s.chain = s.contextFor(ev.ChainID, s.chain.Epoch+1)
		logger.WithFields(logrus.Fields{
			"chain_id": ev.ChainID,
			"network":  s.chain.Network,
		}).Info("🔄 Chain changed")
	default:
		logger.WithField("kind", ev.Kind).Debug("Ignoring wallet event")
	}
}

// SelectAsset makes asset the one the next attempt must mint
func (s *Session) SelectAsset(asset *nft.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = asset
}

// Snapshot returns copies of the cached state
func (s *Session) Snapshot() (types.ChainContext, []common.Address, *nft.Asset) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chain
	if chain.MinPayment != nil {
		chain.MinPayment = new(big.Int).Set(chain.MinPayment)
	}
	accounts := append([]common.Address(nil), s.accounts...)

	var asset *nft.Asset
	if s.asset != nil {
		a := *s.asset
		asset = &a
	}
	return chain, accounts, asset
}

// ChainContext returns a copy of the cached chain context
func (s *Session) ChainContext() types.ChainContext {
	chain, _, _ := s.Snapshot()
	return chain
}

// EnsureNetwork runs the gatekeeper; a successful switch triggers a full reload
func (s *Session) EnsureNetwork(ctx context.Context) (network.Status, error) {
	status, err := s.gatekeeper.Ensure(ctx, s.wallet)
	if err != nil {
		return status, err
	}
	if status.Switched {
		if err := s.Reload(ctx); err != nil {
			return status, err
		}
	}
	return status, nil
}

// acquire takes the attempt token; false means an attempt is already in flight
func (s *Session) acquire() bool {
	select {
	case <-s.token:
		return true
	default:
		return false
	}
}

func (s *Session) release() {
	s.token <- struct{}{}
}

// cachePayment stores value as the minimum payment if the epoch is unchanged
func (s *Session) cachePayment(epoch uint64, value *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chain.Epoch == epoch {
		s.chain.MinPayment = new(big.Int).Set(value)
	}
}
