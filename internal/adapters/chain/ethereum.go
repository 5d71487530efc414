package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/pkg/mint"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
)

var logger = logrus.WithField("component", "wallet")

const (
	// MessagePrefix is prepended to every message signed by the wallet
	MessagePrefix = "ArtMint auth: "

	// codeChainMismatch is reported when an endpoint serves a different chain than requested
	codeChainMismatch = -32603
)

// EthereumWallet is a key-backed wallet provider.
// It holds one JSON-RPC endpoint per chain and talks to the one it is switched to.
type EthereumWallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address

	mu        sync.Mutex
	endpoints map[uint64]string
	initial   uint64
	client    *ethclient.Client
	chainID   uint64
	connected bool

	events chan network.Event
}

// NewEthereumWallet creates a wallet that starts on the initial chain once connected
func NewEthereumWallet(privateKeyHex string, endpoints map[uint64]string, initial uint64) (*EthereumWallet, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	eps := make(map[uint64]string, len(endpoints))
	for id, url := range endpoints {
		if url != "" {
			eps[id] = url
		}
	}

	return &EthereumWallet{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
		endpoints:  eps,
		initial:    initial,
		events:     make(chan network.Event, 8),
	}, nil
}

// Connect dials the initial chain and exposes the wallet's account
func (w *EthereumWallet) Connect(ctx context.Context) ([]common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected {
		url, ok := w.endpoints[w.initial]
		if !ok {
			return nil, fmt.Errorf("no RPC endpoint configured for chain %d", w.initial)
		}
		client, chainID, err := dial(ctx, url)
		if err != nil {
			return nil, err
		}
		w.client = client
		w.chainID = chainID
		w.connected = true

		logger.WithFields(logrus.Fields{
			"address":  w.address.Hex(),
			"chain_id": chainID,
		}).Debug("Wallet dialed")
	}

	return []common.Address{w.address}, nil
}

// Accounts returns the exposed accounts; empty until Connect
func (w *EthereumWallet) Accounts() []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return nil
	}
	return []common.Address{w.address}
}

// ChainID asks the current endpoint for its chain id
func (w *EthereumWallet) ChainID(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	client := w.client
	w.mu.Unlock()

	if client == nil {
		return 0, network.ErrNotConnected
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id.Uint64(), nil
}

// SwitchChain moves the wallet to chainID. A chain without an endpoint
// is reported with code 4902 so the caller can add it first.
func (w *EthereumWallet) SwitchChain(ctx context.Context, chainID uint64) error {
	w.mu.Lock()
	url, ok := w.endpoints[chainID]
	w.mu.Unlock()
	if !ok {
		return &network.ProviderError{
			Code:    network.CodeUnrecognizedChain,
			Message: fmt.Sprintf("unrecognized chain id %s", network.ChainIDHex(chainID)),
		}
	}

	client, actual, err := dial(ctx, url)
	if err != nil {
		return err
	}
	if actual != chainID {
		client.Close()
		return &network.ProviderError{
			Code:    codeChainMismatch,
			Message: fmt.Sprintf("endpoint for chain %d reports chain %d", chainID, actual),
		}
	}

	w.mu.Lock()
	old := w.client
	w.client = client
	w.chainID = chainID
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}

	logger.WithField("chain_id", chainID).Info("🔄 Switched chain")
	w.emit(network.Event{Kind: network.ChainChanged, ChainID: chainID})
	return nil
}

// AddChain registers the first RPC URL of params as the chain's endpoint
func (w *EthereumWallet) AddChain(ctx context.Context, params network.AddChainParams) error {
	chainID, err := network.ParseChainIDHex(params.ChainID)
	if err != nil {
		return err
	}
	if len(params.RPCURLs) == 0 || params.RPCURLs[0] == "" {
		return fmt.Errorf("chain %d has no RPC URL", chainID)
	}

	w.mu.Lock()
	w.endpoints[chainID] = params.RPCURLs[0]
	w.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"name":     params.ChainName,
	}).Info("➕ Added chain")
	return nil
}

// Backend returns the contract backend of the current chain
func (w *EthereumWallet) Backend() (mint.Backend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client == nil {
		return nil, network.ErrNotConnected
	}
	return w.client, nil
}

// Address returns the wallet address
func (w *EthereumWallet) Address() common.Address {
	return w.address
}

// SignTx signs tx for chainID
func (w *EthereumWallet) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), w.privateKey)
}

// SignMessage signs MessagePrefix+message with the Ethereum signed message prefix
func (w *EthereumWallet) SignMessage(message string) (string, error) {
	hash := hashMessage([]byte(MessagePrefix + message))

	signature, err := crypto.Sign(hash, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (27/28 instead of 0/1)
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// Events delivers the wallet's own chainChanged notifications
func (w *EthereumWallet) Events() <-chan network.Event {
	return w.events
}

// Close releases the RPC connection
func (w *EthereumWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
	w.connected = false
}

func (w *EthereumWallet) emit(ev network.Event) {
	select {
	case w.events <- ev:
	default:
		logger.WithField("kind", ev.Kind).Warn("⚠️ Wallet event dropped, nobody is listening")
	}
}

func dial(ctx context.Context, url string) (*ethclient.Client, uint64, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, 0, fmt.Errorf("failed to get chain id from %s: %w", url, err)
	}
	return client, id.Uint64(), nil
}

// hashMessage hashes a message with the Ethereum signed message prefix
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
