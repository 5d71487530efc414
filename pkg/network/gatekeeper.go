package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
)

// Wallet provider error codes (EIP-1193 / EIP-3085)
const (
	CodeUserRejected      = 4001
	CodeUnrecognizedChain = 4902
)

var (
	ErrNotConnected = errors.New("wallet not connected")
	ErrSwitchFailed = errors.New("wrong network, switch failed")
)

var logger = logrus.WithField("component", "network")

// State is a gatekeeper state
type State int

const (
	StateDisconnected State = iota
	StateConnectedUnknown
	StateSupported
	StateUnsupported
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectedUnknown:
		return "connected (chain unknown)"
	case StateSupported:
		return "supported"
	case StateUnsupported:
		return "unsupported"
	case StateBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProviderError is an error reported by the wallet provider with a numeric code
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode implements rpc.Error
func (e *ProviderError) ErrorCode() int { return e.Code }

// IsUnrecognizedChain reports whether err means the wallet does not know the chain
func IsUnrecognizedChain(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode() == CodeUnrecognizedChain
	}
	return false
}

// Provider is the wallet/RPC provider the gatekeeper drives
type Provider interface {
	Connect(ctx context.Context) ([]common.Address, error)
	Accounts() []common.Address
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params AddChainParams) error
}

// EventKind names a wallet notification
type EventKind string

const (
	AccountsChanged EventKind = "accountsChanged"
	ChainChanged    EventKind = "chainChanged"
)

// Event is a wallet notification delivered on a channel
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  uint64
}

// Status is the outcome of Ensure
type Status struct {
	State    State
	ChainID  uint64
	Switched bool
	Reason   string
}

// Ready reports whether a mint may proceed
func (s Status) Ready() bool {
	return s.State == StateSupported
}

// Gatekeeper decides whether the wallet is on an allowed chain
type Gatekeeper struct {
	registry  *Registry
	allowed   map[uint64]bool
	preferred uint64
}

// NewGatekeeper creates a gatekeeper; preferred must be in the allow-list
func NewGatekeeper(registry *Registry, allowList []uint64, preferred uint64) (*Gatekeeper, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if len(allowList) == 0 {
		return nil, fmt.Errorf("allow-list is empty")
	}

	allowed := make(map[uint64]bool, len(allowList))
	for _, id := range allowList {
		allowed[id] = true
	}
	if !allowed[preferred] {
		return nil, fmt.Errorf("preferred chain %d is not in the allow-list", preferred)
	}

	return &Gatekeeper{
		registry:  registry,
		allowed:   allowed,
		preferred: preferred,
	}, nil
}

// Registry returns the chain registry
func (g *Gatekeeper) Registry() *Registry { return g.registry }

// Preferred returns the chain switched to when the wallet is on an unsupported one
func (g *Gatekeeper) Preferred() uint64 { return g.preferred }

// AllowList returns the supported chain ids in ascending order
func (g *Gatekeeper) AllowList() []uint64 {
	ids := make([]uint64, 0, len(g.allowed))
	for id := range g.allowed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Check classifies a chain id
func (g *Gatekeeper) Check(chainID uint64) State {
	if g.allowed[chainID] {
		return StateSupported
	}
	return StateUnsupported
}

// Ensure drives the provider to a supported chain.
// It returns a non-nil error only when the state is not Supported.
func (g *Gatekeeper) Ensure(ctx context.Context, provider Provider) (Status, error) {
	if len(provider.Accounts()) == 0 {
		return Status{State: StateDisconnected, Reason: "wallet not connected"}, ErrNotConnected
	}

	status := Status{State: StateConnectedUnknown}
	chainID, err := provider.ChainID(ctx)
	if err != nil {
		status.Reason = "could not read chain id"
		return status, fmt.Errorf("failed to get chain id: %w", err)
	}

	status.ChainID = chainID
	status.State = g.Check(chainID)
	if status.State == StateSupported {
		return status, nil
	}

	name, _ := g.registry.Label(chainID)
	logger.WithFields(logrus.Fields{
		"chain_id":  chainID,
		"network":   name,
		"preferred": g.preferred,
	}).Warn("⚠️ Unsupported network, requesting switch")

	if err := g.switchTo(ctx, provider); err != nil {
		metrics.NetworkSwitches.WithLabelValues("failed").Inc()
		preferredName, _ := g.registry.Label(g.preferred)
		status.State = StateBlocked
		status.Reason = fmt.Sprintf("wrong network: please switch to %s (chain %d)", preferredName, g.preferred)
		return status, fmt.Errorf("%w: %s: %v", ErrSwitchFailed, status.Reason, err)
	}

	// Chain-change notifications are asynchronous, so the result is read back
	// instead of assumed.
	chainID, err = provider.ChainID(ctx)
	if err != nil {
		metrics.NetworkSwitches.WithLabelValues("failed").Inc()
		status.State = StateBlocked
		status.Reason = "could not confirm network after switch"
		return status, fmt.Errorf("%w: %s: %v", ErrSwitchFailed, status.Reason, err)
	}

	status.ChainID = chainID
	status.State = g.Check(chainID)
	if status.State != StateSupported {
		metrics.NetworkSwitches.WithLabelValues("failed").Inc()
		status.State = StateBlocked
		status.Reason = fmt.Sprintf("wallet is still on chain %d after switch", chainID)
		return status, fmt.Errorf("%w: %s", ErrSwitchFailed, status.Reason)
	}

	metrics.NetworkSwitches.WithLabelValues("switched").Inc()
	status.Switched = true
	logger.WithField("chain_id", chainID).Info("✅ Switched network")
	return status, nil
}

func (g *Gatekeeper) switchTo(ctx context.Context, provider Provider) error {
	err := provider.SwitchChain(ctx, g.preferred)
	if err == nil {
		return nil
	}
	if !IsUnrecognizedChain(err) {
		return err
	}

	chain, ok := g.registry.Lookup(g.preferred)
	if !ok {
		return fmt.Errorf("no add-chain parameters for chain %d: %w", g.preferred, err)
	}

	logger.WithField("chain", chain.Name).Info("🔗 Wallet does not know the chain, adding it")
	if err := provider.AddChain(ctx, chain.AddParams()); err != nil {
		return fmt.Errorf("failed to add chain %d: %w", g.preferred, err)
	}
	if err := provider.SwitchChain(ctx, g.preferred); err != nil {
		return fmt.Errorf("failed to switch after add: %w", err)
	}
	return nil
}

// FormatAllowList renders ids as "31337, 80001, 137"
func FormatAllowList(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
