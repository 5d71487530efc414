package network

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Known chain ids
const (
	ChainLocalhost uint64 = 31337
	ChainMumbai    uint64 = 80001
	ChainPolygon   uint64 = 137
)

// NativeCurrency is the EIP-3085 currency descriptor
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain payload
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// Chain describes a network the client knows how to reach
type Chain struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	RPCURL      string         `json:"rpc_url"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
	Currency    NativeCurrency `json:"native_currency"`
}

// Label is the human-readable network indicator
func (c Chain) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Symbol)
}

// AddParams builds the add-chain request for this chain
func (c Chain) AddParams() AddChainParams {
	params := AddChainParams{
		ChainID:        ChainIDHex(c.ID),
		ChainName:      c.Name,
		NativeCurrency: c.Currency,
	}
	if c.RPCURL != "" {
		params.RPCURLs = []string{c.RPCURL}
	}
	if c.ExplorerURL != "" {
		params.BlockExplorerURLs = []string{c.ExplorerURL}
	}
	return params
}

// ChainIDHex formats a chain id the way wallets expect it ("0x89")
func ChainIDHex(id uint64) string {
	return hexutil.EncodeUint64(id)
}

// ParseChainIDHex parses a "0x..." chain id
func ParseChainIDHex(s string) (uint64, error) {
	id, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

func defaultChains() map[uint64]Chain {
	return map[uint64]Chain{
		ChainLocalhost: {
			ID:       ChainLocalhost,
			Name:     "Localhost",
			Symbol:   "ETH",
			RPCURL:   "http://127.0.0.1:8545",
			Currency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		ChainMumbai: {
			ID:          ChainMumbai,
			Name:        "Polygon Mumbai Testnet",
			Symbol:      "MATIC",
			RPCURL:      "https://rpc-mumbai.maticvigil.com",
			ExplorerURL: "https://mumbai.polygonscan.com/",
			Currency:    NativeCurrency{Name: "Matic", Symbol: "MATIC", Decimals: 18},
		},
		ChainPolygon: {
			ID:          ChainPolygon,
			Name:        "Polygon Mainnet",
			Symbol:      "MATIC",
			RPCURL:      "https://polygon-rpc.com",
			ExplorerURL: "https://polygonscan.com/",
			Currency:    NativeCurrency{Name: "Matic", Symbol: "MATIC", Decimals: 18},
		},
	}
}

// Registry holds the chains the client can describe to a wallet
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]Chain
}

// DefaultRegistry returns a registry with Localhost, Mumbai and Polygon
func DefaultRegistry() *Registry {
	return &Registry{chains: defaultChains()}
}

// Lookup returns the chain with the given id
func (r *Registry) Lookup(id uint64) (Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain, ok := r.chains[id]
	return chain, ok
}

// Register adds or replaces a chain
func (r *Registry) Register(chain Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[chain.ID] = chain
}

// SetRPC overrides the RPC endpoint of a known chain
func (r *Registry) SetRPC(id uint64, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.chains[id]
	if !ok {
		return fmt.Errorf("unknown chain %d", id)
	}
	chain.RPCURL = url
	r.chains[id] = chain
	return nil
}

// Chains returns all chains ordered by id
func (r *Registry) Chains() []Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]Chain, 0, len(r.chains))
	for _, chain := range r.chains {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains
}

// Endpoints returns chain id -> RPC URL for every chain with an endpoint
func (r *Registry) Endpoints() map[uint64]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoints := make(map[uint64]string, len(r.chains))
	for id, chain := range r.chains {
		if chain.RPCURL != "" {
			endpoints[id] = chain.RPCURL
		}
	}
	return endpoints
}

// Label returns the display label for id, or a generic one for unknown chains
func (r *Registry) Label(id uint64) (name, symbol string) {
	if chain, ok := r.Lookup(id); ok {
		return chain.Name, chain.Symbol
	}
	return fmt.Sprintf("Unknown (%d)", id), ""
}
