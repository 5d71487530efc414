package network

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	accounts []common.Address
	chainID  uint64
	known    map[uint64]bool

	switchErr error
	addErr    error

	switchCalls []uint64
	added       []AddChainParams
}

func newFakeProvider(chainID uint64, known ...uint64) *fakeProvider {
	p := &fakeProvider{
		accounts: []common.Address{common.HexToAddress("0x1000000000000000000000000000000000000001")},
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
	}
	for _, id := range known {
		p.known[id] = true
	}
	return p
}

func (p *fakeProvider) Connect(ctx context.Context) ([]common.Address, error) {
	return p.accounts, nil
}

func (p *fakeProvider) Accounts() []common.Address { return p.accounts }

func (p *fakeProvider) ChainID(ctx context.Context) (uint64, error) { return p.chainID, nil }

func (p *fakeProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.switchCalls = append(p.switchCalls, chainID)
	if p.switchErr != nil {
		return p.switchErr
	}
	if !p.known[chainID] {
		return &ProviderError{Code: CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
	}
	p.chainID = chainID
	return nil
}

func (p *fakeProvider) AddChain(ctx context.Context, params AddChainParams) error {
	if p.addErr != nil {
		return p.addErr
	}
	id, err := ParseChainIDHex(params.ChainID)
	if err != nil {
		return err
	}
	p.added = append(p.added, params)
	p.known[id] = true
	return nil
}

func defaultGatekeeper(t *testing.T) *Gatekeeper {
	t.Helper()
	g, err := NewGatekeeper(DefaultRegistry(), []uint64{ChainLocalhost, ChainMumbai, ChainPolygon}, ChainMumbai)
	require.NoError(t, err)
	return g
}

func TestNewGatekeeper_PreferredMustBeAllowed(t *testing.T) {
	_, err := NewGatekeeper(nil, []uint64{ChainPolygon}, ChainMumbai)
	assert.Error(t, err)

	_, err = NewGatekeeper(nil, nil, ChainMumbai)
	assert.Error(t, err)
}

func TestGatekeeper_Check(t *testing.T) {
	g := defaultGatekeeper(t)

	tests := []struct {
		chainID uint64
		want    State
	}{
		{ChainLocalhost, StateSupported},
		{ChainMumbai, StateSupported},
		{ChainPolygon, StateSupported},
		{1, StateUnsupported},
		{5, StateUnsupported},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Check(tt.chainID), "chain %d", tt.chainID)
	}
	assert.Equal(t, []uint64{137, 31337, 80001}, g.AllowList())
}

func TestGatekeeper_Ensure_Disconnected(t *testing.T) {
	g := defaultGatekeeper(t)
	p := newFakeProvider(ChainMumbai)
	p.accounts = nil

	status, err := g.Ensure(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateDisconnected, status.State)
	assert.False(t, status.Ready())
	assert.Empty(t, p.switchCalls)
}

func TestGatekeeper_Ensure_AlreadySupported(t *testing.T) {
	g := defaultGatekeeper(t)
	p := newFakeProvider(ChainPolygon)

	status, err := g.Ensure(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, status.Ready())
	assert.Equal(t, ChainPolygon, status.ChainID)
	assert.False(t, status.Switched)
	assert.Empty(t, p.switchCalls)
}

func TestGatekeeper_Ensure_SwitchesKnownChain(t *testing.T) {
	g := defaultGatekeeper(t)
	p := newFakeProvider(1, ChainMumbai)

	status, err := g.Ensure(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateSupported, status.State)
	assert.Equal(t, ChainMumbai, status.ChainID)
	assert.True(t, status.Switched)
	assert.Equal(t, []uint64{ChainMumbai}, p.switchCalls)
	assert.Empty(t, p.added)
}

func TestGatekeeper_Ensure_AddsUnknownChainThenSwitches(t *testing.T) {
	g := defaultGatekeeper(t)
	p := newFakeProvider(1)

	status, err := g.Ensure(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, status.Switched)
	assert.Equal(t, ChainMumbai, status.ChainID)
	assert.Equal(t, []uint64{ChainMumbai, ChainMumbai}, p.switchCalls)

	require.Len(t, p.added, 1)
	params := p.added[0]
	assert.Equal(t, "0x13881", params.ChainID)
	assert.Equal(t, "Polygon Mumbai Testnet", params.ChainName)
	assert.Equal(t, "MATIC", params.NativeCurrency.Symbol)
	assert.Equal(t, 18, params.NativeCurrency.Decimals)
	assert.Equal(t, []string{"https://rpc-mumbai.maticvigil.com"}, params.RPCURLs)
	assert.Equal(t, []string{"https://mumbai.polygonscan.com/"}, params.BlockExplorerURLs)
}

func TestGatekeeper_Ensure_Blocked(t *testing.T) {
	tests := []struct {
		name      string
		switchErr error
		addErr    error
	}{
		{
			name:      "user rejects switch",
			switchErr: &ProviderError{Code: CodeUserRejected, Message: "User rejected the request"},
		},
		{
			name:   "add chain fails",
			addErr: errors.New("add rejected"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := defaultGatekeeper(t)
			p := newFakeProvider(1)
			p.switchErr = tt.switchErr
			p.addErr = tt.addErr

			status, err := g.Ensure(context.Background(), p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSwitchFailed)
			assert.Equal(t, StateBlocked, status.State)
			assert.Equal(t, uint64(1), status.ChainID)
			assert.Contains(t, status.Reason, "Polygon Mumbai Testnet")
			assert.False(t, status.Ready())
		})
	}
}

func TestIsUnrecognizedChain(t *testing.T) {
	assert.True(t, IsUnrecognizedChain(&ProviderError{Code: CodeUnrecognizedChain}))
	assert.False(t, IsUnrecognizedChain(&ProviderError{Code: CodeUserRejected}))
	assert.False(t, IsUnrecognizedChain(errors.New("boom")))
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()

	chain, ok := reg.Lookup(ChainPolygon)
	require.True(t, ok)
	assert.Equal(t, "Polygon Mainnet (MATIC)", chain.Label())
	assert.Equal(t, "0x89", chain.AddParams().ChainID)

	require.NoError(t, reg.SetRPC(ChainPolygon, "https://polygon-mainnet.infura.io/v3/abc"))
	assert.Equal(t, "https://polygon-mainnet.infura.io/v3/abc", reg.Endpoints()[ChainPolygon])
	assert.Error(t, reg.SetRPC(1, "http://x"))

	name, symbol := reg.Label(1)
	assert.Equal(t, "Unknown (1)", name)
	assert.Empty(t, symbol)

	chains := reg.Chains()
	require.Len(t, chains, 3)
	assert.Equal(t, ChainPolygon, chains[0].ID)
}

func TestFormatAllowList(t *testing.T) {
	assert.Equal(t, "31337, 80001, 137", FormatAllowList([]uint64{ChainLocalhost, ChainMumbai, ChainPolygon}))
	assert.Equal(t, "", FormatAllowList(nil))
}
