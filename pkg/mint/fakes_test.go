package mint

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tech-monarch/ArtMintNFT/pkg/ledger"
	"github.com/tech-monarch/ArtMintNFT/pkg/network"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/storage"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// revertError mimics the JSON-RPC error a node returns for a reverted call
type revertError struct {
	reason string
}

func (e *revertError) Error() string { return "execution reverted" }

func (e *revertError) ErrorCode() int { return 3 }

func (e *revertError) ErrorData() interface{} {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(e.reason)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

// fakeBackend is an in-memory ArtNFT contract
type fakeBackend struct {
	mu sync.Mutex

	contractABI abi.ABI
	contract    common.Address

	cost        *big.Int
	costErr     error
	estimateErr error
	sendErr     error
	receiptErr  error
	replayErr   error

	// builds the receipt for a sent mint; nil means a Minted event with the next token id
	onMint func(tx *ethtypes.Transaction, tokenURI string) *ethtypes.Receipt

	calls     int
	costCalls int
	sent      []*ethtypes.Transaction
	receipts  map[common.Hash]*ethtypes.Receipt
	nextToken int64
}

func newFakeBackend(t *testing.T, contract common.Address) *fakeBackend {
	t.Helper()
	contractABI, err := nft.ParseABI()
	if err != nil {
		t.Fatal(err)
	}
	return &fakeBackend{
		contractABI: contractABI,
		contract:    contract,
		cost:        big.NewInt(10_000_000_000_000_000),
		receipts:    make(map[common.Hash]*ethtypes.Receipt),
		nextToken:   1,
	}
}

func (b *fakeBackend) method(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	for name, m := range b.contractABI.Methods {
		if bytes.Equal(m.ID, data[:4]) {
			return name
		}
	}
	return ""
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++

	switch b.method(call.Data) {
	case nft.MethodMintingCost:
		b.costCalls++
		if b.costErr != nil {
			return nil, b.costErr
		}
		return b.contractABI.Methods[nft.MethodMintingCost].Outputs.Pack(b.cost)
	case nft.MethodTokenURI:
		return b.contractABI.Methods[nft.MethodTokenURI].Outputs.Pack("ipfs://stored")
	case nft.MethodMint:
		if b.replayErr != nil {
			return nil, b.replayErr
		}
		return nil, nil
	}
	return nil, errors.New("unknown method")
}

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100000, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)

	args, err := b.contractABI.Methods[nft.MethodMint].Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	tokenURI := args[0].(string)

	var receipt *ethtypes.Receipt
	if b.onMint != nil {
		receipt = b.onMint(tx, tokenURI)
	} else {
		receipt = b.mintedReceipt(big.NewInt(b.nextToken), tokenURI, tx.Value())
		b.nextToken++
	}
	receipt.TxHash = tx.Hash()
	if receipt.BlockNumber == nil {
		receipt.BlockNumber = big.NewInt(int64(len(b.sent)))
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receiptErr != nil {
		return nil, b.receiptErr
	}
	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *fakeBackend) mintedLog(tokenID *big.Int, tokenURI string, value *big.Int) *ethtypes.Log {
	event := b.contractABI.Events[nft.EventMinted]
	data, _ := event.Inputs.NonIndexed().Pack(tokenURI, value)
	return &ethtypes.Log{
		Address: b.contract,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(common.HexToAddress("0x1000000000000000000000000000000000000001").Bytes()),
			common.BigToHash(tokenID),
		},
		Data: data,
	}
}

func (b *fakeBackend) mintedReceipt(tokenID *big.Int, tokenURI string, value *big.Int) *ethtypes.Receipt {
	return &ethtypes.Receipt{
		Status: ethtypes.ReceiptStatusSuccessful,
		Logs:   []*ethtypes.Log{b.mintedLog(tokenID, tokenURI, value)},
	}
}

func (b *fakeBackend) sentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeWallet is a key-backed wallet on a configurable chain
type fakeWallet struct {
	key      *ecdsa.PrivateKey
	accounts []common.Address
	chainID  uint64
	known    map[uint64]bool

	switchErr error
	backend   *fakeBackend
}

func newFakeWallet(t *testing.T, chainID uint64, backend *fakeBackend) *fakeWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return &fakeWallet{
		key:      key,
		accounts: []common.Address{crypto.PubkeyToAddress(key.PublicKey)},
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true, network.ChainLocalhost: true, network.ChainMumbai: true},
		backend:  backend,
	}
}

func (w *fakeWallet) Connect(ctx context.Context) ([]common.Address, error) { return w.accounts, nil }

func (w *fakeWallet) Accounts() []common.Address { return w.accounts }

func (w *fakeWallet) ChainID(ctx context.Context) (uint64, error) { return w.chainID, nil }

func (w *fakeWallet) SwitchChain(ctx context.Context, chainID uint64) error {
	if w.switchErr != nil {
		return w.switchErr
	}
	if !w.known[chainID] {
		return &network.ProviderError{Code: network.CodeUnrecognizedChain, Message: "unknown chain"}
	}
	w.chainID = chainID
	return nil
}

func (w *fakeWallet) AddChain(ctx context.Context, params network.AddChainParams) error {
	id, err := network.ParseChainIDHex(params.ChainID)
	if err != nil {
		return err
	}
	w.known[id] = true
	return nil
}

func (w *fakeWallet) Address() common.Address { return crypto.PubkeyToAddress(w.key.PublicKey) }

func (w *fakeWallet) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), w.key)
}

func (w *fakeWallet) Backend() (Backend, error) { return w.backend, nil }

// harness wires a Minter over the fakes with a local content store
type harness struct {
	t          *testing.T
	dir        string
	backend    *fakeBackend
	wallet     *fakeWallet
	session    *Session
	ledger     *ledger.Ledger
	journal    *Journal
	deployment *nft.Deployment
	store      *storage.LocalStore
	minter     *Minter
}

func newHarness(t *testing.T, chainID uint64, mutate ...func(*Options)) *harness {
	t.Helper()
	dir := t.TempDir()

	deployment, err := nft.LoadDeployment("")
	if err != nil {
		t.Fatal(err)
	}
	backend := newFakeBackend(t, deployment.Address)
	wallet := newFakeWallet(t, chainID, backend)

	gatekeeper, err := network.NewGatekeeper(network.DefaultRegistry(),
		[]uint64{network.ChainLocalhost, network.ChainMumbai, network.ChainPolygon}, network.ChainMumbai)
	if err != nil {
		t.Fatal(err)
	}
	session := NewSession(wallet, gatekeeper)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	l, err := ledger.New(filepath.Join(dir, "ledger.json"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewLocalStore(filepath.Join(dir, "ipfs"))
	if err != nil {
		t.Fatal(err)
	}
	journal := NewJournalWithDir(filepath.Join(dir, "wal"))

	opts := DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.ReceiptTimeout = 2 * time.Second
	for _, fn := range mutate {
		fn(&opts)
	}

	minter, err := NewMinter(MinterConfig{
		Session:    session,
		Deployment: deployment,
		Uploader:   store,
		Ledger:     l,
		Journal:    journal,
		Options:    opts,
	})
	if err != nil {
		t.Fatal(err)
	}

	return &harness{
		t:          t,
		dir:        dir,
		backend:    backend,
		wallet:     wallet,
		session:    session,
		ledger:     l,
		journal:    journal,
		deployment: deployment,
		store:      store,
		minter:     minter,
	}
}

// selectArtwork writes an asset file, hashes it and selects it in the session
func (h *harness) selectArtwork(name, content, title string) (*nft.Asset, types.MintIntent) {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		h.t.Fatal(err)
	}
	asset, _, err := nft.LoadAsset(path)
	if err != nil {
		h.t.Fatal(err)
	}
	h.session.SelectAsset(asset)

	return asset, types.MintIntent{
		Title:       title,
		Artist:      "J. Doe",
		Description: "test artwork",
		AssetHash:   asset.Hash,
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (h *harness) records() []types.LocalMintRecord {
	h.t.Helper()
	records, err := h.ledger.List()
	if err != nil {
		h.t.Fatal(err)
	}
	return records
}

func (h *harness) pending() []*PendingMint {
	h.t.Helper()
	entries, err := h.journal.List()
	if err != nil {
		h.t.Fatal(err)
	}
	return entries
}
