package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
)

const (
	// DefaultGasLimit is used when estimation fails or is disabled
	DefaultGasLimit uint64 = 300000

	DefaultReceiptTimeout = 5 * time.Minute
	DefaultPollInterval   = 2 * time.Second

	// consecutive provider errors tolerated while polling for a receipt
	maxPollErrors = 3
)

var ErrEventNotFound = errors.New("no mint event in receipt")

// ErrBroadcastUnknown means the signed transaction may have reached the node
var ErrBroadcastUnknown = errors.New("transaction broadcast not acknowledged")

// Source of the token id found in a receipt
const (
	SourceMinted   = "Minted"
	SourceTransfer = "Transfer"
)

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Backend is the subset of *ethclient.Client the mint flow uses
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Signer signs transactions for the connected account
type Signer interface {
	Address() common.Address
	SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
}

// MintEvent is what ParseReceipt extracts from a confirmed mint
type MintEvent struct {
	TokenID  *big.Int
	TokenURI string
	Value    *big.Int
	Source   string
}

// ChainClient handles calls to the ArtNFT contract
type ChainClient struct {
	backend      Backend
	contract     common.Address
	contractABI  abi.ABI
	pollInterval time.Duration
}

// NewChainClient creates a chain client for one contract
func NewChainClient(backend Backend, contract common.Address, contractABI abi.ABI) *ChainClient {
	return &ChainClient{
		backend:      backend,
		contract:     contract,
		contractABI:  contractABI,
		pollInterval: DefaultPollInterval,
	}
}

// WithPollInterval sets the receipt polling interval
func (c *ChainClient) WithPollInterval(d time.Duration) *ChainClient {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

// Contract returns the contract address
func (c *ChainClient) Contract() common.Address {
	return c.contract
}

// MintingCost reads MINTING_COST() from the contract
func (c *ChainClient) MintingCost(ctx context.Context) (*big.Int, error) {
	data, err := c.contractABI.Pack(nft.MethodMintingCost)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", nft.MethodMintingCost, err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", nft.MethodMintingCost, err)
	}

	var cost *big.Int
	if err := c.contractABI.UnpackIntoInterface(&cost, nft.MethodMintingCost, result); err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", nft.MethodMintingCost, err)
	}

	return cost, nil
}

// TokenURI reads tokenURI(tokenId) from the contract
func (c *ChainClient) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	data, err := c.contractABI.Pack(nft.MethodTokenURI, tokenID)
	if err != nil {
		return "", fmt.Errorf("failed to pack tokenURI call: %w", err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		if reason := revertReasonFromError(err); reason != "" {
			return "", fmt.Errorf("tokenURI reverted: %s", reason)
		}
		return "", fmt.Errorf("failed to call tokenURI: %w", err)
	}

	var uri string
	if err := c.contractABI.UnpackIntoInterface(&uri, nft.MethodTokenURI, result); err != nil {
		return "", fmt.Errorf("failed to unpack tokenURI result: %w", err)
	}

	return uri, nil
}

func (c *ChainClient) packMint(tokenURI string) ([]byte, error) {
	data, err := c.contractABI.Pack(nft.MethodMint, tokenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to pack mint call: %w", err)
	}
	return data, nil
}

// EstimateMint runs the mint as a dry run and returns the gas it would use
func (c *ChainClient) EstimateMint(ctx context.Context, from common.Address, tokenURI string, value *big.Int) (uint64, error) {
	data, err := c.packMint(tokenURI)
	if err != nil {
		return 0, err
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		if reason := revertReasonFromError(err); reason != "" {
			return 0, fmt.Errorf("mint would revert: %s", reason)
		}
		return 0, fmt.Errorf("mint would revert: %w", err)
	}
	return gas, nil
}

// SubmitMint signs and sends mint(tokenURI) with value attached.
// A zero gasLimit uses DefaultGasLimit. When the send fails in transport the
// signed transaction is returned together with an error wrapping ErrBroadcastUnknown.
func (c *ChainClient) SubmitMint(ctx context.Context, signer Signer, chainID *big.Int, tokenURI string, value *big.Int, gasLimit uint64) (*ethtypes.Transaction, error) {
	data, err := c.packMint(tokenURI)
	if err != nil {
		return nil, err
	}

	nonce, err := c.backend.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}

	tx := ethtypes.NewTransaction(
		nonce,
		c.contract,
		value,
		gasLimit,
		gasPrice,
		data,
	)

	signedTx, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		if !rejectedByNode(err) {
			// The signed transaction is returned so the caller can track it
			return signedTx, fmt.Errorf("%w: %w", ErrBroadcastUnknown, err)
		}
		if reason := revertReasonFromError(err); reason != "" {
			return nil, fmt.Errorf("failed to send transaction: %s", reason)
		}
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}

// WaitMined polls for the receipt of txHash until timeout.
// Not-found responses keep polling; repeated provider errors abort.
func (c *ChainClient) WaitMined(ctx context.Context, txHash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt: %w", ctx.Err())
		case <-ticker.C:
			receipt, err := c.backend.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			if errors.Is(err, ethereum.NotFound) {
				failures = 0
				continue
			}
			failures++
			if failures >= maxPollErrors {
				return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
			}
		}
	}
}

// RevertReason replays a failed transaction at its block to recover the revert message
func (c *ChainClient) RevertReason(ctx context.Context, from common.Address, tx *ethtypes.Transaction, receipt *ethtypes.Receipt) string {
	_, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}, receipt.BlockNumber)
	if err == nil {
		return ""
	}
	return revertReasonFromError(err)
}

// rejectedByNode reports whether err is a JSON-RPC answer rather than a transport failure
func rejectedByNode(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return true
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return revertReasonFromError(err) != ""
}

// revertReasonFromError decodes Error(string) revert data carried by an RPC error
func revertReasonFromError(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}

	const marker = "execution reverted: "
	if i := strings.Index(err.Error(), marker); i >= 0 {
		return strings.TrimSpace(err.Error()[i+len(marker):])
	}
	return ""
}

// ParseReceipt scans the receipt logs in order for Minted, then for Transfer.
// It returns ErrEventNotFound when neither is present.
func (c *ChainClient) ParseReceipt(receipt *ethtypes.Receipt) (*MintEvent, error) {
	minted, hasMinted := c.contractABI.Events[nft.EventMinted]

	if hasMinted {
		for _, log := range receipt.Logs {
			if log.Address != c.contract || len(log.Topics) == 0 || log.Topics[0] != minted.ID {
				continue
			}
			event := &MintEvent{Source: SourceMinted}
			// Token ID is the second indexed parameter (Topics[2])
			if len(log.Topics) >= 3 {
				event.TokenID = new(big.Int).SetBytes(log.Topics[2].Bytes())
			}
			values, err := minted.Inputs.NonIndexed().Unpack(log.Data)
			if err == nil && len(values) == 2 {
				if uri, ok := values[0].(string); ok {
					event.TokenURI = uri
				}
				if value, ok := values[1].(*big.Int); ok {
					event.Value = value
				}
			}
			if event.TokenID != nil {
				return event, nil
			}
		}
	}

	for _, log := range receipt.Logs {
		if log.Address != c.contract || len(log.Topics) == 0 || log.Topics[0] != transferTopic {
			continue
		}
		// Token ID is the fourth indexed parameter (Topics[3])
		if len(log.Topics) >= 4 {
			return &MintEvent{
				TokenID: new(big.Int).SetBytes(log.Topics[3].Bytes()),
				Source:  SourceTransfer,
			}, nil
		}
	}

	return nil, ErrEventNotFound
}
