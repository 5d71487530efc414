package nft

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ArtNFT contract methods and events
const (
	MethodMint        = "mint"
	MethodMintingCost = "MINTING_COST"
	MethodTokenURI    = "tokenURI"

	EventMinted   = "Minted"
	EventTransfer = "Transfer"
)

const (
	// DefaultContractAddress is used when no deployment artifact is present
	DefaultContractAddress = "0x83adc731564072ca4750e193e5068239a3b2407e"

	// LocalContractAddress is the first contract a fresh hardhat node deploys
	LocalContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

// contractABIJSON covers the ArtNFT surface the client calls plus the ERC721 Transfer event
const contractABIJSON = `[
	{
		"name": "mint",
		"type": "function",
		"inputs": [
			{"name": "tokenURI", "type": "string"}
		],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "payable"
	},
	{
		"name": "MINTING_COST",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"name": "tokenURI",
		"type": "function",
		"inputs": [
			{"name": "tokenId", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	},
	{
		"name": "Minted",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "minter", "type": "address"},
			{"indexed": true, "name": "tokenId", "type": "uint256"},
			{"indexed": false, "name": "tokenURI", "type": "string"},
			{"indexed": false, "name": "valueReceived", "type": "uint256"}
		]
	},
	{
		"name": "Transfer",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": true, "name": "tokenId", "type": "uint256"}
		]
	}
]`

// ParseABI returns the built-in ArtNFT ABI
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABIJSON))
}

// CheckMintInterface verifies that an ABI declares everything the mint flow calls
func CheckMintInterface(contractABI abi.ABI) error {
	for _, method := range []string{MethodMint, MethodMintingCost, MethodTokenURI} {
		if _, ok := contractABI.Methods[method]; !ok {
			return fmt.Errorf("ABI is missing method %s", method)
		}
	}
	if _, ok := contractABI.Events[EventMinted]; !ok {
		return fmt.Errorf("ABI is missing event %s", EventMinted)
	}
	return nil
}

// DefaultMintPrice returns the fallback payment (1.0 native unit)
func DefaultMintPrice() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}
