package nft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Artifact file names written by the deploy script
const (
	ContractAddressFile = "contract-address.json"
	ABIFile             = "abi.json"
)

var logger = logrus.WithField("component", "nft")

// Deployment describes the contract the client mints against
type Deployment struct {
	Address common.Address
	Network string
	ChainID uint64
	ABI     abi.ABI

	// Set when the address (or ABI) came from artifact files rather than defaults
	AddressFromArtifact bool
	ABIFromArtifact     bool
}

type contractAddressDoc struct {
	Address string          `json:"address"`
	Network string          `json:"network"`
	ChainID json.RawMessage `json:"chainId"`
}

// LoadDeployment reads the deployment artifacts from dir.
// Missing or unusable files fall back to the built-in ABI and DefaultContractAddress.
func LoadDeployment(dir string) (*Deployment, error) {
	builtin, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in ABI: %w", err)
	}

	deployment := &Deployment{
		Address: common.HexToAddress(DefaultContractAddress),
		ABI:     builtin,
	}

	if dir == "" {
		return deployment, nil
	}

	if doc, err := readContractAddress(filepath.Join(dir, ContractAddressFile)); err != nil {
		logger.WithError(err).Warn("⚠️ contract-address.json load failed, using default address")
	} else if doc != nil {
		deployment.Address = common.HexToAddress(doc.Address)
		deployment.Network = doc.Network
		deployment.ChainID = parseChainID(doc.ChainID)
		deployment.AddressFromArtifact = true
	}

	if parsed, err := readABI(filepath.Join(dir, ABIFile)); err != nil {
		logger.WithError(err).Warn("⚠️ abi.json load failed, using built-in ABI")
	} else if parsed != nil {
		deployment.ABI = *parsed
		deployment.ABIFromArtifact = true
	}

	return deployment, nil
}

// WithAddress overrides the contract address (CONTRACT_ADDRESS)
func (d *Deployment) WithAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid contract address: %s", address)
	}
	d.Address = common.HexToAddress(address)
	return nil
}

func readContractAddress(path string) (*contractAddressDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ContractAddressFile, err)
	}

	var doc contractAddressDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ContractAddressFile, err)
	}
	if !common.IsHexAddress(doc.Address) {
		return nil, fmt.Errorf("%s has invalid address %q", ContractAddressFile, doc.Address)
	}
	return &doc, nil
}

// readABI accepts both a bare ABI array and a hardhat artifact with an "abi" field
func readABI(path string) (*abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ABIFile, err)
	}

	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapper struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ABIFile, err)
		}
		raw = wrapper.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ABIFile, err)
	}
	if err := CheckMintInterface(parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseChainID accepts a JSON number or a decimal/hex string
func parseChainID(raw json.RawMessage) uint64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if strings.HasPrefix(s, "0x") {
		id, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0
		}
		return id
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
