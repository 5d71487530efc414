package types

import (
	"encoding/hex"
	"math/big"
	"strings"
	"time"
)

// AssetHash is the hex-encoded SHA-256 digest of an asset's raw bytes
type AssetHash string

// Short returns the first 16 hex characters for log lines
func (h AssetHash) Short() string {
	if len(h) >= 16 {
		return string(h[:16]) + "..."
	}
	return string(h)
}

// Valid reports whether the hash is 64 lowercase hex characters
func (h AssetHash) Valid() bool {
	if len(h) != 64 || strings.ToLower(string(h)) != string(h) {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// MintIntent is the user's declared attributes for one artwork
type MintIntent struct {
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Description string    `json:"description"`
	AssetHash   AssetHash `json:"sha256"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate validates the mint intent
func (i *MintIntent) Validate() *ValidationResult {
	var errors []string

	if i.AssetHash == "" {
		errors = append(errors, "asset hash is required")
	} else if !i.AssetHash.Valid() {
		errors = append(errors, "asset hash must be 64 lowercase hex characters")
	}

	if len(i.Title) > 200 {
		errors = append(errors, "title must be 200 characters or less")
	}

	if len(i.Artist) > 100 {
		errors = append(errors, "artist must be 100 characters or less")
	}

	if len(i.Description) > 2000 {
		errors = append(errors, "description must be 2000 characters or less")
	}

	if i.CreatedAt.IsZero() {
		errors = append(errors, "creation timestamp is required")
	}

	return &ValidationResult{
		IsValid: len(errors) == 0,
		Errors:  errors,
	}
}

// StorageReceipt holds the content identifiers produced by a storage upload.
// A placeholder receipt carries only a token URI.
type StorageReceipt struct {
	Provider    string `json:"provider"`
	ImageCID    string `json:"imageCid,omitempty"`
	MetadataCID string `json:"metadataCid,omitempty"`
	TokenURI    string `json:"tokenURI"`
}

// IsPlaceholder reports whether storage was bypassed
func (r *StorageReceipt) IsPlaceholder() bool {
	return r.MetadataCID == ""
}

// ChainContext is the cached chain-dependent state of a session.
// Epoch increases on every reload; MinPayment is only valid within its epoch.
type ChainContext struct {
	ChainID    uint64   `json:"chain_id"`
	Network    string   `json:"network"`
	Symbol     string   `json:"symbol"`
	Supported  bool     `json:"supported"`
	MinPayment *big.Int `json:"min_payment,omitempty"`
	Epoch      uint64   `json:"epoch"`
}

// MintResult is the outcome of a confirmed mint transaction.
// TokenID is nil when the receipt carried neither a Minted nor a Transfer event.
type MintResult struct {
	TokenID         *big.Int `json:"-"`
	ContractAddress string   `json:"contract_address"`
	TokenURI        string   `json:"token_uri"`
	TxHash          string   `json:"tx_hash"`
	ChainID         uint64   `json:"chain_id"`
	BlockNumber     uint64   `json:"block_number"`
	ValuePaid       *big.Int `json:"value_paid,omitempty"`

	// NotRecorded is set when the local ledger append failed; the pending
	// journal entry is kept for recovery
	NotRecorded bool `json:"not_recorded,omitempty"`
}

// TokenIDString returns the decimal token id, or nil when unknown
func (r *MintResult) TokenIDString() *string {
	if r.TokenID == nil {
		return nil
	}
	s := r.TokenID.String()
	return &s
}

// LocalMintRecord is one entry of the local ledger
type LocalMintRecord struct {
	ID            string    `json:"id"`
	TokenID       *string   `json:"tokenId"`
	Contract      string    `json:"contract"`
	ChainID       uint64    `json:"chainId"`
	TxHash        string    `json:"txHash"`
	TokenURI      string    `json:"tokenURI"`
	Artist        string    `json:"artist"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ImageFileName *string   `json:"imageFileName"`
	SHA256        AssetHash `json:"sha256"`
	ImageCID      string    `json:"imageCid,omitempty"`
	MetadataCID   string    `json:"metadataCid,omitempty"`
	MintedAt      time.Time `json:"mintedAt"`
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}
