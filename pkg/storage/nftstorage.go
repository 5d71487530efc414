package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NFTStorageEndpoint is the NFT.storage upload API
const NFTStorageEndpoint = "https://api.nft.storage/upload"

// NFTStorage uploads raw bytes to NFT.storage
type NFTStorage struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

type nftStorageResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
}

// NewNFTStorage creates an NFT.storage uploader; an empty endpoint uses the public API
func NewNFTStorage(apiKey, endpoint string) *NFTStorage {
	if endpoint == "" {
		endpoint = NFTStorageEndpoint
	}
	return &NFTStorage{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: newHTTPClient(),
		now:        time.Now,
	}
}

func (s *NFTStorage) Name() string { return ProviderNFTStorage }

// Upload posts obj.Data as the request body and returns value.cid
func (s *NFTStorage) Upload(ctx context.Context, obj Object) (string, error) {
	if err := CheckCredential(s.apiKey, s.now()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(obj.Data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if obj.ContentType != "" {
		req.Header.Set("Content-Type", obj.ContentType)
	}

	body, err := do(s.httpClient, req, "NFT.storage")
	if err != nil {
		return "", err
	}

	var result nftStorageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse NFT.storage response: %w", err)
	}
	if !result.OK {
		if msg := extractErrorMessage(body); msg != "" {
			return "", fmt.Errorf("NFT.storage upload failed: %s", msg)
		}
		return "", fmt.Errorf("NFT.storage upload failed: response not ok")
	}
	if err := ValidateCID(result.Value.CID); err != nil {
		return "", err
	}

	return result.Value.CID, nil
}
