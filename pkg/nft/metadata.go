package nft

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// DefaultTitle is used when the intent carries no title
const DefaultTitle = "Untitled Artwork"

// Metadata is the token metadata document uploaded next to the image
type Metadata struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Artist      string     `json:"artist"`
	Image       string     `json:"image,omitempty"`
	Properties  Properties `json:"properties"`
}

// Properties binds the document to the image bytes independently of any storage provider
type Properties struct {
	SHA256    types.AssetHash `json:"sha256"`
	CreatedAt string          `json:"createdAt"`
}

// IPFSURI builds the ipfs:// URI for a content identifier
func IPFSURI(cid string) string {
	return "ipfs://" + cid
}

// Title returns the trimmed title or DefaultTitle
func Title(intent types.MintIntent) string {
	if title := strings.TrimSpace(intent.Title); title != "" {
		return title
	}
	return DefaultTitle
}

// BuildMetadata builds the metadata document for an intent.
// An empty imageCID leaves the image field out (placeholder mode).
func BuildMetadata(intent types.MintIntent, imageCID string) Metadata {
	metadata := Metadata{
		Name:        Title(intent),
		Description: strings.TrimSpace(intent.Description),
		Artist:      strings.TrimSpace(intent.Artist),
		Properties: Properties{
			SHA256:    intent.AssetHash,
			CreatedAt: intent.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	if imageCID != "" {
		metadata.Image = IPFSURI(imageCID)
	}
	return metadata
}

// JSON encodes the document the way it is uploaded
func (m Metadata) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}
