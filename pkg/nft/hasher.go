package nft

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// MaxAssetSize bounds the artwork file read into memory (100MB)
const MaxAssetSize = 100 << 20

var (
	ErrAssetMissing = errors.New("asset file is missing")
	ErrAssetChanged = errors.New("asset changed since it was hashed")
	ErrAssetEmpty   = errors.New("asset file is empty")
)

// Asset is an artwork file together with the digest computed over its bytes.
// The file reference (path, size, modification time) is what the hash is bound to.
type Asset struct {
	Path    string          `json:"path"`
	Name    string          `json:"name"`
	Size    int64           `json:"size"`
	ModTime time.Time       `json:"mod_time"`
	Hash    types.AssetHash `json:"sha256"`
}

// HashBytes returns the hex SHA-256 digest of data
func HashBytes(data []byte) types.AssetHash {
	sum := sha256.Sum256(data)
	return types.AssetHash(hex.EncodeToString(sum[:]))
}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data
func ComputeCID(data []byte) (string, error) {
	pref := cid.Prefix{
		Version:  1,
		Codec:    cid.Raw,
		MhType:   mh.SHA2_256,
		MhLength: -1, // default length (32 bytes for SHA2-256)
	}

	c, err := pref.Sum(data)
	if err != nil {
		return "", fmt.Errorf("failed to compute CID: %w", err)
	}
	return c.String(), nil
}

// LoadAsset reads an artwork file and hashes it
func LoadAsset(path string) (*Asset, []byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrAssetMissing, absPath)
		}
		return nil, nil, fmt.Errorf("failed to stat asset: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("asset path is a directory: %s", absPath)
	}
	if info.Size() == 0 {
		return nil, nil, ErrAssetEmpty
	}
	if info.Size() > MaxAssetSize {
		return nil, nil, fmt.Errorf("asset too large (max %d bytes, got %d)", MaxAssetSize, info.Size())
	}

	data, err := readLimited(absPath)
	if err != nil {
		return nil, nil, err
	}

	return &Asset{
		Path:    absPath,
		Name:    filepath.Base(absPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    HashBytes(data),
	}, data, nil
}

// Current checks that the file the hash was computed for is still in place and unmodified
func (a *Asset) Current() error {
	info, err := os.Stat(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrAssetMissing, a.Path)
		}
		return fmt.Errorf("failed to stat asset: %w", err)
	}
	if info.Size() != a.Size || !info.ModTime().Equal(a.ModTime) {
		return fmt.Errorf("%w: %s", ErrAssetChanged, a.Name)
	}
	return nil
}

// Read loads the asset bytes again and verifies them against the stored hash
func (a *Asset) Read() ([]byte, error) {
	data, err := readLimited(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, a.Path)
		}
		return nil, err
	}
	if err := a.Verify(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Verify recomputes the hash over data and compares it with the hashed reference
func (a *Asset) Verify(data []byte) error {
	if HashBytes(data) != a.Hash {
		return fmt.Errorf("%w: %s", ErrAssetChanged, a.Name)
	}
	return nil
}

func readLimited(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("asset too large (max %d bytes)", MaxAssetSize)
	}
	return data, nil
}
