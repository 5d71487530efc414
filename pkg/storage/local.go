package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
)

// LocalStore keeps content in a directory under its CIDv1 name.
// It stands in for a pinning service when minting against a local chain.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the store directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = ".artmint/ipfs"
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) Name() string { return ProviderLocal }

// Upload writes obj.Data to dir/<cid>; re-uploading identical bytes is a no-op
func (l *LocalStore) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c, err := nft.ComputeCID(obj.Data)
	if err != nil {
		return "", err
	}

	path := l.Path(c)
	if _, err := os.Stat(path); err == nil {
		return c, nil
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, obj.Data, 0600); err != nil {
		return "", fmt.Errorf("failed to write local object: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to store local object: %w", err)
	}

	return c, nil
}

// Path returns where the content for c lives
func (l *LocalStore) Path(c string) string {
	return filepath.Join(l.dir, c)
}

// Get reads stored content back
func (l *LocalStore) Get(c string) ([]byte, error) {
	if err := ValidateCID(c); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path(c))
	if err != nil {
		return nil, fmt.Errorf("failed to read local object %s: %w", c, err)
	}
	return data, nil
}
