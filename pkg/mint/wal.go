package mint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// PendingMint is a journal entry for a submitted but unreconciled mint.
// It is written right after the transaction is sent and removed once the
// outcome is known, so an interrupted run can be reconciled later.
type PendingMint struct {
	AttemptID     string               `json:"attempt_id"`
	TxHash        string               `json:"tx_hash"`
	Wallet        string               `json:"wallet"`
	Contract      string               `json:"contract"`
	ChainID       uint64               `json:"chain_id"`
	Value         string               `json:"value_wei"`
	Intent        types.MintIntent     `json:"intent"`
	Receipt       types.StorageReceipt `json:"storage_receipt"`
	ImageFileName string               `json:"image_file_name,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Journal stores PendingMint entries, one file per attempt
type Journal struct {
	dir string
}

// NewJournal creates a journal in ~/.artmint/wal
func NewJournal() *Journal {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Journal{dir: filepath.Join(homeDir, ".artmint", "wal")}
}

// NewJournalWithDir creates a journal with a custom directory
func NewJournalWithDir(dir string) *Journal {
	if dir == "" {
		return NewJournal()
	}
	return &Journal{dir: dir}
}

// Dir returns the journal directory
func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) getPath(attemptID string) string {
	return filepath.Join(j.dir, attemptID+".json")
}

func (j *Journal) ensureDir() error {
	return os.MkdirAll(j.dir, 0700)
}

// Load loads the entry for an attempt; a missing entry is (nil, nil)
func (j *Journal) Load(attemptID string) (*PendingMint, error) {
	data, err := os.ReadFile(j.getPath(attemptID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var entry PendingMint
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal file: %w", err)
	}

	return &entry, nil
}

// Save writes an entry atomically
func (j *Journal) Save(entry *PendingMint) error {
	if entry.AttemptID == "" {
		return fmt.Errorf("journal entry has no attempt id")
	}
	if err := j.ensureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	path := j.getPath(entry.AttemptID)

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}

	return nil
}

// Delete removes an entry; deleting a missing entry is not an error
func (j *Journal) Delete(attemptID string) error {
	if err := os.Remove(j.getPath(attemptID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}

// Exists checks if an entry exists
func (j *Journal) Exists(attemptID string) bool {
	_, err := os.Stat(j.getPath(attemptID))
	return err == nil
}

// List returns all entries, oldest first
func (j *Journal) List() ([]*PendingMint, error) {
	if err := j.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	files, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []*PendingMint
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		entry, err := j.Load(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			logger.WithError(err).WithField("file", file.Name()).Warn("⚠️ Skipping unreadable journal entry")
			continue
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].CreatedAt.Before(entries[b].CreatedAt)
	})
	return entries, nil
}

// FindByAsset returns the pending entries for an asset hash
func (j *Journal) FindByAsset(hash types.AssetHash) ([]*PendingMint, error) {
	entries, err := j.List()
	if err != nil {
		return nil, err
	}

	var matches []*PendingMint
	for _, entry := range entries {
		if entry.Intent.AssetHash == hash {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

// CleanupOld removes entries not updated within maxAge
func (j *Journal) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0

	for _, entry := range entries {
		if now.Sub(entry.UpdatedAt) > maxAge {
			if err := j.Delete(entry.AttemptID); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}
