package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// DefaultPath is the ledger file name, matching the exported document name
const DefaultPath = "all_minted_artworks.json"

var logger = logrus.WithField("component", "ledger")

// Mirror receives a copy of every appended record
type Mirror interface {
	Publish(ctx context.Context, record *types.LocalMintRecord) error
}

// Ledger is the append-only local log of confirmed mints.
// The file holds one JSON array rewritten in full on every append.
type Ledger struct {
	filePath string
	mu       sync.RWMutex
	mirror   Mirror
	now      func() time.Time
}

// New creates a ledger backed by filePath
func New(filePath string) (*Ledger, error) {
	if filePath == "" {
		filePath = DefaultPath
	}

	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	return &Ledger{
		filePath: filePath,
		now:      time.Now,
	}, nil
}

// WithMirror sets the mirror that receives appended records
func (l *Ledger) WithMirror(m Mirror) *Ledger {
	l.mirror = m
	return l
}

// Path returns the ledger file path
func (l *Ledger) Path() string {
	return l.filePath
}

// Append adds a record at the end of the log.
// An unparseable existing file is moved aside and a fresh list is started.
func (l *Ledger) Append(ctx context.Context, record *types.LocalMintRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MintedAt.IsZero() {
		record.MintedAt = l.now().UTC()
	}

	records, err := l.read()
	if err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt-%d", l.filePath, l.now().Unix())
		logger.WithError(err).WithField("moved_to", corruptPath).Warn("⚠️ Ledger unreadable, starting a fresh list")
		if renameErr := os.Rename(l.filePath, corruptPath); renameErr != nil {
			logger.WithError(renameErr).Warn("⚠️ Failed to move corrupt ledger aside")
		}
		metrics.LedgerResets.Inc()
		records = nil
	}

	records = append(records, *record)
	if err := l.write(records); err != nil {
		return err
	}
	metrics.LedgerRecords.Set(float64(len(records)))

	if l.mirror != nil {
		if err := l.mirror.Publish(ctx, record); err != nil {
			logger.WithError(err).WithField("record_id", record.ID).Warn("⚠️ Ledger mirror publish failed")
		}
	}

	return nil
}

// List returns every record in append order
func (l *Ledger) List() ([]types.LocalMintRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.read()
}

// Export writes the full ledger as an indented JSON array
func (l *Ledger) Export(w io.Writer) error {
	records, err := l.List()
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.LocalMintRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write ledger export: %w", err)
	}
	return nil
}

// read must be called with l.mu held
func (l *Ledger) read() ([]types.LocalMintRecord, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []types.LocalMintRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	return records, nil
}

// write must be called with l.mu held
func (l *Ledger) write(records []types.LocalMintRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	// Write to temp file first for atomic operation
	tempPath := l.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}

	if err := os.Rename(tempPath, l.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save ledger file: %w", err)
	}

	return nil
}
