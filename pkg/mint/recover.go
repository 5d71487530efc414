package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// RecoverReport summarizes a journal reconciliation
type RecoverReport struct {
	Confirmed []*types.MintResult `json:"confirmed"`
	Reverted  []string            `json:"reverted"`
	Pending   []string            `json:"pending"`
	Skipped   []string            `json:"skipped"`
}

// Recover reconciles journal entries left by interrupted attempts.
// Confirmed mints are appended to the ledger, reverted ones are dropped,
// unknown ones stay pending. Nothing is resubmitted.
func (m *Minter) Recover(ctx context.Context) (*RecoverReport, error) {
	entries, err := m.journal.List()
	if err != nil {
		return nil, err
	}

	report := &RecoverReport{}
	if len(entries) == 0 {
		return report, nil
	}

	chainID, err := m.session.wallet.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	client, err := m.chainClient()
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		log := logger.WithFields(logrus.Fields{
			"attempt": entry.AttemptID,
			"tx":      entry.TxHash,
		})

		if entry.ChainID != chainID || common.HexToAddress(entry.Contract) != client.Contract() {
			log.WithField("chain_id", entry.ChainID).Info("🔍 Entry belongs to another chain or contract, skipping")
			report.Skipped = append(report.Skipped, entry.TxHash)
			continue
		}

		receipt, err := client.backend.TransactionReceipt(ctx, common.HexToHash(entry.TxHash))
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				log.WithError(err).Warn("⚠️ Could not read receipt")
			} else {
				log.Info("⏳ Transaction still pending")
			}
			report.Pending = append(report.Pending, entry.TxHash)
			continue
		}

		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			log.Warn("❌ Transaction reverted")
			report.Reverted = append(report.Reverted, entry.TxHash)
			if err := m.journal.Delete(entry.AttemptID); err != nil {
				log.WithError(err).Warn("⚠️ Failed to delete journal entry")
			}
			continue
		}

		value, _ := new(big.Int).SetString(entry.Value, 10)
		result := m.reconcile(log, client, receipt, entry.TxHash, entry.ChainID, value, entry.Receipt.TokenURI)
		result.ContractAddress = entry.Contract

		record := buildRecord(result, entry.Intent, &entry.Receipt, entry.ImageFileName)
		if err := m.ledger.Append(ctx, record); err != nil {
			log.WithError(err).Warn("⚠️ Failed to append recovered mint, keeping journal entry")
			report.Pending = append(report.Pending, entry.TxHash)
			continue
		}
		if err := m.journal.Delete(entry.AttemptID); err != nil {
			log.WithError(err).Warn("⚠️ Failed to delete journal entry")
		}

		log.WithField("token_id", result.TokenID).Info("✅ Recovered confirmed mint")
		report.Confirmed = append(report.Confirmed, result)
	}

	return report, nil
}
