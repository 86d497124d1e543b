package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/holiman/uint256"
	"github.com/uptrace/bun"
)

// DepositStore reads the deposit rows written by EventStore.
type DepositStore struct {
	db   *bun.DB
	repo repository.Repository[*depositRecord]
}

func NewDepositStore(db *bun.DB) (*DepositStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*depositRecord](db, depositHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid deposit repository wiring: %w", err)
		}
	}
	return &DepositStore{db: db, repo: repo}, nil
}

func (s *DepositStore) GetByReceipt(ctx context.Context, vault core.Address, receiptID uint64) (core.DepositEntry, error) {
	if s == nil || s.db == nil {
		return core.DepositEntry{}, fmt.Errorf("sqlstore: deposit store is not configured")
	}
	record := &depositRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.vault = ?", vault.Hex()).
		Where("?TableAlias.receipt_id = ?", int64(receiptID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.DepositEntry{}, fmt.Errorf("%w: vault %s receipt %d", core.ErrDepositNotFound, vault.Hex(), receiptID)
		}
		return core.DepositEntry{}, err
	}
	return depositRecordToDomain(record)
}

func (s *DepositStore) ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	if s == nil || s.repo == nil {
		return core.DepositPage{}, fmt.Errorf("sqlstore: deposit store is not configured")
	}
	page, perPage, offset := normalizePage(filter.Page, filter.PerPage)

	selectors := []repository.SelectCriteria{
		repository.OrderBy("height ASC"),
		repository.OrderBy("receipt_id ASC"),
		repository.SelectPaginate(perPage, offset),
	}
	if filter.Vault != core.ZeroAddress {
		selectors = append(selectors, repository.SelectBy("vault", "=", filter.Vault.Hex()))
	}
	if filter.From != core.ZeroAddress {
		selectors = append(selectors, repository.SelectBy("depositor", "=", filter.From.Hex()))
	}
	if filter.Source != core.ZeroAddress {
		selectors = append(selectors, repository.SelectBy("source_ledger", "=", filter.Source.Hex()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.DepositPage{}, err
	}
	items := make([]core.DepositEntry, 0, len(records))
	for _, record := range records {
		entry, err := depositRecordToDomain(record)
		if err != nil {
			return core.DepositPage{}, err
		}
		items = append(items, entry)
	}
	return core.DepositPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func depositRecordToDomain(record *depositRecord) (core.DepositEntry, error) {
	if record == nil {
		return core.DepositEntry{}, fmt.Errorf("sqlstore: deposit record is nil")
	}
	originalID, err := strconv.ParseUint(record.OriginalID, 10, 64)
	if err != nil {
		return core.DepositEntry{}, fmt.Errorf("sqlstore: parse original id %q: %w", record.OriginalID, err)
	}
	amount, err := uint256.FromDecimal(record.Amount)
	if err != nil {
		return core.DepositEntry{}, fmt.Errorf("sqlstore: parse amount %q: %w", record.Amount, err)
	}
	return core.DepositEntry{
		Height:     uint64(record.Height),
		Vault:      common.HexToAddress(record.Vault),
		Source:     common.HexToAddress(record.Source),
		Backend:    common.HexToAddress(record.Backend),
		From:       common.HexToAddress(record.Depositor),
		ReceiptID:  uint64(record.ReceiptID),
		OriginalID: originalID,
		Amount:     amount,
		RecordedAt: record.CreatedAt,
	}, nil
}

func decimalString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}
