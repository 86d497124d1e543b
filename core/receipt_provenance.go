package core

import (
	"context"

	"github.com/holiman/uint256"
)

// ProvenanceReceipt is a multi-id receipt ledger. Each receipt id keeps the
// ordered list of issuances made under it.
type ProvenanceReceipt struct {
	rt      *Runtime
	address Address
	acl     *AccessControl
	name    string
	symbol  string
	book    *balanceBook
	records map[uint64][]ReceiptRecord
}

func NewProvenanceReceipt(rt *Runtime, admin Address, name, symbol string) (*ProvenanceReceipt, error) {
	if rt == nil {
		return nil, invalidArguments("runtime is required")
	}
	receipt := &ProvenanceReceipt{
		rt:      rt,
		name:    name,
		symbol:  symbol,
		book:    newBalanceBook(),
		records: map[uint64][]ReceiptRecord{},
	}
	receipt.address = rt.Deploy(admin, receipt)
	receipt.acl = NewAccessControl(rt, receipt.address, admin)
	return receipt, nil
}

func (p *ProvenanceReceipt) Address() Address { return p.address }

func (p *ProvenanceReceipt) Kind() ReceiptKind { return ReceiptKindProvenance }

func (p *ProvenanceReceipt) Name() string { return p.name }

func (p *ProvenanceReceipt) Symbol() string { return p.symbol }

func (p *ProvenanceReceipt) AccessControl() *AccessControl { return p.acl }

func (p *ProvenanceReceipt) DelegatePermissionsTo(ctx context.Context, caller Address, account Address) error {
	return p.acl.DelegatePermissionsTo(ctx, caller, account)
}

// Issue credits amount units of prov.ReceiptID to to and records where they
// came from.
func (p *ProvenanceReceipt) Issue(ctx context.Context, caller Address, to Address, amount *uint256.Int, prov Provenance) (ReceiptHandle, error) {
	if err := p.MintReceipt(ctx, caller, to, prov.ReceiptID, amount, prov.OriginalID); err != nil {
		return ReceiptHandle{}, err
	}
	return ReceiptHandle{Backend: p.address, ReceiptID: prov.ReceiptID, Amount: amountOrZero(amount)}, nil
}

func (p *ProvenanceReceipt) MintReceipt(
	ctx context.Context,
	caller, to Address,
	receiptID uint64,
	amount *uint256.Int,
	originalID TokenID,
) error {
	fields := map[string]any{
		"backend":     p.address.Hex(),
		"caller":      caller.Hex(),
		"to":          to.Hex(),
		"receipt_id":  receiptID,
		"original_id": originalID,
	}
	return p.rt.Atomic(ctx, "receipt.provenance.mint", fields, func(ctx context.Context, tx *Tx) error {
		if err := p.acl.requireMinter(caller); err != nil {
			return err
		}
		return p.mint(tx, caller, to, receiptID, amount, originalID)
	})
}

// BatchMintReceipt issues one receipt per entry in input order.
func (p *ProvenanceReceipt) BatchMintReceipt(
	ctx context.Context,
	caller, to Address,
	receiptIDs []uint64,
	amounts []*uint256.Int,
	originalIDs []TokenID,
) error {
	fields := map[string]any{
		"backend": p.address.Hex(),
		"caller":  caller.Hex(),
		"to":      to.Hex(),
		"count":   len(receiptIDs),
	}
	return p.rt.Atomic(ctx, "receipt.provenance.batch_mint", fields, func(ctx context.Context, tx *Tx) error {
		if err := p.acl.requireMinter(caller); err != nil {
			return err
		}
		if len(receiptIDs) != len(amounts) || len(receiptIDs) != len(originalIDs) {
			return invalidArguments("receipt ids, amounts and original ids length mismatch")
		}
		for i, receiptID := range receiptIDs {
			if err := p.mint(tx, caller, to, receiptID, amounts[i], originalIDs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *ProvenanceReceipt) ReceiptDataCount(ctx context.Context, receiptID uint64) int {
	return view(ctx, p.rt, func() int { return len(p.records[receiptID]) })
}

func (p *ProvenanceReceipt) ReceiptData(ctx context.Context, receiptID uint64, index int) (ReceiptRecord, error) {
	type result struct {
		record ReceiptRecord
		err    error
	}
	out := view(ctx, p.rt, func() result {
		records := p.records[receiptID]
		if index < 0 || index >= len(records) {
			return result{err: &IndexOutOfBoundsError{ReceiptID: receiptID, Index: index, Count: len(records)}}
		}
		record := records[index]
		record.Amount = amountOrZero(record.Amount)
		return result{record: record}
	})
	return out.record, out.err
}

func (p *ProvenanceReceipt) BalanceOf(ctx context.Context, holder Address, receiptID uint64) *uint256.Int {
	return view(ctx, p.rt, func() *uint256.Int { return p.book.balanceOf(holder, receiptID) })
}

func (p *ProvenanceReceipt) TotalSupply(ctx context.Context, receiptID uint64) *uint256.Int {
	return view(ctx, p.rt, func() *uint256.Int { return p.book.totalSupply(receiptID) })
}

func (p *ProvenanceReceipt) mint(tx *Tx, operator, to Address, receiptID uint64, amount *uint256.Int, originalID TokenID) error {
	if to == ZeroAddress {
		return ErrZeroAddress
	}
	amount = amountOrZero(amount)
	if err := p.book.mint(tx, to, receiptID, amount); err != nil {
		return err
	}
	previous := p.records[receiptID]
	p.records[receiptID] = append(previous[:len(previous):len(previous)], ReceiptRecord{
		ReceiptID:      receiptID,
		OriginalID:     originalID,
		Amount:         amount.Clone(),
		IssuedAtHeight: tx.Height(),
	})
	tx.OnRollback(func() {
		if previous == nil {
			delete(p.records, receiptID)
			return
		}
		p.records[receiptID] = previous
	})
	tx.Emit(TransferSingle{
		Contract: p.address,
		Operator: operator,
		From:     ZeroAddress,
		To:       to,
		ID:       receiptID,
		Amount:   amount.Clone(),
	})
	return nil
}
