package query

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/core"
	"github.com/holiman/uint256"
)

var (
	governance = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	axel       = common.HexToAddress("0x00000000000000000000000000000000000a4e1")
	bianca     = common.HexToAddress("0x00000000000000000000000000000000000b1a2")
)

func TestBalanceOfQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubLedgerReader{
		balanceOfFn: func(_ context.Context, owner core.Address, id core.TokenID) *uint256.Int {
			called = true
			if owner != axel || id != 1001 {
				t.Fatalf("unexpected balance request: %s %d", owner.Hex(), id)
			}
			return uint256.NewInt(250)
		},
	}

	result, err := NewBalanceOfQuery(reader).Query(context.Background(), BalanceOfMessage{Owner: axel, ID: 1001})
	if err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if !called {
		t.Fatalf("expected ledger reader invocation")
	}
	if !result.Eq(uint256.NewInt(250)) {
		t.Fatalf("unexpected balance %s", result.Dec())
	}
}

func TestGetTokenQuery_MissingTokenIsNotFound(t *testing.T) {
	reader := stubLedgerReader{}
	_, err := NewGetTokenQuery(reader).Query(context.Background(), GetTokenMessage{ID: 42})
	if err == nil {
		t.Fatalf("expected not found error")
	}
	mapped := core.ToServiceError(err)
	if mapped.TextCode != core.CarbonErrorTokenNotExists {
		t.Fatalf("expected %q, got %q", core.CarbonErrorTokenNotExists, mapped.TextCode)
	}
}

func TestDepositQueries_Delegate(t *testing.T) {
	vault := common.HexToAddress("0x0000000000000000000000000000000000000fa1")
	history := stubDepositHistory{
		entries: []core.DepositEntry{
			{Vault: vault, From: axel, ReceiptID: 0, OriginalID: 1001, Amount: uint256.NewInt(250)},
			{Vault: vault, From: bianca, ReceiptID: 1, OriginalID: 1002, Amount: uint256.NewInt(10)},
		},
	}

	entry, err := NewGetDepositQuery(history).Query(context.Background(), GetDepositMessage{Vault: vault, ReceiptID: 1})
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if entry.From != bianca || entry.OriginalID != 1002 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	page, err := NewListDepositsQuery(history).Query(context.Background(), ListDepositsMessage{
		Filter: core.DepositFilter{Vault: vault, From: axel},
	})
	if err != nil {
		t.Fatalf("list deposits: %v", err)
	}
	if page.Total != 1 || page.Items[0].ReceiptID != 0 {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := NewListDepositsQuery(history).Query(context.Background(), ListDepositsMessage{
		Filter: core.DepositFilter{Page: -1},
	}); err == nil {
		t.Fatalf("expected negative page to be rejected")
	}
}

func TestRuntimeQueries_AgainstDeployedContracts(t *testing.T) {
	ctx := context.Background()
	rt, err := core.NewRuntime(core.Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	receipt, err := core.NewProvenanceReceipt(rt, governance, "CarbonReceipt55", "CR55")
	if err != nil {
		t.Fatalf("new provenance receipt: %v", err)
	}
	vault, err := core.NewVault(rt, governance, receipt)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if err := receipt.DelegatePermissionsTo(ctx, governance, governance); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := receipt.MintReceipt(ctx, governance, axel, 0, uint256.NewInt(5), 1001); err != nil {
		t.Fatalf("mint receipt: %v", err)
	}

	count, err := NewReceiptDataCountQuery(receipt).Query(ctx, ReceiptDataCountMessage{ReceiptID: 0})
	if err != nil || count != 1 {
		t.Fatalf("expected one record, got %d %v", count, err)
	}
	record, err := NewReceiptDataQuery(receipt).Query(ctx, ReceiptDataMessage{ReceiptID: 0, Index: 0})
	if err != nil || record.OriginalID != 1001 {
		t.Fatalf("unexpected record %+v %v", record, err)
	}
	if _, err := NewReceiptDataQuery(receipt).Query(ctx, ReceiptDataMessage{ReceiptID: 0, Index: 1}); !errors.Is(err, core.ErrIndexOutOfBounds) {
		t.Fatalf("expected ErrIndexOutOfBounds, got %v", err)
	}

	current, err := NewCurrentReceiptTokenIDQuery(vault).Query(ctx, CurrentReceiptTokenIDMessage{})
	if err != nil || current.Issued {
		t.Fatalf("expected no receipt issued by the vault, got %+v %v", current, err)
	}

	hasRole := NewHasRoleQuery(rt)
	minter, err := hasRole.Query(ctx, HasRoleMessage{Contract: receipt.Address(), Role: core.RoleMinter, Account: governance})
	if err != nil || !minter {
		t.Fatalf("expected governance to be a minter, got %v %v", minter, err)
	}
	owner, err := hasRole.Query(ctx, HasRoleMessage{Contract: vault.Address(), Role: core.RoleOwner, Account: axel})
	if err != nil || owner {
		t.Fatalf("expected axel not to own the vault, got %v %v", owner, err)
	}
	if _, err := hasRole.Query(ctx, HasRoleMessage{Contract: bianca, Role: core.RoleMinter, Account: axel}); err == nil {
		t.Fatalf("expected unknown contract error")
	}
	if _, err := hasRole.Query(ctx, HasRoleMessage{Contract: vault.Address(), Role: "AUDITOR", Account: axel}); err == nil {
		t.Fatalf("expected unknown role error")
	}
}

type stubLedgerReader struct {
	tokenFn     func(ctx context.Context, id core.TokenID) (core.TokenRecord, bool)
	balanceOfFn func(ctx context.Context, owner core.Address, id core.TokenID) *uint256.Int
}

func (s stubLedgerReader) Token(ctx context.Context, id core.TokenID) (core.TokenRecord, bool) {
	if s.tokenFn == nil {
		return core.TokenRecord{}, false
	}
	return s.tokenFn(ctx, id)
}

func (s stubLedgerReader) BalanceOf(ctx context.Context, owner core.Address, id core.TokenID) *uint256.Int {
	if s.balanceOfFn == nil {
		return new(uint256.Int)
	}
	return s.balanceOfFn(ctx, owner, id)
}

func (s stubLedgerReader) BalanceOfBatch(ctx context.Context, owners []core.Address, ids []core.TokenID) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(owners))
	for i := range owners {
		out[i] = s.BalanceOf(ctx, owners[i], ids[i])
	}
	return out, nil
}

func (s stubLedgerReader) URI(context.Context, core.TokenID) string { return "" }

type stubDepositHistory struct {
	entries []core.DepositEntry
}

func (s stubDepositHistory) GetByReceipt(_ context.Context, vault core.Address, receiptID uint64) (core.DepositEntry, error) {
	for _, entry := range s.entries {
		if entry.Vault == vault && entry.ReceiptID == receiptID {
			return entry, nil
		}
	}
	return core.DepositEntry{}, core.ErrDepositNotFound
}

func (s stubDepositHistory) ListDeposits(_ context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	page := core.DepositPage{Page: filter.Page, PerPage: filter.PerPage}
	for _, entry := range s.entries {
		if filter.From != core.ZeroAddress && entry.From != filter.From {
			continue
		}
		page.Items = append(page.Items, entry)
	}
	page.Total = len(page.Items)
	return page, nil
}
