package query

import (
	"context"

	"github.com/goliatone/go-carbon/core"
	"github.com/holiman/uint256"
)

type LedgerReader interface {
	Token(ctx context.Context, id core.TokenID) (core.TokenRecord, bool)
	BalanceOf(ctx context.Context, owner core.Address, id core.TokenID) *uint256.Int
	BalanceOfBatch(ctx context.Context, owners []core.Address, ids []core.TokenID) ([]*uint256.Int, error)
	URI(ctx context.Context, id core.TokenID) string
}

type ProvenanceReader interface {
	ReceiptDataCount(ctx context.Context, receiptID uint64) int
	ReceiptData(ctx context.Context, receiptID uint64, index int) (core.ReceiptRecord, error)
}

type VaultReader interface {
	CurrentReceiptTokenID(ctx context.Context) (uint64, bool)
	IsSupportedSource(ctx context.Context, source core.Address) bool
}

type ContractResolver interface {
	Contract(address core.Address) (any, bool)
}

type accessControlled interface {
	AccessControl() *core.AccessControl
}

type GetTokenQuery struct {
	reader LedgerReader
}

func NewGetTokenQuery(reader LedgerReader) *GetTokenQuery {
	return &GetTokenQuery{reader: reader}
}

func (q *GetTokenQuery) Query(ctx context.Context, msg GetTokenMessage) (core.TokenRecord, error) {
	if q == nil || q.reader == nil {
		return core.TokenRecord{}, queryDependencyError("query: ledger reader is required")
	}
	record, ok := q.reader.Token(ctx, msg.ID)
	if !ok {
		return core.TokenRecord{}, queryNotFoundError(&core.TokenNotExistsError{ID: msg.ID}, "query: token not found")
	}
	return record, nil
}

type BalanceOfQuery struct {
	reader LedgerReader
}

func NewBalanceOfQuery(reader LedgerReader) *BalanceOfQuery {
	return &BalanceOfQuery{reader: reader}
}

func (q *BalanceOfQuery) Query(ctx context.Context, msg BalanceOfMessage) (*uint256.Int, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: ledger reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.BalanceOf(ctx, msg.Owner, msg.ID), nil
}

type BalanceOfBatchQuery struct {
	reader LedgerReader
}

func NewBalanceOfBatchQuery(reader LedgerReader) *BalanceOfBatchQuery {
	return &BalanceOfBatchQuery{reader: reader}
}

func (q *BalanceOfBatchQuery) Query(ctx context.Context, msg BalanceOfBatchMessage) ([]*uint256.Int, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: ledger reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.BalanceOfBatch(ctx, msg.Owners, msg.IDs)
}

type TokenURIQuery struct {
	reader LedgerReader
}

func NewTokenURIQuery(reader LedgerReader) *TokenURIQuery {
	return &TokenURIQuery{reader: reader}
}

func (q *TokenURIQuery) Query(ctx context.Context, msg TokenURIMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: ledger reader is required")
	}
	return q.reader.URI(ctx, msg.ID), nil
}

type ReceiptDataCountQuery struct {
	reader ProvenanceReader
}

func NewReceiptDataCountQuery(reader ProvenanceReader) *ReceiptDataCountQuery {
	return &ReceiptDataCountQuery{reader: reader}
}

func (q *ReceiptDataCountQuery) Query(ctx context.Context, msg ReceiptDataCountMessage) (int, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: provenance reader is required")
	}
	return q.reader.ReceiptDataCount(ctx, msg.ReceiptID), nil
}

type ReceiptDataQuery struct {
	reader ProvenanceReader
}

func NewReceiptDataQuery(reader ProvenanceReader) *ReceiptDataQuery {
	return &ReceiptDataQuery{reader: reader}
}

func (q *ReceiptDataQuery) Query(ctx context.Context, msg ReceiptDataMessage) (core.ReceiptRecord, error) {
	if q == nil || q.reader == nil {
		return core.ReceiptRecord{}, queryDependencyError("query: provenance reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.ReceiptRecord{}, err
	}
	return q.reader.ReceiptData(ctx, msg.ReceiptID, msg.Index)
}

type CurrentReceiptTokenIDQuery struct {
	reader VaultReader
}

func NewCurrentReceiptTokenIDQuery(reader VaultReader) *CurrentReceiptTokenIDQuery {
	return &CurrentReceiptTokenIDQuery{reader: reader}
}

func (q *CurrentReceiptTokenIDQuery) Query(ctx context.Context, _ CurrentReceiptTokenIDMessage) (CurrentReceiptTokenID, error) {
	if q == nil || q.reader == nil {
		return CurrentReceiptTokenID{}, queryDependencyError("query: vault reader is required")
	}
	id, issued := q.reader.CurrentReceiptTokenID(ctx)
	return CurrentReceiptTokenID{ID: id, Issued: issued}, nil
}

type IsSupportedSourceQuery struct {
	reader VaultReader
}

func NewIsSupportedSourceQuery(reader VaultReader) *IsSupportedSourceQuery {
	return &IsSupportedSourceQuery{reader: reader}
}

func (q *IsSupportedSourceQuery) Query(ctx context.Context, msg IsSupportedSourceMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: vault reader is required")
	}
	return q.reader.IsSupportedSource(ctx, msg.Source), nil
}

// HasRoleQuery answers role membership on any deployed contract that carries
// an access control list.
type HasRoleQuery struct {
	contracts ContractResolver
}

func NewHasRoleQuery(contracts ContractResolver) *HasRoleQuery {
	return &HasRoleQuery{contracts: contracts}
}

func (q *HasRoleQuery) Query(ctx context.Context, msg HasRoleMessage) (bool, error) {
	if q == nil || q.contracts == nil {
		return false, queryDependencyError("query: contract resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return false, err
	}
	deployed, ok := q.contracts.Contract(msg.Contract)
	if !ok {
		return false, queryNotFoundError(core.ErrUnknownContract, "query: contract not found")
	}
	controlled, ok := deployed.(accessControlled)
	if !ok {
		return false, queryNotFoundError(core.ErrUnknownContract, "query: contract has no access control")
	}
	return controlled.AccessControl().HasRole(ctx, msg.Role, msg.Account), nil
}

type GetDepositQuery struct {
	history core.DepositHistory
}

func NewGetDepositQuery(history core.DepositHistory) *GetDepositQuery {
	return &GetDepositQuery{history: history}
}

func (q *GetDepositQuery) Query(ctx context.Context, msg GetDepositMessage) (core.DepositEntry, error) {
	if q == nil || q.history == nil {
		return core.DepositEntry{}, queryDependencyError("query: deposit history is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DepositEntry{}, err
	}
	return q.history.GetByReceipt(ctx, msg.Vault, msg.ReceiptID)
}

type ListDepositsQuery struct {
	history core.DepositHistory
}

func NewListDepositsQuery(history core.DepositHistory) *ListDepositsQuery {
	return &ListDepositsQuery{history: history}
}

func (q *ListDepositsQuery) Query(ctx context.Context, msg ListDepositsMessage) (core.DepositPage, error) {
	if q == nil || q.history == nil {
		return core.DepositPage{}, queryDependencyError("query: deposit history is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DepositPage{}, err
	}
	return q.history.ListDeposits(ctx, msg.Filter)
}
