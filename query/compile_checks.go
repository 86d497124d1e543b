package query

import (
	"github.com/goliatone/go-carbon/core"
	gocmd "github.com/goliatone/go-command"
	"github.com/holiman/uint256"
)

var (
	_ gocmd.Querier[GetTokenMessage, core.TokenRecord]                   = (*GetTokenQuery)(nil)
	_ gocmd.Querier[BalanceOfMessage, *uint256.Int]                      = (*BalanceOfQuery)(nil)
	_ gocmd.Querier[BalanceOfBatchMessage, []*uint256.Int]               = (*BalanceOfBatchQuery)(nil)
	_ gocmd.Querier[TokenURIMessage, string]                             = (*TokenURIQuery)(nil)
	_ gocmd.Querier[ReceiptDataCountMessage, int]                        = (*ReceiptDataCountQuery)(nil)
	_ gocmd.Querier[ReceiptDataMessage, core.ReceiptRecord]              = (*ReceiptDataQuery)(nil)
	_ gocmd.Querier[CurrentReceiptTokenIDMessage, CurrentReceiptTokenID] = (*CurrentReceiptTokenIDQuery)(nil)
	_ gocmd.Querier[IsSupportedSourceMessage, bool]                      = (*IsSupportedSourceQuery)(nil)
	_ gocmd.Querier[HasRoleMessage, bool]                                = (*HasRoleQuery)(nil)
	_ gocmd.Querier[GetDepositMessage, core.DepositEntry]                = (*GetDepositQuery)(nil)
	_ gocmd.Querier[ListDepositsMessage, core.DepositPage]               = (*ListDepositsQuery)(nil)

	_ LedgerReader     = (*core.MultiIDLedger)(nil)
	_ ProvenanceReader = (*core.ProvenanceReceipt)(nil)
	_ VaultReader      = (*core.Vault)(nil)
	_ ContractResolver = (*core.Runtime)(nil)
)
