package command

import (
	"github.com/goliatone/go-carbon/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[CreateTokenMessage]           = (*CreateTokenCommand)(nil)
	_ gocmd.Commander[MintToMessage]                = (*MintToCommand)(nil)
	_ gocmd.Commander[SetTokenURIMessage]           = (*SetTokenURICommand)(nil)
	_ gocmd.Commander[RotateSignerMessage]          = (*RotateSignerCommand)(nil)
	_ gocmd.Commander[SetApprovalForAllMessage]     = (*SetApprovalForAllCommand)(nil)
	_ gocmd.Commander[SafeTransferMessage]          = (*SafeTransferCommand)(nil)
	_ gocmd.Commander[SafeBatchTransferMessage]     = (*SafeBatchTransferCommand)(nil)
	_ gocmd.Commander[AddSupportedSourceMessage]    = (*AddSupportedSourceCommand)(nil)
	_ gocmd.Commander[RemoveSupportedSourceMessage] = (*RemoveSupportedSourceCommand)(nil)
	_ gocmd.Commander[ChangeReceiptBackendMessage]  = (*ChangeReceiptBackendCommand)(nil)
	_ gocmd.Commander[DelegatePermissionsMessage]   = (*DelegatePermissionsCommand)(nil)

	_ Ledger           = (*core.MultiIDLedger)(nil)
	_ Vault            = (*core.Vault)(nil)
	_ ContractResolver = (*core.Runtime)(nil)
)
