package command

import (
	"github.com/goliatone/go-carbon/core"
	"github.com/goliatone/go-carbon/signing"
	"github.com/holiman/uint256"
)

const (
	TypeCreateToken           = "carbon.command.token.create"
	TypeMintTo                = "carbon.command.token.mint_to"
	TypeSetTokenURI           = "carbon.command.token.set_uri"
	TypeRotateSigner          = "carbon.command.signer.rotate"
	TypeSetApprovalForAll     = "carbon.command.approval.set"
	TypeSafeTransfer          = "carbon.command.transfer.single"
	TypeSafeBatchTransfer     = "carbon.command.transfer.batch"
	TypeAddSupportedSource    = "carbon.command.vault.source.add"
	TypeRemoveSupportedSource = "carbon.command.vault.source.remove"
	TypeChangeReceiptBackend  = "carbon.command.vault.receipt_backend.change"
	TypeDelegatePermissions   = "carbon.command.permissions.delegate"
)

// CreateTokenMessage registers a new token id. Signature must come from the
// ledger signer over the request's To, ID, Amount and, when set, URI.
type CreateTokenMessage struct {
	Caller    core.Address
	Request   core.CreateRequest
	Signature []byte
}

func (CreateTokenMessage) Type() string { return TypeCreateToken }

func (m CreateTokenMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	if err := requireAmount("request.amount", m.Request.Amount); err != nil {
		return err
	}
	if err := requireAmount("request.max_supply", m.Request.MaxSupply); err != nil {
		return err
	}
	return requireSignature(m.Signature)
}

type MintToMessage struct {
	Caller    core.Address
	To        core.Address
	ID        core.TokenID
	Amount    *uint256.Int
	Signature []byte
}

func (MintToMessage) Type() string { return TypeMintTo }

func (m MintToMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	if err := requireAmount("amount", m.Amount); err != nil {
		return err
	}
	return requireSignature(m.Signature)
}

type SetTokenURIMessage struct {
	Caller core.Address
	ID     core.TokenID
	URI    string
}

func (SetTokenURIMessage) Type() string { return TypeSetTokenURI }

func (m SetTokenURIMessage) Validate() error {
	return requireAddress("caller", m.Caller)
}

type RotateSignerMessage struct {
	Caller core.Address
	Signer core.Address
}

func (RotateSignerMessage) Type() string { return TypeRotateSigner }

func (m RotateSignerMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	return requireAddress("signer", m.Signer)
}

type SetApprovalForAllMessage struct {
	Caller   core.Address
	Operator core.Address
	Approved bool
}

func (SetApprovalForAllMessage) Type() string { return TypeSetApprovalForAll }

func (m SetApprovalForAllMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	return requireAddress("operator", m.Operator)
}

// SafeTransferMessage moves units of one token. Transfers into the vault are
// deposits.
type SafeTransferMessage struct {
	Caller core.Address
	From   core.Address
	To     core.Address
	ID     core.TokenID
	Amount *uint256.Int
	Data   []byte
}

func (SafeTransferMessage) Type() string { return TypeSafeTransfer }

func (m SafeTransferMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	if err := requireAddress("from", m.From); err != nil {
		return err
	}
	if err := requireAddress("to", m.To); err != nil {
		return err
	}
	return requireAmount("amount", m.Amount)
}

type SafeBatchTransferMessage struct {
	Caller  core.Address
	From    core.Address
	To      core.Address
	IDs     []core.TokenID
	Amounts []*uint256.Int
	Data    []byte
}

func (SafeBatchTransferMessage) Type() string { return TypeSafeBatchTransfer }

func (m SafeBatchTransferMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	if err := requireAddress("from", m.From); err != nil {
		return err
	}
	if err := requireAddress("to", m.To); err != nil {
		return err
	}
	if len(m.IDs) == 0 {
		return commandValidationError("ids", "at least one token id is required")
	}
	if len(m.IDs) != len(m.Amounts) {
		return commandValidationError("amounts", "must match ids in length")
	}
	for _, amount := range m.Amounts {
		if err := requireAmount("amounts", amount); err != nil {
			return err
		}
	}
	return nil
}

type AddSupportedSourceMessage struct {
	Caller core.Address
	Source core.Address
}

func (AddSupportedSourceMessage) Type() string { return TypeAddSupportedSource }

func (m AddSupportedSourceMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	return requireAddress("source", m.Source)
}

type RemoveSupportedSourceMessage struct {
	Caller core.Address
	Source core.Address
}

func (RemoveSupportedSourceMessage) Type() string { return TypeRemoveSupportedSource }

func (m RemoveSupportedSourceMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	return requireAddress("source", m.Source)
}

// ChangeReceiptBackendMessage points the vault at the receipt ledger deployed
// at Backend.
type ChangeReceiptBackendMessage struct {
	Caller  core.Address
	Backend core.Address
}

func (ChangeReceiptBackendMessage) Type() string { return TypeChangeReceiptBackend }

func (m ChangeReceiptBackendMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	return requireAddress("backend", m.Backend)
}

// DelegatePermissionsMessage grants MINTER on the contract at Contract.
type DelegatePermissionsMessage struct {
	Caller   core.Address
	Contract core.Address
	Account  core.Address
}

func (DelegatePermissionsMessage) Type() string { return TypeDelegatePermissions }

func (m DelegatePermissionsMessage) Validate() error {
	if err := requireAddress("caller", m.Caller); err != nil {
		return err
	}
	if err := requireAddress("contract", m.Contract); err != nil {
		return err
	}
	return requireAddress("account", m.Account)
}

func requireAddress(field string, address core.Address) error {
	if address == core.ZeroAddress {
		return commandValidationError(field, "must not be the zero address")
	}
	return nil
}

func requireAmount(field string, amount *uint256.Int) error {
	if amount == nil {
		return commandValidationError(field, "is required")
	}
	return nil
}

func requireSignature(signature []byte) error {
	if len(signature) != signing.SignatureLength {
		return commandValidationError("signature", "must be 65 bytes")
	}
	return nil
}
