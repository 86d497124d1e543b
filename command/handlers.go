package command

import (
	"context"

	"github.com/goliatone/go-carbon/core"
	gocmd "github.com/goliatone/go-command"
	"github.com/holiman/uint256"
)

// Ledger is the mutating surface of the multi-id ledger.
type Ledger interface {
	Create(ctx context.Context, caller core.Address, req core.CreateRequest, signature []byte) error
	MintTo(ctx context.Context, caller core.Address, to core.Address, id core.TokenID, amount *uint256.Int, signature []byte) error
	SetURI(ctx context.Context, caller core.Address, id core.TokenID, uri string) error
	SetSigner(ctx context.Context, caller core.Address, signer core.Address) error
	SetApprovalForAll(ctx context.Context, caller core.Address, operator core.Address, approved bool) error
	SafeTransferFrom(ctx context.Context, caller, from, to core.Address, id core.TokenID, amount *uint256.Int, data []byte) error
	SafeBatchTransferFrom(ctx context.Context, caller, from, to core.Address, ids []core.TokenID, amounts []*uint256.Int, data []byte) error
	Token(ctx context.Context, id core.TokenID) (core.TokenRecord, bool)
}

// Vault is the administrative surface of the vault.
type Vault interface {
	AddSupportedSource(ctx context.Context, caller core.Address, source core.Address) error
	RemoveSupportedSource(ctx context.Context, caller core.Address, source core.Address) error
	ChangeReceiptBackend(ctx context.Context, caller core.Address, backend core.ReceiptLedger) error
}

// ContractResolver looks up deployed contracts by address.
type ContractResolver interface {
	Contract(address core.Address) (any, bool)
}

type CreateTokenCommand struct {
	ledger Ledger
}

func NewCreateTokenCommand(ledger Ledger) *CreateTokenCommand {
	return &CreateTokenCommand{ledger: ledger}
}

func (c *CreateTokenCommand) Execute(ctx context.Context, msg CreateTokenMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := c.ledger.Create(ctx, msg.Caller, msg.Request, msg.Signature); err != nil {
		return err
	}
	if record, ok := c.ledger.Token(ctx, msg.Request.ID); ok {
		storeResult(ctx, record)
	}
	return nil
}

type MintToCommand struct {
	ledger Ledger
}

func NewMintToCommand(ledger Ledger) *MintToCommand {
	return &MintToCommand{ledger: ledger}
}

func (c *MintToCommand) Execute(ctx context.Context, msg MintToMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := c.ledger.MintTo(ctx, msg.Caller, msg.To, msg.ID, msg.Amount, msg.Signature); err != nil {
		return err
	}
	if record, ok := c.ledger.Token(ctx, msg.ID); ok {
		storeResult(ctx, record)
	}
	return nil
}

type SetTokenURICommand struct {
	ledger Ledger
}

func NewSetTokenURICommand(ledger Ledger) *SetTokenURICommand {
	return &SetTokenURICommand{ledger: ledger}
}

func (c *SetTokenURICommand) Execute(ctx context.Context, msg SetTokenURIMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.SetURI(ctx, msg.Caller, msg.ID, msg.URI)
}

type RotateSignerCommand struct {
	ledger Ledger
}

func NewRotateSignerCommand(ledger Ledger) *RotateSignerCommand {
	return &RotateSignerCommand{ledger: ledger}
}

func (c *RotateSignerCommand) Execute(ctx context.Context, msg RotateSignerMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.SetSigner(ctx, msg.Caller, msg.Signer)
}

type SetApprovalForAllCommand struct {
	ledger Ledger
}

func NewSetApprovalForAllCommand(ledger Ledger) *SetApprovalForAllCommand {
	return &SetApprovalForAllCommand{ledger: ledger}
}

func (c *SetApprovalForAllCommand) Execute(ctx context.Context, msg SetApprovalForAllMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.SetApprovalForAll(ctx, msg.Caller, msg.Operator, msg.Approved)
}

type SafeTransferCommand struct {
	ledger Ledger
}

func NewSafeTransferCommand(ledger Ledger) *SafeTransferCommand {
	return &SafeTransferCommand{ledger: ledger}
}

func (c *SafeTransferCommand) Execute(ctx context.Context, msg SafeTransferMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.SafeTransferFrom(ctx, msg.Caller, msg.From, msg.To, msg.ID, msg.Amount, msg.Data)
}

type SafeBatchTransferCommand struct {
	ledger Ledger
}

func NewSafeBatchTransferCommand(ledger Ledger) *SafeBatchTransferCommand {
	return &SafeBatchTransferCommand{ledger: ledger}
}

func (c *SafeBatchTransferCommand) Execute(ctx context.Context, msg SafeBatchTransferMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.SafeBatchTransferFrom(ctx, msg.Caller, msg.From, msg.To, msg.IDs, msg.Amounts, msg.Data)
}

type AddSupportedSourceCommand struct {
	vault Vault
}

func NewAddSupportedSourceCommand(vault Vault) *AddSupportedSourceCommand {
	return &AddSupportedSourceCommand{vault: vault}
}

func (c *AddSupportedSourceCommand) Execute(ctx context.Context, msg AddSupportedSourceMessage) error {
	if c == nil || c.vault == nil {
		return commandDependencyError("command: vault is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.vault.AddSupportedSource(ctx, msg.Caller, msg.Source)
}

type RemoveSupportedSourceCommand struct {
	vault Vault
}

func NewRemoveSupportedSourceCommand(vault Vault) *RemoveSupportedSourceCommand {
	return &RemoveSupportedSourceCommand{vault: vault}
}

func (c *RemoveSupportedSourceCommand) Execute(ctx context.Context, msg RemoveSupportedSourceMessage) error {
	if c == nil || c.vault == nil {
		return commandDependencyError("command: vault is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.vault.RemoveSupportedSource(ctx, msg.Caller, msg.Source)
}

type ChangeReceiptBackendCommand struct {
	vault     Vault
	contracts ContractResolver
}

func NewChangeReceiptBackendCommand(vault Vault, contracts ContractResolver) *ChangeReceiptBackendCommand {
	return &ChangeReceiptBackendCommand{vault: vault, contracts: contracts}
}

func (c *ChangeReceiptBackendCommand) Execute(ctx context.Context, msg ChangeReceiptBackendMessage) error {
	if c == nil || c.vault == nil || c.contracts == nil {
		return commandDependencyError("command: vault and contract resolver are required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	backend, err := resolveContract[core.ReceiptLedger](c.contracts, "backend", msg.Backend)
	if err != nil {
		return err
	}
	return c.vault.ChangeReceiptBackend(ctx, msg.Caller, backend)
}

type DelegatePermissionsCommand struct {
	contracts ContractResolver
}

func NewDelegatePermissionsCommand(contracts ContractResolver) *DelegatePermissionsCommand {
	return &DelegatePermissionsCommand{contracts: contracts}
}

func (c *DelegatePermissionsCommand) Execute(ctx context.Context, msg DelegatePermissionsMessage) error {
	if c == nil || c.contracts == nil {
		return commandDependencyError("command: contract resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	delegator, err := resolveContract[core.PermissionDelegator](c.contracts, "contract", msg.Contract)
	if err != nil {
		return err
	}
	return delegator.DelegatePermissionsTo(ctx, msg.Caller, msg.Account)
}

func resolveContract[T any](contracts ContractResolver, field string, address core.Address) (T, error) {
	var zero T
	deployed, ok := contracts.Contract(address)
	if !ok {
		return zero, commandUnknownContractError(field, address)
	}
	typed, ok := deployed.(T)
	if !ok {
		return zero, commandUnknownContractError(field, address)
	}
	return typed, nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
