package carbon

import (
	"context"
	"fmt"

	"github.com/goliatone/go-carbon/adapters/gocommand"
	carboncommand "github.com/goliatone/go-carbon/command"
	"github.com/goliatone/go-carbon/core"
	carbonquery "github.com/goliatone/go-carbon/query"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
)

type Commands struct {
	CreateToken           *carboncommand.CreateTokenCommand
	MintTo                *carboncommand.MintToCommand
	SetTokenURI           *carboncommand.SetTokenURICommand
	RotateSigner          *carboncommand.RotateSignerCommand
	SetApprovalForAll     *carboncommand.SetApprovalForAllCommand
	SafeTransfer          *carboncommand.SafeTransferCommand
	SafeBatchTransfer     *carboncommand.SafeBatchTransferCommand
	AddSupportedSource    *carboncommand.AddSupportedSourceCommand
	RemoveSupportedSource *carboncommand.RemoveSupportedSourceCommand
	ChangeReceiptBackend  *carboncommand.ChangeReceiptBackendCommand
	DelegatePermissions   *carboncommand.DelegatePermissionsCommand
}

type Queries struct {
	GetToken              *carbonquery.GetTokenQuery
	BalanceOf             *carbonquery.BalanceOfQuery
	BalanceOfBatch        *carbonquery.BalanceOfBatchQuery
	TokenURI              *carbonquery.TokenURIQuery
	ReceiptDataCount      *carbonquery.ReceiptDataCountQuery
	ReceiptData           *carbonquery.ReceiptDataQuery
	CurrentReceiptTokenID *carbonquery.CurrentReceiptTokenIDQuery
	IsSupportedSource     *carbonquery.IsSupportedSourceQuery
	HasRole               *carbonquery.HasRoleQuery
	// GetDeposit and ListDeposits are nil unless a deposit history is
	// configured.
	GetDeposit   *carbonquery.GetDepositQuery
	ListDeposits *carbonquery.ListDepositsQuery
}

type Facade struct {
	deployment *Deployment
	commands   Commands
	queries    Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	history core.DepositHistory
}

// WithDepositHistory enables the deposit history queries.
func WithDepositHistory(history core.DepositHistory) FacadeOption {
	return func(options *facadeOptions) {
		options.history = history
	}
}

func NewFacade(deployment *Deployment, opts ...FacadeOption) (*Facade, error) {
	if deployment == nil || deployment.Runtime == nil || deployment.Ledger == nil || deployment.Vault == nil {
		return nil, fmt.Errorf("carbon: deployment is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	ledger := deployment.Ledger
	vault := deployment.Vault
	rt := deployment.Runtime
	receipts := activeProvenance{vault: vault}

	facade := &Facade{deployment: deployment}
	facade.commands = Commands{
		CreateToken:           carboncommand.NewCreateTokenCommand(ledger),
		MintTo:                carboncommand.NewMintToCommand(ledger),
		SetTokenURI:           carboncommand.NewSetTokenURICommand(ledger),
		RotateSigner:          carboncommand.NewRotateSignerCommand(ledger),
		SetApprovalForAll:     carboncommand.NewSetApprovalForAllCommand(ledger),
		SafeTransfer:          carboncommand.NewSafeTransferCommand(ledger),
		SafeBatchTransfer:     carboncommand.NewSafeBatchTransferCommand(ledger),
		AddSupportedSource:    carboncommand.NewAddSupportedSourceCommand(vault),
		RemoveSupportedSource: carboncommand.NewRemoveSupportedSourceCommand(vault),
		ChangeReceiptBackend:  carboncommand.NewChangeReceiptBackendCommand(vault, rt),
		DelegatePermissions:   carboncommand.NewDelegatePermissionsCommand(rt),
	}
	facade.queries = Queries{
		GetToken:              carbonquery.NewGetTokenQuery(ledger),
		BalanceOf:             carbonquery.NewBalanceOfQuery(ledger),
		BalanceOfBatch:        carbonquery.NewBalanceOfBatchQuery(ledger),
		TokenURI:              carbonquery.NewTokenURIQuery(ledger),
		ReceiptDataCount:      carbonquery.NewReceiptDataCountQuery(receipts),
		ReceiptData:           carbonquery.NewReceiptDataQuery(receipts),
		CurrentReceiptTokenID: carbonquery.NewCurrentReceiptTokenIDQuery(vault),
		IsSupportedSource:     carbonquery.NewIsSupportedSourceQuery(vault),
		HasRole:               carbonquery.NewHasRoleQuery(rt),
	}
	if cfg.history != nil {
		facade.queries.GetDeposit = carbonquery.NewGetDepositQuery(cfg.history)
		facade.queries.ListDeposits = carbonquery.NewListDepositsQuery(cfg.history)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Deployment() *Deployment {
	if f == nil {
		return nil
	}
	return f.deployment
}

// Subscribe registers every command and query with the go-command registry
// and the dispatcher. On failure the subscriptions made so far are removed.
func (f *Facade) Subscribe(adapter *gocommand.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("carbon: facade is nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("carbon: command registry adapter is required")
	}

	var subscriptions []commanddispatcher.Subscription
	add := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}
	c := f.commands
	q := f.queries
	steps := []func() error{
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.CreateToken)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.MintTo)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.SetTokenURI)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.RotateSigner)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.SetApprovalForAll)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.SafeTransfer)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.SafeBatchTransfer)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.AddSupportedSource)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.RemoveSupportedSource)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.ChangeReceiptBackend)) },
		func() error { return add(gocommand.RegisterAndSubscribe(adapter, c.DelegatePermissions)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.GetToken)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.BalanceOf)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.BalanceOfBatch)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.TokenURI)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.ReceiptDataCount)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.ReceiptData)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.CurrentReceiptTokenID)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.IsSupportedSource)) },
		func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.HasRole)) },
	}
	if q.GetDeposit != nil && q.ListDeposits != nil {
		steps = append(steps,
			func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.GetDeposit)) },
			func() error { return add(gocommand.RegisterAndSubscribeQuery(adapter, q.ListDeposits)) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			for _, subscription := range subscriptions {
				subscription.Unsubscribe()
			}
			return nil, err
		}
	}
	return subscriptions, nil
}

// activeProvenance reads provenance records from whichever backend the vault
// currently issues receipts on.
type activeProvenance struct {
	vault *core.Vault
}

func (p activeProvenance) ReceiptDataCount(ctx context.Context, receiptID uint64) int {
	backend, ok := p.vault.ReceiptBackend(ctx).(*core.ProvenanceReceipt)
	if !ok {
		return 0
	}
	return backend.ReceiptDataCount(ctx, receiptID)
}

func (p activeProvenance) ReceiptData(ctx context.Context, receiptID uint64, index int) (core.ReceiptRecord, error) {
	backend, ok := p.vault.ReceiptBackend(ctx).(*core.ProvenanceReceipt)
	if !ok {
		return core.ReceiptRecord{}, fmt.Errorf("%w: active receipt backend keeps no provenance records", core.ErrUnknownContract)
	}
	return backend.ReceiptData(ctx, receiptID, index)
}
