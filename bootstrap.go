package carbon

import (
	"context"
	"fmt"

	"github.com/goliatone/go-carbon/adapters/gologger"
	"github.com/goliatone/go-carbon/core"
)

// BootstrapInput names the accounts the standard topology is deployed for.
type BootstrapInput struct {
	// Governance deploys and owns every contract.
	Governance Address
	// Signer overrides ledger.signer from the resolved config.
	Signer Address
	Hooks  DepositHooks
}

// Deployment is a ledger, a receipt backend and a vault wired together on
// one runtime.
type Deployment struct {
	Runtime    *Runtime
	Governance Address
	Ledger     *MultiIDLedger
	Receipt    ReceiptLedger
	Vault      *Vault
}

// Bootstrap deploys the standard topology: the ledger, the configured receipt
// backend and the vault. The vault is delegated MINTER on the backend and
// accepts the ledger as a deposit source.
func Bootstrap(ctx context.Context, cfg Config, in BootstrapInput, opts ...Option) (*Deployment, error) {
	if in.Governance == core.ZeroAddress {
		return nil, fmt.Errorf("carbon: governance address is required")
	}
	rt, err := core.NewRuntime(cfg, opts...)
	if err != nil {
		return nil, err
	}
	resolved := rt.Config()

	signer := in.Signer
	if signer == core.ZeroAddress {
		signer = resolved.SignerAddress()
	}
	var ledgerOpts []core.LedgerOption
	if in.Hooks != nil {
		ledgerOpts = append(ledgerOpts, core.WithDepositHooks(in.Hooks))
	}
	ledger, err := core.NewMultiIDLedger(rt, in.Governance, signer, resolved.Ledger.BaseURI, ledgerOpts...)
	if err != nil {
		return nil, err
	}

	receipt, err := deployReceipt(rt, in.Governance, resolved.Receipt)
	if err != nil {
		return nil, err
	}
	vault, err := core.NewVault(rt, in.Governance, receipt)
	if err != nil {
		return nil, err
	}

	delegator, ok := receipt.(core.PermissionDelegator)
	if !ok {
		return nil, fmt.Errorf("carbon: receipt backend %T cannot delegate permissions", receipt)
	}
	if err := delegator.DelegatePermissionsTo(ctx, in.Governance, vault.Address()); err != nil {
		return nil, err
	}
	if err := vault.AddSupportedSource(ctx, in.Governance, ledger.Address()); err != nil {
		return nil, err
	}

	gologger.WithFields(rt.Logger(), map[string]any{
		"ledger":       ledger.Address().Hex(),
		"receipt":      receipt.Address().Hex(),
		"receipt_kind": string(receipt.Kind()),
		"vault":        vault.Address().Hex(),
		"height":       rt.Height(),
	}).Info("carbon deployment ready")

	return &Deployment{
		Runtime:    rt,
		Governance: in.Governance,
		Ledger:     ledger,
		Receipt:    receipt,
		Vault:      vault,
	}, nil
}

func deployReceipt(rt *Runtime, admin Address, cfg core.ReceiptConfig) (ReceiptLedger, error) {
	switch core.ReceiptKind(cfg.Kind) {
	case core.ReceiptKindProvenance:
		return core.NewProvenanceReceipt(rt, admin, cfg.Name, cfg.Symbol)
	case core.ReceiptKindPooled, "":
		return core.NewPooledReceipt(rt, admin, cfg.Name, cfg.Symbol, core.WithDecimals(uint8(cfg.Decimals)))
	default:
		return nil, fmt.Errorf("carbon: unsupported receipt kind %q", cfg.Kind)
	}
}

// Pooled returns the active receipt backend when it is the pooled variant.
func (d *Deployment) Pooled(ctx context.Context) (*PooledReceipt, bool) {
	if d == nil || d.Vault == nil {
		return nil, false
	}
	pooled, ok := d.Vault.ReceiptBackend(ctx).(*core.PooledReceipt)
	return pooled, ok
}

// Provenance returns the active receipt backend when it is the provenance
// variant.
func (d *Deployment) Provenance(ctx context.Context) (*ProvenanceReceipt, bool) {
	if d == nil || d.Vault == nil {
		return nil, false
	}
	provenance, ok := d.Vault.ReceiptBackend(ctx).(*core.ProvenanceReceipt)
	return provenance, ok
}
