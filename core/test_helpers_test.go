package core

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/signing"
	"github.com/holiman/uint256"
)

var (
	governance = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	axel       = common.HexToAddress("0x00000000000000000000000000000000000a4e1")
	bianca     = common.HexToAddress("0x00000000000000000000000000000000000b1a2")
	mallory    = common.HexToAddress("0x000000000000000000000000000000000000bad0")
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	rt      *Runtime
	journal *MemoryJournal
	signer  *signing.KeySigner
	ledger  *MultiIDLedger
	pooled  *PooledReceipt
	vault   *Vault
}

type fixtureOption func(*fixtureSettings)

type fixtureSettings struct {
	hooks       DepositHooks
	runtimeOpts []Option
}

func withHooks(hooks DepositHooks) fixtureOption {
	return func(s *fixtureSettings) {
		s.hooks = hooks
	}
}

func withRuntimeOptions(opts ...Option) fixtureOption {
	return func(s *fixtureSettings) {
		s.runtimeOpts = append(s.runtimeOpts, opts...)
	}
}

// newFixture deploys a ledger, a pooled receipt backend and a vault wired the
// standard way: the vault mints receipts and accepts the ledger as a source.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	settings := fixtureSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	journal := NewMemoryJournal()
	runtimeOpts := append([]Option{WithEventSink(journal)}, settings.runtimeOpts...)
	rt, err := NewRuntime(Config{}, runtimeOpts...)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	signer, err := signing.GenerateKeySigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	var ledgerOpts []LedgerOption
	if settings.hooks != nil {
		ledgerOpts = append(ledgerOpts, WithDepositHooks(settings.hooks))
	}
	ledger, err := NewMultiIDLedger(rt, governance, signer.Address(), "ipfs://", ledgerOpts...)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	pooled, err := NewPooledReceipt(rt, governance, "CarbonReceipt", "CRCPT")
	if err != nil {
		t.Fatalf("new pooled receipt: %v", err)
	}
	vault, err := NewVault(rt, governance, pooled)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	ctx := context.Background()
	if err := pooled.DelegatePermissionsTo(ctx, governance, vault.Address()); err != nil {
		t.Fatalf("delegate permissions: %v", err)
	}
	if err := vault.AddSupportedSource(ctx, governance, ledger.Address()); err != nil {
		t.Fatalf("add supported source: %v", err)
	}
	journal.Reset()

	return &fixture{
		t:       t,
		ctx:     ctx,
		rt:      rt,
		journal: journal,
		signer:  signer,
		ledger:  ledger,
		pooled:  pooled,
		vault:   vault,
	}
}

func (f *fixture) sign(to Address, id TokenID, amount uint64, uri string) []byte {
	f.t.Helper()
	signature, err := f.signer.SignMint(to, id, uint256.NewInt(amount), uri)
	if err != nil {
		f.t.Fatalf("sign mint: %v", err)
	}
	return signature
}

func (f *fixture) create(to Address, id TokenID, amount, maxSupply uint64, uri string) error {
	return f.ledger.Create(f.ctx, to, CreateRequest{
		To:        to,
		ID:        id,
		Amount:    uint256.NewInt(amount),
		MaxSupply: uint256.NewInt(maxSupply),
		URI:       uri,
	}, f.sign(to, id, amount, uri))
}

func (f *fixture) mustCreate(to Address, id TokenID, amount, maxSupply uint64, uri string) {
	f.t.Helper()
	if err := f.create(to, id, amount, maxSupply, uri); err != nil {
		f.t.Fatalf("create token %d: %v", id, err)
	}
}

func (f *fixture) deposit(holder Address, id TokenID, amount uint64) error {
	return f.ledger.SafeTransferFrom(f.ctx, holder, holder, f.vault.Address(), id, uint256.NewInt(amount), nil)
}

func (f *fixture) batchDeposit(holder Address, ids []TokenID, amounts []uint64) error {
	values := make([]*uint256.Int, len(amounts))
	for i, amount := range amounts {
		values[i] = uint256.NewInt(amount)
	}
	return f.ledger.SafeBatchTransferFrom(f.ctx, holder, holder, f.vault.Address(), ids, values, nil)
}

func (f *fixture) expectBalance(owner Address, id TokenID, expected uint64) {
	f.t.Helper()
	if got := f.ledger.BalanceOf(f.ctx, owner, id); !got.Eq(uint256.NewInt(expected)) {
		f.t.Fatalf("expected balance of %s for %d to be %d, got %s", owner.Hex(), id, expected, got.Dec())
	}
}

func scaled(amount uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(amount), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18)))
}

// hookFunc adapts functions to DepositHooks; nil functions behave like
// AcceptAllDepositHooks.
type hookFunc struct {
	accept      func(ctx context.Context, query DepositQuery) (bool, error)
	acknowledge func(ctx context.Context, ack DepositAck) (AcceptanceToken, error)
}

func (h *hookFunc) AcceptDeposit(ctx context.Context, query DepositQuery) (bool, error) {
	if h.accept == nil {
		return true, nil
	}
	return h.accept(ctx, query)
}

func (h *hookFunc) AcknowledgeDeposit(ctx context.Context, ack DepositAck) (AcceptanceToken, error) {
	if h.acknowledge == nil {
		return AcknowledgeAcceptance, nil
	}
	return h.acknowledge(ctx, ack)
}

var errHookFailed = errors.New("hook failed")

// bareSource is a deployed ledger that exposes no deposit hooks.
type bareSource struct {
	address Address
}

func (s *bareSource) Address() Address { return s.address }

// acceptOnlySource answers the acceptance query but cannot acknowledge.
type acceptOnlySource struct {
	address Address
}

func (s *acceptOnlySource) Address() Address { return s.address }

func (s *acceptOnlySource) AcceptDeposit(context.Context, DepositQuery) (bool, error) {
	return true, nil
}
