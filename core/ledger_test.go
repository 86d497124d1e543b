package core

import (
	"errors"
	"testing"

	"github.com/goliatone/go-carbon/signing"
	"github.com/holiman/uint256"
)

func TestMultiIDLedger_CreateMintsInitialSupply(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 1001, 250, 1000, "ipfs://credit-1001")

	if got := f.ledger.TotalSupply(f.ctx, 1001); !got.Eq(uint256.NewInt(250)) {
		t.Fatalf("expected total supply 250, got %s", got.Dec())
	}
	f.expectBalance(axel, 1001, 250)
	if uri := f.ledger.URI(f.ctx, 1001); uri != "ipfs://credit-1001" {
		t.Fatalf("expected token uri, got %q", uri)
	}

	events := f.journal.EventsNamed(EventTransferSingle)
	if len(events) != 1 {
		t.Fatalf("expected one mint event, got %d", len(events))
	}
	mint := events[0].(TransferSingle)
	if mint.From != ZeroAddress || mint.To != axel || mint.ID != 1001 || !mint.Amount.Eq(uint256.NewInt(250)) {
		t.Fatalf("unexpected mint event %+v", mint)
	}
}

func TestMultiIDLedger_CreateTwiceKeepsFirstRecord(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 1001, 250, 1000, "ipfs://first")

	cases := []struct {
		name      string
		amount    uint64
		maxSupply uint64
		uri       string
	}{
		{name: "same arguments", amount: 250, maxSupply: 1000, uri: "ipfs://first"},
		{name: "different uri", amount: 250, maxSupply: 1000, uri: "ipfs://second"},
		{name: "different supply", amount: 10, maxSupply: 5000, uri: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.create(bianca, 1001, tc.amount, tc.maxSupply, tc.uri)
			var exists *TokenAlreadyExistsError
			if !errors.As(err, &exists) || exists.ID != 1001 {
				t.Fatalf("expected TokenAlreadyExistsError(1001), got %v", err)
			}
			if !errors.Is(err, ErrTokenAlreadyExists) {
				t.Fatalf("expected ErrTokenAlreadyExists class, got %v", err)
			}
		})
	}

	record, ok := f.ledger.Token(f.ctx, 1001)
	if !ok {
		t.Fatalf("expected token record")
	}
	if record.URI != "ipfs://first" || !record.TotalSupply.Eq(uint256.NewInt(250)) || !record.MaxSupply.Eq(uint256.NewInt(1000)) {
		t.Fatalf("expected first record to be retained, got %+v", record)
	}
	f.expectBalance(bianca, 1001, 0)
}

func TestMultiIDLedger_CreateRejectsSupplyAboveCap(t *testing.T) {
	f := newFixture(t)
	err := f.create(axel, 7, 101, 100, "")
	var initial *InitialSupplyGreaterThanMaxSupplyError
	if !errors.As(err, &initial) {
		t.Fatalf("expected InitialSupplyGreaterThanMaxSupplyError, got %v", err)
	}
	if initial.ID != 7 || !initial.Amount.Eq(uint256.NewInt(101)) || !initial.MaxSupply.Eq(uint256.NewInt(100)) {
		t.Fatalf("unexpected error arguments %+v", initial)
	}
	if f.ledger.Exists(f.ctx, 7) {
		t.Fatalf("expected no token record after rejected create")
	}
}

func TestMultiIDLedger_CreateRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	other, err := signing.GenerateKeySigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	signature, err := other.SignMint(axel, 9, uint256.NewInt(5), "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	err = f.ledger.Create(f.ctx, axel, CreateRequest{To: axel, ID: 9, Amount: uint256.NewInt(5), MaxSupply: uint256.NewInt(10)}, signature)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// A signature over the URI-less message does not authorize a URI-bearing create.
	signature = f.sign(axel, 9, 5, "")
	err = f.ledger.Create(f.ctx, axel, CreateRequest{To: axel, ID: 9, Amount: uint256.NewInt(5), MaxSupply: uint256.NewInt(10), URI: "ipfs://x"}, signature)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for schema mismatch, got %v", err)
	}
	if f.ledger.Exists(f.ctx, 9) {
		t.Fatalf("expected no token record")
	}
	if len(f.journal.Events()) != 0 {
		t.Fatalf("expected no events for failed creates")
	}
}

func TestMultiIDLedger_MintToRespectsCap(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 42, 1, 100, "")

	err := f.ledger.MintTo(f.ctx, axel, axel, 42, uint256.NewInt(100), f.sign(axel, 42, 100, ""))
	var capped *MintWouldViolateMaxTokenSupplyError
	if !errors.As(err, &capped) {
		t.Fatalf("expected MintWouldViolateMaxTokenSupplyError, got %v", err)
	}
	if capped.WouldBe.Uint64() != 101 || !capped.Cap.Eq(uint256.NewInt(100)) {
		t.Fatalf("unexpected error arguments %+v", capped)
	}
	if got := f.ledger.TotalSupply(f.ctx, 42); !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("expected supply to remain 1, got %s", got.Dec())
	}

	if err := f.ledger.MintTo(f.ctx, axel, bianca, 42, uint256.NewInt(99), f.sign(bianca, 42, 99, "")); err != nil {
		t.Fatalf("mint up to cap: %v", err)
	}
	if got := f.ledger.TotalSupply(f.ctx, 42); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("expected supply 100, got %s", got.Dec())
	}
	f.expectBalance(bianca, 42, 99)
}

func TestMultiIDLedger_MintToOverflowIsCapViolation(t *testing.T) {
	f := newFixture(t)
	max := new(uint256.Int).SetAllOne()
	signature, err := f.signer.SignMint(axel, 3, max, "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := f.ledger.Create(f.ctx, axel, CreateRequest{To: axel, ID: 3, Amount: max, MaxSupply: max}, signature); err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.ledger.MintTo(f.ctx, axel, axel, 3, uint256.NewInt(1), f.sign(axel, 3, 1, ""))
	var capped *MintWouldViolateMaxTokenSupplyError
	if !errors.As(err, &capped) {
		t.Fatalf("expected MintWouldViolateMaxTokenSupplyError, got %v", err)
	}
	if capped.WouldBe.Cmp(max.ToBig()) <= 0 {
		t.Fatalf("expected would-be supply above the maximum, got %s", capped.WouldBe)
	}
}

func TestMultiIDLedger_MintToUnknownToken(t *testing.T) {
	f := newFixture(t)
	err := f.ledger.MintTo(f.ctx, axel, axel, 404, uint256.NewInt(1), f.sign(axel, 404, 1, ""))
	var missing *TokenNotExistsError
	if !errors.As(err, &missing) || missing.ID != 404 {
		t.Fatalf("expected TokenNotExistsError(404), got %v", err)
	}
}

func TestMultiIDLedger_MintToRejectsURISignature(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 5, 1, 10, "")
	err := f.ledger.MintTo(f.ctx, axel, axel, 5, uint256.NewInt(1), f.sign(axel, 5, 1, "ipfs://five"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	f.expectBalance(axel, 5, 1)
}

func TestMultiIDLedger_SetURIEmitsFingerprints(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 11, 1, 1, "ipfs://old")
	f.journal.Reset()

	if err := f.ledger.SetURI(f.ctx, axel, 11, "ipfs://new"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := f.ledger.SetURI(f.ctx, governance, 11, "ipfs://new"); err != nil {
		t.Fatalf("set uri: %v", err)
	}
	if err := f.ledger.SetURI(f.ctx, governance, 11, "ipfs://new"); err != nil {
		t.Fatalf("set same uri: %v", err)
	}
	if uri := f.ledger.URI(f.ctx, 11); uri != "ipfs://new" {
		t.Fatalf("expected updated uri, got %q", uri)
	}

	events := f.journal.EventsNamed(EventTokenURIChanged)
	if len(events) != 2 {
		t.Fatalf("expected an event per update, got %d", len(events))
	}
	changed := events[0].(TokenURIChanged)
	if changed.Old != signing.URIFingerprint("ipfs://old") || changed.New != signing.URIFingerprint("ipfs://new") {
		t.Fatalf("unexpected fingerprints %+v", changed)
	}

	if err := f.ledger.SetURI(f.ctx, governance, 12, "ipfs://x"); !errors.Is(err, ErrTokenNotExists) {
		t.Fatalf("expected ErrTokenNotExists, got %v", err)
	}
}

func TestMultiIDLedger_URIFallsBackToBase(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 2, 1, 1, "")
	if uri := f.ledger.URI(f.ctx, 2); uri != "ipfs://" {
		t.Fatalf("expected base uri, got %q", uri)
	}
}

func TestMultiIDLedger_SafeTransferRequiresApproval(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 1, 10, 10, "")

	err := f.ledger.SafeTransferFrom(f.ctx, bianca, axel, bianca, 1, uint256.NewInt(4), nil)
	var notApproved *NotApprovedError
	if !errors.As(err, &notApproved) || notApproved.Operator != bianca || notApproved.Owner != axel {
		t.Fatalf("expected NotApprovedError, got %v", err)
	}

	if err := f.ledger.SetApprovalForAll(f.ctx, axel, bianca, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !f.ledger.IsApprovedForAll(f.ctx, axel, bianca) {
		t.Fatalf("expected approval")
	}
	if err := f.ledger.SafeTransferFrom(f.ctx, bianca, axel, bianca, 1, uint256.NewInt(4), nil); err != nil {
		t.Fatalf("approved transfer: %v", err)
	}
	f.expectBalance(axel, 1, 6)
	f.expectBalance(bianca, 1, 4)

	err = f.ledger.SafeTransferFrom(f.ctx, axel, axel, bianca, 1, uint256.NewInt(7), nil)
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) || !insufficient.Balance.Eq(uint256.NewInt(6)) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if err := f.ledger.SafeTransferFrom(f.ctx, axel, axel, ZeroAddress, 1, uint256.NewInt(1), nil); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
}

func TestMultiIDLedger_BatchTransferValidatesBeforeMutation(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 1, 10, 10, "")
	f.mustCreate(axel, 2, 10, 10, "")

	err := f.ledger.SafeBatchTransferFrom(f.ctx, axel, axel, bianca, []TokenID{1, 2}, []*uint256.Int{uint256.NewInt(1)}, nil)
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}

	err = f.ledger.SafeBatchTransferFrom(f.ctx, axel, axel, bianca, []TokenID{1, 2}, []*uint256.Int{uint256.NewInt(3), uint256.NewInt(11)}, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	f.expectBalance(axel, 1, 10)
	f.expectBalance(bianca, 1, 0)

	balances, err := f.ledger.BalanceOfBatch(f.ctx, []Address{axel, axel}, []TokenID{1, 2})
	if err != nil {
		t.Fatalf("balance of batch: %v", err)
	}
	if !balances[0].Eq(uint256.NewInt(10)) || !balances[1].Eq(uint256.NewInt(10)) {
		t.Fatalf("unexpected balances %v", balances)
	}
	if _, err := f.ledger.BalanceOfBatch(f.ctx, []Address{axel}, nil); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestMultiIDLedger_TransferToIncompatibleContract(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(axel, 1, 10, 10, "")

	err := f.ledger.SafeTransferFrom(f.ctx, axel, axel, f.pooled.Address(), 1, uint256.NewInt(1), nil)
	if !errors.Is(err, ErrTransferToNotCompatibleImplementer) {
		t.Fatalf("expected ErrTransferToNotCompatibleImplementer, got %v", err)
	}
	f.expectBalance(axel, 1, 10)
}

func TestMultiIDLedger_SetSignerRotates(t *testing.T) {
	f := newFixture(t)
	next, err := signing.GenerateKeySigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	if err := f.ledger.SetSigner(f.ctx, axel, next.Address()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := f.ledger.SetSigner(f.ctx, governance, ZeroAddress); !errors.Is(err, ErrSignerMustNotBeZeroAddress) {
		t.Fatalf("expected ErrSignerMustNotBeZeroAddress, got %v", err)
	}
	if err := f.ledger.SetSigner(f.ctx, governance, f.signer.Address()); err != nil {
		t.Fatalf("rotate to same signer: %v", err)
	}
	if len(f.journal.EventsNamed(EventSignerChanged)) != 0 {
		t.Fatalf("expected no event when the signer is unchanged")
	}

	if err := f.ledger.SetSigner(f.ctx, governance, next.Address()); err != nil {
		t.Fatalf("rotate signer: %v", err)
	}
	events := f.journal.EventsNamed(EventSignerChanged)
	if len(events) != 1 {
		t.Fatalf("expected one SignerChanged event, got %d", len(events))
	}
	if changed := events[0].(SignerChanged); changed.Old != f.signer.Address() || changed.New != next.Address() {
		t.Fatalf("unexpected event %+v", changed)
	}

	if err := f.create(axel, 77, 1, 1, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected old signer to be rejected, got %v", err)
	}
	f.signer = next
	f.mustCreate(axel, 77, 1, 1, "")
}

func TestNewMultiIDLedger_RejectsZeroSigner(t *testing.T) {
	rt, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := NewMultiIDLedger(rt, governance, ZeroAddress, "ipfs://"); !errors.Is(err, ErrSignerMustNotBeZeroAddress) {
		t.Fatalf("expected ErrSignerMustNotBeZeroAddress, got %v", err)
	}
}
