package core

import (
	"context"
	"math/big"

	"github.com/goliatone/go-carbon/signing"
	"github.com/holiman/uint256"
)

type tokenState struct {
	uri       string
	maxSupply *uint256.Int
}

// MultiIDLedger is the CarbonX ledger: one balance book for every carbon
// credit class, signature-gated issuance and per-class supply caps.
type MultiIDLedger struct {
	rt        *Runtime
	address   Address
	acl       *AccessControl
	authority *SignatureAuthority
	hooks     DepositHooks
	baseURI   string

	tokens    map[TokenID]*tokenState
	book      *balanceBook
	approvals map[Address]map[Address]bool
	inbound   map[Address]*inboundTransfer
}

type LedgerOption func(*MultiIDLedger)

// WithDepositHooks replaces the hooks a vault consults when this ledger
// deposits into it.
func WithDepositHooks(hooks DepositHooks) LedgerOption {
	return func(l *MultiIDLedger) {
		if hooks != nil {
			l.hooks = hooks
		}
	}
}

func NewMultiIDLedger(rt *Runtime, owner Address, signer Address, baseURI string, opts ...LedgerOption) (*MultiIDLedger, error) {
	if rt == nil {
		return nil, invalidArguments("runtime is required")
	}
	if signer == ZeroAddress {
		return nil, ErrSignerMustNotBeZeroAddress
	}
	ledger := &MultiIDLedger{
		rt:        rt,
		hooks:     AcceptAllDepositHooks{},
		baseURI:   baseURI,
		tokens:    map[TokenID]*tokenState{},
		book:      newBalanceBook(),
		approvals: map[Address]map[Address]bool{},
		inbound:   map[Address]*inboundTransfer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ledger)
		}
	}
	ledger.address = rt.Deploy(owner, ledger)
	ledger.acl = NewAccessControl(rt, ledger.address, owner)
	authority, err := NewSignatureAuthority(rt, ledger.address, signer, ledger.acl)
	if err != nil {
		return nil, err
	}
	ledger.authority = authority
	return ledger, nil
}

func (l *MultiIDLedger) Address() Address {
	return l.address
}

func (l *MultiIDLedger) AccessControl() *AccessControl {
	return l.acl
}

func (l *MultiIDLedger) SignatureAuthority() *SignatureAuthority {
	return l.authority
}

func (l *MultiIDLedger) Signer(ctx context.Context) Address {
	return l.authority.Signer(ctx)
}

// Create registers a new credit class with its cap and URI and mints its
// initial supply to req.To.
func (l *MultiIDLedger) Create(ctx context.Context, caller Address, req CreateRequest, signature []byte) error {
	fields := l.fields(caller, req.ID)
	fields["to"] = req.To.Hex()
	return l.rt.Atomic(ctx, "ledger.create", fields, func(ctx context.Context, tx *Tx) error {
		if _, exists := l.tokens[req.ID]; exists {
			return &TokenAlreadyExistsError{ID: req.ID}
		}
		amount := amountOrZero(req.Amount)
		maxSupply := amountOrZero(req.MaxSupply)
		if amount.Gt(maxSupply) {
			return &InitialSupplyGreaterThanMaxSupplyError{ID: req.ID, Amount: amount, MaxSupply: maxSupply}
		}
		mintReq := MintRequest{To: req.To, ID: req.ID, Amount: amount, URI: req.URI}
		if err := l.authority.verifyRequest(mintReq, signature); err != nil {
			return err
		}
		if req.To == ZeroAddress {
			return ErrZeroAddress
		}

		l.tokens[req.ID] = &tokenState{uri: req.URI, maxSupply: maxSupply}
		tx.OnRollback(func() { delete(l.tokens, req.ID) })

		return l.mint(ctx, tx, caller, req.To, req.ID, amount)
	})
}

// MintTo issues amount more of an existing class, bounded by its cap.
func (l *MultiIDLedger) MintTo(ctx context.Context, caller Address, to Address, id TokenID, amount *uint256.Int, signature []byte) error {
	fields := l.fields(caller, id)
	fields["to"] = to.Hex()
	return l.rt.Atomic(ctx, "ledger.mint_to", fields, func(ctx context.Context, tx *Tx) error {
		token, exists := l.tokens[id]
		if !exists {
			return &TokenNotExistsError{ID: id}
		}
		amount := amountOrZero(amount)
		supply := l.book.totalSupply(id)
		wouldBe, overflow := new(uint256.Int).AddOverflow(supply, amount)
		if overflow || wouldBe.Gt(token.maxSupply) {
			return &MintWouldViolateMaxTokenSupplyError{
				ID:      id,
				WouldBe: new(big.Int).Add(supply.ToBig(), amount.ToBig()),
				Cap:     token.maxSupply.Clone(),
			}
		}
		if err := l.authority.verifyRequest(MintRequest{To: to, ID: id, Amount: amount}, signature); err != nil {
			return err
		}
		if to == ZeroAddress {
			return ErrZeroAddress
		}
		return l.mint(ctx, tx, caller, to, id, amount)
	})
}

// SetURI replaces the metadata URI of an existing class.
func (l *MultiIDLedger) SetURI(ctx context.Context, caller Address, id TokenID, uri string) error {
	return l.rt.Atomic(ctx, "ledger.set_uri", l.fields(caller, id), func(ctx context.Context, tx *Tx) error {
		if err := l.acl.requireOwner(caller); err != nil {
			return err
		}
		token, exists := l.tokens[id]
		if !exists {
			return &TokenNotExistsError{ID: id}
		}
		previous := token.uri
		token.uri = uri
		tx.OnRollback(func() { token.uri = previous })
		tx.Emit(TokenURIChanged{
			Contract: l.address,
			ID:       id,
			Old:      signing.URIFingerprint(previous),
			New:      signing.URIFingerprint(uri),
		})
		return nil
	})
}

func (l *MultiIDLedger) SetSigner(ctx context.Context, caller Address, signer Address) error {
	return l.authority.Rotate(ctx, caller, signer)
}

func (l *MultiIDLedger) BalanceOf(ctx context.Context, owner Address, id TokenID) *uint256.Int {
	return view(ctx, l.rt, func() *uint256.Int { return l.book.balanceOf(owner, id) })
}

func (l *MultiIDLedger) BalanceOfBatch(ctx context.Context, owners []Address, ids []TokenID) ([]*uint256.Int, error) {
	if len(owners) != len(ids) {
		return nil, invalidArguments("owners and ids length mismatch: %d != %d", len(owners), len(ids))
	}
	return view(ctx, l.rt, func() []*uint256.Int {
		balances := make([]*uint256.Int, len(owners))
		for i := range owners {
			balances[i] = l.book.balanceOf(owners[i], ids[i])
		}
		return balances
	}), nil
}

func (l *MultiIDLedger) TotalSupply(ctx context.Context, id TokenID) *uint256.Int {
	return view(ctx, l.rt, func() *uint256.Int { return l.book.totalSupply(id) })
}

// MaxSupply returns the cap of id, or zero when the class does not exist.
func (l *MultiIDLedger) MaxSupply(ctx context.Context, id TokenID) *uint256.Int {
	return view(ctx, l.rt, func() *uint256.Int {
		if token, ok := l.tokens[id]; ok {
			return token.maxSupply.Clone()
		}
		return new(uint256.Int)
	})
}

func (l *MultiIDLedger) Exists(ctx context.Context, id TokenID) bool {
	return view(ctx, l.rt, func() bool {
		_, ok := l.tokens[id]
		return ok
	})
}

// URI returns the class URI, falling back to the ledger base URI when the
// class has none.
func (l *MultiIDLedger) URI(ctx context.Context, id TokenID) string {
	return view(ctx, l.rt, func() string {
		if token, ok := l.tokens[id]; ok && token.uri != "" {
			return token.uri
		}
		return l.baseURI
	})
}

func (l *MultiIDLedger) Token(ctx context.Context, id TokenID) (TokenRecord, bool) {
	type result struct {
		record TokenRecord
		ok     bool
	}
	out := view(ctx, l.rt, func() result {
		token, ok := l.tokens[id]
		if !ok {
			return result{}
		}
		return result{
			record: TokenRecord{
				ID:          id,
				URI:         token.uri,
				TotalSupply: l.book.totalSupply(id),
				MaxSupply:   token.maxSupply.Clone(),
			},
			ok: true,
		}
	})
	return out.record, out.ok
}

func (l *MultiIDLedger) mint(ctx context.Context, tx *Tx, operator, to Address, id TokenID, amount *uint256.Int) error {
	if err := l.book.mint(tx, to, id, amount); err != nil {
		return err
	}
	tx.Emit(TransferSingle{
		Contract: l.address,
		Operator: operator,
		From:     ZeroAddress,
		To:       to,
		ID:       id,
		Amount:   amount.Clone(),
	})
	return l.checkReceiver(ctx, operator, ZeroAddress, to, id, amount, nil)
}

func (l *MultiIDLedger) fields(caller Address, id TokenID) map[string]any {
	return map[string]any{
		"ledger":   l.address.Hex(),
		"caller":   caller.Hex(),
		"token_id": id,
	}
}

// AcceptAllDepositHooks accepts every deposit and acknowledges it.
type AcceptAllDepositHooks struct{}

func (AcceptAllDepositHooks) AcceptDeposit(context.Context, DepositQuery) (bool, error) {
	return true, nil
}

func (AcceptAllDepositHooks) AcknowledgeDeposit(context.Context, DepositAck) (AcceptanceToken, error) {
	return AcknowledgeAcceptance, nil
}
