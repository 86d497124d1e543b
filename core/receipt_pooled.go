package core

import (
	"context"

	"github.com/holiman/uint256"
)

const pooledUnit TokenID = 0

// PooledReceipt is a fungible receipt ledger. Every deposit is credited as
// amount scaled by 10^decimals into one pool; provenance is not retained.
type PooledReceipt struct {
	rt       *Runtime
	address  Address
	acl      *AccessControl
	name     string
	symbol   string
	decimals uint8
	scale    *uint256.Int
	book     *balanceBook
}

type PooledOption func(*PooledReceipt)

func WithDecimals(decimals uint8) PooledOption {
	return func(p *PooledReceipt) {
		p.decimals = decimals
	}
}

func NewPooledReceipt(rt *Runtime, admin Address, name, symbol string, opts ...PooledOption) (*PooledReceipt, error) {
	if rt == nil {
		return nil, invalidArguments("runtime is required")
	}
	receipt := &PooledReceipt{
		rt:       rt,
		name:     name,
		symbol:   symbol,
		decimals: 18,
		book:     newBalanceBook(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(receipt)
		}
	}
	if receipt.decimals > maxReceiptDecimals {
		return nil, invalidArguments("decimals %d exceeds %d", receipt.decimals, maxReceiptDecimals)
	}
	receipt.scale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(receipt.decimals)))
	receipt.address = rt.Deploy(admin, receipt)
	receipt.acl = NewAccessControl(rt, receipt.address, admin)
	return receipt, nil
}

func (p *PooledReceipt) Address() Address { return p.address }

func (p *PooledReceipt) Kind() ReceiptKind { return ReceiptKindPooled }

func (p *PooledReceipt) Name() string { return p.name }

func (p *PooledReceipt) Symbol() string { return p.symbol }

func (p *PooledReceipt) Decimals() uint8 { return p.decimals }

func (p *PooledReceipt) AccessControl() *AccessControl { return p.acl }

func (p *PooledReceipt) DelegatePermissionsTo(ctx context.Context, caller Address, account Address) error {
	return p.acl.DelegatePermissionsTo(ctx, caller, account)
}

// Issue credits amount * 10^decimals to to. Only the handle retains the
// provenance receipt id.
func (p *PooledReceipt) Issue(ctx context.Context, caller Address, to Address, amount *uint256.Int, prov Provenance) (ReceiptHandle, error) {
	var handle ReceiptHandle
	err := p.rt.Atomic(ctx, "receipt.pooled.issue", p.fields(caller, to), func(ctx context.Context, tx *Tx) error {
		if err := p.acl.requireMinter(caller); err != nil {
			return err
		}
		credited, err := p.credit(tx, to, amount)
		if err != nil {
			return err
		}
		handle = ReceiptHandle{Backend: p.address, ReceiptID: prov.ReceiptID, Amount: credited}
		return nil
	})
	if err != nil {
		return ReceiptHandle{}, err
	}
	return handle, nil
}

// MintReceipt credits amount * 10^decimals to to.
func (p *PooledReceipt) MintReceipt(ctx context.Context, caller Address, to Address, amount *uint256.Int) error {
	return p.rt.Atomic(ctx, "receipt.pooled.mint", p.fields(caller, to), func(ctx context.Context, tx *Tx) error {
		if err := p.acl.requireMinter(caller); err != nil {
			return err
		}
		_, err := p.credit(tx, to, amount)
		return err
	})
}

// BatchMintReceipt credits each amount to the matching recipient.
func (p *PooledReceipt) BatchMintReceipt(ctx context.Context, caller Address, recipients []Address, amounts []*uint256.Int) error {
	fields := map[string]any{
		"backend": p.address.Hex(),
		"caller":  caller.Hex(),
		"count":   len(recipients),
	}
	return p.rt.Atomic(ctx, "receipt.pooled.batch_mint", fields, func(ctx context.Context, tx *Tx) error {
		if err := p.acl.requireMinter(caller); err != nil {
			return err
		}
		if len(recipients) != len(amounts) {
			return invalidArguments("recipients and amounts length mismatch: %d != %d", len(recipients), len(amounts))
		}
		for i, to := range recipients {
			if _, err := p.credit(tx, to, amounts[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Transfer moves already scaled units between holders.
func (p *PooledReceipt) Transfer(ctx context.Context, caller Address, to Address, amount *uint256.Int) error {
	return p.rt.Atomic(ctx, "receipt.pooled.transfer", p.fields(caller, to), func(ctx context.Context, tx *Tx) error {
		if to == ZeroAddress {
			return ErrZeroAddress
		}
		amount := amountOrZero(amount)
		if err := p.book.move(tx, caller, to, pooledUnit, amount); err != nil {
			return err
		}
		tx.Emit(Transfer{Contract: p.address, From: caller, To: to, Amount: amount})
		return nil
	})
}

func (p *PooledReceipt) BalanceOf(ctx context.Context, holder Address) *uint256.Int {
	return view(ctx, p.rt, func() *uint256.Int { return p.book.balanceOf(holder, pooledUnit) })
}

func (p *PooledReceipt) TotalSupply(ctx context.Context) *uint256.Int {
	return view(ctx, p.rt, func() *uint256.Int { return p.book.totalSupply(pooledUnit) })
}

func (p *PooledReceipt) credit(tx *Tx, to Address, amount *uint256.Int) (*uint256.Int, error) {
	if to == ZeroAddress {
		return nil, ErrZeroAddress
	}
	scaled, overflow := new(uint256.Int).MulOverflow(amountOrZero(amount), p.scale)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if err := p.book.mint(tx, to, pooledUnit, scaled); err != nil {
		return nil, err
	}
	tx.Emit(Transfer{Contract: p.address, From: ZeroAddress, To: to, Amount: scaled.Clone()})
	return scaled, nil
}

func (p *PooledReceipt) fields(caller Address, to Address) map[string]any {
	return map[string]any{
		"backend": p.address.Hex(),
		"caller":  caller.Hex(),
		"to":      to.Hex(),
	}
}
