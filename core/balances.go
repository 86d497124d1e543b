package core

import "github.com/holiman/uint256"

// balanceBook is the journaled balance and supply state shared by the
// ledgers. Every write registers its undo step on the operation's Tx.
type balanceBook struct {
	balances map[TokenID]map[Address]*uint256.Int
	supply   map[TokenID]*uint256.Int
}

func newBalanceBook() *balanceBook {
	return &balanceBook{
		balances: map[TokenID]map[Address]*uint256.Int{},
		supply:   map[TokenID]*uint256.Int{},
	}
}

func (b *balanceBook) balanceOf(owner Address, id TokenID) *uint256.Int {
	if holders, ok := b.balances[id]; ok {
		if balance, ok := holders[owner]; ok {
			return balance.Clone()
		}
	}
	return new(uint256.Int)
}

func (b *balanceBook) totalSupply(id TokenID) *uint256.Int {
	if supply, ok := b.supply[id]; ok {
		return supply.Clone()
	}
	return new(uint256.Int)
}

func (b *balanceBook) setBalance(tx *Tx, owner Address, id TokenID, value *uint256.Int) {
	holders, ok := b.balances[id]
	if !ok {
		holders = map[Address]*uint256.Int{}
		b.balances[id] = holders
	}
	previous, existed := holders[owner]
	holders[owner] = value.Clone()
	tx.OnRollback(func() {
		if existed {
			holders[owner] = previous
			return
		}
		delete(holders, owner)
	})
}

func (b *balanceBook) setSupply(tx *Tx, id TokenID, value *uint256.Int) {
	previous, existed := b.supply[id]
	b.supply[id] = value.Clone()
	tx.OnRollback(func() {
		if existed {
			b.supply[id] = previous
			return
		}
		delete(b.supply, id)
	})
}

// mint credits amount to owner and raises the supply of id.
func (b *balanceBook) mint(tx *Tx, owner Address, id TokenID, amount *uint256.Int) error {
	amount = amountOrZero(amount)
	supply, overflow := new(uint256.Int).AddOverflow(b.totalSupply(id), amount)
	if overflow {
		return ErrArithmeticOverflow
	}
	balance, overflow := new(uint256.Int).AddOverflow(b.balanceOf(owner, id), amount)
	if overflow {
		return ErrArithmeticOverflow
	}
	b.setSupply(tx, id, supply)
	b.setBalance(tx, owner, id, balance)
	return nil
}

// move transfers amount of id between holders; supply is unchanged.
func (b *balanceBook) move(tx *Tx, from, to Address, id TokenID, amount *uint256.Int) error {
	amount = amountOrZero(amount)
	fromBalance := b.balanceOf(from, id)
	if fromBalance.Lt(amount) {
		return &InsufficientBalanceError{Owner: from, ID: id, Balance: fromBalance, Needed: amount}
	}
	b.setBalance(tx, from, id, new(uint256.Int).Sub(fromBalance, amount))
	toBalance, overflow := new(uint256.Int).AddOverflow(b.balanceOf(to, id), amount)
	if overflow {
		return ErrArithmeticOverflow
	}
	b.setBalance(tx, to, id, toBalance)
	return nil
}
