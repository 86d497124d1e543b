package core

import (
	"context"

	"github.com/holiman/uint256"
)

// inboundTransfer is a transfer into a receiver contract whose hook is
// running. Deposit queries are answered only for the transfer in flight.
type inboundTransfer struct {
	operator Address
	from     Address
	ids      []TokenID
	amounts  []*uint256.Int

	accepted     bool
	acknowledged bool
}

// beginInbound records the transfer to receiver for the duration of its hook
// and returns the function that restores the previous record.
func (l *MultiIDLedger) beginInbound(receiver, operator, from Address, ids []TokenID, amounts []*uint256.Int) func() {
	previous, hadPrevious := l.inbound[receiver]
	l.inbound[receiver] = &inboundTransfer{
		operator: operator,
		from:     from,
		ids:      append([]TokenID(nil), ids...),
		amounts:  cloneAmounts(amounts),
	}
	return func() {
		if hadPrevious {
			l.inbound[receiver] = previous
			return
		}
		delete(l.inbound, receiver)
	}
}

// inboundFor returns the transfer in flight to vault. Outside an operation
// the record set is always empty.
func (l *MultiIDLedger) inboundFor(ctx context.Context, vault Address) *inboundTransfer {
	return view(ctx, l.rt, func() *inboundTransfer { return l.inbound[vault] })
}

func (t *inboundTransfer) matches(operator, from Address, ids []TokenID, amounts []*uint256.Int) bool {
	if t.operator != operator || t.from != from || len(t.ids) != len(ids) || len(t.amounts) != len(amounts) {
		return false
	}
	for i := range ids {
		if t.ids[i] != ids[i] || !amountOrZero(t.amounts[i]).Eq(amountOrZero(amounts[i])) {
			return false
		}
	}
	return true
}

// AcceptDeposit answers a vault's acceptance query. Only the transfer this
// ledger is currently delivering to the vault can be accepted, once; the
// configured deposit hooks decide the rest.
func (l *MultiIDLedger) AcceptDeposit(ctx context.Context, query DepositQuery) (bool, error) {
	transfer := l.inboundFor(ctx, query.Vault)
	if transfer == nil || transfer.accepted || !transfer.matches(query.Operator, query.From, query.IDs, query.Amounts) {
		return false, nil
	}
	transfer.accepted = true
	return l.hooks.AcceptDeposit(ctx, query)
}

// AcknowledgeDeposit confirms the receipts issued for the accepted transfer.
func (l *MultiIDLedger) AcknowledgeDeposit(ctx context.Context, ack DepositAck) (AcceptanceToken, error) {
	transfer := l.inboundFor(ctx, ack.Vault)
	if transfer == nil || !transfer.accepted || transfer.acknowledged ||
		!transfer.matches(ack.Operator, ack.From, ack.IDs, ack.Amounts) {
		return AcceptanceToken{}, nil
	}
	transfer.acknowledged = true
	return l.hooks.AcknowledgeDeposit(ctx, ack)
}
