package core

import (
	"context"

	"github.com/holiman/uint256"
)

func (l *MultiIDLedger) SetApprovalForAll(ctx context.Context, caller Address, operator Address, approved bool) error {
	fields := map[string]any{
		"ledger":   l.address.Hex(),
		"caller":   caller.Hex(),
		"operator": operator.Hex(),
		"approved": approved,
	}
	return l.rt.Atomic(ctx, "ledger.set_approval_for_all", fields, func(ctx context.Context, tx *Tx) error {
		if caller == operator {
			return invalidArguments("setting approval status for self")
		}
		operators, ok := l.approvals[caller]
		if !ok {
			operators = map[Address]bool{}
			l.approvals[caller] = operators
		}
		previous, existed := operators[operator]
		operators[operator] = approved
		tx.OnRollback(func() {
			if existed {
				operators[operator] = previous
				return
			}
			delete(operators, operator)
		})
		tx.Emit(ApprovalForAll{Contract: l.address, Owner: caller, Operator: operator, Approved: approved})
		return nil
	})
}

func (l *MultiIDLedger) IsApprovedForAll(ctx context.Context, owner Address, operator Address) bool {
	return view(ctx, l.rt, func() bool { return l.approvals[owner][operator] })
}

// SafeTransferFrom moves amount of id from one holder to another. When to is
// a deployed TokenReceiver it must accept the transfer.
func (l *MultiIDLedger) SafeTransferFrom(
	ctx context.Context,
	caller, from, to Address,
	id TokenID,
	amount *uint256.Int,
	data []byte,
) error {
	fields := l.fields(caller, id)
	fields["from"] = from.Hex()
	fields["to"] = to.Hex()
	return l.rt.Atomic(ctx, "ledger.safe_transfer", fields, func(ctx context.Context, tx *Tx) error {
		if to == ZeroAddress {
			return ErrZeroAddress
		}
		if err := l.requireOperator(caller, from); err != nil {
			return err
		}
		amount := amountOrZero(amount)
		if err := l.book.move(tx, from, to, id, amount); err != nil {
			return err
		}
		tx.Emit(TransferSingle{
			Contract: l.address,
			Operator: caller,
			From:     from,
			To:       to,
			ID:       id,
			Amount:   amount.Clone(),
		})
		return l.checkReceiver(ctx, caller, from, to, id, amount, data)
	})
}

// SafeBatchTransferFrom moves several classes in one operation.
func (l *MultiIDLedger) SafeBatchTransferFrom(
	ctx context.Context,
	caller, from, to Address,
	ids []TokenID,
	amounts []*uint256.Int,
	data []byte,
) error {
	fields := map[string]any{
		"ledger": l.address.Hex(),
		"caller": caller.Hex(),
		"from":   from.Hex(),
		"to":     to.Hex(),
		"count":  len(ids),
	}
	return l.rt.Atomic(ctx, "ledger.safe_batch_transfer", fields, func(ctx context.Context, tx *Tx) error {
		if len(ids) != len(amounts) {
			return invalidArguments("ids and amounts length mismatch: %d != %d", len(ids), len(amounts))
		}
		if to == ZeroAddress {
			return ErrZeroAddress
		}
		if err := l.requireOperator(caller, from); err != nil {
			return err
		}
		amounts := cloneAmounts(amounts)
		for i, id := range ids {
			if err := l.book.move(tx, from, to, id, amounts[i]); err != nil {
				return err
			}
		}
		tx.Emit(TransferBatch{
			Contract: l.address,
			Operator: caller,
			From:     from,
			To:       to,
			IDs:      append([]TokenID(nil), ids...),
			Amounts:  cloneAmounts(amounts),
		})
		return l.checkBatchReceiver(ctx, caller, from, to, ids, amounts, data)
	})
}

func (l *MultiIDLedger) requireOperator(caller, from Address) error {
	if caller == from || l.approvals[from][caller] {
		return nil
	}
	return &NotApprovedError{Owner: from, Operator: caller}
}

// checkReceiver runs the acceptance check when to is a deployed contract.
// Addresses without a contract are treated as plain holders.
func (l *MultiIDLedger) checkReceiver(
	ctx context.Context,
	operator, from, to Address,
	id TokenID,
	amount *uint256.Int,
	data []byte,
) error {
	contract, deployed := l.rt.Contract(to)
	if !deployed {
		return nil
	}
	receiver, ok := contract.(TokenReceiver)
	if !ok {
		return &TransferToNotCompatibleImplementerError{Implementer: to}
	}
	done := l.beginInbound(to, operator, from, []TokenID{id}, []*uint256.Int{amount})
	defer done()
	token, err := receiver.OnReceived(ctx, l, ReceiveInput{
		Operator: operator,
		From:     from,
		ID:       id,
		Amount:   amount.Clone(),
		Data:     append([]byte(nil), data...),
	})
	if err != nil {
		return err
	}
	if token != ReceivedAcceptance {
		return &ReceiverRejectedTokensError{Receiver: to}
	}
	return nil
}

func (l *MultiIDLedger) checkBatchReceiver(
	ctx context.Context,
	operator, from, to Address,
	ids []TokenID,
	amounts []*uint256.Int,
	data []byte,
) error {
	contract, deployed := l.rt.Contract(to)
	if !deployed {
		return nil
	}
	receiver, ok := contract.(TokenReceiver)
	if !ok {
		return &TransferToNotCompatibleImplementerError{Implementer: to}
	}
	done := l.beginInbound(to, operator, from, ids, amounts)
	defer done()
	token, err := receiver.OnBatchReceived(ctx, l, BatchReceiveInput{
		Operator: operator,
		From:     from,
		IDs:      append([]TokenID(nil), ids...),
		Amounts:  cloneAmounts(amounts),
		Data:     append([]byte(nil), data...),
	})
	if err != nil {
		return err
	}
	if token != BatchReceivedAcceptance {
		return &ReceiverRejectedTokensError{Receiver: to}
	}
	return nil
}
