package core

import (
	"context"

	"github.com/holiman/uint256"
)

// Vault takes custody of credits deposited from supported source ledgers and
// issues receipts for them on its receipt backend.
type Vault struct {
	rt      *Runtime
	address Address
	acl     *AccessControl
	guard   ReentrancyGuard

	receipt       ReceiptLedger
	supported     map[Address]struct{}
	nextReceiptID uint64
}

type depositEntry struct {
	id     TokenID
	amount *uint256.Int
}

type depositOutcome struct {
	receiptIDs []uint64
	handles    []ReceiptHandle
}

func NewVault(rt *Runtime, owner Address, receipt ReceiptLedger) (*Vault, error) {
	if rt == nil {
		return nil, invalidArguments("runtime is required")
	}
	if receipt == nil {
		return nil, invalidArguments("receipt backend is required")
	}
	vault := &Vault{
		rt:        rt,
		receipt:   receipt,
		supported: map[Address]struct{}{},
	}
	vault.address = rt.Deploy(owner, vault)
	vault.acl = NewAccessControl(rt, vault.address, owner)
	return vault, nil
}

func (v *Vault) Address() Address { return v.address }

func (v *Vault) AccessControl() *AccessControl { return v.acl }

func (v *Vault) Owner(ctx context.Context) Address { return v.acl.Owner(ctx) }

func (v *Vault) AddSupportedSource(ctx context.Context, caller Address, source Address) error {
	return v.rt.Atomic(ctx, "vault.add_supported_source", v.adminFields(caller, source), func(ctx context.Context, tx *Tx) error {
		if err := v.acl.requireOwner(caller); err != nil {
			return err
		}
		if source == ZeroAddress {
			return ErrZeroAddress
		}
		if _, ok := v.supported[source]; ok {
			return nil
		}
		v.supported[source] = struct{}{}
		tx.OnRollback(func() { delete(v.supported, source) })
		tx.Emit(SupportedSourceAdded{Contract: v.address, Source: source, Admin: caller})
		return nil
	})
}

func (v *Vault) RemoveSupportedSource(ctx context.Context, caller Address, source Address) error {
	return v.rt.Atomic(ctx, "vault.remove_supported_source", v.adminFields(caller, source), func(ctx context.Context, tx *Tx) error {
		if err := v.acl.requireOwner(caller); err != nil {
			return err
		}
		if _, ok := v.supported[source]; !ok {
			return nil
		}
		delete(v.supported, source)
		tx.OnRollback(func() { v.supported[source] = struct{}{} })
		tx.Emit(SupportedSourceRemoved{Contract: v.address, Source: source, Admin: caller})
		return nil
	})
}

// ChangeReceiptBackend points future deposits at backend. Receipts already
// issued stay on the previous backend.
func (v *Vault) ChangeReceiptBackend(ctx context.Context, caller Address, backend ReceiptLedger) error {
	fields := map[string]any{
		"vault":  v.address.Hex(),
		"caller": caller.Hex(),
	}
	return v.rt.Atomic(ctx, "vault.change_receipt_backend", fields, func(ctx context.Context, tx *Tx) error {
		if err := v.acl.requireOwner(caller); err != nil {
			return err
		}
		if backend == nil {
			return invalidArguments("receipt backend is required")
		}
		previous := v.receipt
		if previous.Address() == backend.Address() {
			return ErrTokenAddressHasNotChanged
		}
		v.receipt = backend
		tx.OnRollback(func() { v.receipt = previous })
		tx.Emit(ReceiptTokenChanged{Contract: v.address, Admin: caller, Old: previous.Address(), New: backend.Address()})
		return nil
	})
}

func (v *Vault) IsSupportedSource(ctx context.Context, source Address) bool {
	return view(ctx, v.rt, func() bool {
		_, ok := v.supported[source]
		return ok
	})
}

func (v *Vault) SupportedSources(ctx context.Context) []Address {
	return view(ctx, v.rt, func() []Address {
		sources := make([]Address, 0, len(v.supported))
		for source := range v.supported {
			sources = append(sources, source)
		}
		return sortAddresses(sources)
	})
}

func (v *Vault) ReceiptBackend(ctx context.Context) ReceiptLedger {
	return view(ctx, v.rt, func() ReceiptLedger { return v.receipt })
}

// CurrentReceiptTokenID returns the last allocated receipt id. ok is false
// until the first deposit.
func (v *Vault) CurrentReceiptTokenID(ctx context.Context) (id uint64, ok bool) {
	type result struct {
		id uint64
		ok bool
	}
	out := view(ctx, v.rt, func() result {
		if v.nextReceiptID == 0 {
			return result{}
		}
		return result{id: v.nextReceiptID - 1, ok: true}
	})
	return out.id, out.ok
}

// OnReceived is the single-entry deposit hook invoked by a source ledger.
func (v *Vault) OnReceived(ctx context.Context, source TokenSource, in ReceiveInput) (AcceptanceToken, error) {
	if source == nil {
		return AcceptanceToken{}, invalidArguments("source ledger is required")
	}
	fields := v.depositFields(source, in.From, 1)
	fields["token_id"] = in.ID
	err := v.rt.Atomic(ctx, "vault.deposit", fields, func(ctx context.Context, tx *Tx) error {
		entries := []depositEntry{{id: in.ID, amount: amountOrZero(in.Amount)}}
		outcome, err := v.deposit(ctx, tx, source, in.Operator, in.From, entries, in.Data)
		if err != nil {
			return err
		}
		tx.Emit(CarbonDeposited{
			Contract:     v.address,
			ReceiptID:    outcome.receiptIDs[0],
			Amount:       entries[0].amount.Clone(),
			From:         in.From,
			SourceLedger: source.Address(),
			OriginalID:   in.ID,
			Backend:      outcome.handles[0].Backend,
		})
		return nil
	})
	if err != nil {
		return AcceptanceToken{}, err
	}
	return ReceivedAcceptance, nil
}

// OnBatchReceived is the batch deposit hook. Entries are processed in input
// order and receive consecutive receipt ids.
func (v *Vault) OnBatchReceived(ctx context.Context, source TokenSource, in BatchReceiveInput) (AcceptanceToken, error) {
	if source == nil {
		return AcceptanceToken{}, invalidArguments("source ledger is required")
	}
	err := v.rt.Atomic(ctx, "vault.batch_deposit", v.depositFields(source, in.From, len(in.IDs)), func(ctx context.Context, tx *Tx) error {
		if len(in.IDs) != len(in.Amounts) {
			return invalidArguments("ids and amounts length mismatch: %d != %d", len(in.IDs), len(in.Amounts))
		}
		if len(in.IDs) == 0 {
			return invalidArguments("batch deposit is empty")
		}
		entries := make([]depositEntry, len(in.IDs))
		for i := range in.IDs {
			entries[i] = depositEntry{id: in.IDs[i], amount: amountOrZero(in.Amounts[i])}
		}
		outcome, err := v.deposit(ctx, tx, source, in.Operator, in.From, entries, in.Data)
		if err != nil {
			return err
		}
		amounts := make([]*uint256.Int, len(entries))
		for i, entry := range entries {
			amounts[i] = entry.amount.Clone()
		}
		tx.Emit(CarbonBatchDeposited{
			Contract:     v.address,
			ReceiptIDs:   outcome.receiptIDs,
			Amounts:      amounts,
			From:         in.From,
			SourceLedger: source.Address(),
			OriginalIDs:  append([]TokenID(nil), in.IDs...),
			Backend:      outcome.handles[0].Backend,
		})
		return nil
	})
	if err != nil {
		return AcceptanceToken{}, err
	}
	return BatchReceivedAcceptance, nil
}

// deposit runs the acceptance protocol: guard, supported source, acceptance
// query, receipt issuance, acknowledgment.
func (v *Vault) deposit(
	ctx context.Context,
	tx *Tx,
	source TokenSource,
	operator, from Address,
	entries []depositEntry,
	data []byte,
) (depositOutcome, error) {
	release, err := v.guard.Enter(tx)
	if err != nil {
		return depositOutcome{}, err
	}
	defer release()

	sourceAddress := source.Address()
	if !v.isRegisteredSource(source) {
		return depositOutcome{}, &TransferIntoVaultIsNotAcceptedError{Source: sourceAddress}
	}

	ids := make([]TokenID, len(entries))
	amounts := make([]*uint256.Int, len(entries))
	for i, entry := range entries {
		ids[i] = entry.id
		amounts[i] = entry.amount.Clone()
	}

	acceptor, ok := source.(DepositAcceptor)
	if !ok {
		return depositOutcome{}, &TransferToNotCompatibleImplementerError{Implementer: sourceAddress}
	}
	accepted, err := acceptor.AcceptDeposit(ctx, DepositQuery{
		Vault:    v.address,
		Operator: operator,
		From:     from,
		IDs:      ids,
		Amounts:  cloneAmounts(amounts),
		Data:     append([]byte(nil), data...),
	})
	if err != nil {
		return depositOutcome{}, err
	}
	if !accepted {
		return depositOutcome{}, &TransferIntoVaultIsNotAcceptedError{Source: sourceAddress}
	}

	outcome := depositOutcome{
		receiptIDs: make([]uint64, 0, len(entries)),
		handles:    make([]ReceiptHandle, 0, len(entries)),
	}
	for _, entry := range entries {
		if entry.amount.IsZero() {
			return depositOutcome{}, invalidArguments("deposit amount for token %d must be positive", entry.id)
		}
		receiptID := v.allocateReceiptID(tx)
		handle, err := v.receipt.Issue(ctx, v.address, from, entry.amount, Provenance{
			ReceiptID:  receiptID,
			OriginalID: entry.id,
			Amount:     entry.amount.Clone(),
			Source:     sourceAddress,
		})
		if err != nil {
			return depositOutcome{}, err
		}
		outcome.receiptIDs = append(outcome.receiptIDs, receiptID)
		outcome.handles = append(outcome.handles, handle)
	}

	acknowledger, ok := source.(DepositAcknowledger)
	if !ok {
		return depositOutcome{}, &TransferToNotCompatibleImplementerError{Implementer: sourceAddress}
	}
	token, err := acknowledger.AcknowledgeDeposit(ctx, DepositAck{
		Vault:      v.address,
		Operator:   operator,
		From:       from,
		IDs:        ids,
		Amounts:    cloneAmounts(amounts),
		ReceiptIDs: append([]uint64(nil), outcome.receiptIDs...),
		Receipts:   append([]ReceiptHandle(nil), outcome.handles...),
	})
	if err != nil {
		return depositOutcome{}, err
	}
	if token != AcknowledgeAcceptance {
		return depositOutcome{}, &AcknowledgeFailRejectedTokensError{Source: sourceAddress}
	}
	return outcome, nil
}

// isRegisteredSource requires source to be in the supported set and to be the
// contract deployed at its address.
func (v *Vault) isRegisteredSource(source TokenSource) bool {
	address := source.Address()
	if _, ok := v.supported[address]; !ok {
		return false
	}
	deployed, ok := v.rt.Contract(address)
	return ok && deployed == any(source)
}

func (v *Vault) allocateReceiptID(tx *Tx) uint64 {
	id := v.nextReceiptID
	v.nextReceiptID = id + 1
	tx.OnRollback(func() { v.nextReceiptID = id })
	return id
}

func (v *Vault) adminFields(caller Address, source Address) map[string]any {
	return map[string]any{
		"vault":  v.address.Hex(),
		"caller": caller.Hex(),
		"source": source.Hex(),
	}
}

func (v *Vault) depositFields(source TokenSource, from Address, count int) map[string]any {
	return map[string]any{
		"vault":  v.address.Hex(),
		"ledger": source.Address().Hex(),
		"from":   from.Hex(),
		"count":  count,
	}
}
