package core

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventSignerChanged          = "SignerChanged"
	EventRoleGranted            = "RoleGranted"
	EventRoleRevoked            = "RoleRevoked"
	EventOwnershipTransferred   = "OwnershipTransferred"
	EventTokenURIChanged        = "TokenURIChanged"
	EventTransferSingle         = "TransferSingle"
	EventTransferBatch          = "TransferBatch"
	EventApprovalForAll         = "ApprovalForAll"
	EventTransfer               = "Transfer"
	EventCarbonDeposited        = "CarbonDeposited"
	EventCarbonBatchDeposited   = "CarbonBatchDeposited"
	EventReceiptTokenChanged    = "ReceiptTokenChanged"
	EventSupportedSourceAdded   = "SupportedSourceAdded"
	EventSupportedSourceRemoved = "SupportedSourceRemoved"
)

// Event is an observable record emitted by a contract during an operation.
type Event interface {
	EventName() string
	Emitter() Address
}

// EventBatch holds the events of one committed top-level operation in
// emission order.
type EventBatch struct {
	Height    uint64
	Operation string
	Events    []Event
}

type SignerChanged struct {
	Contract Address `json:"contract"`
	Old      Address `json:"old_signer"`
	New      Address `json:"new_signer"`
}

type RoleGranted struct {
	Contract Address `json:"contract"`
	Role     Role    `json:"role"`
	Account  Address `json:"account"`
	Sender   Address `json:"sender"`
}

type RoleRevoked struct {
	Contract Address `json:"contract"`
	Role     Role    `json:"role"`
	Account  Address `json:"account"`
	Sender   Address `json:"sender"`
}

type OwnershipTransferred struct {
	Contract Address `json:"contract"`
	Previous Address `json:"previous_owner"`
	New      Address `json:"new_owner"`
}

// TokenURIChanged carries keccak256 fingerprints of the old and new URIs.
type TokenURIChanged struct {
	Contract Address     `json:"contract"`
	ID       TokenID     `json:"id"`
	Old      common.Hash `json:"old_uri_hash"`
	New      common.Hash `json:"new_uri_hash"`
}

type TransferSingle struct {
	Contract Address      `json:"contract"`
	Operator Address      `json:"operator"`
	From     Address      `json:"from"`
	To       Address      `json:"to"`
	ID       TokenID      `json:"id"`
	Amount   *uint256.Int `json:"amount"`
}

type TransferBatch struct {
	Contract Address        `json:"contract"`
	Operator Address        `json:"operator"`
	From     Address        `json:"from"`
	To       Address        `json:"to"`
	IDs      []TokenID      `json:"ids"`
	Amounts  []*uint256.Int `json:"amounts"`
}

type ApprovalForAll struct {
	Contract Address `json:"contract"`
	Owner    Address `json:"owner"`
	Operator Address `json:"operator"`
	Approved bool    `json:"approved"`
}

// Transfer is emitted by the pooled receipt ledger.
type Transfer struct {
	Contract Address      `json:"contract"`
	From     Address      `json:"from"`
	To       Address      `json:"to"`
	Amount   *uint256.Int `json:"amount"`
}

type CarbonDeposited struct {
	Contract     Address      `json:"contract"`
	ReceiptID    uint64       `json:"receipt_id"`
	Amount       *uint256.Int `json:"amount"`
	From         Address      `json:"from"`
	SourceLedger Address      `json:"source_ledger"`
	OriginalID   TokenID      `json:"original_id"`
	Backend      Address      `json:"backend"`
}

type CarbonBatchDeposited struct {
	Contract     Address        `json:"contract"`
	ReceiptIDs   []uint64       `json:"receipt_ids"`
	Amounts      []*uint256.Int `json:"amounts"`
	From         Address        `json:"from"`
	SourceLedger Address        `json:"source_ledger"`
	OriginalIDs  []TokenID      `json:"original_ids"`
	Backend      Address        `json:"backend"`
}

type ReceiptTokenChanged struct {
	Contract Address `json:"contract"`
	Admin    Address `json:"admin"`
	Old      Address `json:"old_backend"`
	New      Address `json:"new_backend"`
}

type SupportedSourceAdded struct {
	Contract Address `json:"contract"`
	Source   Address `json:"source"`
	Admin    Address `json:"admin"`
}

type SupportedSourceRemoved struct {
	Contract Address `json:"contract"`
	Source   Address `json:"source"`
	Admin    Address `json:"admin"`
}

func (e SignerChanged) EventName() string          { return EventSignerChanged }
func (e RoleGranted) EventName() string            { return EventRoleGranted }
func (e RoleRevoked) EventName() string            { return EventRoleRevoked }
func (e OwnershipTransferred) EventName() string   { return EventOwnershipTransferred }
func (e TokenURIChanged) EventName() string        { return EventTokenURIChanged }
func (e TransferSingle) EventName() string         { return EventTransferSingle }
func (e TransferBatch) EventName() string          { return EventTransferBatch }
func (e ApprovalForAll) EventName() string         { return EventApprovalForAll }
func (e Transfer) EventName() string               { return EventTransfer }
func (e CarbonDeposited) EventName() string        { return EventCarbonDeposited }
func (e CarbonBatchDeposited) EventName() string   { return EventCarbonBatchDeposited }
func (e ReceiptTokenChanged) EventName() string    { return EventReceiptTokenChanged }
func (e SupportedSourceAdded) EventName() string   { return EventSupportedSourceAdded }
func (e SupportedSourceRemoved) EventName() string { return EventSupportedSourceRemoved }

func (e SignerChanged) Emitter() Address          { return e.Contract }
func (e RoleGranted) Emitter() Address            { return e.Contract }
func (e RoleRevoked) Emitter() Address            { return e.Contract }
func (e OwnershipTransferred) Emitter() Address   { return e.Contract }
func (e TokenURIChanged) Emitter() Address        { return e.Contract }
func (e TransferSingle) Emitter() Address         { return e.Contract }
func (e TransferBatch) Emitter() Address          { return e.Contract }
func (e ApprovalForAll) Emitter() Address         { return e.Contract }
func (e Transfer) Emitter() Address               { return e.Contract }
func (e CarbonDeposited) Emitter() Address        { return e.Contract }
func (e CarbonBatchDeposited) Emitter() Address   { return e.Contract }
func (e ReceiptTokenChanged) Emitter() Address    { return e.Contract }
func (e SupportedSourceAdded) Emitter() Address   { return e.Contract }
func (e SupportedSourceRemoved) Emitter() Address { return e.Contract }

// MemoryJournal is an in-memory EventSink.
type MemoryJournal struct {
	mu      sync.Mutex
	batches []EventBatch
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Publish(_ context.Context, batch EventBatch) error {
	if j == nil {
		return nil
	}
	j.append(batch)
	return nil
}

// Stage keeps batch out of the journal until the operation commits.
func (j *MemoryJournal) Stage(_ context.Context, batch EventBatch) (StagedBatch, error) {
	if j == nil {
		return nil, nil
	}
	batch.Events = append([]Event(nil), batch.Events...)
	return StagedBatchFuncs{
		CommitFn: func(context.Context) error {
			j.append(batch)
			return nil
		},
	}, nil
}

func (j *MemoryJournal) append(batch EventBatch) {
	j.mu.Lock()
	defer j.mu.Unlock()
	batch.Events = append([]Event(nil), batch.Events...)
	j.batches = append(j.batches, batch)
}

func (j *MemoryJournal) Batches() []EventBatch {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EventBatch, len(j.batches))
	copy(out, j.batches)
	return out
}

// Events returns every journaled event in commit order.
func (j *MemoryJournal) Events() []Event {
	events := []Event{}
	for _, batch := range j.Batches() {
		events = append(events, batch.Events...)
	}
	return events
}

func (j *MemoryJournal) EventsNamed(name string) []Event {
	events := []Event{}
	for _, event := range j.Events() {
		if event.EventName() == name {
			events = append(events, event)
		}
	}
	return events
}

func (j *MemoryJournal) Reset() {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.batches = nil
}
