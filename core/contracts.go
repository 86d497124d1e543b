package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/holiman/uint256"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// EventSink receives the events of every committed top-level operation. An
// error returned by Publish rolls the operation back.
type EventSink interface {
	Publish(ctx context.Context, batch EventBatch) error
}

// StagedEventSink holds a batch back until the operation commits. The runtime
// stages every such sink before any plain sink is published and before any
// staged batch is committed, so a failure anywhere leaves staged sinks empty.
type StagedEventSink interface {
	EventSink
	Stage(ctx context.Context, batch EventBatch) (StagedBatch, error)
}

// StagedBatch is a batch prepared by a StagedEventSink. Exactly one of
// Commit or Discard is called.
type StagedBatch interface {
	Commit(ctx context.Context) error
	Discard(ctx context.Context)
}

// Contract is a component deployed on a Runtime.
type Contract interface {
	Address() Address
}

// TokenSource is the ledger a transfer hook is invoked by.
type TokenSource interface {
	Contract
}

// TokenReceiver is implemented by contracts that can take custody of
// multi-id tokens. Returning anything other than the matching acceptance
// token rejects the transfer.
type TokenReceiver interface {
	OnReceived(ctx context.Context, source TokenSource, in ReceiveInput) (AcceptanceToken, error)
	OnBatchReceived(ctx context.Context, source TokenSource, in BatchReceiveInput) (AcceptanceToken, error)
}

// DepositAcceptor decides whether a deposit into a vault may proceed.
type DepositAcceptor interface {
	AcceptDeposit(ctx context.Context, query DepositQuery) (bool, error)
}

// DepositAcknowledger confirms a deposit after receipts were issued and must
// answer with AcknowledgeAcceptance.
type DepositAcknowledger interface {
	AcknowledgeDeposit(ctx context.Context, ack DepositAck) (AcceptanceToken, error)
}

type DepositHooks interface {
	DepositAcceptor
	DepositAcknowledger
}

// ReceiptLedger issues receipts for vault deposits.
type ReceiptLedger interface {
	Contract
	Kind() ReceiptKind
	Issue(ctx context.Context, caller Address, to Address, amount *uint256.Int, prov Provenance) (ReceiptHandle, error)
}

// PermissionDelegator grants the minter role on a receipt backend.
type PermissionDelegator interface {
	DelegatePermissionsTo(ctx context.Context, caller Address, account Address) error
}

// DepositEntry is one receipt issuance recorded by a persistent event sink.
type DepositEntry struct {
	Height     uint64
	Vault      Address
	Source     Address
	Backend    Address
	From       Address
	ReceiptID  uint64
	OriginalID TokenID
	Amount     *uint256.Int
	RecordedAt time.Time
}

type DepositFilter struct {
	Vault   Address
	From    Address
	Source  Address
	Page    int
	PerPage int
}

type DepositPage struct {
	Items   []DepositEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// DepositHistory reads recorded deposits back.
type DepositHistory interface {
	GetByReceipt(ctx context.Context, vault Address, receiptID uint64) (DepositEntry, error)
	ListDeposits(ctx context.Context, filter DepositFilter) (DepositPage, error)
}
