package carbon

import "github.com/goliatone/go-carbon/core"

type Config = core.Config

type Option = core.Option

type Runtime = core.Runtime

type Address = core.Address

type TokenID = core.TokenID

type Role = core.Role

type MultiIDLedger = core.MultiIDLedger

type Vault = core.Vault

type ReceiptLedger = core.ReceiptLedger

type PooledReceipt = core.PooledReceipt

type ProvenanceReceipt = core.ProvenanceReceipt

type EventSink = core.EventSink
type EventBatch = core.EventBatch
type DepositHistory = core.DepositHistory
type DepositHooks = core.DepositHooks
type MetricsRecorder = core.MetricsRecorder
type CommitHookCoordinator = core.CommitHookCoordinator

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithEventSink       = core.WithEventSink
	WithCommitHooks     = core.WithCommitHooks
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	return core.NewRuntime(cfg, opts...)
}
