package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ TokenSource         = (*MultiIDLedger)(nil)
	_ DepositHooks        = (*MultiIDLedger)(nil)
	_ DepositHooks        = AcceptAllDepositHooks{}
	_ TokenReceiver       = (*Vault)(nil)
	_ ReceiptLedger       = (*PooledReceipt)(nil)
	_ ReceiptLedger       = (*ProvenanceReceipt)(nil)
	_ PermissionDelegator = (*PooledReceipt)(nil)
	_ PermissionDelegator = (*ProvenanceReceipt)(nil)
	_ PermissionDelegator = (*AccessControl)(nil)
	_ EventSink           = (*MemoryJournal)(nil)
	_ EventSink           = (*CommitHookCoordinator)(nil)
	_ StagedEventSink     = (*MemoryJournal)(nil)
	_ StagedEventSink     = (*CommitHookCoordinator)(nil)
	_ StagedBatch         = StagedBatchFuncs{}
	_ ConfigProvider      = (*CfgxConfigProvider)(nil)
	_ OptionsResolver     = GoOptionsResolver{}
	_ RawConfigLoader     = YAMLConfigLoader{}
	_ MetricsRecorder     = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
