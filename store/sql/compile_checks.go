package sqlstore

import "github.com/goliatone/go-carbon/core"

var (
	_ core.EventSink       = (*EventStore)(nil)
	_ core.DepositHistory  = (*DepositStore)(nil)
	_ core.DepositHistory  = (*CachedDepositHistory)(nil)
	_ core.EventSink       = (*CachedDepositHistory)(nil)
	_ core.StagedEventSink = (*EventStore)(nil)
	_ core.StagedEventSink = (*CachedDepositHistory)(nil)
)
