package core

import "context"

// StagedBatchFuncs adapts functions to StagedBatch. Nil functions do nothing.
type StagedBatchFuncs struct {
	CommitFn  func(ctx context.Context) error
	DiscardFn func(ctx context.Context)
}

func (b StagedBatchFuncs) Commit(ctx context.Context) error {
	if b.CommitFn == nil {
		return nil
	}
	return b.CommitFn(ctx)
}

func (b StagedBatchFuncs) Discard(ctx context.Context) {
	if b.DiscardFn != nil {
		b.DiscardFn(ctx)
	}
}

// StageBatch stages batch on sink. A plain sink is published when the
// returned batch commits.
func StageBatch(ctx context.Context, sink EventSink, batch EventBatch) (StagedBatch, error) {
	if staged, ok := sink.(StagedEventSink); ok {
		return staged.Stage(ctx, batch)
	}
	return StagedBatchFuncs{
		CommitFn: func(ctx context.Context) error { return sink.Publish(ctx, batch) },
	}, nil
}

// publishStaged delivers batch to every sink. Staged sinks prepare first,
// plain sinks publish next, and staged batches commit last in registration
// order. Any failure before the commit pass discards every staged batch.
func publishStaged(ctx context.Context, sinks []EventSink, batch EventBatch) error {
	staged := make([]StagedBatch, 0, len(sinks))
	discard := func(pending []StagedBatch) {
		for i := len(pending) - 1; i >= 0; i-- {
			pending[i].Discard(ctx)
		}
	}

	for _, sink := range sinks {
		stager, ok := sink.(StagedEventSink)
		if !ok {
			continue
		}
		prepared, err := stager.Stage(ctx, batch)
		if err != nil {
			discard(staged)
			return err
		}
		if prepared != nil {
			staged = append(staged, prepared)
		}
	}

	for _, sink := range sinks {
		if _, ok := sink.(StagedEventSink); ok {
			continue
		}
		if err := sink.Publish(ctx, batch); err != nil {
			discard(staged)
			return err
		}
	}

	for i, prepared := range staged {
		if err := prepared.Commit(ctx); err != nil {
			discard(staged[i+1:])
			return err
		}
	}
	return nil
}
