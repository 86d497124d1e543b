package core

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

type counterContract struct {
	value int
}

func (c *counterContract) add(tx *Tx, delta int) {
	previous := c.value
	c.value += delta
	tx.OnRollback(func() { c.value = previous })
}

type failingSink struct {
	err error
}

func (s failingSink) Publish(context.Context, EventBatch) error { return s.err }

type recordingStagedSink struct {
	stageErr  error
	commitErr error
	staged    int
	committed int
	discarded int
}

func (s *recordingStagedSink) Publish(ctx context.Context, batch EventBatch) error {
	staged, err := s.Stage(ctx, batch)
	if err != nil {
		return err
	}
	return staged.Commit(ctx)
}

func (s *recordingStagedSink) Stage(context.Context, EventBatch) (StagedBatch, error) {
	if s.stageErr != nil {
		return nil, s.stageErr
	}
	s.staged++
	return StagedBatchFuncs{
		CommitFn: func(context.Context) error {
			if s.commitErr != nil {
				return s.commitErr
			}
			s.committed++
			return nil
		},
		DiscardFn: func(context.Context) { s.discarded++ },
	}, nil
}

func TestRuntime_AtomicCommitsAndAdvancesHeight(t *testing.T) {
	journal := NewMemoryJournal()
	rt, err := NewRuntime(Config{}, WithEventSink(journal))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := rt.Atomic(ctx, "counter.add", nil, func(ctx context.Context, tx *Tx) error {
			counter.add(tx, 1)
			tx.Emit(Transfer{Amount: nil})
			return nil
		})
		if err != nil {
			t.Fatalf("atomic: %v", err)
		}
	}
	if counter.value != 3 {
		t.Fatalf("expected value 3, got %d", counter.value)
	}
	if rt.Height() != 3 {
		t.Fatalf("expected height 3, got %d", rt.Height())
	}
	batches := journal.Batches()
	if len(batches) != 3 {
		t.Fatalf("expected three batches, got %d", len(batches))
	}
	for i, batch := range batches {
		if batch.Height != uint64(i+1) || batch.Operation != "counter.add" || len(batch.Events) != 1 {
			t.Fatalf("unexpected batch %d: %+v", i, batch)
		}
	}
}

func TestRuntime_AtomicRollsBackOnError(t *testing.T) {
	journal := NewMemoryJournal()
	rt, err := NewRuntime(Config{}, WithEventSink(journal))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}
	sentinel := errors.New("stop")

	err = rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
		counter.add(tx, 5)
		counter.add(tx, 7)
		tx.Emit(Transfer{})
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if counter.value != 0 {
		t.Fatalf("expected rollback to restore 0, got %d", counter.value)
	}
	if rt.Height() != 0 || len(journal.Batches()) != 0 {
		t.Fatalf("expected no commit after failure")
	}
}

func TestRuntime_AtomicRollsBackAndRepanics(t *testing.T) {
	rt, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}

	func() {
		defer func() {
			if recovered := recover(); recovered != "boom" {
				t.Fatalf("expected panic to propagate, got %v", recovered)
			}
		}()
		_ = rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
			counter.add(tx, 9)
			panic("boom")
		})
	}()

	if counter.value != 0 {
		t.Fatalf("expected rollback after panic, got %d", counter.value)
	}
	// The lock must have been released by the panicking operation.
	if err := rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
		counter.add(tx, 1)
		return nil
	}); err != nil {
		t.Fatalf("atomic after panic: %v", err)
	}
	if counter.value != 1 || rt.Height() != 1 {
		t.Fatalf("expected value 1 at height 1, got %d at %d", counter.value, rt.Height())
	}
}

func TestRuntime_SinkFailureRollsBack(t *testing.T) {
	sinkErr := errors.New("sink down")
	journal := NewMemoryJournal()
	rt, err := NewRuntime(Config{}, WithEventSink(journal), WithEventSink(failingSink{err: sinkErr}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}

	err = rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
		counter.add(tx, 2)
		return nil
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if counter.value != 0 || rt.Height() != 0 {
		t.Fatalf("expected rollback after sink failure")
	}
	if len(journal.Batches()) != 0 {
		t.Fatalf("expected the journal to stay empty, got %d batches", len(journal.Batches()))
	}
}

func TestRuntime_StagedCommitFailureDiscardsLaterSinks(t *testing.T) {
	commitErr := errors.New("commit refused")
	store := &recordingStagedSink{commitErr: commitErr}
	journal := NewMemoryJournal()
	rt, err := NewRuntime(Config{}, WithEventSink(store), WithEventSink(journal))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}

	err = rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
		counter.add(tx, 3)
		tx.Emit(ApprovalForAll{Owner: axel, Operator: bianca, Approved: true})
		return nil
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if counter.value != 0 || rt.Height() != 0 {
		t.Fatalf("expected rollback after a failed commit")
	}
	if store.staged != 1 || store.committed != 0 {
		t.Fatalf("expected one staged and no committed batch, got %d/%d", store.staged, store.committed)
	}
	if len(journal.Events()) != 0 {
		t.Fatalf("expected the journal to drop the staged batch")
	}

	store.commitErr = nil
	if err := rt.Atomic(context.Background(), "counter.add", nil, func(ctx context.Context, tx *Tx) error {
		counter.add(tx, 1)
		tx.Emit(ApprovalForAll{Owner: axel, Operator: bianca, Approved: false})
		return nil
	}); err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if store.committed != 1 || len(journal.Batches()) != 1 || rt.Height() != 1 {
		t.Fatalf("expected the second operation to reach every sink")
	}
}

func TestRuntime_StageFailureDiscardsEarlierStagedSinks(t *testing.T) {
	store := &recordingStagedSink{}
	stageErr := errors.New("stage refused")
	rt, err := NewRuntime(Config{},
		WithEventSink(store),
		WithEventSink(&recordingStagedSink{stageErr: stageErr}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	err = rt.Atomic(context.Background(), "noop", nil, func(context.Context, *Tx) error { return nil })
	if !errors.Is(err, stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if store.discarded != 1 || store.committed != 0 {
		t.Fatalf("expected the first sink to be discarded, got discarded=%d committed=%d", store.discarded, store.committed)
	}
}

func TestRuntime_NestedOperationsJoin(t *testing.T) {
	journal := NewMemoryJournal()
	rt, err := NewRuntime(Config{}, WithEventSink(journal))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	counter := &counterContract{}
	sentinel := errors.New("outer failed")

	err = rt.Atomic(context.Background(), "outer", nil, func(ctx context.Context, outer *Tx) error {
		counter.add(outer, 1)
		innerErr := rt.Atomic(ctx, "inner", nil, func(ctx context.Context, inner *Tx) error {
			if inner != outer {
				t.Fatalf("expected nested call to join the outer operation")
			}
			counter.add(inner, 10)
			return nil
		})
		if innerErr != nil {
			return innerErr
		}
		if got := view(ctx, rt, func() int { return counter.value }); got != 11 {
			t.Fatalf("expected nested view to see 11, got %d", got)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected outer error, got %v", err)
	}
	if counter.value != 0 {
		t.Fatalf("expected inner work to roll back with the outer operation, got %d", counter.value)
	}
	if len(journal.Batches()) != 0 {
		t.Fatalf("expected nested commit to publish nothing")
	}
}

func TestRuntime_DeployDerivesAddresses(t *testing.T) {
	rt, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	first := &counterContract{}
	second := &counterContract{}

	a := rt.Deploy(governance, first)
	b := rt.Deploy(governance, second)
	if a != crypto.CreateAddress(governance, 0) || b != crypto.CreateAddress(governance, 1) {
		t.Fatalf("expected nonce derived addresses, got %s and %s", a.Hex(), b.Hex())
	}
	if other := rt.Deploy(axel, first); other == a {
		t.Fatalf("expected deployer specific addresses")
	}
	resolved, ok := rt.Contract(b)
	if !ok || resolved != any(second) {
		t.Fatalf("expected to resolve the second contract")
	}
	if _, ok := rt.Contract(bianca); ok {
		t.Fatalf("expected plain account to have no contract")
	}
}

func TestReentrancyGuard_RejectsSecondEntry(t *testing.T) {
	rt, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	guard := &ReentrancyGuard{}

	err = rt.Atomic(context.Background(), "guarded", nil, func(ctx context.Context, tx *Tx) error {
		release, err := guard.Enter(tx)
		if err != nil {
			return err
		}
		defer release()
		if _, err := guard.Enter(tx); !errors.Is(err, ErrReentrantCall) {
			t.Fatalf("expected ErrReentrantCall, got %v", err)
		}
		if !guard.Entered() {
			t.Fatalf("expected guard to be entered")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if guard.Entered() {
		t.Fatalf("expected guard to be released")
	}

	sentinel := errors.New("abort")
	_ = rt.Atomic(context.Background(), "guarded", nil, func(ctx context.Context, tx *Tx) error {
		if _, err := guard.Enter(tx); err != nil {
			return err
		}
		return sentinel
	})
	if guard.Entered() {
		t.Fatalf("expected rollback to clear a guard that was never released")
	}
}
