package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Runtime hosts deployed contracts and executes every state change as one
// atomic operation. Top-level operations are serialized; operations started
// from inside another operation join it.
type Runtime struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	sinks           []EventSink
	commitHooks     []*CommitHookCoordinator
	now             func() time.Time

	mu     sync.RWMutex
	height atomic.Uint64

	registryMu sync.RWMutex
	contracts  map[Address]any
	nonces     map[Address]uint64
}

// Tx is the operation in progress. It collects undo steps and events until
// the top-level operation commits or rolls back.
type Tx struct {
	operation string
	height    uint64
	undo      []func()
	events    []Event
}

type txContextKey struct{}

func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	builder := defaultRuntimeBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(err)
	}

	provider, logger := glog.Resolve(finalConfig.ServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(finalConfig.ServiceName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	sinks := make([]EventSink, 0, len(builder.sinks))
	for _, sink := range builder.sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}

	return &Runtime{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		sinks:           sinks,
		commitHooks:     append([]*CommitHookCoordinator(nil), builder.commitHooks...),
		now:             builder.now,
		contracts:       map[Address]any{},
		nonces:          map[Address]uint64{},
	}, nil
}

func mapBuildError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "carbon: runtime configuration invalid").
		WithTextCode(CarbonErrorInvalidArguments)
}

func (r *Runtime) Config() Config {
	if r == nil {
		return DefaultConfig()
	}
	return r.config
}

func (r *Runtime) Logger() Logger {
	if r == nil {
		return glog.Nop()
	}
	return r.logger
}

// Height returns the height of the last committed top-level operation.
func (r *Runtime) Height() uint64 {
	if r == nil {
		return 0
	}
	return r.height.Load()
}

// Deploy registers contract under an address derived from the deployer and
// the deployer's deployment count.
func (r *Runtime) Deploy(deployer Address, contract any) Address {
	r.registryMu.Lock()
	defer r.registryMu.Unlock()
	nonce := r.nonces[deployer]
	r.nonces[deployer] = nonce + 1
	address := crypto.CreateAddress(deployer, nonce)
	r.contracts[address] = contract
	return address
}

// Contract resolves a deployed contract. Addresses without a contract are
// externally held accounts.
func (r *Runtime) Contract(address Address) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	contract, ok := r.contracts[address]
	return contract, ok
}

// Atomic runs fn as one operation. Either every mutation fn journals is kept
// and its events are published, or none are. A call made while another
// operation is in progress on the same context joins that operation.
func (r *Runtime) Atomic(
	ctx context.Context,
	operation string,
	fields map[string]any,
	fn func(ctx context.Context, tx *Tx) error,
) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	var committedBatch *EventBatch
	defer func() {
		if committedBatch != nil {
			r.runPostCommit(ctx, *committedBatch, fields)
		}
	}()

	startedAt := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Tx{operation: normalizeOperation(operation), height: r.height.Load() + 1}
	txCtx := context.WithValue(ctx, txContextKey{}, tx)
	committed := false
	defer func() {
		if committed {
			return
		}
		tx.rollback()
		if recovered := recover(); recovered != nil {
			r.observeOperation(ctx, startedAt, operation, tx.height, fmt.Errorf("carbon: operation panicked: %v", recovered), fields)
			panic(recovered)
		}
	}()

	if err = fn(txCtx, tx); err != nil {
		r.observeOperation(ctx, startedAt, operation, tx.height, err, fields)
		return err
	}

	batch := EventBatch{
		Height:    tx.height,
		Operation: tx.operation,
		Events:    append([]Event(nil), tx.events...),
	}
	if err = publishStaged(txCtx, r.sinks, batch); err != nil {
		err = fmt.Errorf("carbon: publish events: %w", err)
		r.observeOperation(ctx, startedAt, operation, tx.height, err, fields)
		return err
	}

	committed = true
	r.height.Store(tx.height)
	r.observeOperation(ctx, startedAt, operation, tx.height, nil, fields)
	if len(r.commitHooks) > 0 {
		committedBatch = &batch
	}
	return nil
}

func (r *Runtime) runPostCommit(ctx context.Context, batch EventBatch, fields map[string]any) {
	for _, hooks := range r.commitHooks {
		if err := hooks.ExecutePostCommit(ctx, batch); err != nil {
			logFields := cloneFields(fields)
			logFields["event_type"] = batch.Operation
			logFields["height"] = batch.Height
			logFields["error"] = err.Error()
			r.logError(ctx, batch.Operation+" post-commit hooks failed", logFields)
		}
	}
}

// view runs fn under the shared lock, or directly when ctx already carries an
// operation.
func view[T any](ctx context.Context, r *Runtime, fn func() T) T {
	if ctx != nil {
		if _, ok := txFromContext(ctx); ok {
			return fn()
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn()
}

func txFromContext(ctx context.Context) (*Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey{}).(*Tx)
	return tx, ok && tx != nil
}

// OnRollback registers an undo step. Steps run in reverse registration order.
func (tx *Tx) OnRollback(undo func()) {
	if tx == nil || undo == nil {
		return
	}
	tx.undo = append(tx.undo, undo)
}

func (tx *Tx) Emit(event Event) {
	if tx == nil || event == nil {
		return
	}
	tx.events = append(tx.events, event)
}

// Height is the height the operation commits at.
func (tx *Tx) Height() uint64 {
	if tx == nil {
		return 0
	}
	return tx.height
}

func (tx *Tx) Operation() string {
	if tx == nil {
		return ""
	}
	return tx.operation
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}
