package gojob

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/core"
	glog "github.com/goliatone/go-logger/glog"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDEventDispatch  = "carbon.events.dispatch"
	ScriptEventDispatch = "carbon/events/dispatch"
	HookName            = "gojob.event_dispatch"

	dedupPolicyDrop = "drop"
)

var ErrMalformedDispatchJob = errors.New("gojob: malformed event dispatch job")

// RetryPolicy bounds how often a failed dispatch is requeued.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt applies the policy to a nack for the given attempt.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// DispatchedEvent names one event of a committed batch.
type DispatchedEvent struct {
	Name    string
	Emitter core.Address
}

// DispatchJob announces a committed event batch to out-of-process consumers.
type DispatchJob struct {
	Height    uint64
	Operation string
	Events    []DispatchedEvent
}

func NewDispatchJob(batch core.EventBatch) DispatchJob {
	events := make([]DispatchedEvent, 0, len(batch.Events))
	for _, event := range batch.Events {
		if event == nil {
			continue
		}
		events = append(events, DispatchedEvent{Name: event.EventName(), Emitter: event.Emitter()})
	}
	return DispatchJob{Height: batch.Height, Operation: batch.Operation, Events: events}
}

// IdempotencyKey is unique per committed height.
func (j DispatchJob) IdempotencyKey() string {
	return JobIDEventDispatch + ":" + strconv.FormatUint(j.Height, 10)
}

func ToExecutionMessage(j DispatchJob) *job.ExecutionMessage {
	events := make([]any, 0, len(j.Events))
	for _, event := range j.Events {
		events = append(events, map[string]any{
			"name":    event.Name,
			"emitter": event.Emitter.Hex(),
		})
	}
	return &job.ExecutionMessage{
		JobID:      JobIDEventDispatch,
		ScriptPath: ScriptEventDispatch,
		Parameters: map[string]any{
			"height":    strconv.FormatUint(j.Height, 10),
			"operation": j.Operation,
			"events":    events,
		},
		IdempotencyKey: j.IdempotencyKey(),
		DedupPolicy:    job.DeduplicationPolicy(dedupPolicyDrop),
	}
}

// FromExecutionMessage decodes a dispatch job. Parameters may have passed
// through a JSON backed queue, so numbers and lists are read loosely.
func FromExecutionMessage(msg *job.ExecutionMessage) (DispatchJob, error) {
	if msg == nil {
		return DispatchJob{}, fmt.Errorf("%w: message is nil", ErrMalformedDispatchJob)
	}
	if strings.TrimSpace(msg.JobID) != JobIDEventDispatch {
		return DispatchJob{}, fmt.Errorf("%w: unexpected job id %q", ErrMalformedDispatchJob, msg.JobID)
	}
	height, err := parseHeight(msg.Parameters["height"])
	if err != nil {
		return DispatchJob{}, err
	}
	operation, _ := msg.Parameters["operation"].(string)

	out := DispatchJob{Height: height, Operation: strings.TrimSpace(operation)}
	var raw []any
	switch typed := msg.Parameters["events"].(type) {
	case nil:
	case []any:
		raw = typed
	case []map[string]any:
		for _, entry := range typed {
			raw = append(raw, entry)
		}
	default:
		return DispatchJob{}, fmt.Errorf("%w: events has type %T", ErrMalformedDispatchJob, typed)
	}
	for i, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			return DispatchJob{}, fmt.Errorf("%w: event %d has type %T", ErrMalformedDispatchJob, i, entry)
		}
		name, _ := fields["name"].(string)
		emitter, _ := fields["emitter"].(string)
		if strings.TrimSpace(name) == "" || !common.IsHexAddress(emitter) {
			return DispatchJob{}, fmt.Errorf("%w: event %d is incomplete", ErrMalformedDispatchJob, i)
		}
		out.Events = append(out.Events, DispatchedEvent{Name: name, Emitter: common.HexToAddress(emitter)})
	}
	return out, nil
}

func parseHeight(value any) (uint64, error) {
	switch typed := value.(type) {
	case string:
		height, err := strconv.ParseUint(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: height %q", ErrMalformedDispatchJob, typed)
		}
		return height, nil
	case uint64:
		return typed, nil
	case int:
		if typed >= 0 {
			return uint64(typed), nil
		}
	case int64:
		if typed >= 0 {
			return uint64(typed), nil
		}
	case float64:
		if typed >= 0 && typed < math.MaxUint64 && typed == math.Trunc(typed) {
			return uint64(typed), nil
		}
	}
	return 0, fmt.Errorf("%w: height %v", ErrMalformedDispatchJob, value)
}

// Dispatcher is a post-commit hook that enqueues every committed batch as a
// DispatchJob. Enqueue failures surface as post-commit errors and never undo
// the operation.
type Dispatcher struct {
	enqueuer queue.Enqueuer
	names    map[string]struct{}
}

type DispatcherOption func(*Dispatcher)

// WithEventNames only dispatches batches carrying one of names.
func WithEventNames(names ...string) DispatcherOption {
	return func(d *Dispatcher) {
		for _, name := range names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				d.names[trimmed] = struct{}{}
			}
		}
	}
}

func NewDispatcher(enqueuer queue.Enqueuer, opts ...DispatcherOption) (*Dispatcher, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	dispatcher := &Dispatcher{enqueuer: enqueuer, names: map[string]struct{}{}}
	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}
	return dispatcher, nil
}

// Register attaches the dispatcher as a post-commit hook.
func (d *Dispatcher) Register(hooks *core.CommitHookCoordinator) error {
	if hooks == nil {
		return fmt.Errorf("gojob: commit hook coordinator is required")
	}
	hooks.RegisterPostCommit(d)
	return nil
}

func (d *Dispatcher) Name() string { return HookName }

func (d *Dispatcher) OnCommit(ctx context.Context, batch core.EventBatch) error {
	if d == nil || d.enqueuer == nil {
		return fmt.Errorf("gojob: dispatcher is not configured")
	}
	if !d.wants(batch) {
		return nil
	}
	if err := d.enqueuer.Enqueue(ctx, ToExecutionMessage(NewDispatchJob(batch))); err != nil {
		return fmt.Errorf("gojob: enqueue batch at height %d: %w", batch.Height, err)
	}
	return nil
}

func (d *Dispatcher) wants(batch core.EventBatch) bool {
	if len(batch.Events) == 0 {
		return false
	}
	if len(d.names) == 0 {
		return true
	}
	for _, event := range batch.Events {
		if event == nil {
			continue
		}
		if _, ok := d.names[event.EventName()]; ok {
			return true
		}
	}
	return false
}

// Handler processes one dispatched batch.
type Handler func(ctx context.Context, dispatched DispatchJob) error

// Consumer drains dispatch jobs and settles each delivery under a
// RetryPolicy.
type Consumer struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	handler  Handler
}

func NewConsumer(dequeuer queue.Dequeuer, policy RetryPolicy, handler Handler) (*Consumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("gojob: handler is required")
	}
	return &Consumer{dequeuer: dequeuer, policy: policy, handler: handler}, nil
}

// ProcessNext handles one delivery. A malformed job is dead-lettered; a
// handler failure is nacked for attempt and returned.
func (c *Consumer) ProcessNext(ctx context.Context, attempt int) error {
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	dispatched, err := FromExecutionMessage(delivery.Message())
	if err != nil {
		if nackErr := delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()}); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}
	if err := c.handler(ctx, dispatched); err != nil {
		opts := c.policy.NormalizeAttempt(queue.NackOptions{Requeue: true, Reason: err.Error()}, attempt)
		if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}
	return delivery.Ack(ctx)
}

// LoggingWorkerHook reports dispatch worker failures and retries.
type LoggingWorkerHook struct {
	logger core.Logger
}

func NewLoggingWorkerHook(logger core.Logger) *LoggingWorkerHook {
	return &LoggingWorkerHook{logger: glog.Ensure(logger)}
}

func (h *LoggingWorkerHook) OnStart(context.Context, worker.Event) {}

func (h *LoggingWorkerHook) OnSuccess(context.Context, worker.Event) {}

func (h *LoggingWorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "carbon event dispatch failed", event)
}

func (h *LoggingWorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "carbon event dispatch retrying", event)
}

func (h *LoggingWorkerHook) log(ctx context.Context, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	msg := event.Message
	if msg == nil && event.Delivery != nil {
		msg = event.Delivery.Message()
	}
	args := []any{"attempt", event.Attempt, "delay", event.Delay.String(), "duration", event.Duration.String()}
	if msg != nil {
		args = append(args, "job_id", msg.JobID, "idempotency_key", msg.IdempotencyKey)
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	h.logger.WithContext(ctx).Error(message, args...)
}

var (
	_ core.CommitHook = (*Dispatcher)(nil)
	_ worker.Hook     = (*LoggingWorkerHook)(nil)
)
