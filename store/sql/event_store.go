package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StoredEvent is a journaled event read back from carbon_events.
type StoredEvent struct {
	ID         string
	Height     uint64
	Sequence   int
	Operation  string
	Name       string
	Emitter    core.Address
	Payload    map[string]any
	RecordedAt time.Time
}

type EventFilter struct {
	Name       string
	Emitter    core.Address
	FromHeight uint64
	ToHeight   uint64
	Page       int
	PerPage    int
}

type EventPage struct {
	Items   []StoredEvent
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// EventStore persists committed event batches. As a staged runtime sink its
// transaction commits only after every other sink has prepared, and a failed
// insert rolls the originating operation back.
type EventStore struct {
	db          *bun.DB
	eventRepo   repository.Repository[*eventRecord]
	depositRepo repository.Repository[*depositRecord]
	now         func() time.Time
}

func NewEventStore(db *bun.DB) (*EventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	eventRepo := repository.NewRepository[*eventRecord](db, eventHandlers())
	if validator, ok := eventRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid event repository wiring: %w", err)
		}
	}
	depositRepo := repository.NewRepository[*depositRecord](db, depositHandlers())
	if validator, ok := depositRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid deposit repository wiring: %w", err)
		}
	}
	return &EventStore{
		db:          db,
		eventRepo:   eventRepo,
		depositRepo: depositRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *EventStore) Publish(ctx context.Context, batch core.EventBatch) error {
	staged, err := s.Stage(ctx, batch)
	if err != nil {
		return err
	}
	return staged.Commit(ctx)
}

// Stage inserts batch inside an open transaction. The rows become visible
// when the runtime commits the staged batch.
func (s *EventStore) Stage(ctx context.Context, batch core.EventBatch) (core.StagedBatch, error) {
	if s == nil || s.eventRepo == nil || s.depositRepo == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: event store is not configured")
	}
	if len(batch.Events) == 0 {
		return core.StagedBatchFuncs{}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin event batch at height %d: %w", batch.Height, err)
	}
	if err := s.insertBatch(ctx, tx, batch); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return core.StagedBatchFuncs{
		CommitFn: func(context.Context) error {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("sqlstore: commit event batch at height %d: %w", batch.Height, err)
			}
			return nil
		},
		DiscardFn: func(context.Context) { _ = tx.Rollback() },
	}, nil
}

func (s *EventStore) insertBatch(ctx context.Context, tx bun.Tx, batch core.EventBatch) error {
	recordedAt := s.now()
	for sequence, event := range batch.Events {
		record, err := newEventRecord(batch, sequence, event, recordedAt)
		if err != nil {
			return err
		}
		if _, err := s.eventRepo.CreateTx(ctx, tx, record); err != nil {
			return fmt.Errorf("sqlstore: insert event %s: %w", record.Name, err)
		}
		for _, deposit := range depositRecordsFor(record, event) {
			if _, err := s.depositRepo.CreateTx(ctx, tx, deposit); err != nil {
				return fmt.Errorf("sqlstore: insert deposit receipt %d: %w", deposit.ReceiptID, err)
			}
		}
	}
	return nil
}

func (s *EventStore) ListEvents(ctx context.Context, filter EventFilter) (EventPage, error) {
	if s == nil || s.eventRepo == nil {
		return EventPage{}, fmt.Errorf("sqlstore: event store is not configured")
	}
	page, perPage, offset := normalizePage(filter.Page, filter.PerPage)

	selectors := []repository.SelectCriteria{
		repository.OrderBy("height ASC"),
		repository.OrderBy("sequence ASC"),
		repository.SelectPaginate(perPage, offset),
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		selectors = append(selectors, repository.SelectBy("name", "=", name))
	}
	if filter.Emitter != core.ZeroAddress {
		selectors = append(selectors, repository.SelectBy("emitter", "=", filter.Emitter.Hex()))
	}
	if filter.FromHeight > 0 || filter.ToHeight > 0 {
		from, to := filter.FromHeight, filter.ToHeight
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			if from > 0 {
				q = q.Where("?TableAlias.height >= ?", int64(from))
			}
			if to > 0 {
				q = q.Where("?TableAlias.height <= ?", int64(to))
			}
			return q
		}))
	}

	records, total, err := s.eventRepo.List(ctx, selectors...)
	if err != nil {
		return EventPage{}, err
	}
	items := make([]StoredEvent, 0, len(records))
	for _, record := range records {
		items = append(items, eventRecordToDomain(record))
	}
	return EventPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func newEventRecord(batch core.EventBatch, sequence int, event core.Event, recordedAt time.Time) (*eventRecord, error) {
	if event == nil {
		return nil, fmt.Errorf("sqlstore: event %d in batch at height %d is nil", sequence, batch.Height)
	}
	payload, err := eventPayload(event)
	if err != nil {
		return nil, err
	}
	return &eventRecord{
		ID:        uuid.NewString(),
		Height:    int64(batch.Height),
		Sequence:  sequence,
		Operation: strings.TrimSpace(batch.Operation),
		Name:      event.EventName(),
		Emitter:   event.Emitter().Hex(),
		Payload:   payload,
		CreatedAt: recordedAt,
	}, nil
}

func eventPayload(event core.Event) (map[string]any, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode %s payload: %w", event.EventName(), err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("sqlstore: decode %s payload: %w", event.EventName(), err)
	}
	return payload, nil
}

// depositRecordsFor flattens vault deposit events into one row per receipt.
func depositRecordsFor(parent *eventRecord, event core.Event) []*depositRecord {
	switch typed := event.(type) {
	case core.CarbonDeposited:
		return []*depositRecord{
			newDepositRecord(parent, typed.Contract, typed.SourceLedger, typed.Backend, typed.From,
				typed.ReceiptID, typed.OriginalID, decimalString(typed.Amount)),
		}
	case core.CarbonBatchDeposited:
		out := make([]*depositRecord, 0, len(typed.ReceiptIDs))
		for i, receiptID := range typed.ReceiptIDs {
			var originalID core.TokenID
			if i < len(typed.OriginalIDs) {
				originalID = typed.OriginalIDs[i]
			}
			amount := "0"
			if i < len(typed.Amounts) {
				amount = decimalString(typed.Amounts[i])
			}
			out = append(out, newDepositRecord(parent, typed.Contract, typed.SourceLedger, typed.Backend, typed.From,
				receiptID, originalID, amount))
		}
		return out
	default:
		return nil
	}
}

func newDepositRecord(
	parent *eventRecord,
	vault, source, backend, from core.Address,
	receiptID uint64,
	originalID core.TokenID,
	amount string,
) *depositRecord {
	return &depositRecord{
		ID:         uuid.NewString(),
		EventID:    parent.ID,
		Height:     parent.Height,
		Vault:      vault.Hex(),
		Source:     source.Hex(),
		Backend:    backend.Hex(),
		Depositor:  from.Hex(),
		ReceiptID:  int64(receiptID),
		OriginalID: strconv.FormatUint(originalID, 10),
		Amount:     amount,
		CreatedAt:  parent.CreatedAt,
	}
}

func eventRecordToDomain(record *eventRecord) StoredEvent {
	if record == nil {
		return StoredEvent{}
	}
	return StoredEvent{
		ID:         record.ID,
		Height:     uint64(record.Height),
		Sequence:   record.Sequence,
		Operation:  record.Operation,
		Name:       record.Name,
		Emitter:    common.HexToAddress(record.Emitter),
		Payload:    copyAnyMap(record.Payload),
		RecordedAt: record.CreatedAt,
	}
}

func normalizePage(page, perPage int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 25
	}
	return page, perPage, (page - 1) * perPage
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
