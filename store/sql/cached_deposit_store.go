package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-carbon/core"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/holiman/uint256"
)

const depositCacheKeyPrefix = "go-carbon::deposit::v1"

// CachedDepositHistory serves receipt lookups from a cache. Publishing
// through it forwards to sink and evicts the key of every receipt in the
// batch.
type CachedDepositHistory struct {
	base   core.DepositHistory
	sink   core.EventSink
	cache  repositorycache.CacheService
	logger core.Logger
}

type CachedDepositHistoryOption func(*CachedDepositHistory)

// WithCacheLogger receives cache eviction failures.
func WithCacheLogger(logger core.Logger) CachedDepositHistoryOption {
	return func(s *CachedDepositHistory) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCachedDepositHistory(
	base core.DepositHistory,
	sink core.EventSink,
	cacheService repositorycache.CacheService,
	opts ...CachedDepositHistoryOption,
) (*CachedDepositHistory, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base deposit history is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: deposit cache service is required")
	}
	history := &CachedDepositHistory{base: base, sink: sink, cache: cacheService, logger: glog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(history)
		}
	}
	return history, nil
}

// DepositCacheKey returns go-carbon::deposit::v1::<vault>::<receipt_id>.
func DepositCacheKey(vault core.Address, receiptID uint64) string {
	segments := []string{
		url.PathEscape(strings.ToLower(vault.Hex())),
		url.PathEscape(strconv.FormatUint(receiptID, 10)),
	}
	return strings.Join(append([]string{depositCacheKeyPrefix}, segments...), "::")
}

func (s *CachedDepositHistory) GetByReceipt(ctx context.Context, vault core.Address, receiptID uint64) (core.DepositEntry, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DepositEntry{}, fmt.Errorf("sqlstore: cached deposit history is not configured")
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, DepositCacheKey(vault, receiptID), func(ctx context.Context) (core.DepositEntry, error) {
		fetched, fetchErr := s.base.GetByReceipt(ctx, vault, receiptID)
		if fetchErr != nil {
			return core.DepositEntry{}, fetchErr
		}
		return cloneDepositEntry(fetched), nil
	})
	if err != nil {
		return core.DepositEntry{}, err
	}
	return cloneDepositEntry(entry), nil
}

func (s *CachedDepositHistory) ListDeposits(ctx context.Context, filter core.DepositFilter) (core.DepositPage, error) {
	if s == nil || s.base == nil {
		return core.DepositPage{}, fmt.Errorf("sqlstore: cached deposit history is not configured")
	}
	return s.base.ListDeposits(ctx, filter)
}

func (s *CachedDepositHistory) Publish(ctx context.Context, batch core.EventBatch) error {
	staged, err := s.Stage(ctx, batch)
	if err != nil {
		return err
	}
	return staged.Commit(ctx)
}

// Stage stages batch on the wrapped sink. Receipt keys are evicted after the
// wrapped sink commits; eviction failures are logged and never fail the
// operation.
func (s *CachedDepositHistory) Stage(ctx context.Context, batch core.EventBatch) (core.StagedBatch, error) {
	if s == nil || s.sink == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached deposit history has no event sink")
	}
	staged, err := core.StageBatch(ctx, s.sink, batch)
	if err != nil {
		return nil, err
	}
	return core.StagedBatchFuncs{
		CommitFn: func(ctx context.Context) error {
			if staged != nil {
				if err := staged.Commit(ctx); err != nil {
					return err
				}
			}
			s.evict(ctx, batch)
			return nil
		},
		DiscardFn: func(ctx context.Context) {
			if staged != nil {
				staged.Discard(ctx)
			}
		},
	}, nil
}

func (s *CachedDepositHistory) evict(ctx context.Context, batch core.EventBatch) {
	for _, event := range batch.Events {
		for _, key := range depositCacheKeysFor(event) {
			if err := s.cache.Delete(ctx, key); err != nil {
				s.logger.Error("sqlstore deposit cache eviction failed",
					"cache_key", key,
					"height", batch.Height,
					"error", err.Error(),
				)
			}
		}
	}
}

func depositCacheKeysFor(event core.Event) []string {
	switch typed := event.(type) {
	case core.CarbonDeposited:
		return []string{DepositCacheKey(typed.Contract, typed.ReceiptID)}
	case core.CarbonBatchDeposited:
		keys := make([]string, 0, len(typed.ReceiptIDs))
		for _, receiptID := range typed.ReceiptIDs {
			keys = append(keys, DepositCacheKey(typed.Contract, receiptID))
		}
		return keys
	default:
		return nil
	}
}

func cloneDepositEntry(entry core.DepositEntry) core.DepositEntry {
	cloned := entry
	if entry.Amount != nil {
		cloned.Amount = new(uint256.Int).Set(entry.Amount)
	}
	return cloned
}
