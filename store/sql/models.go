package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type eventRecord struct {
	bun.BaseModel `bun:"table:carbon_events,alias:ce"`

	ID        string         `bun:"id,pk"`
	Height    int64          `bun:"height,notnull"`
	Sequence  int            `bun:"sequence,notnull"`
	Operation string         `bun:"operation,notnull"`
	Name      string         `bun:"name,notnull"`
	Emitter   string         `bun:"emitter,notnull"`
	Payload   map[string]any `bun:"payload,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// depositRecord is one receipt issuance. Batch deposits produce one row per
// entry.
type depositRecord struct {
	bun.BaseModel `bun:"table:carbon_deposits,alias:cd"`

	ID         string    `bun:"id,pk"`
	EventID    string    `bun:"event_id,notnull"`
	Height     int64     `bun:"height,notnull"`
	Vault      string    `bun:"vault,notnull"`
	Source     string    `bun:"source_ledger,notnull"`
	Backend    string    `bun:"backend,notnull"`
	Depositor  string    `bun:"depositor,notnull"`
	ReceiptID  int64     `bun:"receipt_id,notnull"`
	OriginalID string    `bun:"original_id,notnull"`
	Amount     string    `bun:"amount,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
