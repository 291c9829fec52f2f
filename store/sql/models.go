package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type endpointRecord struct {
	bun.BaseModel `bun:"table:webhook_endpoints,alias:we"`

	ID           string     `bun:"id,pk"`
	OwnerID      string     `bun:"owner_id,notnull"`
	OwnerEmail   string     `bun:"owner_email"`
	URL          string     `bun:"url,notnull"`
	EventTypes   []int      `bun:"event_types,type:jsonb,notnull"`
	Version      int        `bun:"version,notnull"`
	Enabled      bool       `bun:"enabled,notnull"`
	FailureCount int        `bun:"failure_count,notnull"`
	EnabledAt    *time.Time `bun:"enabled_at,nullzero"`
	DisabledAt   *time.Time `bun:"disabled_at,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type deliveryEventRecord struct {
	bun.BaseModel `bun:"table:webhook_delivery_events,alias:wde"`

	ID           string     `bun:"id,pk"`
	EndpointID   string     `bun:"endpoint_id,notnull"`
	EventType    int        `bun:"event_type,notnull"`
	Payload      []byte     `bun:"payload,notnull"`
	Status       string     `bun:"status,notnull"`
	RetryCounter int        `bun:"retry_counter,notnull"`
	NextRetryAt  *time.Time `bun:"next_retry_at,nullzero"`
	StatusCode   *int       `bun:"status_code"`
	ResponseBody string     `bun:"response_body"`
	ErrorMessage string     `bun:"error_message"`
	Debug        bool       `bun:"debug,notnull"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type notificationDispatchRecord struct {
	bun.BaseModel `bun:"table:webhook_notification_dispatches,alias:wnd"`

	ID           string         `bun:"id,pk"`
	EndpointID   string         `bun:"endpoint_id"`
	EventID      string         `bun:"event_id"`
	Kind         string         `bun:"kind,notnull"`
	RecipientKey string         `bun:"recipient_key"`
	Idempotency  string         `bun:"idempotency_key,notnull,unique"`
	Status       string         `bun:"status,notnull"`
	Error        string         `bun:"error"`
	Metadata     map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
