package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // id > After
	Before  int64     // id < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact match when non-empty
}

// Progress is a learner's running score on one topic.
// (UserID, Topic) is unique.
type Progress struct {
	ID           int64     `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Topic        string    `db:"topic" json:"topic"`
	Attempts     int       `db:"attempts" json:"attempts"`
	Score        int       `db:"score" json:"score"`
	LastReviewed time.Time `db:"last_reviewed" json:"last_reviewed"`
}

// InteractionLog is one question/answer exchange. Rows are append-only.
type InteractionLog struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Question  string    `db:"question" json:"question"`
	Answer    string    `db:"answer" json:"answer"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// Material is the metadata of an uploaded document.
type Material struct {
	ID         int64     `db:"id" json:"id"`
	Filename   string    `db:"filename" json:"filename"`
	StorageRef string    `db:"storage_ref" json:"storage_ref"`
	DocumentID string    `db:"document_id" json:"document_id"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string  `db:"provider"`
	Model        string  `db:"model"`
	Purpose      string  `db:"purpose"`
	InputTokens  int     `db:"input_tokens"`
	OutputTokens int     `db:"output_tokens"`
	LatencyMs    int64   `db:"latency_ms"`
	Success      bool    `db:"success"`
	ErrorMessage string  `db:"error_message"`
	CostUSD      float64 `db:"cost_usd"`
	RequestBody  string  `db:"request_body"`
	ResponseBody string  `db:"response_body"`
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	LLMRequestEventData
}

// LLMUsage aggregates events by purpose or by model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
	CostUSD      float64
}

// ProgressRepo persists progress records.
type ProgressRepo interface {
	// Get returns the record for (userID, topic), or nil if none exists.
	Get(ctx context.Context, userID, topic string) (*Progress, error)

	// Insert creates p if no record exists for its key. It reports false
	// when another writer created the record first. On success p.ID is set.
	Insert(ctx context.Context, p *Progress) (bool, error)

	// CompareAndSwap writes p only if the stored attempts still equal
	// prevAttempts. It reports false when the record changed meanwhile.
	CompareAndSwap(ctx context.Context, p *Progress, prevAttempts int) (bool, error)

	// ListByUser returns all of a user's records ordered by topic.
	ListByUser(ctx context.Context, userID string) ([]Progress, error)
}

// LogRepo persists interaction logs.
type LogRepo interface {
	Append(ctx context.Context, l *InteractionLog) error

	// Recent returns up to limit records for userID, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]InteractionLog, error)
}

// MaterialRepo persists material metadata.
type MaterialRepo interface {
	Create(ctx context.Context, m *Material) error

	// List returns up to limit materials, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Material, error)
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// LLMUsageByPurpose and LLMUsageByModel aggregate all events.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
