package analytics

import "time"

type EventType string

const (
	EventQuery  EventType = "query"
	EventIngest EventType = "ingest"
)

// Event is the single wire shape published to Kafka. Type selects which of
// the remaining fields are meaningful.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	LatencyMs int64     `json:"latency_ms"`

	// query
	Terms     []string `json:"terms,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`
	Returned  int      `json:"returned,omitempty"`
	TopScore  float64  `json:"top_score,omitempty"`
	DocFilter int      `json:"doc_filter,omitempty"`
	CacheHit  bool     `json:"cache_hit,omitempty"`

	// ingest
	DocumentID string `json:"document_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	SizeBytes  int    `json:"size_bytes,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}
