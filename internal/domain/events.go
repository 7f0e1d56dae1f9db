package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published session events.
const (
	EventTypeSessionDiscovered  = "research.session.discovered"
	EventTypeEnrichmentComplete = "research.enrichment.completed"
)

// Event is the envelope published for session activity.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	SessionID  string          `json:"session_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent creates an event with a JSON-serialized payload.
func NewEvent(eventType, sessionID string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
		Payload:    payloadBytes,
	}, nil
}

// DiscoveredPayload is the payload for research.session.discovered events.
type DiscoveredPayload struct {
	Query      string   `json:"query"`
	Phrase     string   `json:"phrase"`
	Sequence   uint64   `json:"sequence"`
	PaperIDs   []string `json:"paper_ids"`
	Candidates int      `json:"candidates"`
}

// EnrichmentCompletedPayload is the payload for research.enrichment.completed events.
type EnrichmentCompletedPayload struct {
	Kind     EnrichmentKind   `json:"kind"`
	Status   EnrichmentStatus `json:"status"`
	PaperIDs []string         `json:"paper_ids"`
	Failed   int              `json:"failed_blocks"`
	Error    string           `json:"error,omitempty"`
}
