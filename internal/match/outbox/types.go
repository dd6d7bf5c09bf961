// Package outbox relays recorded match events from the transactional outbox
// table to NATS JetStream. Rows are written in the same transaction as the
// event itself, so nothing published was ever unrecorded; delivery is
// at-least-once with JetStream message-ID dedup on the event ID.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one pending row from the match_outbox table. Payload holds
// the marshalled models.MatchEvent.
type OutboxEvent struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	MatchID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}
