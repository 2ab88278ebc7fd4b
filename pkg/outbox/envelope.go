package outbox

import (
	"encoding/json"
	"time"

	"github.com/vendora/vendora-backend/pkg/enums"
)

// ActorRef identifies who produced the event. Nil for system actors.
type ActorRef struct {
	UserID int64      `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
