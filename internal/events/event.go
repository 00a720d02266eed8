package events

import (
	"encoding/json"
	"time"
)

// Event is a single message from the upstream gateway.
//
// Payload is the raw JSON object as received, including the topic field.
// It is never decoded by the pool; consumers that care about the contents
// unmarshal it themselves, and consumers that just forward bytes (the SSE
// handler) avoid a decode/encode round trip entirely.
type Event struct {
	Topic     string
	Payload   json.RawMessage
	Timestamp time.Time
}
