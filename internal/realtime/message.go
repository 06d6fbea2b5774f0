package realtime

import "encoding/json"

type Event string

const (
	EventArtifactUpdated      Event = "ArtifactUpdated"
	EventLearningSpaceDeleted Event = "LearningSpaceDeleted"
)

// Message is the unit carried by the bus and fanned out to SSE clients.
// Data stays raw JSON so the payload survives the Redis round trip
// unchanged and is decoded exactly once, at the consuming feed boundary.
type Message struct {
	Channel string          `json:"channel"`
	Event   Event           `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}
