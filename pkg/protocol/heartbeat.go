package protocol

import "time"

// Heartbeat is published on nativebridge.heartbeat.<plugin> every 30s.
type Heartbeat struct {
	Name              string    `json:"name"`
	Status            string    `json:"status"`
	LastInvocation    time.Time `json:"last_invocation"`
	InvocationsServed int64     `json:"invocations_served"`
	EventsEmitted     int64     `json:"events_emitted"`
	Errors            int64     `json:"errors"`
}
