package events

import "time"

const WorkerLifecycleTopic = "registry.worker.lifecycle.v1"

const (
	WorkerCreated   = "worker_created"
	WorkerUpdated   = "worker_updated"
	WorkerDeleted   = "worker_deleted"
	WorkersImported = "workers_imported"
)

type WorkerEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	WorkerID   string    `json:"worker_id"`
	Email      string    `json:"email"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type WorkersImportedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	BatchID    string    `json:"batch_id"`
	Filename   string    `json:"filename"`
	ActorID    string    `json:"actor_id,omitempty"`
	Imported   int       `json:"imported"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	Total      int       `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}
