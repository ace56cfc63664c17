package domain

import "time"

type EventType string

const (
	EventPhaseChanged   EventType = "phase_changed"
	EventBacklogStalled EventType = "backlog_stalled"
	EventBacklogDrained EventType = "backlog_drained"
	EventRecoveryFailed EventType = "recovery_failed"
	EventUploadRewound  EventType = "upload_rewound"
)

// Event is emitted for monitoring and notification collaborators.
type Event struct {
	Type     EventType
	At       time.Time
	UploadID string
	From     Phase
	To       Phase
	Reason   string
	Pending  int
}
