package events

import "time"

// Event types emitted by the training pipeline.
const (
	TypeTrainingCompleted = "TRAINING_COMPLETED"
	TypeTrainingFailed    = "TRAINING_FAILED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TRAINING_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by all concrete events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// TrainingCompleted reports a file successfully ingested into the knowledge base.
func TrainingCompleted(fileID, fileName string, itemCount int) Event {
	return BaseEvent{
		Type: TypeTrainingCompleted,
		Data: map[string]interface{}{
			"file_id":    fileID,
			"file_name":  fileName,
			"item_count": itemCount,
		},
		OccurredAt: time.Now(),
	}
}

// TrainingFailed reports an ingestion failure with its reason.
func TrainingFailed(fileID, fileName, reason string) Event {
	return BaseEvent{
		Type: TypeTrainingFailed,
		Data: map[string]interface{}{
			"file_id":   fileID,
			"file_name": fileName,
			"reason":    reason,
		},
		OccurredAt: time.Now(),
	}
}
