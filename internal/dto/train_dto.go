package dto

import "github.com/google/uuid"

// TrainFileMessage is the pub/sub payload that hands an uploaded file to the
// training consumer.
type TrainFileMessage struct {
	FileId uuid.UUID `json:"file_id"`
}

type TrainManualRequest struct {
	Type     string `json:"type" validate:"required,oneof=ddl sql documentation"`
	Content  string `json:"content" validate:"required"`
	Question string `json:"question,omitempty"` // required by the service when Type == "sql"
	Title    string `json:"title,omitempty"`    // names the persisted copy on disk
}

type TrainManualResponse struct {
	TrainedID string `json:"trained_id,omitempty"`
}

// TrainBatchError reports a single failed item of a directory training run.
type TrainBatchError struct {
	Source string `json:"source"` // file name or item label
	Reason string `json:"reason"`
}

// TrainBatchResponse aggregates a directory training run: items that trained,
// items skipped by dedup, and per-item failures. A partially failed run still
// returns the successes.
type TrainBatchResponse struct {
	Trained int               `json:"trained"`
	Skipped int               `json:"skipped"`
	Errors  []TrainBatchError `json:"errors,omitempty"`
}

type TrainingDataItem struct {
	ID       string `json:"id"`
	Type     string `json:"training_data_type"`
	Question string `json:"question,omitempty"`
	Content  string `json:"content"`
}

type GetTrainingDataResponse struct {
	Total int                `json:"total"`
	Items []TrainingDataItem `json:"items"`
}

type DeleteTrainingDataRequest struct {
	Ids       []string `json:"ids,omitempty"`
	DeleteAll bool     `json:"delete_all,omitempty"`
	Type      string   `json:"type,omitempty" validate:"omitempty,oneof=ddl sql documentation"`
}

type DeleteTrainingDataResponse struct {
	Deleted int               `json:"deleted"`
	Errors  []TrainBatchError `json:"errors,omitempty"`
}
