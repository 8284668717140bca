package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadFileResponse struct {
	Id       uuid.UUID `json:"id"`
	FileName string    `json:"file_name"`
	Status   string    `json:"status"`
}

type TrainingFileItem struct {
	Id          uuid.UUID  `json:"id"`
	FileName    string     `json:"file_name"`
	FileType    string     `json:"file_type"`
	TrainType   string     `json:"train_type"`
	FileSize    int64      `json:"file_size"`
	TrainStatus string     `json:"train_status"`
	TrainResult string     `json:"train_result,omitempty"`
	TrainCount  int        `json:"train_count"`
	UploadDate  time.Time  `json:"upload_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type ListFilesResponse struct {
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Files []TrainingFileItem `json:"files"`
}

type DeleteFilesRequest struct {
	Ids       []uuid.UUID `json:"ids,omitempty"`
	DeleteAll bool        `json:"delete_all,omitempty"`
}

type DeleteFilesResponse struct {
	Deleted int               `json:"deleted"`
	Errors  []TrainBatchError `json:"errors,omitempty"`
}

// TrainingActivityDay is one day of ingestion activity: files uploaded and
// knowledge items they produced.
type TrainingActivityDay struct {
	Date       string `json:"date"` // YYYY-MM-DD
	Count      int    `json:"count"`
	TrainItems int    `json:"train_items"`
}

type DataStatsResponse struct {
	TotalFiles    int64 `json:"total_files"`
	SQLFiles      int64 `json:"sql_files"`
	DocumentFiles int64 `json:"document_files"`
	PendingFiles  int64 `json:"pending_files"`
	SuccessFiles  int64 `json:"success_files"`
	FailedFiles   int64 `json:"failed_files"`
	TrainingItems int   `json:"training_items"` // live count from the model backend
}
