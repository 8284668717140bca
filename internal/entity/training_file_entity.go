package entity

import (
	"time"

	"github.com/google/uuid"
)

// TrainingFile is the bookkeeping record of one ingested training file.
type TrainingFile struct {
	Id          uuid.UUID
	FileName    string
	FilePath    string
	FileType    string // file extension: sql, txt, ...
	TrainType   string // sql | document
	FileSize    int64
	FileHash    string // md5 of the file bytes
	TrainStatus string // pending | success | failed
	TrainResult string // free-text result or error
	TrainCount  int    // knowledge items produced
	UploadDate  time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
