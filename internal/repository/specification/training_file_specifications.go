package specification

import (
	"time"

	"gorm.io/gorm"
)

// ByTrainType filters training files by their category (sql | document).
type ByTrainType struct {
	TrainType string
}

func (s ByTrainType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("train_type = ?", s.TrainType)
}

// ByTrainStatus filters training files by lifecycle status.
type ByTrainStatus struct {
	Status string
}

func (s ByTrainStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("train_status = ?", s.Status)
}

// ByUploadedSince keeps files uploaded on or after the given moment.
type ByUploadedSince struct {
	Since time.Time
}

func (s ByUploadedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("upload_date >= ?", s.Since)
}

// ByFileHash filters by content hash, used to spot re-uploads of the same file.
type ByFileHash struct {
	Hash string
}

func (s ByFileHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_hash = ?", s.Hash)
}
