package model

import (
	"time"

	"github.com/google/uuid"
)

type TrainingFile struct {
	Id          uuid.UUID `gorm:"type:char(36);primaryKey"`
	FileName    string    `gorm:"type:varchar(255);not null"`
	FilePath    string    `gorm:"type:varchar(500);not null"`
	FileType    string    `gorm:"type:varchar(20);not null;index"`
	TrainType   string    `gorm:"type:varchar(20);not null;index"`
	FileSize    int64     `gorm:"default:0"`
	FileHash    string    `gorm:"type:varchar(64);index"`
	TrainStatus string    `gorm:"type:varchar(20);default:'pending';index"`
	TrainResult string    `gorm:"type:text"`
	TrainCount  int       `gorm:"default:0"`
	UploadDate  time.Time `gorm:"type:date;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (TrainingFile) TableName() string {
	return "training_files"
}
