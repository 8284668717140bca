package mapper

import (
	"time"

	"github.com/lxhmx/text2sql/internal/entity"
	"github.com/lxhmx/text2sql/internal/model"
)

type TrainingFileMapper struct{}

func NewTrainingFileMapper() *TrainingFileMapper {
	return &TrainingFileMapper{}
}

func (m *TrainingFileMapper) ToEntity(f *model.TrainingFile) *entity.TrainingFile {
	if f == nil {
		return nil
	}

	var updatedAt *time.Time
	if !f.UpdatedAt.IsZero() {
		t := f.UpdatedAt
		updatedAt = &t
	}

	return &entity.TrainingFile{
		Id:          f.Id,
		FileName:    f.FileName,
		FilePath:    f.FilePath,
		FileType:    f.FileType,
		TrainType:   f.TrainType,
		FileSize:    f.FileSize,
		FileHash:    f.FileHash,
		TrainStatus: f.TrainStatus,
		TrainResult: f.TrainResult,
		TrainCount:  f.TrainCount,
		UploadDate:  f.UploadDate,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *TrainingFileMapper) ToModel(f *entity.TrainingFile) *model.TrainingFile {
	if f == nil {
		return nil
	}

	var updatedAt time.Time
	if f.UpdatedAt != nil {
		updatedAt = *f.UpdatedAt
	}

	return &model.TrainingFile{
		Id:          f.Id,
		FileName:    f.FileName,
		FilePath:    f.FilePath,
		FileType:    f.FileType,
		TrainType:   f.TrainType,
		FileSize:    f.FileSize,
		FileHash:    f.FileHash,
		TrainStatus: f.TrainStatus,
		TrainResult: f.TrainResult,
		TrainCount:  f.TrainCount,
		UploadDate:  f.UploadDate,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *TrainingFileMapper) ToEntities(models []*model.TrainingFile) []*entity.TrainingFile {
	entities := make([]*entity.TrainingFile, len(models))
	for i, f := range models {
		entities[i] = m.ToEntity(f)
	}
	return entities
}
