package implementation

import (
	"context"
	"errors"

	"github.com/lxhmx/text2sql/internal/entity"
	"github.com/lxhmx/text2sql/internal/mapper"
	"github.com/lxhmx/text2sql/internal/model"
	"github.com/lxhmx/text2sql/internal/repository/contract"
	"github.com/lxhmx/text2sql/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrainingFileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TrainingFileMapper
}

func NewTrainingFileRepository(db *gorm.DB) contract.TrainingFileRepository {
	return &TrainingFileRepositoryImpl{
		db:     db,
		mapper: mapper.NewTrainingFileMapper(),
	}
}

func (r *TrainingFileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TrainingFileRepositoryImpl) Create(ctx context.Context, file *entity.TrainingFile) error {
	m := r.mapper.ToModel(file)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*file = *r.mapper.ToEntity(m)
	return nil
}

func (r *TrainingFileRepositoryImpl) Update(ctx context.Context, file *entity.TrainingFile) error {
	m := r.mapper.ToModel(file)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*file = *r.mapper.ToEntity(m)
	return nil
}

func (r *TrainingFileRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.TrainingFile{}, "id = ?", id).Error
}

func (r *TrainingFileRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TrainingFile, error) {
	var m model.TrainingFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *TrainingFileRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TrainingFile, error) {
	var models []*model.TrainingFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *TrainingFileRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.TrainingFile{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
