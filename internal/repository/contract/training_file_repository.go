package contract

import (
	"context"

	"github.com/lxhmx/text2sql/internal/entity"
	"github.com/lxhmx/text2sql/internal/repository/specification"

	"github.com/google/uuid"
)

type TrainingFileRepository interface {
	Create(ctx context.Context, file *entity.TrainingFile) error
	Update(ctx context.Context, file *entity.TrainingFile) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TrainingFile, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TrainingFile, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
