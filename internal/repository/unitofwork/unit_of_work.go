package unitofwork

import (
	"context"

	"github.com/lxhmx/text2sql/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	TrainingFileRepository() contract.TrainingFileRepository
}
