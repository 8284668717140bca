package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/entity"
	"github.com/lxhmx/text2sql/internal/pkg/logger"
	"github.com/lxhmx/text2sql/internal/repository/specification"
	"github.com/lxhmx/text2sql/internal/repository/unitofwork"
	"github.com/lxhmx/text2sql/pkg/vanna"

	"github.com/google/uuid"
)

type IDataManageService interface {
	// SaveUpload stores the file on disk, records it as pending and hands it
	// to the async training pipeline. trainType overrides the extension-based
	// classification when set.
	SaveUpload(ctx context.Context, fileName string, content []byte, trainType string) (*dto.UploadFileResponse, error)
	Stats(ctx context.Context) (*dto.DataStatsResponse, error)
	// Activity reports per-day upload counts and trained item totals over the
	// last days days.
	Activity(ctx context.Context, days int) ([]dto.TrainingActivityDay, error)
	ListFiles(ctx context.Context, page, limit int, trainType, status string) (*dto.ListFilesResponse, error)
	DeleteFiles(ctx context.Context, req *dto.DeleteFilesRequest) (*dto.DeleteFilesResponse, error)
}

type dataManageService struct {
	uowFactory       unitofwork.RepositoryFactory
	vannaClient      vanna.Client
	publisherService IPublisherService
	sqlDir           string
	documentDir      string
	logger           logger.ILogger
}

func NewDataManageService(
	uowFactory unitofwork.RepositoryFactory,
	vannaClient vanna.Client,
	publisherService IPublisherService,
	sqlDir string,
	documentDir string,
	log logger.ILogger,
) IDataManageService {
	return &dataManageService{
		uowFactory:       uowFactory,
		vannaClient:      vannaClient,
		publisherService: publisherService,
		sqlDir:           sqlDir,
		documentDir:      documentDir,
		logger:           log,
	}
}

func (s *dataManageService) SaveUpload(ctx context.Context, fileName string, content []byte, trainType string) (*dto.UploadFileResponse, error) {
	// 1. Classify. The declared type wins; otherwise the extension decides.
	// Only trainable types are accepted.
	ext := strings.ToLower(filepath.Ext(fileName))
	if trainType == "" {
		switch ext {
		case ".sql":
			trainType = constant.TrainTypeSQL
		case ".txt", ".md":
			trainType = constant.TrainTypeDocument
		default:
			return nil, fmt.Errorf("unsupported file type %q, expected .sql, .txt or .md", ext)
		}
	}

	var dir string
	switch trainType {
	case constant.TrainTypeSQL:
		dir = s.sqlDir
	case constant.TrainTypeDocument:
		dir = s.documentDir
	default:
		return nil, fmt.Errorf("unsupported train type %q, expected sql or document", trainType)
	}

	// 2. Persist to the training directory. Base name only: an uploaded path
	// must not escape the directory.
	safeName := filepath.Base(fileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create training directory: %w", err)
	}
	fullPath := filepath.Join(dir, safeName)
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("store uploaded file: %w", err)
	}

	sum := md5.Sum(content)
	file := entity.TrainingFile{
		Id:          uuid.New(),
		FileName:    safeName,
		FilePath:    fullPath,
		FileType:    strings.TrimPrefix(ext, "."),
		TrainType:   trainType,
		FileSize:    int64(len(content)),
		FileHash:    hex.EncodeToString(sum[:]),
		TrainStatus: constant.TrainStatusPending,
		UploadDate:  time.Now(),
		CreatedAt:   time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.TrainingFileRepository().Create(ctx, &file); err != nil {
		return nil, err
	}

	// 3. Hand off to the consumer. The record stays pending until it reports.
	payload, err := json.Marshal(dto.TrainFileMessage{FileId: file.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, err
	}

	s.logger.Info("datamanage", "file queued for training", map[string]interface{}{
		"file_id":   file.Id.String(),
		"file_name": safeName,
		"type":      trainType,
	})

	return &dto.UploadFileResponse{
		Id:       file.Id,
		FileName: safeName,
		Status:   file.TrainStatus,
	}, nil
}

func (s *dataManageService) Stats(ctx context.Context) (*dto.DataStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TrainingFileRepository()

	stats := &dto.DataStatsResponse{}
	counts := []struct {
		dest *int64
		spec []specification.Specification
	}{
		{&stats.TotalFiles, nil},
		{&stats.SQLFiles, []specification.Specification{specification.ByTrainType{TrainType: constant.TrainTypeSQL}}},
		{&stats.DocumentFiles, []specification.Specification{specification.ByTrainType{TrainType: constant.TrainTypeDocument}}},
		{&stats.PendingFiles, []specification.Specification{specification.ByTrainStatus{Status: constant.TrainStatusPending}}},
		{&stats.SuccessFiles, []specification.Specification{specification.ByTrainStatus{Status: constant.TrainStatusSuccess}}},
		{&stats.FailedFiles, []specification.Specification{specification.ByTrainStatus{Status: constant.TrainStatusFailed}}},
	}
	for _, c := range counts {
		n, err := repo.Count(ctx, c.spec...)
		if err != nil {
			return nil, err
		}
		*c.dest = n
	}

	// Knowledge item count comes from the model backend; file stats stay
	// useful even when it is unreachable.
	records, err := s.vannaClient.GetTrainingData(ctx)
	if err != nil {
		s.logger.Warn("datamanage", "training data listing unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		stats.TrainingItems = len(records)
	}

	return stats, nil
}

func (s *dataManageService) Activity(ctx context.Context, days int) ([]dto.TrainingActivityDay, error) {
	if days < 1 || days > 365 {
		days = 7
	}
	now := time.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -days)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	files, err := uow.TrainingFileRepository().FindAll(ctx, specification.ByUploadedSince{Since: since})
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]*dto.TrainingActivityDay)
	for _, f := range files {
		date := f.UploadDate.Format("2006-01-02")
		day, ok := perDay[date]
		if !ok {
			day = &dto.TrainingActivityDay{Date: date}
			perDay[date] = day
		}
		day.Count++
		day.TrainItems += f.TrainCount
	}

	activity := make([]dto.TrainingActivityDay, 0, len(perDay))
	for _, day := range perDay {
		activity = append(activity, *day)
	}
	sort.Slice(activity, func(i, j int) bool { return activity[i].Date < activity[j].Date })
	return activity, nil
}

func (s *dataManageService) ListFiles(ctx context.Context, page, limit int, trainType, status string) (*dto.ListFilesResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filters := make([]specification.Specification, 0, 2)
	if trainType != "" {
		filters = append(filters, specification.ByTrainType{TrainType: trainType})
	}
	if status != "" {
		filters = append(filters, specification.ByTrainStatus{Status: status})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TrainingFileRepository()

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	files, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.TrainingFileItem, len(files))
	for i, f := range files {
		items[i] = dto.TrainingFileItem{
			Id:          f.Id,
			FileName:    f.FileName,
			FileType:    f.FileType,
			TrainType:   f.TrainType,
			FileSize:    f.FileSize,
			TrainStatus: f.TrainStatus,
			TrainResult: f.TrainResult,
			TrainCount:  f.TrainCount,
			UploadDate:  f.UploadDate,
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
		}
	}

	return &dto.ListFilesResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Files: items,
	}, nil
}

func (s *dataManageService) DeleteFiles(ctx context.Context, req *dto.DeleteFilesRequest) (*dto.DeleteFilesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TrainingFileRepository()

	var specs []specification.Specification
	if !req.DeleteAll {
		specs = append(specs, specification.ByIDs{IDs: req.Ids})
	}
	files, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	result := &dto.DeleteFilesResponse{}
	for _, f := range files {
		if err := repo.Delete(ctx, f.Id); err != nil {
			s.logger.Error("datamanage", "failed to delete file record", map[string]interface{}{
				"file_id": f.Id.String(),
				"error":   err.Error(),
			})
			result.Errors = append(result.Errors, dto.TrainBatchError{
				Source: f.FileName,
				Reason: err.Error(),
			})
			continue
		}
		// Remove from disk best effort; the record is the source of truth.
		if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("datamanage", "failed to remove file from disk", map[string]interface{}{
				"path":  f.FilePath,
				"error": err.Error(),
			})
		}
		result.Deleted++
	}

	return result, nil
}
