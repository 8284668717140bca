package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/entity"
	"github.com/lxhmx/text2sql/internal/repository/contract"
	"github.com/lxhmx/text2sql/internal/repository/specification"
	"github.com/lxhmx/text2sql/internal/repository/unitofwork"
	"github.com/lxhmx/text2sql/pkg/dedup"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryFileRepo is an in-memory contract.TrainingFileRepository that
// interprets the common specifications.
type memoryFileRepo struct {
	mu    sync.Mutex
	files map[uuid.UUID]entity.TrainingFile
}

func newMemoryFileRepo() *memoryFileRepo {
	return &memoryFileRepo{files: make(map[uuid.UUID]entity.TrainingFile)}
}

func (r *memoryFileRepo) Create(ctx context.Context, f *entity.TrainingFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.Id] = *f
	return nil
}

func (r *memoryFileRepo) Update(ctx context.Context, f *entity.TrainingFile) error {
	return r.Create(ctx, f)
}

func (r *memoryFileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *memoryFileRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TrainingFile, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *memoryFileRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TrainingFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TrainingFile
	for _, f := range r.files {
		f := f
		if matchesAll(&f, specs) {
			out = append(out, &f)
		}
	}
	return out, nil
}

func (r *memoryFileRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func matchesAll(f *entity.TrainingFile, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if f.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if f.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByTrainType:
			if f.TrainType != s.TrainType {
				return false
			}
		case specification.ByTrainStatus:
			if f.TrainStatus != s.Status {
				return false
			}
		case specification.ByUploadedSince:
			if f.UploadDate.Before(s.Since) {
				return false
			}
		}
		// Ordering and pagination are storage concerns, ignored here.
	}
	return true
}

type memoryUowFactory struct {
	repo *memoryFileRepo
}

func (f *memoryUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memoryUow{repo: f.repo}
}

type memoryUow struct {
	repo *memoryFileRepo
}

func (u *memoryUow) Begin(ctx context.Context) error { return nil }
func (u *memoryUow) Commit() error                   { return nil }
func (u *memoryUow) Rollback() error                 { return nil }
func (u *memoryUow) TrainingFileRepository() contract.TrainingFileRepository {
	return u.repo
}

func TestUploadThenConsume_TrainsFileAndRecordsOutcome(t *testing.T) {
	repo := newMemoryFileRepo()
	factory := &memoryUowFactory{repo: repo}
	v := &fakeVanna{}
	sqlDir := t.TempDir()
	docDir := t.TempDir()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	publisher := NewPublisherService("TRAIN_FILE", pubSub)
	trainSvc := NewTrainService(v, dedup.New(v), sqlDir, docDir, nopLogger{})
	dataSvc := NewDataManageService(factory, v, publisher, sqlDir, docDir, nopLogger{})
	consumer := NewConsumerService(pubSub, "TRAIN_FILE", factory, trainSvc, nil)

	require.NoError(t, consumer.Consume(context.Background()))

	res, err := dataSvc.SaveUpload(context.Background(), "schema.sql", []byte("CREATE TABLE t (id INT);"), "")
	require.NoError(t, err)
	assert.Equal(t, constant.TrainStatusPending, res.Status)
	assert.FileExists(t, filepath.Join(sqlDir, "schema.sql"))

	require.Eventually(t, func() bool {
		f, _ := repo.FindOne(context.Background(), specification.ByID{ID: res.Id})
		return f != nil && f.TrainStatus == constant.TrainStatusSuccess
	}, 3*time.Second, 20*time.Millisecond, "consumer must mark the file trained")

	f, err := repo.FindOne(context.Background(), specification.ByID{ID: res.Id})
	require.NoError(t, err)
	assert.Equal(t, 1, f.TrainCount)
	require.Len(t, v.trained, 1)
	assert.Contains(t, v.trained[0].Content, "CREATE TABLE t")
}

func TestSaveUpload_RejectsUnknownExtension(t *testing.T) {
	repo := newMemoryFileRepo()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	_, err := dataSvc.SaveUpload(context.Background(), "malware.exe", []byte("x"), "")

	assert.Error(t, err)
	assert.Empty(t, repo.files)
}

func TestSaveUpload_StripsPathFromFileName(t *testing.T) {
	repo := newMemoryFileRepo()
	sqlDir := t.TempDir()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), sqlDir, t.TempDir(), nopLogger{})

	res, err := dataSvc.SaveUpload(context.Background(), "../../etc/evil.sql", []byte("SELECT 1;"), "")

	require.NoError(t, err)
	assert.Equal(t, "evil.sql", res.FileName)
	assert.FileExists(t, filepath.Join(sqlDir, "evil.sql"))
	_, statErr := os.Stat(filepath.Join(sqlDir, "..", "..", "etc", "evil.sql"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveUpload_DeclaredTypeOverridesExtension(t *testing.T) {
	repo := newMemoryFileRepo()
	sqlDir := t.TempDir()
	docDir := t.TempDir()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), sqlDir, docDir, nopLogger{})

	res, err := dataSvc.SaveUpload(context.Background(), "notes.md", []byte("select-like prose"), constant.TrainTypeSQL)

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(sqlDir, "notes.md"))
	f, err := repo.FindOne(context.Background(), specification.ByID{ID: res.Id})
	require.NoError(t, err)
	assert.Equal(t, constant.TrainTypeSQL, f.TrainType)
}

func TestSaveUpload_RejectsUnknownDeclaredType(t *testing.T) {
	repo := newMemoryFileRepo()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	_, err := dataSvc.SaveUpload(context.Background(), "schema.sql", []byte("SELECT 1;"), "embeddings")

	assert.Error(t, err)
	assert.Empty(t, repo.files)
}

func TestDeleteFiles_RemovesRecordAndDisk(t *testing.T) {
	repo := newMemoryFileRepo()
	sqlDir := t.TempDir()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), sqlDir, t.TempDir(), nopLogger{})

	path := filepath.Join(sqlDir, "old.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1;"), 0o644))
	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.TrainingFile{
		Id: id, FileName: "old.sql", FilePath: path, TrainType: constant.TrainTypeSQL,
	}))

	res, err := dataSvc.DeleteFiles(context.Background(), &dto.DeleteFilesRequest{Ids: []uuid.UUID{id}})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.NoFileExists(t, path)
	assert.Empty(t, repo.files)
}

// flakyDeleteRepo fails deleting one specific record.
type flakyDeleteRepo struct {
	*memoryFileRepo
	failID uuid.UUID
}

func (r *flakyDeleteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if id == r.failID {
		return assert.AnError
	}
	return r.memoryFileRepo.Delete(ctx, id)
}

type flakyUowFactory struct {
	repo *flakyDeleteRepo
}

func (f *flakyUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &flakyUow{repo: f.repo}
}

type flakyUow struct {
	repo *flakyDeleteRepo
}

func (u *flakyUow) Begin(ctx context.Context) error { return nil }
func (u *flakyUow) Commit() error                   { return nil }
func (u *flakyUow) Rollback() error                 { return nil }
func (u *flakyUow) TrainingFileRepository() contract.TrainingFileRepository {
	return u.repo
}

func TestDeleteFiles_CollectsPerItemErrors(t *testing.T) {
	repo := newMemoryFileRepo()
	goodID, badID := uuid.New(), uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.TrainingFile{Id: goodID, FileName: "good.sql"}))
	require.NoError(t, repo.Create(context.Background(), &entity.TrainingFile{Id: badID, FileName: "stuck.sql"}))

	factory := &flakyUowFactory{repo: &flakyDeleteRepo{memoryFileRepo: repo, failID: badID}}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(factory, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	res, err := dataSvc.DeleteFiles(context.Background(), &dto.DeleteFilesRequest{Ids: []uuid.UUID{goodID, badID}})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "stuck.sql", res.Errors[0].Source)
	assert.Len(t, repo.files, 1, "the failed record stays")
}

func TestDeleteFiles_DeleteAllClearsEveryRecord(t *testing.T) {
	repo := newMemoryFileRepo()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &entity.TrainingFile{
			Id: uuid.New(), TrainType: constant.TrainTypeSQL,
		}))
	}

	res, err := dataSvc.DeleteFiles(context.Background(), &dto.DeleteFilesRequest{DeleteAll: true})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Deleted)
	assert.Empty(t, repo.files)
}

func TestActivity_GroupsPerDayAndSkipsOldFiles(t *testing.T) {
	repo := newMemoryFileRepo()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, &fakeVanna{}, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	for _, f := range []entity.TrainingFile{
		{Id: uuid.New(), UploadDate: now, TrainCount: 3},
		{Id: uuid.New(), UploadDate: now, TrainCount: 2},
		{Id: uuid.New(), UploadDate: yesterday, TrainCount: 1},
		{Id: uuid.New(), UploadDate: now.AddDate(0, 0, -30), TrainCount: 9}, // outside the window
	} {
		f := f
		require.NoError(t, repo.Create(context.Background(), &f))
	}

	activity, err := dataSvc.Activity(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, yesterday.Format("2006-01-02"), activity[0].Date)
	assert.Equal(t, 1, activity[0].Count)
	assert.Equal(t, 1, activity[0].TrainItems)
	assert.Equal(t, now.Format("2006-01-02"), activity[1].Date)
	assert.Equal(t, 2, activity[1].Count)
	assert.Equal(t, 5, activity[1].TrainItems)
}

func TestStats_CountsByTypeAndStatus(t *testing.T) {
	repo := newMemoryFileRepo()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	v := &fakeVanna{}
	dataSvc := NewDataManageService(&memoryUowFactory{repo: repo}, v, NewPublisherService("TRAIN_FILE", pubSub), t.TempDir(), t.TempDir(), nopLogger{})

	for _, f := range []entity.TrainingFile{
		{Id: uuid.New(), TrainType: constant.TrainTypeSQL, TrainStatus: constant.TrainStatusSuccess},
		{Id: uuid.New(), TrainType: constant.TrainTypeSQL, TrainStatus: constant.TrainStatusFailed},
		{Id: uuid.New(), TrainType: constant.TrainTypeDocument, TrainStatus: constant.TrainStatusPending},
	} {
		f := f
		require.NoError(t, repo.Create(context.Background(), &f))
	}
	v.records = nil

	stats, err := dataSvc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalFiles)
	assert.Equal(t, int64(2), stats.SQLFiles)
	assert.Equal(t, int64(1), stats.DocumentFiles)
	assert.Equal(t, int64(1), stats.PendingFiles)
	assert.Equal(t, int64(1), stats.SuccessFiles)
	assert.Equal(t, int64(1), stats.FailedFiles)
}
