package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/pkg/logger"
	"github.com/lxhmx/text2sql/pkg/dedup"
	"github.com/lxhmx/text2sql/pkg/utils"
	"github.com/lxhmx/text2sql/pkg/vanna"
)

// Documents above docChunkSize characters are split into overlapping chunks
// before training, so retrieval stays precise on long files.
const (
	docChunkSize    = 1500
	docChunkOverlap = 200
)

type ITrainService interface {
	TrainSQLDirectory(ctx context.Context) (*dto.TrainBatchResponse, error)
	TrainDocumentDirectory(ctx context.Context) (*dto.TrainBatchResponse, error)
	// TrainFile ingests one file's content and returns the number of
	// knowledge items produced. Zero with a nil error means dedup skipped it.
	TrainFile(ctx context.Context, content []byte, fileName, trainType string) (int, error)
	TrainManual(ctx context.Context, req *dto.TrainManualRequest) error
	ListTrainingData(ctx context.Context) (*dto.GetTrainingDataResponse, error)
	DeleteTrainingData(ctx context.Context, req *dto.DeleteTrainingDataRequest) (*dto.DeleteTrainingDataResponse, error)
}

type trainService struct {
	vannaClient  vanna.Client
	deduplicator *dedup.Deduplicator
	sqlDir       string
	documentDir  string
	logger       logger.ILogger
}

func NewTrainService(
	vannaClient vanna.Client,
	deduplicator *dedup.Deduplicator,
	sqlDir string,
	documentDir string,
	log logger.ILogger,
) ITrainService {
	return &trainService{
		vannaClient:  vannaClient,
		deduplicator: deduplicator,
		sqlDir:       sqlDir,
		documentDir:  documentDir,
		logger:       log,
	}
}

func (s *trainService) TrainSQLDirectory(ctx context.Context) (*dto.TrainBatchResponse, error) {
	return s.trainDirectory(ctx, s.sqlDir, constant.TrainTypeSQL, ".sql")
}

func (s *trainService) TrainDocumentDirectory(ctx context.Context) (*dto.TrainBatchResponse, error) {
	return s.trainDirectory(ctx, s.documentDir, constant.TrainTypeDocument, ".txt", ".md")
}

// trainDirectory ingests every matching file under dir, subdirectories
// included. One bad file never aborts the batch; failures are reported per
// file alongside the successes.
func (s *trainService) trainDirectory(ctx context.Context, dir, trainType string, extensions ...string) (*dto.TrainBatchResponse, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("read training directory %s: %w", dir, err)
	}

	report := &dto.TrainBatchResponse{}
	walkErr := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			report.Errors = append(report.Errors, dto.TrainBatchError{
				Source: entry.Name(),
				Reason: err.Error(),
			})
			return nil
		}

		count, err := s.TrainFile(ctx, content, entry.Name(), trainType)
		if err != nil {
			report.Errors = append(report.Errors, dto.TrainBatchError{
				Source: entry.Name(),
				Reason: err.Error(),
			})
			return nil
		}
		if count == 0 {
			report.Skipped++
			return nil
		}
		report.Trained += count
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk training directory %s: %w", dir, walkErr)
	}

	if report.Trained > 0 {
		s.deduplicator.Invalidate()
	}

	s.logger.Info("train", "directory training finished", map[string]interface{}{
		"dir":     dir,
		"trained": report.Trained,
		"skipped": report.Skipped,
		"errors":  len(report.Errors),
	})
	return report, nil
}

func (s *trainService) TrainFile(ctx context.Context, content []byte, fileName, trainType string) (int, error) {
	prefix := constant.DedupPrefixSQL
	if trainType == constant.TrainTypeDocument {
		prefix = constant.DedupPrefixDoc
	}

	proceed, id, err := s.deduplicator.ShouldIngest(ctx, content, fileName, prefix)
	if err != nil {
		return 0, err
	}
	if !proceed {
		s.logger.Info("train", "file already trained, skipping", map[string]interface{}{
			"file":     fileName,
			"dedup_id": id,
		})
		return 0, nil
	}

	var items []vanna.TrainingItem
	if trainType == constant.TrainTypeDocument {
		for _, chunk := range utils.SplitText(string(content), docChunkSize, docChunkOverlap) {
			if strings.TrimSpace(chunk) == "" {
				continue
			}
			items = append(items, vanna.TrainingItem{
				Type:    vanna.TypeDocumentation,
				Content: embedDocMarker(chunk, id),
			})
		}
	} else {
		items = parseSQLFile(string(content), fileName, id)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("no trainable statements in %s", fileName)
	}

	trained := 0
	for _, item := range items {
		if err := s.vannaClient.Train(ctx, item); err != nil {
			// Partial ingestion: report what made it in alongside the error.
			return trained, fmt.Errorf("train item %d of %s: %w", trained+1, fileName, err)
		}
		trained++
	}
	return trained, nil
}

func (s *trainService) TrainManual(ctx context.Context, req *dto.TrainManualRequest) error {
	if req.Type == vanna.TypeSQL && strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("question is required for sql training data")
	}

	item := vanna.TrainingItem{
		Type:     req.Type,
		Content:  req.Content,
		Question: req.Question,
	}
	if err := s.vannaClient.Train(ctx, item); err != nil {
		return err
	}
	s.deduplicator.Invalidate()

	// Keep a copy in the training directory so a later directory run sees the
	// same knowledge. Best effort: the item is already trained.
	if path, err := s.persistManualItem(req); err != nil {
		s.logger.Warn("train", "could not persist manual item", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		s.logger.Info("train", "manual item trained", map[string]interface{}{
			"type": req.Type,
			"path": path,
		})
	}
	return nil
}

// persistManualItem writes a manual item into the matching train directory.
// SQL pairs get their question as a leading comment so re-ingesting the file
// reproduces the pair.
func (s *trainService) persistManualItem(req *dto.TrainManualRequest) (string, error) {
	dir, ext := s.sqlDir, ".sql"
	if req.Type == vanna.TypeDocumentation {
		dir, ext = s.documentDir, ".txt"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	content := req.Content
	if req.Type == vanna.TypeSQL {
		content = "-- " + req.Question + "\n" + req.Content
	}

	name := manualFileName(req.Title, content, ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// manualFileName derives a file name from the given title, falling back to a
// content hash when no title was supplied.
func manualFileName(title, content, ext string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '_'
		}
		return -1
	}, strings.TrimSpace(title))
	if slug == "" {
		sum := md5.Sum([]byte(content))
		slug = hex.EncodeToString(sum[:])[:8]
	}
	return "manual_" + slug + ext
}

func (s *trainService) ListTrainingData(ctx context.Context) (*dto.GetTrainingDataResponse, error) {
	records, err := s.vannaClient.GetTrainingData(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.TrainingDataItem, len(records))
	for i, r := range records {
		items[i] = dto.TrainingDataItem{
			ID:       r.ID,
			Type:     r.Type,
			Question: r.Question,
			Content:  r.Content,
		}
	}
	return &dto.GetTrainingDataResponse{
		Total: len(items),
		Items: items,
	}, nil
}

func (s *trainService) DeleteTrainingData(ctx context.Context, req *dto.DeleteTrainingDataRequest) (*dto.DeleteTrainingDataResponse, error) {
	ids := req.Ids
	if req.DeleteAll || req.Type != "" {
		records, err := s.vannaClient.GetTrainingData(ctx)
		if err != nil {
			return nil, err
		}
		ids = ids[:0:0]
		for _, r := range records {
			if req.Type == "" || r.Type == req.Type {
				ids = append(ids, r.ID)
			}
		}
	}

	result := &dto.DeleteTrainingDataResponse{}
	for _, id := range ids {
		if err := s.vannaClient.RemoveTrainingData(ctx, id); err != nil {
			result.Errors = append(result.Errors, dto.TrainBatchError{
				Source: id,
				Reason: err.Error(),
			})
			continue
		}
		result.Deleted++
	}

	if result.Deleted > 0 {
		s.deduplicator.Invalidate()
	}
	return result, nil
}

// parseSQLFile splits a .sql file into trainable items. CREATE/ALTER
// statements become DDL; SELECT statements become question/SQL pairs, taking
// the question from the comment right above the statement or, failing that,
// from the file name. Anything else is kept as DDL so schema knowledge is
// never silently dropped.
func parseSQLFile(content, fileName, dedupID string) []vanna.TrainingItem {
	var items []vanna.TrainingItem

	for _, raw := range strings.Split(content, ";") {
		statement := strings.TrimSpace(raw)
		if statement == "" {
			continue
		}

		comment, body := splitLeadingComment(statement)
		if strings.TrimSpace(body) == "" {
			continue
		}

		keyword := firstKeyword(body)
		switch keyword {
		case "SELECT", "WITH":
			question := comment
			if question == "" {
				question = questionFromFileName(fileName)
			}
			items = append(items, vanna.TrainingItem{
				Type:     vanna.TypeSQL,
				Question: question,
				Content:  body + "\n-- " + dedupID,
			})
		default:
			items = append(items, vanna.TrainingItem{
				Type:    vanna.TypeDDL,
				Content: body + "\n-- " + dedupID,
			})
		}
	}
	return items
}

// splitLeadingComment separates the "--" comment block above a statement from
// the statement itself. Multi-line comments are joined with spaces.
func splitLeadingComment(statement string) (comment, body string) {
	var commentLines, bodyLines []string
	inBody := false
	for _, line := range strings.Split(statement, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBody && strings.HasPrefix(trimmed, "--") {
			commentLines = append(commentLines, strings.TrimSpace(strings.TrimPrefix(trimmed, "--")))
			continue
		}
		if trimmed != "" {
			inBody = true
		}
		if inBody {
			bodyLines = append(bodyLines, line)
		}
	}
	return strings.Join(commentLines, " "), strings.TrimSpace(strings.Join(bodyLines, "\n"))
}

func firstKeyword(body string) string {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// questionFromFileName turns "monthly_sales_report.sql" into
// "monthly sales report".
func questionFromFileName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return strings.ReplaceAll(strings.ReplaceAll(base, "_", " "), "-", " ")
}

// embedDocMarker appends the dedup identifier so later runs can find it with
// a plain substring search over stored content.
func embedDocMarker(content, dedupID string) string {
	return strings.TrimRight(content, "\n") + "\n[" + dedupID + "]"
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
