package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/lxhmx/text2sql/pkg/llm"
	"github.com/lxhmx/text2sql/pkg/vanna"
)

// fakeVanna is an in-memory stand-in for the SQL generation service.
type fakeVanna struct {
	mu sync.Mutex

	sql    string
	sqlErr error

	valid    bool
	validErr error

	trained  []vanna.TrainingItem
	trainErr error

	records    []vanna.TrainingRecord
	recordsErr error

	removed   []string
	removeErr map[string]error
}

func (f *fakeVanna) GenerateSQL(ctx context.Context, question string) (string, error) {
	return f.sql, f.sqlErr
}

func (f *fakeVanna) IsSQLValid(ctx context.Context, sql string) (bool, error) {
	return f.valid, f.validErr
}

func (f *fakeVanna) Train(ctx context.Context, item vanna.TrainingItem) error {
	if f.trainErr != nil {
		return f.trainErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trained = append(f.trained, item)
	return nil
}

func (f *fakeVanna) GetTrainingData(ctx context.Context) ([]vanna.TrainingRecord, error) {
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]vanna.TrainingRecord{}, f.records...)
	// Trained items show up in the listing like the real service.
	for i, item := range f.trained {
		out = append(out, vanna.TrainingRecord{
			ID:       fmt.Sprintf("trained-%d", i),
			Type:     item.Type,
			Question: item.Question,
			Content:  item.Content,
		})
	}
	return out, nil
}

func (f *fakeVanna) RemoveTrainingData(ctx context.Context, id string) error {
	if err := f.removeErr[id]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

// fakeExecutor returns a fixed result set.
type fakeExecutor struct {
	rows    []map[string]interface{}
	columns []string
	err     error
	queries []string
}

func (f *fakeExecutor) Query(ctx context.Context, query string) ([]map[string]interface{}, []string, error) {
	f.queries = append(f.queries, query)
	return f.rows, f.columns, f.err
}

// fakeLLM replays queued responses, recording each request history.
type fakeLLM struct {
	responses []string
	err       error
	histories [][]llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.histories = append(f.histories, history)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeLLM: no responses left")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// streamingLLM wraps fakeLLM with fragment-level streaming for the last
// queued response.
type streamingLLM struct {
	fakeLLM
	fragments []string
}

func (s *streamingLLM) ChatStream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) error {
	s.histories = append(s.histories, history)
	if s.err != nil {
		return s.err
	}
	for _, fragment := range s.fragments {
		if err := handler(fragment); err != nil {
			return err
		}
	}
	return nil
}

// nopLogger satisfies logger.ILogger without output.
type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
