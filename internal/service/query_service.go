package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/pkg/logger"
	"github.com/lxhmx/text2sql/internal/repository/memory"
	"github.com/lxhmx/text2sql/pkg/database"
	"github.com/lxhmx/text2sql/pkg/llm"
	"github.com/lxhmx/text2sql/pkg/projector"
	"github.com/lxhmx/text2sql/pkg/sqlguard"
	"github.com/lxhmx/text2sql/pkg/sse"
	"github.com/lxhmx/text2sql/pkg/vanna"
)

type IQueryService interface {
	Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
	StreamQuery(ctx context.Context, question, sessionID string, stream *sse.Stream)
}

type queryService struct {
	vannaClient vanna.Client
	guard       *sqlguard.Guard
	executor    database.Executor
	llmProvider llm.LLMProvider
	sessions    *memory.SessionRepository
	logger      logger.ILogger
}

func NewQueryService(
	vannaClient vanna.Client,
	guard *sqlguard.Guard,
	executor database.Executor,
	llmProvider llm.LLMProvider,
	sessions *memory.SessionRepository,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		vannaClient: vannaClient,
		guard:       guard,
		executor:    executor,
		llmProvider: llmProvider,
		sessions:    sessions,
		logger:      log,
	}
}

// queryOutcome is the shared result of the generate-guard-execute-project
// pipeline, consumed by both the sync and the streaming paths.
type queryOutcome struct {
	SQL     string
	Table   *projector.Table
	Preview string
	// UserErr is a user-facing rejection or failure message. When set, no
	// table exists and the request ends with this text.
	UserErr string
}

func (s *queryService) Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	outcome := s.runPipeline(ctx, req.Question)
	if outcome.UserErr != "" {
		return &dto.QueryResponse{
			Question: req.Question,
			Answer:   outcome.UserErr,
			SQL:      outcome.SQL,
			Rejected: true,
		}, nil
	}

	answer := s.generateAnswer(ctx, req.Question, req.SessionID, outcome)

	s.sessions.Append(req.SessionID, req.Question, answer)

	return &dto.QueryResponse{
		Question: req.Question,
		Answer:   answer,
		SQL:      outcome.SQL,
		Table:    outcome.Table,
		RowCount: outcome.Table.RowCount,
	}, nil
}

// StreamQuery runs the pipeline and emits the SSE sequence: answer fragments,
// one table, then done. Any failure before the table ends the stream with a
// single error event. Write failures cancel ctx, which aborts generation.
func (s *queryService) StreamQuery(ctx context.Context, question, sessionID string, stream *sse.Stream) {
	outcome := s.runPipeline(ctx, question)
	if outcome.UserErr != "" {
		if err := stream.Error(outcome.UserErr); err != nil {
			s.logger.Warn("query", "failed to write error event", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	var answer string
	if outcome.Table.RowCount == 0 {
		answer = constant.MsgEmptyResultAnswer
		if err := stream.Answer(answer); err != nil {
			return
		}
	} else {
		history := s.answerHistory(question, sessionID, outcome)
		streamed, err := streamAnswer(ctx, s.llmProvider, history, stream)
		if err != nil {
			s.logger.Error("query", "answer generation failed", map[string]interface{}{
				"question": question,
				"error":    err.Error(),
			})
			if !stream.Closed() {
				_ = stream.Error(constant.MsgApology)
			}
			return
		}
		answer = streamed
	}

	if err := stream.Table(outcome.Table); err != nil {
		return
	}
	if err := stream.Done(outcome.Table.RowCount); err != nil {
		return
	}

	s.sessions.Append(sessionID, question, answer)
}

// runPipeline maps a question to a sanitized result table, or to a
// user-facing failure message.
func (s *queryService) runPipeline(ctx context.Context, question string) queryOutcome {
	// 1. Generate SQL
	sql, err := s.vannaClient.GenerateSQL(ctx, question)
	if err != nil {
		s.logger.Error("query", "sql generation failed", map[string]interface{}{
			"question": question,
			"error":    err.Error(),
		})
		return queryOutcome{UserErr: constant.MsgUnintelligibleQuestion}
	}

	// 2. Guard: nothing reaches the database without passing this.
	if err := s.guard.Validate(ctx, sql); err != nil {
		s.logger.Warn("query", "sql rejected", map[string]interface{}{
			"sql":   sql,
			"error": err.Error(),
		})
		// SQL is kept for diagnostics; it was never executed.
		if errors.Is(err, sqlguard.ErrUnsupported) {
			return queryOutcome{SQL: sql, UserErr: constant.MsgUnsupportedOperation}
		}
		return queryOutcome{SQL: sql, UserErr: constant.MsgUnintelligibleQuestion}
	}

	// 3. Execute
	rows, columns, err := s.executor.Query(ctx, sql)
	if err != nil {
		s.logger.Error("query", "execution failed", map[string]interface{}{
			"sql":   sql,
			"error": err.Error(),
		})
		return queryOutcome{SQL: sql, UserErr: fmt.Sprintf(constant.MsgExecutionError, err.Error())}
	}

	// 4. Project
	table, preview := projector.Project(columns, rows)
	return queryOutcome{SQL: sql, Table: table, Preview: preview}
}

func (s *queryService) generateAnswer(ctx context.Context, question, sessionID string, outcome queryOutcome) string {
	if outcome.Table.RowCount == 0 {
		return constant.MsgEmptyResultAnswer
	}

	history := s.answerHistory(question, sessionID, outcome)
	answer, err := s.llmProvider.Chat(ctx, history)
	if err != nil {
		s.logger.Error("query", "answer generation failed", map[string]interface{}{
			"question": question,
			"error":    err.Error(),
		})
		return constant.MsgApology
	}
	return answer
}

// answerHistory builds the chat history for the answer step: system prompt,
// prior session rounds, then the question with its bounded result preview.
func (s *queryService) answerHistory(question, sessionID string, outcome queryOutcome) []llm.Message {
	history := []llm.Message{
		{Role: "system", Content: constant.AnswerSystemPrompt},
	}
	for _, turn := range s.sessions.History(sessionID) {
		history = append(history, llm.Message{Role: turn.Role, Content: turn.Text})
	}
	history = append(history, llm.Message{
		Role: "user",
		Content: fmt.Sprintf(constant.AnswerUserPrompt,
			question, outcome.Table.RowCount, len(outcome.Table.Columns), outcome.Preview),
	})
	return history
}

// streamAnswer forwards fragments to the stream when the provider supports
// token streaming, otherwise sends the full answer as one fragment. Returns
// the complete answer text for session memory.
func streamAnswer(ctx context.Context, provider llm.LLMProvider, history []llm.Message, stream *sse.Stream) (string, error) {
	if sp, ok := provider.(llm.StreamingProvider); ok {
		var full []byte
		err := sp.ChatStream(ctx, history, func(fragment string) error {
			full = append(full, fragment...)
			return stream.Answer(fragment)
		})
		return string(full), err
	}

	answer, err := provider.Chat(ctx, history)
	if err != nil {
		return "", err
	}
	return answer, stream.Answer(answer)
}
