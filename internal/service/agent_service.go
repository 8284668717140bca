package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/pkg/logger"
	"github.com/lxhmx/text2sql/internal/repository/memory"
	"github.com/lxhmx/text2sql/pkg/database"
	"github.com/lxhmx/text2sql/pkg/llm"
	"github.com/lxhmx/text2sql/pkg/projector"
	"github.com/lxhmx/text2sql/pkg/sqlguard"
	"github.com/lxhmx/text2sql/pkg/sse"
	"github.com/lxhmx/text2sql/pkg/vanna"
)

type IAgentService interface {
	// Respond answers a question over the SSE stream, deciding per request
	// whether the database tool is needed.
	Respond(ctx context.Context, question, sessionID string, stream *sse.Stream)
}

type agentService struct {
	vannaClient vanna.Client
	guard       *sqlguard.Guard
	executor    database.Executor
	llmProvider llm.LLMProvider
	sessions    *memory.SessionRepository
	logger      logger.ILogger
}

func NewAgentService(
	vannaClient vanna.Client,
	guard *sqlguard.Guard,
	executor database.Executor,
	llmProvider llm.LLMProvider,
	sessions *memory.SessionRepository,
	log logger.ILogger,
) IAgentService {
	return &agentService{
		vannaClient: vannaClient,
		guard:       guard,
		executor:    executor,
		llmProvider: llmProvider,
		sessions:    sessions,
		logger:      log,
	}
}

type toolDecision struct {
	UseTool bool `json:"use_tool"`
}

// toolResult is the structured outcome of one database tool run. A failed run
// is data for the model, not a stream-terminating error.
type toolResult struct {
	Success  bool
	SQL      string
	RowCount int
	Table    *projector.Table
	Preview  string
	Reason   string
}

func (s *agentService) Respond(ctx context.Context, question, sessionID string, stream *sse.Stream) {
	// 1. Decide whether the database is needed.
	useTool := s.decideTool(ctx, question)

	var result *toolResult
	if useTool {
		result = s.runTool(ctx, question)
	}

	// 2. Synthesize the answer from the tool outcome (or from the question
	// alone) and stream it. A generation failure becomes the answer itself:
	// the client still gets a completed stream and the round stays in memory.
	history := s.buildHistory(question, sessionID, result)
	answer, err := streamAnswer(ctx, s.llmProvider, history, stream)
	if err != nil {
		s.logger.Error("agent", "answer generation failed", map[string]interface{}{
			"question": question,
			"error":    err.Error(),
		})
		if stream.Closed() {
			return
		}
		answer = constant.MsgApology
		if err := stream.Answer(answer); err != nil {
			return
		}
		result = nil
	}

	// 3. Attach the table when the tool produced one.
	rowCount := 0
	if result != nil && result.Success {
		rowCount = result.RowCount
		if err := stream.Table(result.Table); err != nil {
			return
		}
	}
	if err := stream.Done(rowCount); err != nil {
		return
	}

	s.sessions.Append(sessionID, question, answer)
}

// decideTool asks the model for a JSON verdict. Anything unparseable counts
// as "use the tool": a wasted query is cheaper than a made-up answer.
func (s *agentService) decideTool(ctx context.Context, question string) bool {
	raw, err := s.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: constant.AgentDecisionSystemPrompt},
		{Role: "user", Content: question},
	}, llm.WithMaxTokens(64))
	if err != nil {
		s.logger.Warn("agent", "tool decision failed, defaulting to query", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	var decision toolDecision
	cleaned := extractJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		s.logger.Warn("agent", "tool decision unparseable, defaulting to query", map[string]interface{}{
			"raw": raw,
		})
		return true
	}
	return decision.UseTool
}

// runTool executes the full generate-guard-execute-project pipeline and folds
// every failure into a structured reason.
func (s *agentService) runTool(ctx context.Context, question string) *toolResult {
	sql, err := s.vannaClient.GenerateSQL(ctx, question)
	if err != nil {
		return &toolResult{Reason: "could not translate the question into a query"}
	}

	if err := s.guard.Validate(ctx, sql); err != nil {
		return &toolResult{SQL: sql, Reason: "the generated query is not a supported read-only statement"}
	}

	rows, columns, err := s.executor.Query(ctx, sql)
	if err != nil {
		s.logger.Error("agent", "tool execution failed", map[string]interface{}{
			"sql":   sql,
			"error": err.Error(),
		})
		return &toolResult{SQL: sql, Reason: "the database query failed"}
	}

	table, preview := projector.Project(columns, rows)
	return &toolResult{
		Success:  true,
		SQL:      sql,
		RowCount: table.RowCount,
		Table:    table,
		Preview:  preview,
	}
}

func (s *agentService) buildHistory(question, sessionID string, result *toolResult) []llm.Message {
	history := []llm.Message{
		{Role: "system", Content: constant.AgentSystemPrompt},
	}
	for _, turn := range s.sessions.History(sessionID) {
		history = append(history, llm.Message{Role: turn.Role, Content: turn.Text})
	}

	var user string
	switch {
	case result == nil:
		user = question
	case result.Success:
		user = fmt.Sprintf(constant.AgentToolResultPrompt, question, result.RowCount, result.Preview)
	default:
		user = fmt.Sprintf(constant.AgentToolFailurePrompt, question, result.Reason)
	}
	history = append(history, llm.Message{Role: "user", Content: user})
	return history
}

// extractJSON strips markdown fences and surrounding prose, keeping the first
// top-level object. Small local models rarely emit bare JSON reliably.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
