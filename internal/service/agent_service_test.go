package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/repository/memory"
	"github.com/lxhmx/text2sql/pkg/llm"
	"github.com/lxhmx/text2sql/pkg/sqlguard"
	"github.com/lxhmx/text2sql/pkg/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgentService(v *fakeVanna, exec *fakeExecutor, provider llm.LLMProvider) (IAgentService, *memory.SessionRepository) {
	sessions := memory.NewSessionRepository(10)
	svc := NewAgentService(v, sqlguard.New(v), exec, provider, sessions, nopLogger{})
	return svc, sessions
}

func respond(svc IAgentService, question, sessionID string) string {
	var buf bytes.Buffer
	stream := sse.NewStream(bufio.NewWriter(&buf), nil)
	svc.Respond(context.Background(), question, sessionID, stream)
	return buf.String()
}

func TestRespond_SmallTalkSkipsDatabase(t *testing.T) {
	v := &fakeVanna{}
	exec := &fakeExecutor{}
	provider := &fakeLLM{responses: []string{`{"use_tool": false}`, "Hello! How can I help?"}}
	svc, _ := newAgentService(v, exec, provider)

	out := respond(svc, "hi there", "")

	assert.Contains(t, out, "data: Hello! How can I help?")
	assert.NotContains(t, out, "event: table")
	assert.Contains(t, out, `data: {"row_count":0}`)
	assert.Empty(t, exec.queries)
}

func TestRespond_DataQuestionUsesToolAndAttachesTable(t *testing.T) {
	v := &fakeVanna{sql: "SELECT COUNT(*) AS n FROM users", valid: true}
	exec := &fakeExecutor{columns: []string{"n"}, rows: []map[string]interface{}{{"n": 42}}}
	provider := &fakeLLM{responses: []string{`{"use_tool": true}`, "There are 42 users."}}
	svc, _ := newAgentService(v, exec, provider)

	out := respond(svc, "how many users?", "")

	assert.Contains(t, out, "data: There are 42 users.")
	assert.Contains(t, out, "event: table")
	assert.Contains(t, out, `data: {"row_count":1}`)
	require.Len(t, exec.queries, 1)

	// The synthesis prompt carries the tool result, not raw SQL.
	require.Len(t, provider.histories, 2)
	synthesis := provider.histories[1]
	last := synthesis[len(synthesis)-1].Content
	assert.Contains(t, last, "how many users?")
	assert.Contains(t, last, "1 rows")
}

func TestRespond_UnparseableDecisionDefaultsToTool(t *testing.T) {
	v := &fakeVanna{sql: "SELECT 1", valid: true}
	exec := &fakeExecutor{columns: []string{"1"}, rows: []map[string]interface{}{{"1": 1}}}
	provider := &fakeLLM{responses: []string{"hmm, maybe?", "answer"}}
	svc, _ := newAgentService(v, exec, provider)

	respond(svc, "q", "")

	assert.Len(t, exec.queries, 1, "ambiguity must fall back to querying")
}

func TestRespond_DecisionJSONInsideProseIsExtracted(t *testing.T) {
	v := &fakeVanna{}
	exec := &fakeExecutor{}
	provider := &fakeLLM{responses: []string{"Sure: ```json\n{\"use_tool\": false}\n```", "chat answer"}}
	svc, _ := newAgentService(v, exec, provider)

	respond(svc, "hello", "")

	assert.Empty(t, exec.queries)
}

func TestRespond_ToolFailureStaysConversational(t *testing.T) {
	v := &fakeVanna{sql: "SELECT 1", valid: true}
	exec := &fakeExecutor{err: fmt.Errorf("db gone")}
	provider := &fakeLLM{responses: []string{`{"use_tool": true}`, "I could not fetch the data right now."}}
	svc, _ := newAgentService(v, exec, provider)

	out := respond(svc, "how many orders?", "")

	assert.Contains(t, out, "data: I could not fetch the data right now.")
	assert.NotContains(t, out, "event: table")
	assert.Contains(t, out, `data: {"row_count":0}`)

	// The failure reason reaches the model without technical detail leaking
	// to the user stream.
	synthesis := provider.histories[1]
	assert.Contains(t, synthesis[len(synthesis)-1].Content, "the database query failed")
	assert.NotContains(t, out, "db gone")
}

func TestRespond_GuardRejectionBecomesToolFailure(t *testing.T) {
	v := &fakeVanna{sql: "UPDATE users SET admin=1", valid: true}
	exec := &fakeExecutor{}
	provider := &fakeLLM{responses: []string{`{"use_tool": true}`, "That is not something I can do."}}
	svc, _ := newAgentService(v, exec, provider)

	out := respond(svc, "make me admin", "")

	assert.Empty(t, exec.queries)
	assert.Contains(t, out, "event: done")
}

func TestRespond_SynthesisFailureStillCompletesAndMemorizes(t *testing.T) {
	v := &fakeVanna{}
	exec := &fakeExecutor{}
	// Only the decision response is queued; the synthesis call fails.
	provider := &fakeLLM{responses: []string{`{"use_tool": false}`}}
	svc, sessions := newAgentService(v, exec, provider)

	out := respond(svc, "hello", "s1")

	assert.Contains(t, out, "data: "+constant.MsgApology)
	assert.NotContains(t, out, "event: error")
	assert.Contains(t, out, "event: done")

	turns := sessions.History("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, constant.MsgApology, turns[1].Text)
}

func TestRespond_StreamsFragmentsAndMemorizesRound(t *testing.T) {
	v := &fakeVanna{sql: "SELECT 1", valid: true}
	exec := &fakeExecutor{columns: []string{"1"}, rows: []map[string]interface{}{{"1": 1}}}
	provider := &streamingLLM{
		fakeLLM:   fakeLLM{responses: []string{`{"use_tool": true}`}},
		fragments: []string{"the answer ", "is one"},
	}
	svc, sessions := newAgentService(v, exec, provider)

	out := respond(svc, "q", "s1")

	assert.Equal(t, 2, strings.Count(out, "event: answer"))
	turns := sessions.History("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "the answer is one", turns[1].Text)
}
