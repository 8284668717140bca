package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream() (*Stream, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStream(bufio.NewWriter(&buf), nil), &buf
}

type event struct {
	name string
	data string
}

// parseEvents reads the wire format back: "event: <name>" followed by one or
// more "data:" lines, separated by blank lines.
func parseEvents(t *testing.T, raw string) []event {
	t.Helper()
	var events []event
	for _, block := range strings.Split(strings.TrimSuffix(raw, "\n\n"), "\n\n") {
		lines := strings.Split(block, "\n")
		require.True(t, strings.HasPrefix(lines[0], "event: "), "block must start with event line: %q", block)
		e := event{name: strings.TrimPrefix(lines[0], "event: ")}
		var data []string
		for _, line := range lines[1:] {
			require.True(t, strings.HasPrefix(line, "data: "), "expected data line, got %q", line)
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
		e.data = strings.Join(data, "\n")
		events = append(events, e)
	}
	return events
}

func TestStream_FullSequence(t *testing.T) {
	s, buf := newTestStream()

	require.NoError(t, s.Answer("The top "))
	require.NoError(t, s.Answer("product is X."))
	require.NoError(t, s.Table(map[string]interface{}{"row_count": 1}))
	require.NoError(t, s.Done(1))

	events := parseEvents(t, buf.String())
	require.Len(t, events, 4)
	assert.Equal(t, EventAnswer, events[0].name)
	assert.Equal(t, EventAnswer, events[1].name)
	assert.Equal(t, EventTable, events[2].name)
	assert.Equal(t, EventDone, events[3].name)
	assert.JSONEq(t, `{"row_count":1}`, events[3].data)
}

func TestStream_TablePayloadIsBase64JSON(t *testing.T) {
	s, buf := newTestStream()

	payload := map[string]interface{}{
		"columns": []string{"name"},
		"rows":    []map[string]interface{}{{"name": "line1\nline2"}},
	}
	require.NoError(t, s.Table(payload))

	events := parseEvents(t, buf.String())
	require.Len(t, events, 1)

	decoded, err := base64.StdEncoding.DecodeString(events[0].data)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(decoded, &got))
	assert.Equal(t, "line1\nline2", got["rows"].([]interface{})[0].(map[string]interface{})["name"])
}

func TestStream_AnswerAfterTableRejected(t *testing.T) {
	s, _ := newTestStream()

	require.NoError(t, s.Table(map[string]int{"x": 1}))

	assert.ErrorIs(t, s.Answer("late"), ErrTableSent)
	assert.ErrorIs(t, s.Table(map[string]int{"x": 2}), ErrTableSent)
}

func TestStream_NothingAfterDone(t *testing.T) {
	s, _ := newTestStream()

	require.NoError(t, s.Done(0))

	assert.ErrorIs(t, s.Answer("x"), ErrStreamClosed)
	assert.ErrorIs(t, s.Table(nil), ErrStreamClosed)
	assert.ErrorIs(t, s.Done(0), ErrStreamClosed)
	assert.ErrorIs(t, s.Error("x"), ErrStreamClosed)
}

func TestStream_ErrorIsTerminal(t *testing.T) {
	s, buf := newTestStream()

	require.NoError(t, s.Answer("partial"))
	require.NoError(t, s.Error("backend down"))
	assert.ErrorIs(t, s.Done(0), ErrStreamClosed)

	events := parseEvents(t, buf.String())
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].name)
	assert.JSONEq(t, `{"message":"backend down"}`, events[1].data)
	assert.True(t, s.Closed())
}

func TestStream_MultilineAnswerSplitsDataLines(t *testing.T) {
	s, buf := newTestStream()

	require.NoError(t, s.Answer("line1\nline2"))

	raw := buf.String()
	assert.Contains(t, raw, "data: line1\ndata: line2\n")

	events := parseEvents(t, raw)
	assert.Equal(t, "line1\nline2", events[0].data)
}

func TestStream_WriteFailureCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// One-byte buffer over a failing writer forces a flush error.
	s := NewStream(bufio.NewWriterSize(failingWriter{}, 1), cancel)

	err := s.Answer("data")
	assert.Error(t, err)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, s.Closed())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, assert.AnError
}
