// Package sse frames the per-request event stream of a query: answer fragments,
// at most one table payload, then exactly one terminal event (done or error).
package sse

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	EventAnswer = "answer"
	EventTable  = "table"
	EventDone   = "done"
	EventError  = "error"
)

// ErrStreamClosed is returned when an event is emitted after the terminal
// event, or after the underlying connection failed.
var ErrStreamClosed = errors.New("sse: stream already closed")

// ErrTableSent is returned when an answer or a second table is emitted after
// the table payload. The protocol allows answers only before the table.
var ErrTableSent = errors.New("sse: table already sent")

type donePayload struct {
	RowCount int `json:"row_count"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Stream writes one ordered event sequence to a single response writer.
// It flushes after every event so the first byte reaches the client before
// generation completes. A failed write cancels the request context, which
// stops in-flight generation promptly.
type Stream struct {
	mu        sync.Mutex
	w         *bufio.Writer
	cancel    context.CancelFunc
	tableSent bool
	closed    bool
}

// NewStream wraps a buffered response writer. cancel may be nil when there is
// no upstream work to interrupt (tests, short-circuit error responses).
func NewStream(w *bufio.Writer, cancel context.CancelFunc) *Stream {
	return &Stream{w: w, cancel: cancel}
}

// Answer emits one generated text fragment.
func (s *Stream) Answer(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.tableSent {
		return ErrTableSent
	}
	return s.writeEvent(EventAnswer, fragment)
}

// Table emits the sanitized table payload, serialized to JSON and base64
// encoded so embedded newlines in cell content cannot corrupt the framing.
func (s *Stream) Table(payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.tableSent {
		return ErrTableSent
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal table payload: %w", err)
	}
	s.tableSent = true
	return s.writeEvent(EventTable, base64.StdEncoding.EncodeToString(data))
}

// Done closes the stream with the authoritative row count.
func (s *Stream) Done(rowCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	data, err := json.Marshal(donePayload{RowCount: rowCount})
	if err != nil {
		return err
	}
	s.closed = true
	return s.writeEvent(EventDone, string(data))
}

// Error closes the stream with a terminal error event. It may follow any
// number of answer events; nothing may follow it.
func (s *Stream) Error(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	data, err := json.Marshal(errorPayload{Message: message})
	if err != nil {
		return err
	}
	s.closed = true
	return s.writeEvent(EventError, string(data))
}

// Closed reports whether a terminal event was emitted or the connection died.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// writeEvent writes "event: <name>" followed by one "data:" line per line of
// the payload, then a blank line, and flushes. Caller holds s.mu.
func (s *Stream) writeEvent(name, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
		return s.fail(err)
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(s.w, "data: %s\n", line); err != nil {
			return s.fail(err)
		}
	}
	if _, err := s.w.WriteString("\n"); err != nil {
		return s.fail(err)
	}
	if err := s.w.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

// fail marks the stream dead and interrupts the producer. Caller holds s.mu.
func (s *Stream) fail(err error) error {
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return err
}
