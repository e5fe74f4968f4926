package deploy

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// LineSink receives job log lines in chronological order.
type LineSink interface {
	WriteLine(line string) error
}

// LineSinkFunc adapts a function to LineSink.
type LineSinkFunc func(line string) error

func (f LineSinkFunc) WriteLine(line string) error { return f(line) }

// WriterSink writes each line to w, adding a newline when the line lacks one.
type WriterSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

func (s *WriterSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if !strings.HasSuffix(line, "\n") {
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

type discardSink struct{}

func (discardSink) WriteLine(string) error { return nil }

// Discard drops every line.
var Discard LineSink = discardSink{}
