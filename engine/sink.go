package engine

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Sink receives user-facing output from concurrent transfers. Each Statusf
// call is one whole line; implementations must not interleave lines.
type Sink interface {
	Statusf(format string, args ...any)
	// Progress returns a writer that is fed the bytes of a transfer as they
	// arrive. total is zero when the size is unknown.
	Progress(name string, total int64) io.WriteCloser
}

type discardSink struct{}

func (discardSink) Statusf(string, ...any) {}

func (discardSink) Progress(string, int64) io.WriteCloser { return nopWriteCloser{io.Discard} }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// DiscardSink drops all output.
var DiscardSink Sink = discardSink{}

// lineWriter splits a subprocess output stream into lines and forwards each
// non-empty one to a Sink, prefixed with the file being fetched.
type lineWriter struct {
	mu     sync.Mutex
	sink   Sink
	prefix string
	buf    bytes.Buffer
}

func newLineWriter(sink Sink, prefix string) *lineWriter {
	return &lineWriter{sink: sink, prefix: prefix}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexAny(w.buf.Bytes(), "\r\n")
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	w.sink.Statusf("%s: %s", w.prefix, line)
}
