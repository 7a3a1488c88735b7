// Package prefixw provides an io.Writer that prefixes every written line
// with a fixed name, so interleaved output from several background tasks
// stays attributable.
package prefixw

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Writer stamps "[name] " onto every line it forwards. A line split
// across several writes is held back until its newline arrives, so
// subprocess output chunked at arbitrary boundaries still renders as
// whole lines. Writes are serialized, making a single Writer safe to
// share between a subprocess's stdout and stderr.
type Writer struct {
	name string
	w    io.Writer
	mu   sync.Mutex
	rest []byte
}

// New wraps the given writer. Callers done writing should Close the
// Writer so a final unterminated line is not lost.
func New(name string, w io.Writer) *Writer {
	return &Writer{name: name, w: w}
}

func (pw *Writer) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	data := p
	if len(pw.rest) > 0 {
		data = append(pw.rest, p...)
	}
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]
		if len(line) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(pw.w, "[%s] %s\n", pw.name, line); err != nil {
			pw.rest = nil
			return 0, err
		}
	}
	// data may alias the caller's buffer, which it is free to reuse.
	pw.rest = append(pw.rest[:0:0], data...)

	// Report the full input as consumed; the prefix bytes are ours.
	return len(p), nil
}

// Close flushes a buffered unterminated line, if any. The underlying
// writer is left open.
func (pw *Writer) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if len(pw.rest) == 0 {
		return nil
	}
	line := pw.rest
	pw.rest = nil
	_, err := fmt.Fprintf(pw.w, "[%s] %s\n", pw.name, line)
	return err
}
