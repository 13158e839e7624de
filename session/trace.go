// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package session

import (
	"io"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// traceWriter is an optional field-diagnostics recorder: every request
// frame a Session sends through its request/response path, and the
// reply read for it, is appended as a small snappy-compressed record,
// so a protocol dispute in the field can be inspected afterwards.
// Live-capture event frames and their ACKs are not recorded.
//
// It wraps an io.Writer the same way std's CompStream wraps a
// net.Conn, trading the stream-socket framing for a length-prefixed
// record framing suited to an append-only trace file.
type traceWriter struct {
	mu sync.Mutex
	w  *snappy.Writer
}

// newTraceWriter wraps dst. Callers are responsible for opening and
// eventually closing dst (typically an *os.File opened O_APPEND).
func newTraceWriter(dst io.Writer) *traceWriter {
	return &traceWriter{w: snappy.NewBufferedWriter(dst)}
}

// direction distinguishes a sent frame from a received one in the
// trace file.
type direction byte

const (
	directionSend direction = 's'
	directionRecv direction = 'r'
)

// record appends one frame: a 1-byte direction, an 8-byte
// millisecond timestamp, a 4-byte little-endian length, then the raw
// frame bytes.
func (t *traceWriter) record(dir direction, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := make([]byte, 13)
	header[0] = byte(dir)
	ms := uint64(time.Now().UnixMilli())
	for i := 0; i < 8; i++ {
		header[1+i] = byte(ms >> (8 * i))
	}
	n := uint32(len(frame))
	header[9] = byte(n)
	header[10] = byte(n >> 8)
	header[11] = byte(n >> 16)
	header[12] = byte(n >> 24)

	if _, err := t.w.Write(header); err != nil {
		return err
	}
	if _, err := t.w.Write(frame); err != nil {
		return err
	}
	return t.w.Flush()
}

// attach installs tr as s's wire-trace recorder. A nil tr disables
// tracing (the default).
func (s *Session) attach(tr *traceWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = tr
}
