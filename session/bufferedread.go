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
	"encoding/binary"

	"github.com/clockhub/zkcollector/protocol"
)

const maxChunkRetries = 3

// readWithBuffer implements both buffered-read variants (spec.md §4.2):
// the legacy PREPARE_DATA/DATA/ACK_OK stream and, when the device
// prefers it, the chunked 1503/1504 protocol. It returns the
// concatenated body.
func (s *Session) readWithBuffer(command uint16, fct, ext uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.doRequest(command, nil)
	if err != nil {
		return nil, err
	}

	switch reply.Header.Command {
	case protocol.CmdData:
		return reply.Payload, nil
	case protocol.CmdPrepareData:
		return s.readLegacyStreamLocked(reply.Payload)
	default:
		return s.readChunkedLocked(command, fct, ext)
	}
}

// readLegacyStreamLocked drains CMD_DATA frames until CMD_ACK_OK
// terminates the stream; the first reply's payload carries the 4-byte
// total size.
func (s *Session) readLegacyStreamLocked(firstPayload []byte) ([]byte, error) {
	var total uint32
	if len(firstPayload) >= 4 {
		total = binary.LittleEndian.Uint32(firstPayload[:4])
	}
	_ = total // informative only; stream is still terminated by ACK_OK

	var body []byte
	for {
		frame, err := s.tr.readFrame()
		if err != nil {
			return nil, err
		}
		switch frame.Header.Command {
		case protocol.CmdData:
			body = append(body, frame.Payload...)
		case protocol.CmdAckOK:
			return body, nil
		default:
			return nil, newErr(KindProtocol, nil)
		}
	}
}

// readChunkedLocked implements the 1503/1504 protocol.
func (s *Session) readChunkedLocked(command uint16, fct, ext uint32) ([]byte, error) {
	payload := make([]byte, 11)
	payload[0] = 1
	binary.LittleEndian.PutUint16(payload[1:3], command)
	binary.LittleEndian.PutUint32(payload[3:7], fct)
	binary.LittleEndian.PutUint32(payload[7:11], ext)

	reply, err := s.doRequest(protocol.CmdReadBuffer, payload)
	if err != nil {
		return nil, err
	}
	if len(reply.Payload) < 5 {
		return nil, newErr(KindProtocol, nil)
	}
	size := binary.LittleEndian.Uint32(reply.Payload[1:5])

	maxChunk := uint32(s.tr.maxChunk())
	body := make([]byte, 0, size)
	var start uint32
	for start < size {
		n := maxChunk
		if size-start < n {
			n = size - start
		}
		chunk, err := s.readChunkWithRetryLocked(start, n)
		if err != nil {
			return nil, err
		}
		body = append(body, chunk...)
		start += n
	}

	if _, err := s.doRequest(protocol.CmdFreeData, nil); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Session) readChunkWithRetryLocked(start, size uint32) ([]byte, error) {
	req := make([]byte, 8)
	binary.LittleEndian.PutUint32(req[0:4], start)
	binary.LittleEndian.PutUint32(req[4:8], size)

	var lastErr error
	for attempt := 0; attempt < maxChunkRetries; attempt++ {
		reply, err := s.doRequest(protocol.CmdReadChunk, req)
		if err != nil {
			lastErr = err
			continue
		}
		return reply.Payload, nil
	}
	return nil, lastErr
}
