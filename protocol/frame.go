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

package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize is the fixed 8-byte header: command, checksum, session_id,
// reply_id, each a little-endian uint16.
const HeaderSize = 8

// LengthPrefixSize is the 8-byte TCP framing prefix: MAGIC1, MAGIC2,
// then a 32-bit little-endian payload-plus-header length.
const LengthPrefixSize = 8

// ErrShortFrame is returned when a byte slice is too small to contain a
// header.
var ErrShortFrame = errors.New("protocol: frame shorter than header")

// Header is the four little-endian 16-bit fields that open every frame.
type Header struct {
	Command   uint16
	Checksum  uint16
	SessionID uint16
	ReplyID   uint16
}

// Frame is a decoded header plus its payload.
type Frame struct {
	Header  Header
	Payload []byte
}

// Checksum computes the frame checksum (spec.md §4.1): the one's
// complement of the folded 16-bit sum of the header (with its checksum
// field zeroed) concatenated with the payload. Intermediate sums that
// exceed 65535 have 65535 subtracted (end-around carry fold); a
// trailing odd byte is added as-is.
func Checksum(header Header, payload []byte) uint16 {
	zeroed := header
	zeroed.Checksum = 0
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = appendHeader(buf, zeroed)
	buf = append(buf, payload...)

	var sum uint32
	i := 0
	for ; i+1 < len(buf); i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(buf[i : i+2]))
		if sum > 0xFFFF {
			sum -= 0xFFFF
		}
	}
	if i < len(buf) {
		sum += uint32(buf[i])
		if sum > 0xFFFF {
			sum -= 0xFFFF
		}
	}

	inverted := ^uint16(sum)
	return inverted
}

func appendHeader(buf []byte, h Header) []byte {
	var tmp [HeaderSize]byte
	binary.LittleEndian.PutUint16(tmp[0:2], h.Command)
	binary.LittleEndian.PutUint16(tmp[2:4], h.Checksum)
	binary.LittleEndian.PutUint16(tmp[4:6], h.SessionID)
	binary.LittleEndian.PutUint16(tmp[6:8], h.ReplyID)
	return append(buf, tmp[:]...)
}

// Encode serialises a frame (header with checksum filled in, followed
// by the payload) without any TCP length prefix.
func Encode(command, sessionID, replyID uint16, payload []byte) []byte {
	h := Header{Command: command, SessionID: sessionID, ReplyID: replyID}
	h.Checksum = Checksum(h, payload)
	buf := appendHeader(make([]byte, 0, HeaderSize+len(payload)), h)
	return append(buf, payload...)
}

// Decode parses a raw frame (header + payload, no TCP length prefix).
func Decode(raw []byte) (Frame, error) {
	if len(raw) < HeaderSize {
		return Frame{}, ErrShortFrame
	}
	h := Header{
		Command:   binary.LittleEndian.Uint16(raw[0:2]),
		Checksum:  binary.LittleEndian.Uint16(raw[2:4]),
		SessionID: binary.LittleEndian.Uint16(raw[4:6]),
		ReplyID:   binary.LittleEndian.Uint16(raw[6:8]),
	}
	payload := raw[HeaderSize:]
	return Frame{Header: h, Payload: append([]byte(nil), payload...)}, nil
}

// WrapTCP prepends the 8-byte TCP length prefix (MAGIC1, MAGIC2, then
// the little-endian length of frame) ahead of an already-encoded frame.
func WrapTCP(frame []byte) []byte {
	out := make([]byte, 0, LengthPrefixSize+len(frame))
	var prefix [LengthPrefixSize]byte
	binary.LittleEndian.PutUint16(prefix[0:2], MagicWord1)
	binary.LittleEndian.PutUint16(prefix[2:4], MagicWord2)
	binary.LittleEndian.PutUint32(prefix[4:8], uint32(len(frame)))
	out = append(out, prefix[:]...)
	return append(out, frame...)
}

// ParseTCPPrefix validates and extracts the length announced by an
// 8-byte TCP length prefix.
func ParseTCPPrefix(prefix []byte) (length uint32, err error) {
	if len(prefix) < LengthPrefixSize {
		return 0, ErrShortFrame
	}
	m1 := binary.LittleEndian.Uint16(prefix[0:2])
	m2 := binary.LittleEndian.Uint16(prefix[2:4])
	if m1 != MagicWord1 || m2 != MagicWord2 {
		return 0, errors.Errorf("protocol: bad TCP magic %04x %04x", m1, m2)
	}
	return binary.LittleEndian.Uint32(prefix[4:8]), nil
}
