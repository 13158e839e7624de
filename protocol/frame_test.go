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

import "testing"

func TestChecksumRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	frame := Encode(CmdConnect, 0, 7, payload)

	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	want := Checksum(decoded.Header, decoded.Payload)
	if decoded.Header.Checksum != want {
		t.Fatalf("checksum mismatch: header has %d, recomputed %d", decoded.Header.Checksum, want)
	}
}

func TestChecksumOddLength(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	frame := Encode(CmdAuth, 42, 1, payload)

	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if Checksum(decoded.Header, decoded.Payload) != decoded.Header.Checksum {
		t.Fatalf("checksum mismatch on odd-length payload")
	}
}

func TestDecodeShortFrame(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestWrapTCPAndParsePrefix(t *testing.T) {
	frame := Encode(CmdExit, 1, 1, nil)
	wrapped := WrapTCP(frame)

	length, err := ParseTCPPrefix(wrapped[:LengthPrefixSize])
	if err != nil {
		t.Fatalf("ParseTCPPrefix returned error: %v", err)
	}
	if int(length) != len(frame) {
		t.Fatalf("length mismatch: got %d, want %d", length, len(frame))
	}
}

func TestParseTCPPrefixBadMagic(t *testing.T) {
	bad := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := ParseTCPPrefix(bad); err == nil {
		t.Fatalf("expected error for bad magic words")
	}
}
