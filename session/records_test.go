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
	"testing"
	"time"

	"github.com/clockhub/zkcollector/protocol"
)

func TestParseAttendance8(t *testing.T) {
	rec := make([]byte, 8)
	binary.LittleEndian.PutUint16(rec[0:2], 42)
	rec[2] = 1 // status
	ts := protocol.EncodeTimestamp(time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local))
	binary.LittleEndian.PutUint32(rec[3:7], ts)
	rec[7] = 0 // punch

	events := parseAttendance8(rec, nil)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "42" || events[0].Status != 1 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestParseAttendance8JoinsAgainstUserIndex(t *testing.T) {
	rec := make([]byte, 8)
	binary.LittleEndian.PutUint16(rec[0:2], 42)
	ts := protocol.EncodeTimestamp(time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local))
	binary.LittleEndian.PutUint32(rec[3:7], ts)

	events := parseAttendance8(rec, userIndex{42: "E-1001"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "E-1001" {
		t.Fatalf("expected joined user_id \"E-1001\", got %q", events[0].UserID)
	}
}

func TestParseAttendance40(t *testing.T) {
	rec := make([]byte, 40)
	binary.LittleEndian.PutUint16(rec[0:2], 7)
	copy(rec[2:26], []byte("alice"))
	rec[26] = 1
	ts := protocol.EncodeTimestamp(time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local))
	binary.LittleEndian.PutUint32(rec[27:31], ts)
	rec[31] = 0

	events := parseAttendance40(rec)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "alice" {
		t.Fatalf("expected user_id 'alice', got %q", events[0].UserID)
	}
}

func TestParseAttendanceRecordsFailsClosedOnUnknownSize(t *testing.T) {
	if _, err := parseAttendanceRecords(make([]byte, 24), 24, nil); !IsKind(err, KindProtocol) {
		t.Fatalf("expected a Protocol error for unknown record size, got %v", err)
	}
}

func TestParseUser28ReadsTrailingUserID(t *testing.T) {
	rec := make([]byte, 28)
	binary.LittleEndian.PutUint16(rec[0:2], 3)
	rec[2] = 1 // privilege
	copy(rec[8:16], []byte("bob"))
	binary.LittleEndian.PutUint32(rec[24:28], 1007)

	users := parseUser28(rec)
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].UserID != "1007" {
		t.Fatalf("expected user_id \"1007\", got %q", users[0].UserID)
	}
}

func TestParseUser72ReadsTrailingUserID(t *testing.T) {
	rec := make([]byte, 72)
	binary.LittleEndian.PutUint16(rec[0:2], 9)
	rec[2] = 0
	copy(rec[11:35], []byte("carol"))
	copy(rec[48:72], []byte("E-2002"))

	users := parseUser72(rec)
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].UserID != "E-2002" {
		t.Fatalf("expected user_id \"E-2002\", got %q", users[0].UserID)
	}
}

func TestParseLiveCapture12ByteEvent(t *testing.T) {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 7)
	data[4] = 1 // status
	data[5] = 0 // punch
	short := protocol.EncodeShortTimestamp(time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local))
	copy(data[6:12], []byte{short.Year, short.Month, short.Day, short.Hour, short.Minute, short.Second})

	events := parseLiveCaptureFrame(data)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.UserID != "7" {
		t.Fatalf("expected user_id \"7\", got %q", ev.UserID)
	}
	want := time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp: got %v, want %v", ev.Timestamp, want)
	}
}

// TestParseLiveCaptureShortMalformedPayloadDoesNotPanic covers a
// REG_EVENT payload whose length is neither a full 12/32/36-byte record
// nor the true >=52-byte long form (spec.md §7: mid-stream errors must
// not crash the process). Before the fix, any such length fell into the
// default case and panicked slicing data[26:32].
func TestParseLiveCaptureShortMalformedPayloadDoesNotPanic(t *testing.T) {
	data := make([]byte, 20)

	events := parseLiveCaptureFrame(data)
	if len(events) != 0 {
		t.Fatalf("expected no events for a malformed payload, got %d", len(events))
	}
}
