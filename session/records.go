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
	"strconv"
	"strings"

	"github.com/clockhub/zkcollector/protocol"
)

// userIndex maps a device's internal uid to its configured user_id, built
// from a prior GetUsers() call (spec.md §4.2 get_attendance: "joins
// attendance records against the live user list").
type userIndex map[uint16]string

// parseAttendanceRecords splits a buffered-read attendance body into
// events, dispatching on the advertised per-record size (spec.md §9(a):
// "parse by the advertised record size ... and fail closed on unknown
// sizes"). users resolves the 8-byte format's bare uid to a real user_id;
// it may be nil, in which case the uid itself is reported as the user_id
// (matching the original's no-match fallback).
func parseAttendanceRecords(data []byte, recordSize int, users userIndex) ([]AttendanceEvent, error) {
	switch recordSize {
	case 8:
		return parseAttendance8(data, users), nil
	case 16:
		return parseAttendance16(data), nil
	case 40:
		return parseAttendance40(data), nil
	default:
		return nil, newErr(KindProtocol, nil)
	}
}

func parseAttendance8(data []byte, users userIndex) []AttendanceEvent {
	var out []AttendanceEvent
	for len(data) >= 8 {
		rec := data[:8]
		data = data[8:]
		uid := binary.LittleEndian.Uint16(rec[0:2])
		status := rec[2]
		ts := binary.LittleEndian.Uint32(rec[3:7])
		punch := rec[7]
		userID, ok := users[uid]
		if !ok {
			userID = strconv.Itoa(int(uid))
		}
		out = append(out, AttendanceEvent{
			UID:       uid,
			UserID:    userID,
			Status:    status,
			Punch:     punch,
			Timestamp: protocol.DecodeTimestamp(ts),
		})
	}
	return out
}

func parseAttendance16(data []byte) []AttendanceEvent {
	var out []AttendanceEvent
	for len(data) >= 16 {
		rec := data[:16]
		data = data[16:]
		userID := binary.LittleEndian.Uint32(rec[0:4])
		ts := binary.LittleEndian.Uint32(rec[4:8])
		status := rec[8]
		punch := rec[9]
		// rec[10:12] reserved, rec[12:16] workcode — unused.
		out = append(out, AttendanceEvent{
			UserID:    strconv.Itoa(int(userID)),
			Status:    status,
			Punch:     punch,
			Timestamp: protocol.DecodeTimestamp(ts),
		})
	}
	return out
}

func parseAttendance40(data []byte) []AttendanceEvent {
	var out []AttendanceEvent
	for len(data) >= 40 {
		rec := data[:40]
		data = data[40:]
		uid := binary.LittleEndian.Uint16(rec[0:2])
		userID := cstring(rec[2:26])
		status := rec[26]
		ts := binary.LittleEndian.Uint32(rec[27:31])
		punch := rec[31]
		if userID == "" {
			userID = strconv.Itoa(int(uid))
		}
		out = append(out, AttendanceEvent{
			UID:       uid,
			UserID:    userID,
			Status:    status,
			Punch:     punch,
			Timestamp: protocol.DecodeTimestamp(ts),
		})
	}
	return out
}

// cstring trims a fixed-width NUL-padded ASCII field.
func cstring(b []byte) string {
	if i := indexOfByteSlice(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

func indexOfByteSlice(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// parseUserRecords splits a buffered-read user-list body, dispatching on
// the negotiated packet size (28 or 72 bytes, spec.md §4.2).
func parseUserRecords(data []byte, packetSize int) []User {
	switch packetSize {
	case UserPacketSizeLong:
		return parseUser72(data)
	default:
		return parseUser28(data)
	}
}

func parseUser28(data []byte) []User {
	var out []User
	for len(data) >= 28 {
		rec := data[:28]
		data = data[28:]
		uid := binary.LittleEndian.Uint16(rec[0:2])
		privilege := rec[2]
		password := cstring(rec[3:8])
		name := cstring(rec[8:16])
		card := binary.LittleEndian.Uint32(rec[16:20])
		userID := strconv.Itoa(int(binary.LittleEndian.Uint32(rec[24:28])))
		out = append(out, User{UID: uid, UserID: userID, Name: name, Privilege: privilege, Password: password, CardNumber: card})
	}
	return out
}

func parseUser72(data []byte) []User {
	var out []User
	for len(data) >= 72 {
		rec := data[:72]
		data = data[72:]
		uid := binary.LittleEndian.Uint16(rec[0:2])
		privilege := rec[2]
		password := cstring(rec[3:11])
		name := cstring(rec[11:35])
		card := binary.LittleEndian.Uint32(rec[35:39])
		userID := cstring(rec[48:72])
		out = append(out, User{UID: uid, UserID: userID, Name: name, Privilege: privilege, Password: password, CardNumber: card})
	}
	return out
}

// parseLiveCaptureFrame decodes one REG_EVENT payload into its
// constituent records, by length (spec.md §4.2's table of 12/32/36/>=52
// byte layouts).
func parseLiveCaptureFrame(data []byte) []AttendanceEvent {
	var out []AttendanceEvent
	for len(data) >= 12 {
		var userID string
		var status, punch byte
		var timehex []byte
		var consumed int

		switch {
		case len(data) == 12:
			userIDRaw := binary.LittleEndian.Uint32(data[0:4])
			userID = strconv.Itoa(int(userIDRaw))
			status = data[4]
			punch = data[5]
			timehex = data[6:12]
			consumed = 12
		case len(data) == 32:
			userID = cstring(data[0:24])
			status = data[24]
			punch = data[25]
			timehex = data[26:32]
			consumed = 32
		case len(data) == 36:
			userID = cstring(data[0:24])
			status = data[24]
			punch = data[25]
			timehex = data[26:32]
			consumed = 36
		default:
			if len(data) < 52 {
				// Short/malformed trailing record: nothing further in
				// this frame can be parsed safely.
				return out
			}
			userID = cstring(data[0:24])
			status = data[24]
			punch = data[25]
			timehex = data[26:32]
			consumed = 52
		}

		short := protocol.DecodeShortTimestamp(timehex)
		out = append(out, AttendanceEvent{
			UserID:    userID,
			Status:    status,
			Punch:     punch,
			Timestamp: short.Time(),
		})

		if consumed >= len(data) {
			break
		}
		data = data[consumed:]
	}
	return out
}
