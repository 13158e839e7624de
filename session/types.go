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

// Package session implements the ZKTeco Session Client (spec.md's C2):
// connect/auth handshake, request/response framing, the two buffered-read
// variants, and the live-capture stream. It builds frames with package
// protocol but owns the socket, session_id/reply_id bookkeeping, and all
// device-facing operations.
package session

import "time"

// DeviceConfig is the static, immutable-during-a-run description of one
// device (spec.md §3).
type DeviceConfig struct {
	IP                string
	Port              int
	SerialNumber      string
	DisplayName       string
	ConnectTimeout    time.Duration
	ForceUDP          bool
	Password          uint32
	SyncTimeOnConnect bool

	// ProbeLongPacket enables the optional TCP reachability pre-check
	// (spec.md §4.2/§9): when it succeeds, Connect negotiates the long
	// (72-byte) user record layout instead of the short default.
	ProbeLongPacket bool
}

// DefaultConnectTimeout is used when DeviceConfig.ConnectTimeout is zero.
const DefaultConnectTimeout = 4 * time.Second

// DefaultHardTimeout bounds every request/response exchange outside live
// capture (spec.md §5).
const DefaultHardTimeout = 60 * time.Second

// DefaultSoftTimeout is the live-capture receive timeout that yields a
// Tick sentinel (spec.md §4.2/§5).
const DefaultSoftTimeout = 2 * time.Second

// userPacketSize negotiated with the device; spec.md §4.2.
const (
	UserPacketSizeShort = 28
	UserPacketSizeLong  = 72
)

// AttendanceEvent is one punch, as captured from the device (spec.md §3).
// Immutable once captured.
type AttendanceEvent struct {
	UID       uint16
	UserID    string
	Timestamp time.Time
	Status    uint8
	Punch     uint8
}

// User is one row of the device's user table (spec.md §4.2 get_users).
// UserID is the device's configured identifier, distinct from UID (the
// device's internal table index): short (28-byte) records carry it as a
// trailing uint32, long (72-byte) records as a trailing NUL-padded
// string.
type User struct {
	UID        uint16
	UserID     string
	Name       string
	Privilege  uint8
	Password   string
	CardNumber uint32
}

// CaptureItem is what LiveCapture's stream yields. When Tick is true the
// item carries no event — it's a soft-timeout cancellation checkpoint
// (spec.md §4.2's generator "yields None on timeout").
type CaptureItem struct {
	Event AttendanceEvent
	Tick  bool
}
