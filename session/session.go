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
	"sync/atomic"
	"time"

	"github.com/clockhub/zkcollector/protocol"
)

// Session is the live state of one Session Client (spec.md §3). A
// Session is created by Connect and destroyed by Disconnect or fault;
// it is not safe for concurrent request issuance (one device worker
// owns it), but end-live-capture may be signalled from another
// goroutine.
type Session struct {
	cfg DeviceConfig

	mu          sync.Mutex
	tr          transport
	sessionID   uint16
	replyID     uint16
	isConnected bool
	isEnabled   bool
	packetSize  int
	trace       *traceWriter

	endCapture atomic.Bool
}

// New constructs an unconnected Session for cfg.
func New(cfg DeviceConfig) *Session {
	return &Session{cfg: cfg, isEnabled: true, packetSize: UserPacketSizeShort}
}

// Connect opens the transport and performs the CONNECT/AUTH handshake
// (spec.md §4.2).
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, err := dialTransport(s.cfg)
	if err != nil {
		return newErr(KindNetwork, err)
	}
	s.tr = tr
	s.replyID = 0
	s.sessionID = 0
	s.isConnected = false

	if err := s.tr.setDeadline(DefaultHardTimeout); err != nil {
		return newErr(KindNetwork, err)
	}

	reply, err := s.doRequest(protocol.CmdConnect, nil)
	if err != nil {
		s.closeLocked()
		return err
	}
	s.sessionID = reply.Header.SessionID

	switch reply.Header.Command {
	case protocol.CmdAckOK:
		s.isConnected = true
		s.negotiatePacketSize()
		return nil
	case protocol.CmdAckUnauth:
		key := protocol.MakeCommKey(s.cfg.Password, uint32(s.sessionID), 50)
		authReply, err := s.doRequest(protocol.CmdAuth, key[:])
		if err != nil {
			s.closeLocked()
			return err
		}
		if authReply.Header.Command != protocol.CmdAckOK {
			s.closeLocked()
			return newErr(KindUnauth, nil)
		}
		s.isConnected = true
		s.negotiatePacketSize()
		return nil
	default:
		s.closeLocked()
		return newErr(KindProtocol, nil)
	}
}

// negotiatePacketSize applies the optional TCP pre-check (spec.md
// §4.2/§9); caller must hold s.mu.
func (s *Session) negotiatePacketSize() {
	if s.cfg.ProbeLongPacket && ProbePacketSize(s.cfg.IP, s.cfg.Port) {
		s.packetSize = UserPacketSizeLong
	}
}

// Disconnect is idempotent and safe to call after a fault.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return nil
	}
	if s.isConnected {
		_, _ = s.doRequest(protocol.CmdExit, nil) // best-effort
	}
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	s.isConnected = false
	if s.tr == nil {
		return nil
	}
	err := s.tr.close()
	s.tr = nil
	return err
}

// IsConnected reports the session's current connection state.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isConnected
}

// SerialNumber returns the configured device serial, used throughout
// logging.
func (s *Session) SerialNumber() string { return s.cfg.SerialNumber }

// EnableTrace starts recording each request frame and its immediate
// reply on this session to dst, compressed with snappy (spec.md
// SUPPLEMENTED FEATURES: field diagnosis of protocol issues). Call
// before or after Connect; recording covers whatever requests follow
// the call. Frames read or ACKed inside LiveCapture, and the follow-on
// CMD_DATA frames of a legacy buffered read, are not recorded.
func (s *Session) EnableTrace(dst io.Writer) {
	s.attach(newTraceWriter(dst))
}

// DisableTrace stops recording.
func (s *Session) DisableTrace() {
	s.attach(nil)
}

// request sends command/payload and returns the decoded reply,
// enforcing the "must be connected" rule for everything except CONNECT
// and AUTH (spec.md §4.2).
func (s *Session) request(command uint16, payload []byte) (protocol.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isConnected && command != protocol.CmdConnect && command != protocol.CmdAuth {
		return protocol.Frame{}, newErr(KindNotConnected, nil)
	}
	return s.doRequest(command, payload)
}

// doRequest is the request/response core (spec.md §4.2); caller must
// hold s.mu.
func (s *Session) doRequest(command uint16, payload []byte) (protocol.Frame, error) {
	s.replyID = (s.replyID + 1) % protocol.UshrtMax
	if err := s.tr.setDeadline(DefaultHardTimeout); err != nil {
		s.isConnected = false
		return protocol.Frame{}, newErr(KindNetwork, err)
	}
	frame := protocol.Encode(command, s.sessionID, s.replyID, payload)
	if s.trace != nil {
		_ = s.trace.record(directionSend, frame)
	}
	if err := s.tr.writeFrame(frame); err != nil {
		s.isConnected = false
		return protocol.Frame{}, newErr(KindNetwork, err)
	}

	reply, err := s.tr.readFrame()
	if err != nil {
		s.isConnected = false
		return protocol.Frame{}, err
	}
	if s.trace != nil {
		_ = s.trace.record(directionRecv, protocol.Encode(reply.Header.Command, reply.Header.SessionID, reply.Header.ReplyID, reply.Payload))
	}
	s.replyID = reply.Header.ReplyID

	switch reply.Header.Command {
	case protocol.CmdAckOK, protocol.CmdPrepareData, protocol.CmdData:
		return reply, nil
	case protocol.CmdAckUnauth:
		return reply, nil // caller interprets context-dependently (handshake vs. op)
	default:
		return reply, newErr(KindProtocol, nil)
	}
}

// singleOp issues command with payload and succeeds iff the device
// answers CMD_ACK_OK.
func (s *Session) singleOp(command uint16, payload []byte) error {
	reply, err := s.request(command, payload)
	if err != nil {
		return err
	}
	if reply.Header.Command != protocol.CmdAckOK {
		return newErr(KindProtocol, nil)
	}
	return nil
}

// GetTime reads the device clock.
func (s *Session) GetTime() (time.Time, error) {
	reply, err := s.request(protocol.CmdGetTime, nil)
	if err != nil {
		return time.Time{}, err
	}
	if len(reply.Payload) < 4 {
		return time.Time{}, newErr(KindProtocol, nil)
	}
	v := uint32(reply.Payload[0]) | uint32(reply.Payload[1])<<8 | uint32(reply.Payload[2])<<16 | uint32(reply.Payload[3])<<24
	return protocol.DecodeTimestamp(v), nil
}

// SetTime writes the device clock.
func (s *Session) SetTime(t time.Time) error {
	v := protocol.EncodeTimestamp(t)
	payload := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return s.singleOp(protocol.CmdSetTime, payload)
}

// ClearAttendance clears the on-device attendance log.
func (s *Session) ClearAttendance() error { return s.singleOp(protocol.CmdClearAttLog, nil) }

// EnableDevice re-enables the device's own user input.
func (s *Session) EnableDevice() error {
	err := s.singleOp(protocol.CmdEnableDevice, nil)
	if err == nil {
		s.mu.Lock()
		s.isEnabled = true
		s.mu.Unlock()
	}
	return err
}

// DisableDevice disables the device's own user input (used transiently
// around live-capture setup).
func (s *Session) DisableDevice() error {
	err := s.singleOp(protocol.CmdDisableDevice, nil)
	if err == nil {
		s.mu.Lock()
		s.isEnabled = false
		s.mu.Unlock()
	}
	return err
}

// Restart power-cycles the device.
func (s *Session) Restart() error { return s.singleOp(protocol.CmdRestart, nil) }

// Poweroff shuts the device down.
func (s *Session) Poweroff() error { return s.singleOp(protocol.CmdPoweroff, nil) }

// RefreshData asks the device to reload its in-memory tables from flash.
func (s *Session) RefreshData() error { return s.singleOp(protocol.CmdRefreshData, nil) }

// Unlock pulses the door relay for the given number of seconds.
func (s *Session) Unlock(seconds int) error {
	v := uint32(seconds * 10) // device units are deciseconds in the wild
	payload := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return s.singleOp(protocol.CmdUnlock, payload)
}

// GetOption implements the generic "~Key" CMD_OPTIONS_RRQ read used for
// device identification (serial number, firmware platform, name).
func (s *Session) GetOption(key string) (string, error) {
	payload := append([]byte("~"+key), 0)
	reply, err := s.request(protocol.CmdOptionsRRQ, payload)
	if err != nil {
		return "", err
	}
	return parseOptionReply(reply.Payload, key), nil
}

func parseOptionReply(payload []byte, key string) string {
	s := string(payload)
	prefix := "~" + key + "="
	idx := indexOf(s, prefix)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(prefix):]
	if nul := indexOfByte(rest, 0); nul >= 0 {
		rest = rest[:nul]
	}
	return rest
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func indexOfByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
