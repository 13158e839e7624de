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
	"errors"
	"net"
	"time"

	"github.com/clockhub/zkcollector/protocol"
)

// LiveCapture implements the hot path (spec.md §4.2): it cancels any
// pending verify, starts verify mode, re-enables the device if it was
// disabled, registers for attendance events, then pulls frames with a
// soft timeout until StopCapture is called. On every pulled item it
// invokes fn; fn returning a non-nil error stops the loop early.
//
// softTimeout <= 0 selects DefaultSoftTimeout. A soft timeout is not an
// error; mid-stream, LiveCapture returns fn's error, any other recv
// error (network or protocol), or a failure to send the ACK, and each
// of these ends the stream (spec.md: "mid-stream errors terminate the
// stream, signalling the supervisor to reconnect").
func (s *Session) LiveCapture(softTimeout time.Duration, fn func(CaptureItem) error) error {
	s.mu.Lock()
	if !s.isConnected {
		s.mu.Unlock()
		return newErr(KindNotConnected, nil)
	}
	wasEnabled := s.isEnabled
	tr := s.tr
	s.mu.Unlock()

	if _, err := s.request(protocol.CmdCancelCapture, nil); err != nil {
		return err
	}
	if _, err := s.request(protocol.CmdStartVerify, nil); err != nil {
		return err
	}
	if !wasEnabled {
		if err := s.EnableDevice(); err != nil {
			return err
		}
	}
	if err := s.regEvent(protocol.EfAttlog); err != nil {
		return err
	}

	soft := softTimeout
	if soft <= 0 {
		soft = DefaultSoftTimeout
	}
	if err := tr.setDeadline(soft); err != nil {
		return newErr(KindNetwork, err)
	}

	s.endCapture.Store(false)
	defer func() {
		_ = tr.setDeadline(DefaultHardTimeout)
		_ = s.regEvent(0)
		if !wasEnabled {
			_ = s.DisableDevice()
		}
	}()

	for !s.endCapture.Load() {
		frame, err := tr.readFrame()
		if err != nil {
			if isTimeoutErr(err) {
				if cbErr := fn(CaptureItem{Tick: true}); cbErr != nil {
					return cbErr
				}
				if err := tr.setDeadline(soft); err != nil {
					return newErr(KindNetwork, err)
				}
				continue
			}
			return err
		}

		if err := s.ackOK(frame); err != nil {
			return err
		}

		if frame.Header.Command != protocol.CmdRegEvent {
			continue
		}
		for _, ev := range parseLiveCaptureFrame(frame.Payload) {
			if cbErr := fn(CaptureItem{Event: ev}); cbErr != nil {
				return cbErr
			}
		}
	}
	return nil
}

// StopCapture signals the running LiveCapture loop to return after its
// current iteration.
func (s *Session) StopCapture() { s.endCapture.Store(true) }

func (s *Session) regEvent(flags uint16) error {
	payload := []byte{byte(flags), byte(flags >> 8)}
	return s.singleOp(protocol.CmdRegEvent, payload)
}

// ackOK sends CMD_ACK_OK back to the device using the frame's own
// session/reply ids (spec.md I3: "every event is ACKed before the next
// receive"), without going through the request/response bookkeeping
// (live capture doesn't track the normal reply_id sequence).
func (s *Session) ackOK(frame protocol.Frame) error {
	s.mu.Lock()
	tr := s.tr
	s.mu.Unlock()
	ack := protocol.Encode(protocol.CmdAckOK, frame.Header.SessionID, frame.Header.ReplyID, nil)
	if err := tr.writeFrame(ack); err != nil {
		return newErr(KindNetwork, err)
	}
	return nil
}

// isTimeoutErr reports whether err is a network timeout, unwrapping the
// session.Error wrapper transport methods return.
func isTimeoutErr(err error) bool {
	var se *Error
	cause := err
	if errors.As(err, &se) {
		cause = se.Cause
	}
	var ne net.Error
	if errors.As(cause, &ne) {
		return ne.Timeout()
	}
	return false
}
