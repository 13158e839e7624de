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
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/clockhub/zkcollector/protocol"
)

// transport hides the TCP/UDP framing difference behind one interface
// (spec.md §9: "keep them behind one Session Client interface with a
// transport strategy").
type transport interface {
	// writeFrame sends an already-encoded protocol frame (header+payload,
	// no TCP length prefix — transport adds its own framing).
	writeFrame(frame []byte) error
	// readFrame blocks for up to the transport's current deadline and
	// returns one decoded frame.
	readFrame() (protocol.Frame, error)
	// readChunk reads raw buffered-read body data: TCP returns exactly
	// n bytes, UDP returns one datagram's payload truncated to at most n.
	readChunk(n int) ([]byte, error)
	setDeadline(d time.Duration) error
	maxChunk() int
	close() error
}

const (
	tcpMaxChunk = 65472
	udpMaxChunk = 16384
	udpReadSize = 1032
)

// dialTransport opens either a TCP or UDP transport to addr per cfg.
func dialTransport(cfg DeviceConfig) (transport, error) {
	addr := net.JoinHostPort(cfg.IP, itoa(cfg.Port))
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	if cfg.ForceUDP {
		conn, err := net.DialTimeout("udp", addr, timeout)
		if err != nil {
			return nil, errors.Wrap(err, "dial udp")
		}
		return &udpTransport{conn: conn.(*net.UDPConn)}, nil
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "dial tcp")
	}
	return &tcpTransport{conn: conn.(*net.TCPConn)}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// --- TCP ---

type tcpTransport struct {
	conn    *net.TCPConn
	pending []byte // broken-header carry-over between reads
}

func (t *tcpTransport) writeFrame(frame []byte) error {
	_, err := t.conn.Write(protocol.WrapTCP(frame))
	return err
}

func (t *tcpTransport) readFrame() (protocol.Frame, error) {
	raw, err := t.readFramed()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Decode(raw)
}

// readFramed reads one length-prefixed TCP unit. It reads exactly the
// 8-byte prefix and then exactly the announced length, never past it,
// so a frame split across recvs is reassembled and bytes of a following
// frame stay in the socket for the next call.
func (t *tcpTransport) readFramed() ([]byte, error) {
	prefix, err := t.fill(protocol.LengthPrefixSize)
	if err != nil {
		return nil, err
	}
	length, err := protocol.ParseTCPPrefix(prefix)
	if err != nil {
		return nil, newErr(KindProtocol, err)
	}
	body, err := t.fill(int(length))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// fill returns exactly n bytes, first draining t.pending, then reading
// from the socket as needed.
func (t *tcpTransport) fill(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	if len(t.pending) > 0 {
		take := len(t.pending)
		if take > n {
			take = n
		}
		out = append(out, t.pending[:take]...)
		t.pending = t.pending[take:]
	}
	buf := make([]byte, 4096)
	for len(out) < n {
		need := n - len(out)
		readLen := len(buf)
		if readLen > need {
			readLen = need
		}
		k, err := t.conn.Read(buf[:readLen])
		if err != nil {
			return nil, newErr(KindNetwork, err)
		}
		out = append(out, buf[:k]...)
	}
	return out, nil
}

func (t *tcpTransport) readChunk(n int) ([]byte, error) {
	return t.fill(n)
}

func (t *tcpTransport) setDeadline(d time.Duration) error {
	if d <= 0 {
		return t.conn.SetDeadline(time.Time{})
	}
	return t.conn.SetDeadline(time.Now().Add(d))
}

func (t *tcpTransport) maxChunk() int { return tcpMaxChunk }

func (t *tcpTransport) close() error { return t.conn.Close() }

// --- UDP ---

type udpTransport struct {
	conn *net.UDPConn
}

func (u *udpTransport) writeFrame(frame []byte) error {
	_, err := u.conn.Write(frame)
	return err
}

func (u *udpTransport) readFrame() (protocol.Frame, error) {
	buf := make([]byte, udpReadSize)
	n, err := u.conn.Read(buf)
	if err != nil {
		return protocol.Frame{}, newErr(KindNetwork, err)
	}
	return protocol.Decode(buf[:n])
}

func (u *udpTransport) readChunk(n int) ([]byte, error) {
	buf := make([]byte, udpReadSize)
	k, err := u.conn.Read(buf)
	if err != nil {
		return nil, newErr(KindNetwork, err)
	}
	if k > n {
		k = n
	}
	return buf[:k], nil
}

func (u *udpTransport) setDeadline(d time.Duration) error {
	if d <= 0 {
		return u.conn.SetDeadline(time.Time{})
	}
	return u.conn.SetDeadline(time.Now().Add(d))
}

func (u *udpTransport) maxChunk() int { return udpMaxChunk }

func (u *udpTransport) close() error { return u.conn.Close() }
