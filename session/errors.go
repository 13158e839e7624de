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

import "github.com/pkg/errors"

// Kind classifies a session error the way spec.md §7 names them, so
// callers (supervisor, uploader) can branch on cause rather than on
// error text.
type Kind int

const (
	// KindNetwork covers socket errors and hard-timeout expiry.
	KindNetwork Kind = iota
	// KindUnauth means the device rejected the auth key.
	KindUnauth
	// KindProtocol covers bad TCP magic, unexpected command codes and
	// malformed reply payloads. Received frame checksums are not
	// verified, and a frame shorter than a header surfaces as
	// protocol.ErrShortFrame rather than as a KindProtocol error.
	KindProtocol
	// KindNotConnected means an operation was issued on a closed session.
	KindNotConnected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauth:
		return "unauth"
	case KindProtocol:
		return "protocol"
	case KindNotConnected:
		return "not_connected"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so session/supervisor code
// can dispatch on it with errors.As.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// newErr wraps cause (which may be nil) with kind, attaching a stack via
// pkg/errors when cause itself carries none.
func newErr(kind Kind, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Cause: cause}
}

// IsKind reports whether err (or something it wraps) is a session Error
// of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
