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

// GetAttendance bulk-reads the historical punch log (spec.md §4.2). The
// per-record layout is chosen from the advertised size (total body size
// divided by the device's reported record count), per §9(a)'s decision
// to fail closed on unknown sizes rather than guess.
func (s *Session) GetAttendance() ([]AttendanceEvent, error) {
	sizes, err := s.ReadSizes()
	if err != nil {
		return nil, err
	}
	if sizes.Records == 0 {
		return nil, nil
	}

	users, err := s.GetUsers()
	if err != nil {
		return nil, err
	}
	index := make(userIndex, len(users))
	for _, u := range users {
		index[u.UID] = u.UserID
	}

	body, err := s.readWithBuffer(protocol.CmdAttLogRRQ, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(body) < 4 {
		return nil, nil
	}

	totalSize := binary.LittleEndian.Uint32(body[:4])
	recordSize := int(totalSize / sizes.Records)
	return parseAttendanceRecords(body[4:], recordSize, index)
}

// fctUser is the buffered-read "function" selector for the user table
// (CMD_USERTEMP_RRQ with fct=FCT_USER in the reference implementation).
const fctUser = 5

// GetUsers bulk-reads the device's user table (spec.md §4.2).
func (s *Session) GetUsers() ([]User, error) {
	sizes, err := s.ReadSizes()
	if err != nil {
		return nil, err
	}
	if sizes.Users == 0 {
		return nil, nil
	}

	body, err := s.readWithBuffer(protocol.CmdUserTempRRQ, fctUser, 0)
	if err != nil {
		return nil, err
	}
	if len(body) <= 4 {
		return nil, nil
	}

	totalSize := binary.LittleEndian.Uint32(body[:4])
	packetSize := int(totalSize / sizes.Users)
	s.mu.Lock()
	s.packetSize = packetSize
	s.mu.Unlock()
	return parseUserRecords(body[4:], packetSize), nil
}
