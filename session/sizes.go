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

// Sizes reports the device's table capacities and current occupancy
// (spec.md SUPPLEMENTED FEATURES: "read-sizes / capacity counters"),
// parsed from CMD_GET_FREE_SIZES.
type Sizes struct {
	Users       uint32
	Fingers     uint32
	Records     uint32
	Cards       uint32
	UsersCap    uint32
	RecordsCap  uint32
	UsersFree   uint32
	RecordsFree uint32
}

// ReadSizes fetches and parses CMD_GET_FREE_SIZES. The device's reply
// layout is twenty little-endian int32 fields (spec.md SUPPLEMENTED
// FEATURES; matches the reference's read_sizes).
func (s *Session) ReadSizes() (Sizes, error) {
	reply, err := s.request(protocol.CmdGetFreeSizes, nil)
	if err != nil {
		return Sizes{}, err
	}
	if len(reply.Payload) < 80 {
		return Sizes{}, newErr(KindProtocol, nil)
	}
	u32 := func(i int) uint32 { return binary.LittleEndian.Uint32(reply.Payload[i*4 : i*4+4]) }
	return Sizes{
		Users:       u32(4),
		Fingers:     u32(6),
		Records:     u32(8),
		Cards:       u32(12),
		UsersCap:    u32(15),
		RecordsCap:  u32(16),
		UsersFree:   u32(18),
		RecordsFree: u32(19),
	}, nil
}
