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

// MakeCommKey derives the CMD_AUTH payload from the numeric password
// and the session id assigned by CMD_CONNECT (spec.md §4.1, ported from
// the reference implementation's commpro.c-derived make_commkey).
//
// It bit-reverses password into a 32-bit word, adds sessionID, XORs the
// four resulting bytes with "ZKSO", swaps the two 16-bit halves, then
// XORs byte-wise with a 1-byte tick counter — the third byte (index 2)
// of the result is replaced by the tick counter itself.
func MakeCommKey(password, sessionID uint32, tick uint8) [4]byte {
	var k uint32
	for i := 0; i < 32; i++ {
		if password&(1<<uint(i)) != 0 {
			k = (k << 1) | 1
		} else {
			k = k << 1
		}
	}
	k += sessionID

	b0 := byte(k)
	b1 := byte(k >> 8)
	b2 := byte(k >> 16)
	b3 := byte(k >> 24)

	b0 ^= 'Z'
	b1 ^= 'K'
	b2 ^= 'S'
	b3 ^= 'O'

	// Reinterpret (b0,b1,b2,b3) as two little-endian uint16 words and
	// swap them.
	lo := uint16(b0) | uint16(b1)<<8
	hi := uint16(b2) | uint16(b3)<<8
	lo, hi = hi, lo
	b0, b1 = byte(lo), byte(lo>>8)
	b2, b3 = byte(hi), byte(hi>>8)

	B := tick
	return [4]byte{b0 ^ B, b1 ^ B, B, b3 ^ B}
}
