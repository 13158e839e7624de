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

import "testing"

func TestMakeCommKeyDeterministic(t *testing.T) {
	a := MakeCommKey(12345, 999, 50)
	b := MakeCommKey(12345, 999, 50)
	if a != b {
		t.Fatalf("MakeCommKey not deterministic: %v != %v", a, b)
	}
}

func TestMakeCommKeyVariesWithSession(t *testing.T) {
	a := MakeCommKey(12345, 1, 50)
	b := MakeCommKey(12345, 2, 50)
	if a == b {
		t.Fatalf("MakeCommKey ignored session id")
	}
}

func TestMakeCommKeyTickIsThirdByte(t *testing.T) {
	key := MakeCommKey(0, 0, 77)
	if key[2] != 77 {
		t.Fatalf("expected third byte to be the tick counter, got %d", key[2])
	}
}
