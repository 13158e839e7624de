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

import (
	"testing"
	"time"
)

func TestTimestampRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2025, time.January, 15, 9, 30, 0, 0, time.Local),
		time.Date(2000, time.March, 1, 0, 0, 0, 0, time.Local),
		time.Date(2099, time.December, 31, 23, 59, 59, 0, time.Local),
	}

	for _, want := range cases {
		encoded := EncodeTimestamp(want)
		got := DecodeTimestamp(encoded)
		if !got.Equal(want) {
			t.Fatalf("round trip mismatch: want %v, got %v (encoded %d)", want, got, encoded)
		}
	}
}

func TestShortTimestampRoundTrip(t *testing.T) {
	want := time.Date(2025, time.January, 15, 9, 30, 0, 0, time.Local)
	short := EncodeShortTimestamp(want)
	if short.Year != 25 || short.Month != 1 || short.Day != 15 || short.Hour != 9 || short.Minute != 30 || short.Second != 0 {
		t.Fatalf("unexpected short timestamp: %+v", short)
	}

	got := DecodeShortTimestamp([]byte{short.Year, short.Month, short.Day, short.Hour, short.Minute, short.Second})
	if !got.Time().Equal(want) {
		t.Fatalf("short timestamp round trip mismatch: want %v, got %v", want, got.Time())
	}
}
