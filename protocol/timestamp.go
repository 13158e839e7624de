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

import "time"

// EncodeTimestamp packs a time into the device's 4-byte integer form
// (spec.md §4.1): ((yy·12+(mm−1))·31+(dd−1))·86400 + hh·3600 + mi·60 + ss,
// where yy = year mod 100.
func EncodeTimestamp(t time.Time) uint32 {
	yy := uint32(t.Year() % 100)
	mm := uint32(t.Month())
	dd := uint32(t.Day())
	hh := uint32(t.Hour())
	mi := uint32(t.Minute())
	ss := uint32(t.Second())
	return ((yy*12+(mm-1))*31+(dd-1))*86400 + hh*3600 + mi*60 + ss
}

// DecodeTimestamp inverts EncodeTimestamp, taking the year to be
// 2000+yy.
func DecodeTimestamp(v uint32) time.Time {
	second := v % 60
	v /= 60
	minute := v % 60
	v /= 60
	hour := v % 24
	v /= 24
	day := v%31 + 1
	v /= 31
	month := v%12 + 1
	v /= 12
	year := 2000 + v

	return time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second), 0, time.Local)
}

// ShortTimestamp is the 6-byte {year-2000, month, day, hour, minute,
// second} form used in live-capture records (spec.md §4.1).
type ShortTimestamp struct {
	Year   uint8 // offset from 2000
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// Time converts a ShortTimestamp to a time.Time.
func (s ShortTimestamp) Time() time.Time {
	return time.Date(2000+int(s.Year), time.Month(s.Month), int(s.Day), int(s.Hour), int(s.Minute), int(s.Second), 0, time.Local)
}

// DecodeShortTimestamp reads a 6-byte short timestamp from buf[0:6].
func DecodeShortTimestamp(buf []byte) ShortTimestamp {
	return ShortTimestamp{
		Year:   buf[0],
		Month:  buf[1],
		Day:    buf[2],
		Hour:   buf[3],
		Minute: buf[4],
		Second: buf[5],
	}
}

// EncodeShortTimestamp writes t as a 6-byte short timestamp.
func EncodeShortTimestamp(t time.Time) ShortTimestamp {
	return ShortTimestamp{
		Year:   uint8(t.Year() - 2000),
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
		Second: uint8(t.Second()),
	}
}
