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

// Package protocol implements the ZKTeco time-clock wire format: frame
// layout, checksums, the TCP length prefix, and the device timestamp
// encodings. It has no notion of sockets or sessions — see package
// session for that.
package protocol

// Command codes, little-endian on the wire (spec.md §6). Where §4.2's
// prose and §6's constants table disagree on the ACK_* values, this
// module follows §6: it matches the values real firmware actually uses,
// and the §6 table is the one explicitly labelled "External Interfaces".
const (
	CmdConnect       = 1000
	CmdExit          = 1001
	CmdEnableDevice  = 1002
	CmdDisableDevice = 1003
	CmdRestart       = 1004
	CmdPoweroff      = 1005
	CmdRefreshData   = 1013
	CmdTestVoice     = 1017

	CmdGetVersion = 1100
	CmdAuth       = 1102

	CmdPrepareData = 1500
	CmdData        = 1501
	CmdFreeData    = 1502
	CmdReadBuffer  = 1503 // "read with buffer", command 1503 in spec.md §4.2
	CmdReadChunk   = 1504 // chunk fetch, command 1504 in spec.md §4.2

	CmdUserWRQ        = 8
	CmdUserTempRRQ    = 9
	CmdOptionsRRQ     = 11
	CmdOptionsWRQ     = 12
	CmdAttLogRRQ      = 13
	CmdClearData      = 14
	CmdClearAttLog    = 15
	CmdDeleteUser     = 18
	CmdDeleteUserTemp = 19

	CmdGetFreeSizes = 50

	CmdStartVerify   = 60
	CmdStartEnroll   = 61
	CmdCancelCapture = 62

	CmdGetPinWidth = 69

	CmdGetTime = 201
	CmdSetTime = 202

	CmdUnlock = 31

	CmdRegEvent = 500

	CmdAckOK      = 2000
	CmdAckError   = 2001
	CmdAckData    = 2002
	CmdAckUnknown = 2004
	CmdAckUnauth  = 2005

	// EfAttlog is the live-capture event filter flag for attendance
	// log events, the only one this collector registers for.
	EfAttlog = 1

	// DefaultPort is the ZK device's standard TCP/UDP listening port.
	DefaultPort = 4370

	// UshrtMax bounds the 16-bit reply-id wraparound (spec.md invariant I2).
	UshrtMax = 65535
)

// MagicWord1 and MagicWord2 are the two little-endian 16-bit words that
// open every TCP length prefix (spec.md §4.1).
const (
	MagicWord1 = 0x5050
	MagicWord2 = 0x0827
)
