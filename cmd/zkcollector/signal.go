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

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignal mirrors client/signal.go's init()-registered signal
// goroutine, but listens for SIGINT/SIGTERM and flips the
// orchestrator's shutdown flag (by cancelling ctx) instead of dumping
// SNMP counters. A second signal force-exits immediately, since a
// hung drain or upload should not block the operator from killing the
// process.
type shutdownSignal struct {
	ch chan os.Signal
}

func newShutdownSignal(cancel func()) *shutdownSignal {
	s := &shutdownSignal{ch: make(chan os.Signal, 2)}
	signal.Notify(s.ch, syscall.SIGINT, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)

	go func() {
		sig, ok := <-s.ch
		if !ok {
			return
		}
		log.Printf("received %v, shutting down", sig)
		cancel()

		sig, ok = <-s.ch
		if !ok {
			return
		}
		log.Printf("received %v again, forcing exit", sig)
		os.Exit(1)
	}()

	return s
}

func (s *shutdownSignal) stop() {
	signal.Stop(s.ch)
	close(s.ch)
}
