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

// Package supervisor implements the Device Supervisor (spec.md's C4): one
// fault-tolerant live-capture worker per device, a bounded drain queue into
// the store, and per-device status reporting.
package supervisor

import (
	"context"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/thejerf/suture/v4"

	"github.com/clockhub/zkcollector/session"
	"github.com/clockhub/zkcollector/store"
)

const (
	defaultQueueSize  = 1024
	backoffStart      = 5 * time.Second
	backoffCap        = 60 * time.Second
	disconnectDeadline = 5 * time.Second
)

// QueuedEvent is one captured punch plus the device provenance the
// drain worker needs to persist it (spec.md §4.4).
type QueuedEvent struct {
	Event    session.AttendanceEvent
	DeviceIP string
	DeviceSN string
}

// Status is a point-in-time snapshot for one device (spec.md §4.4
// get_device_status).
type Status struct {
	Connected         bool
	LastDeviceTime    time.Time
	LastEventTime     time.Time
	ConsecutiveErrors int
}

// Supervisor owns one suture.Supervisor with one Service per configured
// device, plus the shared bounded queue events are drained through into
// the Store.
type Supervisor struct {
	sup    *suture.Supervisor
	queue  chan QueuedEvent
	st     *store.Store
	logger *log.Logger

	workers map[string]*deviceWorker
}

// New constructs a Supervisor for the given devices. Devices are not
// connected until Serve runs.
func New(st *store.Store, logger *log.Logger, devices []session.DeviceConfig) *Supervisor {
	sup := suture.New("device-supervisor", suture.Spec{
		FailureThreshold: 1,
		FailureBackoff:   backoffCap,
		FailureDecay:     30,
	})

	s := &Supervisor{
		sup:     sup,
		queue:   make(chan QueuedEvent, defaultQueueSize),
		st:      st,
		logger:  logger,
		workers: make(map[string]*deviceWorker),
	}

	for _, cfg := range devices {
		w := newDeviceWorker(cfg, s.queue, st, logger)
		s.workers[cfg.SerialNumber] = w
		sup.Add(w)
	}
	sup.Add(&drainWorker{queue: s.queue, st: st, logger: logger})

	return s
}

// Serve runs the supervision tree until ctx is cancelled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.sup.Serve(ctx)
}

// GetDeviceStatus returns a snapshot for sn, or the zero Status if sn is
// unknown.
func (s *Supervisor) GetDeviceStatus(sn string) Status {
	w, ok := s.workers[sn]
	if !ok {
		return Status{}
	}
	return w.status()
}

// GetAllDeviceStatus returns a snapshot for every configured device.
func (s *Supervisor) GetAllDeviceStatus() map[string]Status {
	out := make(map[string]Status, len(s.workers))
	for sn, w := range s.workers {
		out[sn] = w.status()
	}
	return out
}

// DisconnectAll signals every device worker to stop its live-capture
// loop and closes its socket, waiting up to disconnectDeadline
// (spec.md §4.4, §5).
func (s *Supervisor) DisconnectAll() {
	done := make(chan struct{})
	go func() {
		for _, w := range s.workers {
			w.stop()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(disconnectDeadline):
		s.logger.Println("supervisor: disconnect deadline exceeded, forcing close")
	}
	for _, w := range s.workers {
		w.forceClose()
	}
}

func warnf(logger *log.Logger, format string, args ...interface{}) {
	logger.Println(color.RedString(format, args...))
}
