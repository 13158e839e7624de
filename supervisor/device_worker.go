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

package supervisor

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/clockhub/zkcollector/session"
	"github.com/clockhub/zkcollector/store"
)

// deviceWorker is a suture.Service: one per configured device, owning
// its Session Client and applying spec.md §4.4's reconnect-with-backoff
// policy around live_capture.
type deviceWorker struct {
	cfg    session.DeviceConfig
	queue  chan<- QueuedEvent
	store  *store.Store
	logger *log.Logger

	mu      sync.Mutex
	sess    *session.Session
	st      Status
	stopped bool
}

func newDeviceWorker(cfg session.DeviceConfig, queue chan<- QueuedEvent, st *store.Store, logger *log.Logger) *deviceWorker {
	return &deviceWorker{cfg: cfg, queue: queue, store: st, logger: logger}
}

// Serve implements suture.Service. It reconnects forever (until ctx is
// done), doubling its backoff from 5s to a 60s cap on failure and
// resetting it on any successfully captured event.
func (w *deviceWorker) Serve(ctx context.Context) error {
	backoff := backoffStart
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		sess := session.New(w.cfg)
		if err := sess.Connect(); err != nil {
			warnf(w.logger, "%s: connect failed: %v", w.cfg.SerialNumber, err)
			w.recordFailure()
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if w.cfg.SyncTimeOnConnect {
			if err := sess.SetTime(time.Now()); err != nil {
				w.logger.Printf("%s: set_time failed: %v", w.cfg.SerialNumber, err)
			}
		}
		if users, err := sess.GetUsers(); err == nil {
			w.cacheUsers(users)
		} else {
			w.logger.Printf("%s: get_users failed: %v", w.cfg.SerialNumber, err)
		}

		w.mu.Lock()
		w.sess = sess
		w.st.Connected = true
		w.mu.Unlock()

		err := sess.LiveCapture(session.DefaultSoftTimeout, func(item session.CaptureItem) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			w.mu.Lock()
			stopped := w.stopped
			w.mu.Unlock()
			if stopped {
				sess.StopCapture()
				return nil
			}
			if item.Tick {
				return nil
			}
			w.mu.Lock()
			w.st.LastEventTime = time.Now()
			w.st.LastDeviceTime = item.Event.Timestamp
			w.st.ConsecutiveErrors = 0
			w.mu.Unlock()
			backoff = backoffStart

			w.queue <- QueuedEvent{Event: item.Event, DeviceIP: w.cfg.IP, DeviceSN: w.cfg.SerialNumber}
			return nil
		})

		_ = sess.Disconnect()
		w.mu.Lock()
		w.sess = nil
		w.st.Connected = false
		w.mu.Unlock()

		if err != nil {
			warnf(w.logger, "%s: live capture ended: %v", w.cfg.SerialNumber, err)
			w.recordFailure()
		}

		w.mu.Lock()
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return nil
		}

		if !sleepOrDone(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

func (w *deviceWorker) cacheUsers(users []session.User) {
	if w.store == nil || len(users) == 0 {
		return
	}
	rows := make([]store.UserRow, len(users))
	for i, u := range users {
		userID := u.UserID
		if userID == "" {
			userID = strconv.Itoa(int(u.UID))
		}
		rows[i] = store.UserRow{
			UserID:    userID,
			Name:      u.Name,
			Privilege: u.Privilege,
			Password:  u.Password,
		}
	}
	if err := w.store.UpsertUsers(rows); err != nil {
		w.logger.Printf("%s: user cache refresh failed: %v", w.cfg.SerialNumber, err)
	}
}

func (w *deviceWorker) recordFailure() {
	w.mu.Lock()
	w.st.ConsecutiveErrors++
	w.mu.Unlock()
}

func (w *deviceWorker) status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st
}

func (w *deviceWorker) stop() {
	w.mu.Lock()
	w.stopped = true
	sess := w.sess
	w.mu.Unlock()
	if sess != nil {
		sess.StopCapture()
	}
}

func (w *deviceWorker) forceClose() {
	w.mu.Lock()
	sess := w.sess
	w.mu.Unlock()
	if sess != nil {
		_ = sess.Disconnect()
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > backoffCap {
		next = backoffCap
	}
	return next
}

// sleepOrDone waits for d or ctx cancellation, returning false if
// cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
