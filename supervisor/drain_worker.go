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

	"github.com/clockhub/zkcollector/store"
)

// drainWorker is the single suture.Service that moves the shared bounded
// queue into the Store (spec.md §4.4, §5). Duplicates are counted and
// discarded via the Store's own dedup index.
type drainWorker struct {
	queue  <-chan QueuedEvent
	st     *store.Store
	logger *log.Logger

	duplicates int
}

func (d *drainWorker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case qe := <-d.queue:
			ev := store.StoredAttendance{
				UserID:    qe.Event.UserID,
				PunchTime: qe.Event.Timestamp,
				DeviceIP:  qe.DeviceIP,
				DeviceSN:  qe.DeviceSN,
			}
			inserted, err := d.st.InsertAttendance(ev)
			if err != nil {
				d.logger.Printf("drain: insert failed for device %s: %v", qe.DeviceSN, err)
				continue
			}
			if !inserted {
				d.duplicates++
			}
		}
	}
}
