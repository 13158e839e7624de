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

// Package uploader implements the Uploader (spec.md's C5): a periodic
// loop that reads pending events from the Store, POSTs them to the
// configured backend, and marks synced ids on 2xx. Retry is implicit
// via the next cycle; there is no per-row backoff.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/clockhub/zkcollector/store"
)

const (
	defaultInterval = 300 * time.Second
	requestTimeout  = 10 * time.Second
	batchSize       = 200
	jitterFraction  = 0.10
)

// punch is the wire body POSTed to "${site_url}biometric" (spec.md §6).
type punch struct {
	UID          string `json:"uid"`
	UserID       string `json:"user_id"`
	Time         string `json:"t"`
	IP           string `json:"ip"`
	SerialNumber string `json:"serial_number"`
}

// Uploader owns the sync loop. It reads site_url/sync_interval from the
// Store's configuration table on every cycle, so changes take effect
// without a restart.
type Uploader struct {
	store  *store.Store
	client *http.Client
	logger *log.Logger
}

// New constructs an Uploader against st. Nothing runs until Serve is
// called.
func New(st *store.Store, logger *log.Logger) *Uploader {
	return &Uploader{
		store:  st,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Serve runs the sync loop until ctx is cancelled (suture.Service
// shape, matching the supervisor's device workers).
func (u *Uploader) Serve(ctx context.Context) error {
	for {
		interval := u.readInterval()
		if err := u.runCycle(ctx); err != nil {
			u.warnf("cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(jitter(interval)):
		}
	}
}

func (u *Uploader) readInterval() time.Duration {
	raw, err := u.store.GetConfig("sync_interval", "300")
	if err != nil {
		return defaultInterval
	}
	seconds, convErr := parsePositiveInt(raw)
	if convErr != nil || seconds <= 0 {
		return defaultInterval
	}
	return time.Duration(seconds) * time.Second
}

// jitter applies spec.md §4.5's ±10% cycle skew to avoid a
// thundering herd when many collectors share one backend.
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * jitterFraction
	offset := (rand.Float64()*2 - 1) * delta
	return d + time.Duration(offset)
}

func (u *Uploader) runCycle(ctx context.Context) error {
	siteURL, err := u.store.GetConfig("site_url", "")
	if err != nil {
		return errors.Wrap(err, "read site_url")
	}
	if !isConfigured(siteURL) {
		u.warnf("site_url not configured, skipping cycle")
		return nil
	}

	pending, err := u.store.GetUnsynced(batchSize)
	if err != nil {
		return errors.Wrap(err, "GetUnsynced")
	}
	if len(pending) == 0 {
		return nil
	}

	endpoint := strings.TrimSuffix(siteURL, "/") + "/biometric"
	synced := make([]int64, 0, len(pending))
	for _, ev := range pending {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if u.postOne(ctx, endpoint, ev) {
			synced = append(synced, ev.ID)
		}
	}

	if len(synced) == 0 {
		return nil
	}
	if err := u.store.MarkSynced(synced); err != nil {
		return errors.Wrap(err, "MarkSynced")
	}
	return nil
}

// postOne reports whether the row was acknowledged (HTTP 2xx) and
// should be marked synced. Any error leaves the row pending for the
// next cycle.
func (u *Uploader) postOne(ctx context.Context, endpoint string, ev store.StoredAttendance) bool {
	body, err := json.Marshal(punch{
		UID:          ev.UserID,
		UserID:       ev.UserID,
		Time:         ev.PunchTime.Format(time.RFC3339),
		IP:           ev.DeviceIP,
		SerialNumber: ev.DeviceSN,
	})
	if err != nil {
		u.warnf("marshal event %d: %v", ev.ID, err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		u.warnf("build request for event %d: %v", ev.ID, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		u.warnf("post event %d: %v", ev.ID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.warnf("event %d rejected: HTTP %d", ev.ID, resp.StatusCode)
		return false
	}
	return true
}

func (u *Uploader) warnf(format string, args ...interface{}) {
	u.logger.Println(color.RedString("uploader: "+format, args...))
}

// isConfigured reports whether site_url looks like a real endpoint
// rather than being empty or a placeholder value.
func isConfigured(siteURL string) bool {
	if siteURL == "" {
		return false
	}
	lower := strings.ToLower(siteURL)
	return !strings.Contains(lower, "changeme") && !strings.Contains(lower, "example.com")
}

func parsePositiveInt(s string) (int, error) {
	return strconv.Atoi(s)
}
