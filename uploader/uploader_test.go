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

package uploader

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clockhub/zkcollector/store"
)

func openTempStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "att.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func TestRunCycleSkipsWhenSiteURLUnconfigured(t *testing.T) {
	s := openTempStore(t)
	if _, err := s.InsertAttendance(store.StoredAttendance{UserID: "1", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}); err != nil {
		t.Fatalf("InsertAttendance returned error: %v", err)
	}

	u := New(s, testLogger())
	if err := u.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}

	rows, err := s.GetUnsynced(10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected row to remain pending, got %d rows, err %v", len(rows), err)
	}
}

func TestRunCycleMarksSyncedOn2xx(t *testing.T) {
	var received int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/biometric" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body punch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.UserID != "7" {
			t.Errorf("unexpected user_id: %q", body.UserID)
		}
		atomic.AddInt32(&received, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := openTempStore(t)
	if err := s.SetConfig("site_url", srv.URL+"/"); err != nil {
		t.Fatalf("SetConfig returned error: %v", err)
	}
	if _, err := s.InsertAttendance(store.StoredAttendance{UserID: "7", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}); err != nil {
		t.Fatalf("InsertAttendance returned error: %v", err)
	}

	u := New(s, testLogger())
	if err := u.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}

	if atomic.LoadInt32(&received) != 1 {
		t.Fatalf("expected exactly 1 POST, got %d", received)
	}
	rows, err := s.GetUnsynced(10)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected 0 unsynced rows after 2xx, got %d, err %v", len(rows), err)
	}
}

func TestRunCycleLeavesRowPendingOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := openTempStore(t)
	if err := s.SetConfig("site_url", srv.URL); err != nil {
		t.Fatalf("SetConfig returned error: %v", err)
	}
	if _, err := s.InsertAttendance(store.StoredAttendance{UserID: "3", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}); err != nil {
		t.Fatalf("InsertAttendance returned error: %v", err)
	}

	u := New(s, testLogger())
	if err := u.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}

	rows, err := s.GetUnsynced(10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected row to remain pending after 500, got %d rows, err %v", len(rows), err)
	}
}

func TestRunCycleNoReuploadAfterSync(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := openTempStore(t)
	if err := s.SetConfig("site_url", srv.URL); err != nil {
		t.Fatalf("SetConfig returned error: %v", err)
	}
	if _, err := s.InsertAttendance(store.StoredAttendance{UserID: "9", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}); err != nil {
		t.Fatalf("InsertAttendance returned error: %v", err)
	}

	u := New(s, testLogger())
	if err := u.runCycle(context.Background()); err != nil {
		t.Fatalf("first runCycle returned error: %v", err)
	}
	if err := u.runCycle(context.Background()); err != nil {
		t.Fatalf("second runCycle returned error: %v", err)
	}

	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("expected exactly 1 POST across two cycles, got %d", count)
	}
}

func TestIsConfigured(t *testing.T) {
	cases := map[string]bool{
		"":                                   false,
		"https://example.com/":               false,
		"https://CHANGEME.example.org/":      false,
		"https://collector.example-site.io/": true,
	}
	for url, want := range cases {
		if got := isConfigured(url); got != want {
			t.Errorf("isConfigured(%q) = %v, want %v", url, got, want)
		}
	}
}
