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

package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "att.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAttendanceDedup(t *testing.T) {
	s := openTempStore(t)
	ev := StoredAttendance{UserID: "7", PunchTime: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}

	inserted, err := s.InsertAttendance(ev)
	if err != nil {
		t.Fatalf("first insert returned error: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to add a row")
	}

	inserted, err = s.InsertAttendance(ev)
	if err != nil {
		t.Fatalf("second insert returned error: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to be ignored")
	}

	rows, err := s.GetUnsynced(100)
	if err != nil {
		t.Fatalf("GetUnsynced returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 unsynced row, got %d", len(rows))
	}
}

func TestMarkSyncedExcludesFromUnsynced(t *testing.T) {
	s := openTempStore(t)
	ev := StoredAttendance{UserID: "7", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"}
	if _, err := s.InsertAttendance(ev); err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	rows, err := s.GetUnsynced(100)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected 1 unsynced row before sync, got %d rows, err %v", len(rows), err)
	}

	if err := s.MarkSynced([]int64{rows[0].ID}); err != nil {
		t.Fatalf("MarkSynced returned error: %v", err)
	}

	rows, err = s.GetUnsynced(100)
	if err != nil {
		t.Fatalf("GetUnsynced returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected 0 unsynced rows after MarkSynced, got %d", len(rows))
	}
}

func TestBulkInsertAttendanceCountsOnlyNewRows(t *testing.T) {
	s := openTempStore(t)
	events := []StoredAttendance{
		{UserID: "1", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"},
		{UserID: "2", PunchTime: time.Now().UTC(), DeviceIP: "10.0.0.5", DeviceSN: "SN1"},
	}

	count, err := s.BulkInsertAttendance(events)
	if err != nil {
		t.Fatalf("BulkInsertAttendance returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", count)
	}

	count, err = s.BulkInsertAttendance(events)
	if err != nil {
		t.Fatalf("BulkInsertAttendance returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 newly inserted rows on repeat, got %d", count)
	}
}

func TestConfigDefaultsSeeded(t *testing.T) {
	s := openTempStore(t)
	v, err := s.GetConfig("sync_interval", "999")
	if err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}
	if v != "300" {
		t.Fatalf("expected default sync_interval 300, got %q", v)
	}
}

func TestSetConfigOverridesDefault(t *testing.T) {
	s := openTempStore(t)
	if err := s.SetConfig("site_url", "https://example.com/"); err != nil {
		t.Fatalf("SetConfig returned error: %v", err)
	}
	v, err := s.GetConfig("site_url", "")
	if err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}
	if v != "https://example.com/" {
		t.Fatalf("unexpected site_url: %q", v)
	}
}

func TestGetConfigMissingKeyReturnsDefault(t *testing.T) {
	s := openTempStore(t)
	v, err := s.GetConfig("does_not_exist", "fallback")
	if err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}
	if v != "fallback" {
		t.Fatalf("expected fallback value, got %q", v)
	}
}

func TestActiveDevicesRoundTrip(t *testing.T) {
	s := openTempStore(t)
	if err := s.AddDevice(DeviceRow{IP: "10.0.0.5", Port: 4370, SerialNumber: "SN1", Name: "Front Door"}); err != nil {
		t.Fatalf("AddDevice returned error: %v", err)
	}

	devices, err := s.GetActiveDevices()
	if err != nil {
		t.Fatalf("GetActiveDevices returned error: %v", err)
	}
	if len(devices) != 1 || devices[0].SerialNumber != "SN1" {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}
