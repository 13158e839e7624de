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

import "time"

// StoredAttendance is the persisted form of one punch (spec.md §3).
type StoredAttendance struct {
	ID        int64      `db:"id"`
	UserID    string     `db:"user_id"`
	PunchTime time.Time  `db:"punch_time"`
	DeviceIP  string     `db:"device_ip"`
	DeviceSN  string     `db:"device_sn"`
	Status    string     `db:"status"`
	SyncTime  *time.Time `db:"sync_time"`
	CreatedAt time.Time  `db:"created_at"`
}

// DeviceRow mirrors the devices table, used for inspection and for
// seeding the Supervisor when the Store already knows about a device
// (spec.md §4.6).
type DeviceRow struct {
	ID           int64      `db:"id"`
	IP           string     `db:"ip"`
	Port         int        `db:"port"`
	SerialNumber string     `db:"serial_number"`
	Name         string     `db:"name"`
	LastSync     *time.Time `db:"last_sync"`
	IsActive     bool       `db:"is_active"`
}

// UserRow mirrors the users table (spec.md SUPPLEMENTED FEATURES: an
// opportunistic cache of the device's user list).
type UserRow struct {
	UserID      string    `db:"user_id"`
	Name        string    `db:"name"`
	Privilege   uint8     `db:"privilege"`
	Password    string    `db:"password"`
	LastUpdated time.Time `db:"last_updated"`
}
