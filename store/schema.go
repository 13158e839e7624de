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

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	ip              TEXT NOT NULL,
	port            INTEGER NOT NULL,
	serial_number   TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	last_sync       DATETIME,
	is_active       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS attendance (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         INTEGER NOT NULL,
	punch_time      DATETIME NOT NULL,
	device_ip       TEXT NOT NULL,
	device_sn       TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	sync_time       DATETIME,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_dedup
	ON attendance(user_id, punch_time, device_sn);

CREATE INDEX IF NOT EXISTS idx_attendance_status_time
	ON attendance(status, punch_time);

CREATE TABLE IF NOT EXISTS configuration (
	key             TEXT PRIMARY KEY,
	value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	user_id         TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	privilege       INTEGER NOT NULL DEFAULT 0,
	password        TEXT NOT NULL DEFAULT '',
	last_updated    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// defaultConfig seeds the configuration table on first open (spec.md
// §4.3, following the reference implementation's default config
// seeding in core/database.py).
var defaultConfig = map[string]string{
	"site_url":      "",
	"sync_interval": "300",
	"log_level":     "info",
}
