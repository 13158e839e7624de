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

// Package store implements the embedded SQL store (spec.md's C3): exactly-once
// dedup on (user_id, punch_time, device_sn), the devices/configuration/users
// side tables, and "database is locked" retry with exponential backoff.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

const dbDriver = "sqlite"

const commonOptions = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Store is a handle to the embedded attendance database. It opens a
// fresh connection per logical operation's statement execution (via
// sqlx's own pool), following spec.md §4.3's "a fresh connection per
// logical operation" contract at the pool level rather than literally
// re-dialing every call.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the SQLite file at path, applies the
// operational pragmas spec.md §4.3 requires, runs the schema, and seeds
// default configuration.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open(dbDriver, "file:"+path+"?"+commonOptions)
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "store: %s", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: create schema")
	}

	s := &Store{db: db}
	if err := s.seedDefaultConfig(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) seedDefaultConfig() error {
	for k, v := range defaultConfig {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO configuration(key, value) VALUES (?, ?)`, k, v); err != nil {
			return errors.Wrap(err, "store: seed config")
		}
	}
	return nil
}

const (
	retryBaseDelay   = 50 * time.Millisecond
	retryMaxAttempts = 5
)

// withRetry retries fn up to retryMaxAttempts times with exponential
// backoff when the error looks like SQLite's "database is locked"
// (spec.md §4.3).
func withRetry(fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		err = fn()
		if err == nil || !isLockedErr(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func isLockedErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "locked")
}

// InsertAttendance inserts ev using INSERT OR IGNORE on the dedup unique
// index; it returns true iff a new row was actually added (spec.md P4).
func (s *Store) InsertAttendance(ev StoredAttendance) (inserted bool, err error) {
	err = withRetry(func() error {
		res, execErr := s.db.Exec(
			`INSERT OR IGNORE INTO attendance(user_id, punch_time, device_ip, device_sn, status)
			 VALUES (?, ?, ?, ?, 'pending')`,
			ev.UserID, ev.PunchTime, ev.DeviceIP, ev.DeviceSN)
		if execErr != nil {
			return execErr
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			return raErr
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// BulkInsertAttendance inserts events in a single transaction and
// returns the count actually added (spec.md §9(b): count via
// RowsAffected, never a follow-up SELECT changes()).
func (s *Store) BulkInsertAttendance(events []StoredAttendance) (count int, err error) {
	err = withRetry(func() error {
		tx, txErr := s.db.Beginx()
		if txErr != nil {
			return txErr
		}
		defer tx.Rollback()

		count = 0
		stmt, prepErr := tx.Preparex(
			`INSERT OR IGNORE INTO attendance(user_id, punch_time, device_ip, device_sn, status)
			 VALUES (?, ?, ?, ?, 'pending')`)
		if prepErr != nil {
			return prepErr
		}
		defer stmt.Close()

		for _, ev := range events {
			res, execErr := stmt.Exec(ev.UserID, ev.PunchTime, ev.DeviceIP, ev.DeviceSN)
			if execErr != nil {
				return execErr
			}
			n, raErr := res.RowsAffected()
			if raErr != nil {
				return raErr
			}
			count += int(n)
		}
		return tx.Commit()
	})
	return count, err
}

// GetUnsynced returns up to limit pending rows ordered by punch_time.
func (s *Store) GetUnsynced(limit int) ([]StoredAttendance, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []StoredAttendance
	err := withRetry(func() error {
		rows = nil
		return s.db.Select(&rows,
			`SELECT id, user_id, punch_time, device_ip, device_sn, status, sync_time, created_at
			 FROM attendance WHERE status = 'pending' ORDER BY punch_time LIMIT ?`, limit)
	})
	return rows, err
}

// MarkSynced sets status=synced and sync_time=now for every id given,
// in one statement (spec.md §4.3).
func (s *Store) MarkSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids)+1)
	args[0] = time.Now().UTC()
	for i, id := range ids {
		placeholders[i] = "?"
		args[i+1] = id
	}
	query := fmt.Sprintf(
		`UPDATE attendance SET status = 'synced', sync_time = ? WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	return withRetry(func() error {
		_, err := s.db.Exec(query, args...)
		return err
	})
}

// GetConfig reads a configuration value, returning def if absent.
func (s *Store) GetConfig(key, def string) (string, error) {
	var value string
	err := withRetry(func() error {
		row := s.db.QueryRow(`SELECT value FROM configuration WHERE key = ?`, key)
		scanErr := row.Scan(&value)
		if scanErr == sql.ErrNoRows {
			value = def
			return nil
		}
		return scanErr
	})
	return value, err
}

// SetConfig upserts a configuration value.
func (s *Store) SetConfig(key, value string) error {
	return withRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO configuration(key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		return err
	})
}

// AddDevice upserts a device row from DeviceConfig for inspection.
func (s *Store) AddDevice(d DeviceRow) error {
	return withRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO devices(ip, port, serial_number, name, is_active) VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT(serial_number) DO UPDATE SET ip = excluded.ip, port = excluded.port, name = excluded.name`,
			d.IP, d.Port, d.SerialNumber, d.Name)
		return err
	})
}

// DeleteDevice removes a device row by serial number.
func (s *Store) DeleteDevice(serialNumber string) error {
	return withRetry(func() error {
		_, err := s.db.Exec(`DELETE FROM devices WHERE serial_number = ?`, serialNumber)
		return err
	})
}

// GetActiveDevices returns every device row with is_active=1.
func (s *Store) GetActiveDevices() ([]DeviceRow, error) {
	var rows []DeviceRow
	err := withRetry(func() error {
		rows = nil
		return s.db.Select(&rows,
			`SELECT id, ip, port, serial_number, name, last_sync, is_active FROM devices WHERE is_active = 1`)
	})
	return rows, err
}

// TouchLastSync stamps a device's last_sync to now.
func (s *Store) TouchLastSync(serialNumber string) error {
	return withRetry(func() error {
		_, err := s.db.Exec(`UPDATE devices SET last_sync = ? WHERE serial_number = ?`, time.Now().UTC(), serialNumber)
		return err
	})
}

// UpsertUsers refreshes the optional user cache table (spec.md
// SUPPLEMENTED FEATURES).
func (s *Store) UpsertUsers(users []UserRow) error {
	return withRetry(func() error {
		tx, err := s.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Preparex(
			`INSERT INTO users(user_id, name, privilege, password, last_updated) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET name = excluded.name, privilege = excluded.privilege,
				password = excluded.password, last_updated = excluded.last_updated`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, u := range users {
			if _, err := stmt.Exec(u.UserID, u.Name, u.Privilege, u.Password, now); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
