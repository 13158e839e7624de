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

// Package config holds the Config struct loaded by cmd/zkcollector,
// following server/config.go's parseJSONConfig shape: flags establish
// defaults, a JSON file loaded via -c overrides them.
package config

import (
	"encoding/json"
	"os"
)

// Device is one entry of the JSON config's device list (spec.md §3's
// DeviceConfig, as persisted to disk rather than the Store).
type Device struct {
	IP                string `json:"ip"`
	Port              int    `json:"port"`
	SerialNumber      string `json:"serial_number"`
	DisplayName       string `json:"display_name"`
	ConnectTimeout    int    `json:"connect_timeout"`
	ForceUDP          bool   `json:"force_udp"`
	Password          uint32 `json:"password"`
	SyncTimeOnConnect bool   `json:"sync_time_on_connect"`
}

// Config is the full on-disk configuration for one collector process
// (spec.md §4.6's "construct Supervisor from devices listed in Store,
// or config if Store empty").
type Config struct {
	DBPath      string   `json:"db_path"`
	SiteURL     string   `json:"site_url"`
	SyncSeconds int      `json:"sync_interval_seconds"`
	LogFile     string   `json:"log"`
	Devices     []Device `json:"devices"`

	// Minimized, InstallService, UninstallService, EnableAutostart and
	// DisableAutostart are spec.md §6's peripheral, informative-only
	// flags: accepted and logged, never acted on (OS-integration glue
	// out of scope for this module).
	Minimized        bool `json:"minimized"`
	InstallService   bool `json:"install_service"`
	UninstallService bool `json:"uninstall_service"`
	EnableAutostart  bool `json:"enable_autostart"`
	DisableAutostart bool `json:"disable_autostart"`
}

// parseJSONConfig loads path into config, overriding whatever the
// caller already populated from flags. Named and shaped after
// server/config.go's function of the same name.
func parseJSONConfig(config *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(config)
}

// Load reads path into a fresh Config.
func Load(path string) (Config, error) {
	var cfg Config
	err := parseJSONConfig(&cfg, path)
	return cfg, err
}
