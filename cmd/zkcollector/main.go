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

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"github.com/clockhub/zkcollector/config"
	"github.com/clockhub/zkcollector/session"
	"github.com/clockhub/zkcollector/store"
	"github.com/clockhub/zkcollector/supervisor"
	"github.com/clockhub/zkcollector/uploader"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

// shutdownGrace bounds how long Serve waits for the supervisor and
// uploader to stop once the shutdown flag is flipped (spec.md §5:
// "recommend 10s; sockets are force-closed thereafter").
const shutdownGrace = 10 * time.Second

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "zkcollector"
	myApp.Usage = "ZKTeco attendance collector"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "db",
			Value: "zkcollector.db",
			Usage: "path to the embedded attendance store",
		},
		cli.StringFlag{
			Name:  "c, config",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "minimized",
			Usage: "start minimized to tray (peripheral, informative only)",
		},
		cli.BoolFlag{
			Name:  "install-service",
			Usage: "install as an OS service (peripheral, informative only)",
		},
		cli.BoolFlag{
			Name:  "uninstall-service",
			Usage: "uninstall the OS service (peripheral, informative only)",
		},
		cli.BoolFlag{
			Name:  "enable-autostart",
			Usage: "enable autostart at login (peripheral, informative only)",
		},
		cli.BoolFlag{
			Name:  "disable-autostart",
			Usage: "disable autostart at login (peripheral, informative only)",
		},
	}

	myApp.Action = func(c *cli.Context) error {
		cfg := config.Config{
			DBPath:           c.String("db"),
			LogFile:          c.String("log"),
			Minimized:        c.Bool("minimized"),
			InstallService:   c.Bool("install-service"),
			UninstallService: c.Bool("uninstall-service"),
			EnableAutostart:  c.Bool("enable-autostart"),
			DisableAutostart: c.Bool("disable-autostart"),
		}

		if c.String("c") != "" {
			f, err := os.Open(c.String("c"))
			checkError(err)
			err = json.NewDecoder(f).Decode(&cfg)
			f.Close()
			checkError(err)
		}

		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		logPeripheralFlags(cfg)

		return run(cfg)
	}

	myApp.Run(os.Args)
}

// logPeripheralFlags accepts and logs spec.md §6's OS-integration
// flags without acting on them; they are explicitly out of scope.
func logPeripheralFlags(cfg config.Config) {
	if cfg.Minimized {
		log.Println("minimized: requested (no-op)")
	}
	if cfg.InstallService {
		log.Println("install-service: requested (no-op)")
	}
	if cfg.UninstallService {
		log.Println("uninstall-service: requested (no-op)")
	}
	if cfg.EnableAutostart {
		log.Println("enable-autostart: requested (no-op)")
	}
	if cfg.DisableAutostart {
		log.Println("disable-autostart: requested (no-op)")
	}
}

// run implements spec.md §4.6's orchestrator: open Store, construct
// Supervisor from the resolved device list (config file when given, else
// whatever the Store already knows about), construct Uploader, start
// both, wait for shutdown.
func run(cfg config.Config) error {
	log.Println("version:", VERSION)
	log.Println("db:", cfg.DBPath)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.SiteURL != "" {
		if err := st.SetConfig("site_url", cfg.SiteURL); err != nil {
			log.Printf("set_config site_url failed: %v", err)
		}
	}
	if cfg.SyncSeconds > 0 {
		if err := st.SetConfig("sync_interval", strconv.Itoa(cfg.SyncSeconds)); err != nil {
			log.Printf("set_config sync_interval failed: %v", err)
		}
	}

	devices, err := resolveDevices(st, cfg)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		log.Println("no devices configured; uploader will still run")
	}

	supervisorLogger := log.New(log.Writer(), "supervisor: ", log.LstdFlags)
	uploaderLogger := log.New(log.Writer(), "uploader: ", log.LstdFlags)

	sup := supervisor.New(st, supervisorLogger, devices)
	up := uploader.New(st, uploaderLogger)

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := newShutdownSignal(cancel)
	defer shutdown.stop()

	done := make(chan struct{}, 2)
	go func() { _ = sup.Serve(ctx); done <- struct{}{} }()
	go func() { _ = up.Serve(ctx); done <- struct{}{} }()

	<-ctx.Done()
	log.Println("shutdown: signal received, stopping supervisor")
	sup.DisconnectAll()

	waitWithDeadline(done, 2, shutdownGrace)
	log.Println("shutdown: complete")
	return nil
}

func waitWithDeadline(done <-chan struct{}, n int, deadline time.Duration) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-timer.C:
			log.Println("shutdown: grace period exceeded, forcing exit")
			return
		}
	}
}

// resolveDevices prefers the config file's device list, since it alone
// carries the full per-device settings (password, transport, timeouts)
// the devices table never stores (spec.md §4.3's devices table is "for
// inspection" only — ip/port/serial_number/name). Every config device is
// upserted into the Store so GetActiveDevices reflects it. Only when no
// config devices are given at all (e.g. a restart driven purely by
// flags) does it fall back to the Store's bare identity fields.
func resolveDevices(st *store.Store, cfg config.Config) ([]session.DeviceConfig, error) {
	if len(cfg.Devices) > 0 {
		out := make([]session.DeviceConfig, len(cfg.Devices))
		for i, d := range cfg.Devices {
			if err := st.AddDevice(store.DeviceRow{
				IP:           d.IP,
				Port:         d.Port,
				SerialNumber: d.SerialNumber,
				Name:         d.DisplayName,
			}); err != nil {
				log.Printf("seed device %s failed: %v", d.SerialNumber, err)
			}
			out[i] = session.DeviceConfig{
				IP:                d.IP,
				Port:              d.Port,
				SerialNumber:      d.SerialNumber,
				DisplayName:       d.DisplayName,
				ConnectTimeout:    time.Duration(d.ConnectTimeout) * time.Second,
				ForceUDP:          d.ForceUDP,
				Password:          d.Password,
				SyncTimeOnConnect: d.SyncTimeOnConnect,
			}
		}
		return out, nil
	}

	rows, err := st.GetActiveDevices()
	if err != nil {
		return nil, err
	}
	out := make([]session.DeviceConfig, len(rows))
	for i, r := range rows {
		out[i] = session.DeviceConfig{
			IP:           r.IP,
			Port:         r.Port,
			SerialNumber: r.SerialNumber,
			DisplayName:  r.Name,
		}
	}
	return out, nil
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
