// go-sensorlink
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-sensorlink.
//
// go-sensorlink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-sensorlink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-sensorlink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command motectl polls a sensor board: it discovers the board's points,
// reads them on their sampling schedule and optionally writes values.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/config"
	"github.com/ZaparooProject/go-sensorlink/polling"
	"github.com/ZaparooProject/go-sensorlink/regmap"
	"github.com/ZaparooProject/go-sensorlink/sensor"
	"github.com/ZaparooProject/go-sensorlink/transport/loopback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// writeList collects repeated -write name=value flags.
type writeList []string

func (w *writeList) String() string { return strings.Join(*w, ",") }

func (w *writeList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("want name=value, got %q", v)
	}
	*w = append(*w, v)
	return nil
}

type flags struct {
	configPath  *string
	device      *string
	linkType    *string
	metricsAddr *string
	duration    *time.Duration
	debug       *bool
	show        *bool
	cooperative *bool
	writes      writeList
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "YAML configuration file"),
		device: flag.String("device", "",
			"Serial device or SPI bus (e.g. /dev/ttyUSB0, COM3, /dev/spidev0.0). \"auto\" detects a serial board."),
		linkType:    flag.String("link", "", "Link type: uart, spi or loopback (loopback runs a simulated sensor)"),
		metricsAddr: flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9100)"),
		duration:    flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)"),
		debug:       flag.Bool("debug", false, "Enable debug output"),
		show:        flag.Bool("show", false, "Print the point table after every update"),
		cooperative: flag.Bool("cooperative", false, "Run the single-threaded polling loop"),
	}
	flag.Var(&f.writes, "write", "Write name=value once the board is discovered (repeatable)")
	flag.Parse()

	if *f.debug {
		sensorlink.SetDebugEnabled(true)
	}
	return f
}

func loadConfig(f *flags) (config.Config, error) {
	cfg := config.Default()
	if *f.configPath != "" {
		loaded, err := config.Load(*f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if *f.device != "" {
		cfg.Link.Port = *f.device
	}
	if *f.linkType != "" {
		cfg.Link.Type = *f.linkType
	}
	if *f.metricsAddr != "" {
		cfg.Mote.MetricsAddr = *f.metricsAddr
	}
	if *f.cooperative {
		cfg.Mote.Cooperative = true
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openLink opens the configured link. For loopback it also starts a
// simulated sensor on the far end, which stops with ctx.
func openLink(ctx context.Context, cfg config.Config) (sensorlink.Link, error) {
	if cfg.Link.Type != config.LinkLoopback {
		return config.OpenLink(ctx, cfg.Link)
	}

	db := regmap.Sample()
	if cfg.Sensor.Database != "" {
		loaded, err := regmap.Load(cfg.Sensor.Database)
		if err != nil {
			return nil, err
		}
		db = loaded
	}
	codec, err := cfg.Link.Codec()
	if err != nil {
		return nil, err
	}

	mote, board := loopback.Pair("sim")
	node, err := sensor.NewNode(board, db,
		sensor.WithCodec(codec),
		sensor.WithGap(cfg.Link.FrameGap),
		sensor.WithTickPeriod(cfg.Sensor.TickPeriod))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sensorlink.Logger().Error("simulated sensor stopped", "err", err)
		}
	}()
	_, _ = fmt.Println("Simulated sensor running on a loopback link")
	return mote, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sensorlink.Logger().Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	_, _ = fmt.Printf("Serving metrics on %s/metrics\n", addr)
}

func run(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	codec, err := cfg.Link.Codec()
	if err != nil {
		return err
	}

	link, err := openLink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}

	out := newOutput(*f.show)
	opts := []polling.Option{
		polling.WithConfig(cfg.Mote.Polling(cfg.Link)),
		polling.WithCodec(codec),
		polling.OnUpdate(out.update),
		polling.OnWriteResult(out.writeResult),
	}

	if cfg.Mote.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := polling.NewMetrics(reg)
		if err != nil {
			_ = link.Close()
			return err
		}
		opts = append(opts, polling.WithMetrics(metrics))
		serveMetrics(ctx, cfg.Mote.MetricsAddr, reg)
	}

	var runner *polling.Runner
	pending := append([]string(nil), f.writes...)
	opts = append(opts, polling.OnStateChange(func(from, to polling.State) {
		if to == polling.StateRunSchedule && from == polling.StateBuildSchedule {
			session := runner.Session()
			out.board(session.Board(), session.Descriptors())
			queueWrites(session, pending, out)
			pending = nil
		}
		if to == polling.StateInit {
			out.reset(runner.Session().LastError())
		}
	}))

	runner, err = polling.NewRunner(link, opts...)
	if err != nil {
		_ = link.Close()
		return err
	}
	defer func() { _ = runner.Close() }()

	_, _ = fmt.Printf("Polling over %s (tick %s, timeout %s)\n",
		cfg.Link.Type, cfg.Mote.TickPeriod, cfg.Mote.ResponseTimeout)

	if cfg.Mote.Cooperative {
		err = runner.RunCooperative(ctx)
	} else {
		err = runner.Run(ctx)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	out.stats(runner.Stats())
	return err
}

func queueWrites(session *polling.Session, writes []string, out *output) {
	for _, w := range writes {
		name, value, _ := strings.Cut(w, "=")
		if err := session.WriteString(name, value); err != nil {
			out.error("cannot write %s: %v", name, err)
			continue
		}
		out.info("queued %s = %s", name, value)
	}
}

func runMain() error {
	f := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *f.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *f.duration)
		defer cancel()
	}
	return run(ctx, f)
}

func main() {
	if err := runMain(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "motectl: %v\n", err)
		os.Exit(1)
	}
}
