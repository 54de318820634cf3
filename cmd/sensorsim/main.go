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

// Command sensorsim serves a point database over a serial port or SPI bus
// so a mote can be tested against a board that does not exist.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/config"
	"github.com/ZaparooProject/go-sensorlink/regmap"
	"github.com/ZaparooProject/go-sensorlink/sensor"
)

type flags struct {
	configPath  *string
	device      *string
	database    *string
	debug       *bool
	cooperative *bool
	wave        *bool
	period      *time.Duration
}

func parseFlags() *flags {
	f := &flags{
		configPath:  flag.String("config", "", "YAML configuration file"),
		device:      flag.String("device", "", "Serial device or SPI bus to serve on"),
		database:    flag.String("db", "", "Point database YAML (default: built-in sample board)"),
		debug:       flag.Bool("debug", false, "Enable debug output"),
		cooperative: flag.Bool("cooperative", false, "Run the single-threaded serving loop"),
		wave:        flag.Bool("wave", true, "Make sampled points drift instead of holding their initial values"),
		period:      flag.Duration("wave-period", time.Minute, "Period of the simulated signal"),
	}
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
	if *f.database != "" {
		cfg.Sensor.Database = *f.database
	}
	if *f.cooperative {
		cfg.Sensor.Cooperative = true
	}
	if cfg.Link.Type == config.LinkLoopback {
		return cfg, fmt.Errorf("%w: sensorsim needs a real link, use motectl -link loopback instead",
			config.ErrInvalidConfig)
	}
	if cfg.Link.Port == config.AutoPort {
		return cfg, fmt.Errorf("%w: name the port to serve on with -device", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type consoleDisplay struct{}

func (consoleDisplay) WriteLine(line uint8, text string) {
	_, _ = fmt.Printf("display[%d]: %s\n", line, text)
}

func run(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	db := regmap.Sample()
	if cfg.Sensor.Database != "" {
		if db, err = regmap.Load(cfg.Sensor.Database); err != nil {
			return err
		}
	}
	codec, err := cfg.Link.Codec()
	if err != nil {
		return err
	}

	link, err := config.OpenLink(ctx, cfg.Link)
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}
	defer func() { _ = link.Close() }()

	opts := []sensor.Option{
		sensor.WithCodec(codec),
		sensor.WithGap(cfg.Link.FrameGap),
		sensor.WithTickPeriod(cfg.Sensor.TickPeriod),
		sensor.WithServers(cfg.Sensor.ServerMain, cfg.Sensor.ServerSecondary),
		sensor.WithDisplay(consoleDisplay{}),
		sensor.WithCommandHandler(func(cmd uint8) uint8 {
			_, _ = fmt.Printf("board command %d\n", cmd)
			return 0
		}),
	}
	if *f.wave {
		opts = append(opts, sensor.WithSampler(newWave(*f.period, time.Now)))
	}

	node, err := sensor.NewNode(link, db, opts...)
	if err != nil {
		return err
	}

	_, _ = fmt.Printf("Serving %s %s with %d points on %s\n",
		db.Board.Manufacturer, db.Board.Model, db.Table.Len(), cfg.Link.Port)

	if cfg.Sensor.Cooperative {
		err = node.RunCooperative(ctx)
	} else {
		err = node.Run(ctx)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	s := node.GetStats()
	_, _ = fmt.Printf("Frames in: %d, dropped: %d, responses: %d, samples: %d\n",
		s.FramesIn, s.FramesDropped, s.Responses, s.Samples)
	return err
}

func runMain() error {
	f := parseFlags()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, f)
}

func main() {
	if err := runMain(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sensorsim: %v\n", err)
		os.Exit(1)
	}
}
