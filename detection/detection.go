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

// Package detection finds sensor boards attached to the host. Link
// specific detectors register themselves on import, e.g.
//
//	import _ "github.com/ZaparooProject/go-sensorlink/detection/uart"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZaparooProject/go-sensorlink/protocol"
)

var (
	// ErrNoDevicesFound is returned when no detector found a board.
	ErrNoDevicesFound = errors.New("no sensor boards found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run here.
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrNotSensor is returned by Probe when the peer answers with something
	// other than a version frame.
	ErrNotSensor = errors.New("peer is not a sensor board")
)

// DeviceInfo describes a candidate board.
type DeviceInfo struct {
	Transport    string
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
	SerialNumber string
	// Version is the protocol version the board reported. Zero when the
	// board was not probed.
	Version uint8
	Probed  bool
}

// Options controls detection.
type Options struct {
	// Blocklist holds VID:PID pairs that are never opened.
	Blocklist []string
	// IgnorePaths holds device paths that are skipped.
	IgnorePaths []string
	// Timeout bounds each probe.
	Timeout time.Duration
	// Probe opens every candidate and asks for the protocol version.
	// Without it candidates are listed from USB metadata only.
	Probe bool
	// Codec frames the version request. Nil selects protocol.DefaultCodec.
	Codec *protocol.Codec
	// Gap is the inter-byte silence that ends the answer. Zero selects
	// the frame reader default.
	Gap time.Duration
	// BaudRate opens serial candidates at this speed. Zero keeps the
	// transport default.
	BaudRate int
}

// DefaultOptions probes candidates with a 500 ms timeout.
func DefaultOptions() Options {
	return Options{
		Blocklist: DefaultBlocklist(),
		Timeout:   500 * time.Millisecond,
		Probe:     true,
	}
}

// Detector finds boards on one kind of link.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
)

// RegisterDetector makes d available to DetectAll. A detector registered
// under an existing transport name replaces it.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors lists the registered transport names.
func Detectors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectAll runs every registered detector. Detectors that are not
// supported on this platform are skipped; other failures are returned
// together with whatever the remaining detectors found.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}

	registryMu.RLock()
	detectors := make([]Detector, 0, len(registry))
	for _, d := range registry {
		detectors = append(detectors, d)
	}
	registryMu.RUnlock()
	sort.Slice(detectors, func(i, j int) bool { return detectors[i].Transport() < detectors[j].Transport() })

	var (
		found []DeviceInfo
		errs  []error
	)
	for _, d := range detectors {
		devices, err := d.Detect(ctx, opts)
		switch {
		case errors.Is(err, ErrUnsupportedPlatform):
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
		found = append(found, devices...)
	}

	if len(found) == 0 {
		errs = append(errs, ErrNoDevicesFound)
	}
	return found, errors.Join(errs...)
}
