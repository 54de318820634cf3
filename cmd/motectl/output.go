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

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ZaparooProject/go-sensorlink/polling"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
)

// output prints session events for a human.
type output struct {
	w      io.Writer
	values map[int]regmap.Point
	show   bool
}

func newOutput(show bool) *output {
	return &output{w: os.Stdout, show: show, values: make(map[int]regmap.Point)}
}

func (o *output) board(b protocol.BoardID, descs []protocol.Descriptor) {
	_, _ = fmt.Fprintf(o.w, "\n=== Board %s %s (id %d, hw rev %d) ===\n",
		b.Manufacturer, b.Model, b.SensorID, b.HWRevision)
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tTYPE\tACCESS\tUNIT\tSAMPLING")
	for i, d := range descs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", i, d.Name, d.Type, d.Access, d.Unit, d.Sampling)
	}
	_ = tw.Flush()
	clear(o.values)
}

func (o *output) update(u polling.Update) {
	o.values[u.Index] = u.Point
	if !o.show {
		_, _ = fmt.Fprintf(o.w, "%s = %s\n", u.Point.Desc.Name, u.Point.Value)
		return
	}
	o.table()
}

func (o *output) table() {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\n#\tNAME\tVALUE")
	for i := range protocol.MaxPoints {
		if p, ok := o.values[i]; ok {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i, p.Desc.Name, p.Value)
		}
	}
	_ = tw.Flush()
}

func (o *output) writeResult(r polling.WriteResult) {
	if r.Err != nil {
		o.error("write of point %d = %s failed: %v", r.Index, r.Value, r.Err)
		return
	}
	o.info("point %d = %s written", r.Index, r.Value)
}

func (o *output) reset(cause error) {
	if cause != nil {
		o.error("session reset: %v", cause)
	}
}

func (o *output) stats(s polling.Stats) {
	_, _ = fmt.Fprintf(o.w, "\nFrames sent: %d, values read: %d, writes: %d, timeouts: %d, resets: %d\n",
		s.FramesSent, s.ValuesRead, s.WritesDone, s.Timeouts, s.Resets)
}

func (o *output) info(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "ok: "+format+"\n", args...)
}

func (*output) error(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
