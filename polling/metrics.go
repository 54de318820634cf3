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

package polling

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats tracks operational counters of a session
type Stats struct {
	Steps           int64         // Total number of state machine steps
	FramesSent      int64         // Requests written to the link
	Answers         int64         // Answers that decoded and matched
	Dropped         int64         // Answers that failed to decode or match
	Timeouts        int64         // Waits that ended without an answer
	Resets          int64         // Returns to INIT after the first one
	ValuesRead      int64         // Point values stored in the table
	WritesDone      int64         // Queued writes answered by the sensor
	LastStepLatency time.Duration // Duration of the last step
}

type counters struct {
	steps           atomic.Int64
	framesSent      atomic.Int64
	answers         atomic.Int64
	dropped         atomic.Int64
	timeouts        atomic.Int64
	resets          atomic.Int64
	valuesRead      atomic.Int64
	writesDone      atomic.Int64
	lastStepLatency atomic.Int64 // in nanoseconds
}

func (c *counters) snapshot() Stats {
	return Stats{
		Steps:           c.steps.Load(),
		FramesSent:      c.framesSent.Load(),
		Answers:         c.answers.Load(),
		Dropped:         c.dropped.Load(),
		Timeouts:        c.timeouts.Load(),
		Resets:          c.resets.Load(),
		ValuesRead:      c.valuesRead.Load(),
		WritesDone:      c.writesDone.Load(),
		LastStepLatency: time.Duration(c.lastStepLatency.Load()),
	}
}

// Metrics exports session activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesSent prometheus.Counter
	answers    prometheus.Counter
	dropped    prometheus.Counter
	timeouts   prometheus.Counter
	retries    prometheus.Counter
	resets     *prometheus.CounterVec
	state      prometheus.Gauge
	values     *prometheus.GaugeVec
}

const namespace = "sensorlink"

// NewMetrics creates the mote metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesSent: newCounter("frames_sent_total", "Requests written to the sensor link."),
		answers:    newCounter("answers_total", "Answers that decoded and matched the request."),
		dropped:    newCounter("answers_dropped_total", "Answers that failed to decode or did not match."),
		timeouts:   newCounter("timeouts_total", "Waits that ended without an answer."),
		retries:    newCounter("retries_total", "Descriptor and value requests sent again."),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mote",
			Name:      "resets_total",
			Help:      "Protocol resets by reason.",
		}, []string{"reason"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mote",
			Name:      "state",
			Help:      "Current polling state number.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mote",
			Name:      "point_value",
			Help:      "Last value read from each point.",
		}, []string{"point", "index"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register mote metrics: %w", err)
		}
	}
	return m, nil
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mote",
		Name:      name,
		Help:      help,
	})
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.framesSent, m.answers, m.dropped, m.timeouts, m.retries,
		m.resets, m.state, m.values,
	}
}

func (m *Metrics) sent(retry bool) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	if retry {
		m.retries.Inc()
	}
}

func (m *Metrics) answered() {
	if m != nil {
		m.answers.Inc()
	}
}

func (m *Metrics) droppedAnswer() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) timedOut() {
	if m != nil {
		m.timeouts.Inc()
	}
}

func (m *Metrics) reset(reason string) {
	if m != nil {
		m.resets.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) setState(s State) {
	if m != nil {
		m.state.Set(float64(s))
	}
}

func (m *Metrics) setValue(name string, index int, v float64) {
	if m != nil {
		m.values.WithLabelValues(name, fmt.Sprint(index)).Set(v)
	}
}

// clearValues forgets every point gauge. The indices of the next discovery
// may name different points.
func (m *Metrics) clearValues() {
	if m != nil {
		m.values.Reset()
	}
}
