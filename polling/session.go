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
	"errors"
	"fmt"
	"sync"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
	"github.com/ZaparooProject/go-sensorlink/schedule"
	"github.com/google/uuid"
)

type queuedWrite struct {
	value protocol.Value
	index int
}

// Session is one mote's view of one sensor: the polling state machine and
// everything it discovers. Step, Deliver and Feed must be called from a
// single goroutine; Write, Descriptors, Stats and LastError are safe from
// any goroutine.
type Session struct {
	id       uuid.UUID
	link     sensorlink.Link
	codec    *protocol.Codec
	config   *Config
	metrics  *Metrics
	onUpdate func(Update)
	onWrite  func(WriteResult)
	onState  func(from, to State)
	// pending yields bytes still waiting for the frame gap; set by the
	// cooperative runner
	pending func() []byte

	table    *regmap.Table
	sched    *schedule.Schedule
	inflight *queuedWrite
	cause    error
	due      []int
	rx       []byte
	board    protocol.BoardID
	state    State
	index    int
	cursor   int
	retries  int
	ticks    int
	timeout  int
	arrived  bool

	mu      sync.Mutex
	descs   []protocol.Descriptor
	writes  []queuedWrite
	lastErr error

	stats counters
}

// NewSession creates a session talking over link, starting in StateInit.
func NewSession(link sensorlink.Link, opts ...Option) (*Session, error) {
	if link == nil {
		return nil, fmt.Errorf("%w: nil link", sensorlink.ErrInvalidParameter)
	}
	s := &Session{
		id:     uuid.New(),
		link:   link,
		codec:  protocol.DefaultCodec(),
		config: DefaultConfig(),
		state:  StateInit,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Board returns the identity read from the sensor, zero before discovery.
func (s *Session) Board() protocol.BoardID { return s.board }

// Table returns the discovered point table, or nil. Only the goroutine
// calling Step may use it.
func (s *Session) Table() *regmap.Table { return s.table }

// Config returns a copy of the session timing.
func (s *Session) Config() Config { return *s.config }

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats { return s.stats.snapshot() }

// LastError returns the error behind the most recent reset.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Descriptors returns the discovered descriptors once the schedule has
// been built, or nil.
func (s *Session) Descriptors() []protocol.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.descs == nil {
		return nil
	}
	out := make([]protocol.Descriptor, len(s.descs))
	copy(out, s.descs)
	return out
}

// Deliver hands a whole received frame to the session. Frames arriving
// while no answer is awaited are dropped.
func (s *Session) Deliver(frm []byte) {
	if !s.state.Waiting() {
		s.stats.dropped.Add(1)
		s.metrics.droppedAnswer()
		sensorlink.Debug("unsolicited frame", "session", s.id, "state", s.state, "frame", protocol.Dump(frm))
		return
	}
	s.rx = append(s.rx[:0], frm...)
	s.arrived = true
}

// Feed appends bytes that did not form a complete frame. They are only
// looked at when a wait times out.
func (s *Session) Feed(p []byte) {
	s.rx = append(s.rx, p...)
}

// Write queues a value for a writable point. Queued writes are sent ahead
// of the next scheduled reads.
func (s *Session) Write(index int, v protocol.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.descs == nil {
		return ErrNotDiscovered
	}
	if index < 0 || index >= len(s.descs) {
		return fmt.Errorf("%w: %d", regmap.ErrNoSuchPoint, index)
	}
	d := s.descs[index]
	if !d.Access.CanWrite() {
		return fmt.Errorf("%w: %s", ErrNotWritable, d.Name)
	}
	if v.Type != d.Type {
		return fmt.Errorf("%w: %s is %s, value is %s", regmap.ErrTypeMismatch, d.Name, d.Type, v.Type)
	}
	if len(s.writes) >= s.config.MaxQueuedWrites {
		return ErrWriteQueueFull
	}
	s.writes = append(s.writes, queuedWrite{index: index, value: v})
	return nil
}

// WriteString parses text for the point called name and queues it.
func (s *Session) WriteString(name, text string) error {
	s.mu.Lock()
	index, typ := -1, protocol.Datatype(0)
	for i, d := range s.descs {
		if d.Name.String() == name {
			index, typ = i, d.Type
			break
		}
	}
	discovered := s.descs != nil
	s.mu.Unlock()

	if !discovered {
		return ErrNotDiscovered
	}
	if index < 0 {
		return fmt.Errorf("%w: %q", regmap.ErrNoSuchPoint, name)
	}
	v, err := protocol.ParseValue(typ, text)
	if err != nil {
		return err
	}
	return s.Write(index, v)
}

// Step runs the handler of the current state once and applies its result.
// It is meant to be called once per tick.
func (s *Session) Step() State {
	start := time.Now()
	from := s.state
	s.cause = nil

	r := s.handle(from)
	to := Apply(from, r)

	if r == ResultWaitAbort && from.Waiting() {
		s.stats.timeouts.Add(1)
		s.metrics.timedOut()
	}
	if to == StateInit && from != StateInit {
		s.fail(from, r)
	}

	s.state = to
	if to != from {
		sensorlink.Debug("state change", "session", s.id, "from", from, "to", to, "result", r)
		s.metrics.setState(to)
		if s.onState != nil {
			s.onState(from, to)
		}
	}
	s.stats.steps.Add(1)
	s.stats.lastStepLatency.Store(time.Since(start).Nanoseconds())
	return to
}

func (s *Session) handle(state State) Result {
	switch state {
	case StateInit:
		s.reset()
		return ResultOK
	case StateSendVersion:
		return s.send(protocol.Request{Addr: protocol.RegVersion})
	case StateProcVersion:
		return s.procVersion()
	case StateSendBoardID:
		return s.send(protocol.Request{Addr: protocol.RegBoardID})
	case StateProcBoardID:
		return s.procBoardID()
	case StateSendPointDesc:
		return s.sendPointDesc()
	case StateProcPointDesc:
		return s.procPointDesc()
	case StateBuildSchedule:
		return s.buildSchedule()
	case StateRunSchedule:
		return s.runSchedule()
	case StateSendPointValue:
		return s.sendPointValue()
	case StateProcPointValue:
		return s.procPointValue()
	case StateWaitVersion, StateWaitBoardID, StateWaitPointDesc, StateWaitPointValue:
		return s.wait()
	default:
		s.cause = fmt.Errorf("unknown state %s", state)
		return ResultError
	}
}

func (s *Session) reset() {
	s.table = nil
	s.sched = nil
	s.board = protocol.BoardID{}
	s.due = s.due[:0]
	s.rx = nil
	s.arrived = false
	s.index, s.cursor, s.retries, s.ticks, s.timeout = 0, 0, 0, 0, 0
	s.metrics.clearValues()

	s.mu.Lock()
	dropped := s.writes
	s.descs = nil
	s.writes = nil
	s.mu.Unlock()
	if s.inflight != nil {
		dropped = append([]queuedWrite{*s.inflight}, dropped...)
		s.inflight = nil
	}

	if s.onWrite != nil {
		for _, w := range dropped {
			s.onWrite(WriteResult{Index: w.index, Value: w.value, Status: protocol.StatusError, Err: ErrWriteDropped})
		}
	}
}

// fail records why the machine is heading back to INIT.
func (s *Session) fail(from State, r Result) {
	err := s.cause
	if err == nil {
		if r == ResultWaitAbort {
			err = ErrProtocolTimeout
		} else {
			err = ErrUnexpectedAnswer
		}
	}
	err = fmt.Errorf("%s: %w", from, err)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	s.stats.resets.Add(1)
	s.metrics.reset(resetReason(err))
	sensorlink.Logger().Warn("protocol reset", "session", s.id, "state", from, "err", err)
}

func resetReason(err error) string {
	switch {
	case errors.Is(err, ErrRetryExhausted):
		return "retries"
	case errors.Is(err, ErrInvalidPointCount):
		return "point_count"
	case errors.Is(err, ErrVersionMismatch):
		return "version"
	case errors.Is(err, ErrProtocolTimeout):
		return "timeout"
	default:
		return "answer"
	}
}

// send clears the receive side, writes req and arms the answer timeout.
// A failed write still arms the timeout; the wait recovers from it.
func (s *Session) send(req protocol.Request) Result {
	s.rx = nil
	s.arrived = false
	if s.pending != nil {
		s.pending()
	}
	if err := s.link.ResetInput(); err != nil {
		sensorlink.Debug("reset input failed", "session", s.id, "err", err)
	}

	frm, err := s.codec.PackRequest(req)
	if err != nil {
		s.cause = err
		return ResultError
	}
	s.ticks = 0
	s.timeout = s.config.TimeoutTicks()

	if err := sensorlink.WriteFrame(s.link, frm); err != nil {
		sensorlink.Debug("request not sent", "session", s.id, "addr", req.Addr, "err", err)
		return ResultOK
	}
	s.stats.framesSent.Add(1)
	s.metrics.sent(s.retries > 1)
	sensorlink.Debug("request sent", "session", s.id, "frame", protocol.Dump(frm))
	return ResultOK
}

func (s *Session) wait() Result {
	if s.arrived {
		s.arrived = false
		return ResultWaitStop
	}
	s.ticks++
	if s.ticks <= s.timeout {
		return ResultWaitOK
	}
	if len(s.rx) == 0 && s.pending != nil {
		s.rx = s.pending()
	}
	if len(s.rx) > 0 {
		return ResultWaitStop
	}
	return ResultWaitAbort
}

// retry counts an attempt for the current descriptor or value request.
func (s *Session) retry() bool {
	s.retries++
	if s.retries > s.config.MaxRetries {
		s.cause = fmt.Errorf("%w: %d attempts", ErrRetryExhausted, s.config.MaxRetries)
		return false
	}
	return true
}

func (s *Session) types() protocol.TypeResolver {
	if s.table == nil {
		return nil
	}
	return s.table
}

// answer decodes the received frame and checks it answers want.
func (s *Session) answer(want protocol.Address) (protocol.Response, bool) {
	frm := s.rx
	s.rx = nil

	resp, err := s.codec.UnpackResponse(frm, s.types())
	if err == nil && resp.Addr != want {
		err = fmt.Errorf("%w: got %s, want %s", ErrUnexpectedAnswer, resp.Addr, want)
	}
	if err != nil {
		s.cause = err
		s.stats.dropped.Add(1)
		s.metrics.droppedAnswer()
		sensorlink.Debug("answer dropped", "session", s.id, "err", err, "frame", protocol.Dump(frm))
		return protocol.Response{}, false
	}
	s.stats.answers.Add(1)
	s.metrics.answered()
	return resp, true
}

func (s *Session) answerOK(want protocol.Address) (protocol.Response, bool) {
	resp, ok := s.answer(want)
	if !ok {
		return resp, false
	}
	if resp.Status != protocol.StatusOK {
		s.cause = fmt.Errorf("%w: %s answered %s", ErrUnexpectedAnswer, want, resp.Status)
		return resp, false
	}
	return resp, true
}

func (s *Session) procVersion() Result {
	resp, ok := s.answerOK(protocol.RegVersion)
	if !ok {
		return ResultError
	}
	if resp.Version != protocol.Version {
		s.cause = fmt.Errorf("%w: sensor speaks %d, want %d", ErrVersionMismatch, resp.Version, protocol.Version)
		return ResultError
	}
	return ResultOK
}

func (s *Session) procBoardID() Result {
	resp, ok := s.answerOK(protocol.RegBoardID)
	if !ok {
		return ResultError
	}
	count := int(resp.Board.NumPoints)
	if count < 1 || count > protocol.MaxPoints {
		s.cause = fmt.Errorf("%w: board declares %d", ErrInvalidPointCount, count)
		return ResultError
	}
	table, err := regmap.NewTable(count)
	if err != nil {
		s.cause = fmt.Errorf("%w: %w", ErrInvalidPointCount, err)
		return ResultError
	}
	s.board = resp.Board
	s.table = table
	s.index = 0
	s.retries = 0
	sensorlink.Debug("board identified", "session", s.id,
		"manufacturer", resp.Board.Manufacturer.String(), "model", resp.Board.Model.String(),
		"sensor_id", resp.Board.SensorID, "points", count)
	return ResultOK
}

func (s *Session) sendPointDesc() Result {
	if s.index >= s.table.Declared() {
		return ResultWaitAbort
	}
	if !s.retry() {
		return ResultError
	}
	return s.send(protocol.Request{Addr: protocol.PointDescAddr(s.index)})
}

func (s *Session) procPointDesc() Result {
	resp, ok := s.answerOK(protocol.PointDescAddr(s.index))
	if !ok {
		return ResultError
	}
	if err := s.table.Append(resp.Desc); err != nil {
		s.cause = fmt.Errorf("%w: %w", ErrUnexpectedAnswer, err)
		return ResultError
	}
	s.retries = 0
	s.index++
	return ResultOK
}

func (s *Session) buildSchedule() Result {
	s.sched = schedule.Build(s.table.Descriptors())
	s.due = s.due[:0]
	s.cursor = 0
	s.retries = 0

	s.mu.Lock()
	s.descs = s.table.Descriptors()
	s.mu.Unlock()

	sensorlink.Debug("schedule built", "session", s.id, "points", s.table.Len(), "scheduled", s.sched.Len())
	return ResultOK
}

func (s *Session) runSchedule() Result {
	s.due = append(s.due[:0], s.sched.Tick()...)
	if len(s.due) == 0 && !s.hasWrites() {
		return ResultWaitOK
	}
	s.cursor = 0
	s.retries = 0
	return ResultWaitAbort
}

func (s *Session) hasWrites() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes) > 0
}

func (s *Session) popWrite() *queuedWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 {
		return nil
	}
	w := s.writes[0]
	s.writes = s.writes[1:]
	return &w
}

func (s *Session) sendPointValue() Result {
	if s.inflight == nil && s.retries == 0 {
		s.inflight = s.popWrite()
	}
	if w := s.inflight; w != nil {
		if !s.retry() {
			return ResultError
		}
		return s.send(protocol.Request{Addr: protocol.WritePointAddr(w.index), Value: w.value})
	}
	if s.cursor >= len(s.due) {
		return ResultWaitAbort
	}
	if !s.retry() {
		return ResultError
	}
	return s.send(protocol.Request{Addr: protocol.ReadPointAddr(s.due[s.cursor])})
}

// procPointValue itself never returns ResultError. An answer that does not
// match is ignored and sendPointValue sends the request again; running out
// of retries there is what ends in ERROR.
func (s *Session) procPointValue() Result {
	if w := s.inflight; w != nil {
		resp, ok := s.answer(protocol.WritePointAddr(w.index))
		if !ok {
			return ResultOK
		}
		s.inflight = nil
		s.retries = 0
		s.stats.writesDone.Add(1)
		sensorlink.Debug("write answered", "session", s.id, "point", w.index, "status", resp.Status)
		if s.onWrite != nil {
			s.onWrite(WriteResult{Index: w.index, Value: w.value, Status: resp.Status, Err: resp.Status.Err()})
		}
		return ResultOK
	}

	index := s.due[s.cursor]
	resp, ok := s.answer(protocol.ReadPointAddr(index))
	if !ok {
		return ResultOK
	}
	if resp.Status != protocol.StatusOK {
		sensorlink.Debug("point read refused", "session", s.id, "point", index, "status", resp.Status)
		s.retries = 0
		s.cursor++
		return ResultOK
	}
	if err := s.table.SetValue(index, resp.Value); err != nil {
		s.stats.dropped.Add(1)
		s.metrics.droppedAnswer()
		sensorlink.Debug("point value dropped", "session", s.id, "point", index, "err", err)
		return ResultOK
	}
	s.retries = 0
	s.cursor++
	s.stats.valuesRead.Add(1)

	p, _ := s.table.Point(index)
	s.metrics.setValue(p.Desc.Name.String(), index, p.Value.Float())
	if s.onUpdate != nil {
		s.onUpdate(Update{Index: index, Point: p})
	}
	return ResultOK
}
