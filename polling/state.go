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

import "fmt"

// State is a state of the mote polling machine.
type State int

const (
	StateInit State = iota
	StateSendVersion
	StateWaitVersion
	StateProcVersion
	StateSendBoardID
	StateWaitBoardID
	StateProcBoardID
	StateSendPointDesc
	StateWaitPointDesc
	StateProcPointDesc
	StateBuildSchedule
	StateRunSchedule
	StateSendPointValue
	StateWaitPointValue
	StateProcPointValue
	numStates
)

var stateNames = [numStates]string{
	"INIT",
	"SEND_ITF_VER",
	"WAIT_ITF_VER_ANS",
	"PROC_ITF_VER",
	"SEND_BRD_ID",
	"WAIT_BRD_ID_ANS",
	"PROC_BRD_ID",
	"SEND_PT_DESC",
	"WAIT_PT_DESC_ANS",
	"PROC_PT_DESC",
	"BUILD_SCH",
	"RUN_SCH",
	"SEND_PT_VAL",
	"WAIT_PT_VAL_ANS",
	"PROC_PT_VAL",
}

func (s State) String() string {
	if s < 0 || s >= numStates {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Waiting reports whether s waits for an answer.
func (s State) Waiting() bool {
	return s == StateWaitVersion || s == StateWaitBoardID ||
		s == StateWaitPointDesc || s == StateWaitPointValue
}

// Result is what a state handler returns to the driver.
type Result int

const (
	// ResultOK advances to the next state.
	ResultOK Result = iota
	// ResultWaitOK stays in the current state.
	ResultWaitOK
	// ResultWaitStop ends a wait and advances to the next state.
	ResultWaitStop
	// ResultWaitAbort jumps to the abort target.
	ResultWaitAbort
	// ResultError jumps to the error target.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultWaitOK:
		return "WAIT_OK"
	case ResultWaitStop:
		return "WAIT_STOP"
	case ResultWaitAbort:
		return "WAIT_ABORT"
	case ResultError:
		return "ERROR"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Transition holds the targets of one state.
type Transition struct {
	Next  State
	Abort State
	Error State
}

var transitions = [numStates]Transition{
	StateInit:           {Next: StateSendVersion, Abort: StateInit, Error: StateInit},
	StateSendVersion:    {Next: StateWaitVersion, Abort: StateInit, Error: StateInit},
	StateWaitVersion:    {Next: StateProcVersion, Abort: StateInit, Error: StateInit},
	StateProcVersion:    {Next: StateSendBoardID, Abort: StateInit, Error: StateInit},
	StateSendBoardID:    {Next: StateWaitBoardID, Abort: StateInit, Error: StateInit},
	StateWaitBoardID:    {Next: StateProcBoardID, Abort: StateInit, Error: StateInit},
	StateProcBoardID:    {Next: StateSendPointDesc, Abort: StateInit, Error: StateInit},
	StateSendPointDesc:  {Next: StateWaitPointDesc, Abort: StateBuildSchedule, Error: StateInit},
	StateWaitPointDesc:  {Next: StateProcPointDesc, Abort: StateSendPointDesc, Error: StateInit},
	StateProcPointDesc:  {Next: StateSendPointDesc, Abort: StateInit, Error: StateInit},
	StateBuildSchedule:  {Next: StateRunSchedule, Abort: StateInit, Error: StateInit},
	StateRunSchedule:    {Next: StateRunSchedule, Abort: StateSendPointValue, Error: StateInit},
	StateSendPointValue: {Next: StateWaitPointValue, Abort: StateRunSchedule, Error: StateInit},
	StateWaitPointValue: {Next: StateProcPointValue, Abort: StateSendPointValue, Error: StateInit},
	StateProcPointValue: {Next: StateSendPointValue, Abort: StateInit, Error: StateInit},
}

// TransitionOf returns the targets of s. Unknown states reset.
func TransitionOf(s State) Transition {
	if s < 0 || s >= numStates {
		return Transition{Next: StateInit, Abort: StateInit, Error: StateInit}
	}
	return transitions[s]
}

// Apply returns the state reached from s after a handler returned r.
func Apply(s State, r Result) State {
	t := TransitionOf(s)
	switch r {
	case ResultOK, ResultWaitStop:
		return t.Next
	case ResultWaitOK:
		return s
	case ResultWaitAbort:
		return t.Abort
	default:
		return t.Error
	}
}
