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

// Package coop runs cooperative tasks on a single goroutine. A task only
// ever waits on a boolean condition; when the condition holds the loop
// runs one step of the task, which keeps its own state between steps.
package coop

import (
	"context"
	"time"
)

// DefaultIdle is how long the loop sleeps when no task was ready.
const DefaultIdle = 5 * time.Millisecond

// Task is a wait-until/step pair.
type Task struct {
	// Ready is the condition the task is blocked on
	Ready func() bool
	// Step resumes the task once Ready returns true
	Step func()
	Name string
}

// Loop polls its tasks in order.
type Loop struct {
	// Poll runs before every round; it usually drains the link.
	Poll  func() error
	tasks []Task
	idle  time.Duration
}

// NewLoop creates a loop over tasks. A zero idle selects DefaultIdle.
func NewLoop(idle time.Duration, tasks ...Task) *Loop {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Loop{tasks: tasks, idle: idle}
}

// RunOnce polls every task once and returns how many were stepped.
func (l *Loop) RunOnce() (int, error) {
	if l.Poll != nil {
		if err := l.Poll(); err != nil {
			return 0, err
		}
	}
	stepped := 0
	for _, task := range l.tasks {
		if task.Ready() {
			task.Step()
			stepped++
		}
	}
	return stepped, nil
}

// Run polls until ctx is done or Poll fails.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stepped, err := l.RunOnce()
		if err != nil {
			return err
		}
		if stepped > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.idle):
		}
	}
}
