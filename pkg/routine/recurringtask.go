// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package routine

import (
	"context"
	"time"

	"github.com/facebookgo/clock"

	"github.com/iotexproject/iotex-subnet/pkg/lifecycle"
	"github.com/iotexproject/iotex-subnet/pkg/log"
)

var _ lifecycle.StartStopper = (*RecurringTask)(nil)

// Task is the task to be run periodically
type Task func()

// RecurringTaskOption is option to RecurringTask.
type RecurringTaskOption interface {
	SetRecurringTaskOption(*RecurringTask)
}

type recurringTaskOption struct {
	setRecurringTaskOption func(*RecurringTask)
}

func (o recurringTaskOption) SetRecurringTaskOption(t *RecurringTask) {
	o.setRecurringTaskOption(t)
}

// WithClock sets the clock used to tick the task
func WithClock(c clock.Clock) RecurringTaskOption {
	return recurringTaskOption{
		setRecurringTaskOption: func(t *RecurringTask) {
			t.clock = c
		},
	}
}

// RecurringTask represents a recurring task
type RecurringTask struct {
	lifecycle.Readiness
	t        Task
	interval time.Duration
	ticker   *clock.Ticker
	clock    clock.Clock
	done     chan struct{}
}

// NewRecurringTask creates an instance of RecurringTask
func NewRecurringTask(t Task, i time.Duration, ops ...RecurringTaskOption) *RecurringTask {
	rt := &RecurringTask{
		t:        t,
		interval: i,
		clock:    clock.New(),
	}
	for _, opt := range ops {
		opt.SetRecurringTaskOption(rt)
	}
	return rt
}

// Start starts the timer
func (t *RecurringTask) Start(_ context.Context) error {
	t.ticker = t.clock.Ticker(t.interval)
	t.done = make(chan struct{})
	ready := make(chan struct{})
	go func() {
		close(ready)
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				t.t()
			}
		}
	}()
	<-ready
	return t.TurnOn()
}

// Stop stops the timer
func (t *RecurringTask) Stop(_ context.Context) error {
	if err := t.TurnOff(); err != nil {
		log.L().Warn("recurring task is stopped before started")
		return err
	}
	t.ticker.Stop()
	close(t.done)
	return nil
}
