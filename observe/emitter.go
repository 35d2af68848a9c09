// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package observe

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/pkg/log"
)

var (
	_checkpointMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotex_subnet_checkpoint",
			Help: "Bottom-up checkpoint events.",
		},
		[]string{"type"},
	)
	_parentFinalityMtc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "iotex_subnet_parent_finality_height",
			Help: "Last committed parent finality height.",
		},
	)
	_cachedBlocksMtc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "iotex_subnet_parent_view_cached_blocks",
			Help: "Parent heights held in the parent view cache.",
		},
	)
	_invariantMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotex_subnet_invariant_violation",
			Help: "Checked invariants that did not hold.",
		},
		[]string{"invariant"},
	)
	_tracingErrorMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotex_subnet_tracing_error",
			Help: "Events that could not be produced.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(_checkpointMtc)
	prometheus.MustRegister(_parentFinalityMtc)
	prometheus.MustRegister(_cachedBlocksMtc)
	prometheus.MustRegister(_invariantMtc)
	prometheus.MustRegister(_tracingErrorMtc)
}

// SetCachedBlocks reports the size of the parent view cache
func SetCachedBlocks(n uint64) {
	_cachedBlocksMtc.Set(float64(n))
}

// Emitter consumes domain events
type Emitter interface {
	Emit(Event)
}

type defaultEmitter struct {
	logger *zap.Logger
}

// NewEmitter returns an emitter that logs events and updates metrics
func NewEmitter(logger *zap.Logger) Emitter {
	return &defaultEmitter{logger: logger}
}

// Default returns the emitter logging to the "observe" logger
func Default() Emitter {
	return NewEmitter(log.Logger("observe"))
}

func (e *defaultEmitter) Emit(ev Event) {
	switch v := ev.(type) {
	case CheckpointCreated:
		_checkpointMtc.WithLabelValues("created").Inc()
	case CheckpointSigned:
		_checkpointMtc.WithLabelValues("signed_" + string(v.Role)).Inc()
	case CheckpointFinalized:
		_checkpointMtc.WithLabelValues("finalized").Inc()
	case ParentFinalityCommitted:
		_parentFinalityMtc.Set(float64(v.BlockHeight))
	case InvariantViolation:
		_invariantMtc.WithLabelValues(v.Invariant).Inc()
		e.logger.Error("invariant violated", v.Fields()...)
		return
	case TracingError:
		_tracingErrorMtc.WithLabelValues(v.AffectedEvent).Inc()
		e.logger.Warn("failed to trace event", v.Fields()...)
		return
	}
	e.logger.Info(ev.Name(), ev.Fields()...)
}

// Recorder keeps emitted events in memory, and forwards them to an optional emitter
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   Emitter
}

// NewRecorder creates a recorder
func NewRecorder(next Emitter) *Recorder {
	return &Recorder{next: next}
}

// Emit implements Emitter
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Emit(ev)
	}
}

// Events returns the events recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]Event, len(r.events))
	copy(ret, r.events)
	return ret
}

// Named returns the recorded events with the given name
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []Event
	for _, ev := range r.events {
		if ev.Name() == name {
			ret = append(ret, ev)
		}
	}
	return ret
}
