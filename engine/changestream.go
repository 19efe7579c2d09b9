// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the change-tuple stream the control plane emits at
// mutation commit (spec §2, §5): an MPSC channel from the engine (producer)
// to an external change-stream collaborator (consumer), with a drop-oldest
// backpressure policy when the buffer is full. golang.org/x/time/rate caps
// how often a full buffer logs a drop warning, so a sustained burst of
// drops doesn't itself become a logging bottleneck.
package engine

import (
	"time"

	"golang.org/x/time/rate"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/syloe1/kv-db-sub001/value"
)

// ChangeKind mirrors the mutation that produced a ChangeTuple.
type ChangeKind int

const (
	ChangePut ChangeKind = iota
	ChangeDelete
)

// ChangeTuple is the (key, old, new, kind) tuple the engine hands to the
// external change-stream collaborator (spec §2).
type ChangeTuple struct {
	Key  string
	Old  value.TypedValue
	New  value.TypedValue
	Kind ChangeKind
	LSN  uint64
}

// ChangeStream is a bounded MPSC channel of ChangeTuples. When full, Publish
// drops the oldest buffered tuple rather than blocking the committing
// writer (spec §5: "the engine drops the oldest buffered tuple").
type ChangeStream struct {
	ch      chan ChangeTuple
	dropLim *rate.Limiter
	onDrop  func()
}

// NewChangeStream creates a stream with the given buffer capacity.
func NewChangeStream(capacity int) *ChangeStream {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ChangeStream{
		ch:      make(chan ChangeTuple, capacity),
		dropLim: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// SetDropHook registers fn to be called once per tuple dropped for backpressure,
// in addition to the rate-limited log warning. Used to feed a metrics counter.
func (s *ChangeStream) SetDropHook(fn func()) { s.onDrop = fn }

// Publish enqueues t, dropping the oldest buffered tuple first if the
// channel is full.
func (s *ChangeStream) Publish(t ChangeTuple) {
	for {
		select {
		case s.ch <- t:
			return
		default:
			select {
			case <-s.ch:
				if s.onDrop != nil {
					s.onDrop()
				}
				if s.dropLim.Allow() {
					cclog.Warnf("[ChangeStream]> buffer full, dropped oldest tuple")
				}
			default:
			}
		}
	}
}

// Chan exposes the receive side for the external consumer (spec §2: "the
// stream is the consumer").
func (s *ChangeStream) Chan() <-chan ChangeTuple { return s.ch }

// Close closes the channel. Callers must stop publishing before calling Close.
func (s *ChangeStream) Close() { close(s.ch) }
