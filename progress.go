// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import (
	"sync/atomic"
	"time"
)

// ProgressFunc is called with an opaque caller context, a percentage in
// 0..100, and a UTF-8 status message. It is invoked from the same goroutine
// that is decoding or encoding.
type ProgressFunc func(ctx any, percent int, message string)

// progressSink throttles ProgressFunc calls to roughly one every 500ms;
// callers must not assume finer granularity.
type progressSink struct {
	fn       ProgressFunc
	ctx      any
	min, max int
	last     time.Time
	started  bool
}

func newProgressSink(fn ProgressFunc, ctx any, min, max int) *progressSink {
	if fn == nil {
		return nil
	}
	return &progressSink{fn: fn, ctx: ctx, min: min, max: max}
}

const progressThrottle = 500 * time.Millisecond

// report emits a progress update for a fractional position in [0,1], subject
// to throttling. The first and a final report (frac==1) are never dropped.
func (p *progressSink) report(frac float64, message string) {
	if p == nil {
		return
	}
	now := time.Now()
	if p.started && frac < 1 && now.Sub(p.last) < progressThrottle {
		return
	}
	p.started = true
	p.last = now
	percent := p.min + int(frac*float64(p.max-p.min))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.fn(p.ctx, percent, message)
}

// CancelHandle is a pollable, one-way flag: once set, it cannot be cleared.
// A nil *CancelHandle is always "not cancelled", so passing one is optional.
type CancelHandle struct {
	cancelled atomic.Bool
}

// NewCancelHandle returns a fresh, uncancelled handle.
func NewCancelHandle() *CancelHandle {
	return &CancelHandle{}
}

// Cancel sets the handle. It is safe to call from any goroutine, any number
// of times.
func (c *CancelHandle) Cancel() {
	if c != nil {
		c.cancelled.Store(true)
	}
}

// Cancelled reports whether the handle has been cancelled. A nil handle is
// never cancelled.
func (c *CancelHandle) Cancelled() bool {
	return c != nil && c.cancelled.Load()
}
