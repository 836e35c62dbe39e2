// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package mca

import (
	"time"

	"github.com/dreamhelium/go-nbt"
)

// progress throttles a ProgressFunc to roughly one call every 500ms while
// iterating chunk slots, mirroring the nbt package's own progressSink:
// progress is throttled by elapsed wall-clock time, not by a fixed step
// count.
type progress struct {
	fn   nbt.ProgressFunc
	ctx  any
	last time.Time
	sent bool
}

func newProgress(fn nbt.ProgressFunc, ctx any) *progress {
	if fn == nil {
		return nil
	}
	return &progress{fn: fn, ctx: ctx}
}

const progressThrottle = 500 * time.Millisecond

func (p *progress) report(slot, total int) {
	if p == nil {
		return
	}
	now := time.Now()
	last := slot == total-1
	if p.sent && !last && now.Sub(p.last) < progressThrottle {
		return
	}
	p.sent = true
	p.last = now
	percent := 0
	if total > 0 {
		percent = slot * 100 / total
	}
	p.fn(p.ctx, percent, "Reading MCA chunk table.")
}
