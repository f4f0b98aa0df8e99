// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ktime provides the kernel's monotonic clock.
package ktime

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/context"
)

// Time represents an instant in time with nanosecond precision, measured from
// an unspecified origin of its Clock.
type Time struct {
	ns int64
}

var (
	// MinTime is the zero time instant, the lowest possible time that can
	// be represented by Time.
	MinTime = Time{ns: math.MinInt64}

	// MaxTime is the highest possible time that can be represented by
	// Time.
	MaxTime = Time{ns: math.MaxInt64}

	// ZeroTime represents the zero time in an unspecified Clock's domain.
	ZeroTime = Time{ns: 0}
)

const (
	// MinDuration is the minimum duration representable by time.Duration.
	MinDuration = time.Duration(math.MinInt64)

	// MaxDuration is the maximum duration representable by time.Duration.
	MaxDuration = time.Duration(math.MaxInt64)
)

// FromNanoseconds returns a Time representing the point ns nanoseconds after
// an unspecified Clock's zero time.
func FromNanoseconds(ns int64) Time {
	return Time{ns}
}

// Nanoseconds returns nanoseconds elapsed since the zero time in t's Clock
// domain.
func (t Time) Nanoseconds() int64 {
	return t.ns
}

// Microseconds returns microseconds elapsed since the zero time in t's Clock
// domain.
func (t Time) Microseconds() int64 {
	return t.ns / 1000
}

// Milliseconds returns milliseconds elapsed since the zero time in t's Clock
// domain.
func (t Time) Milliseconds() int64 {
	return t.ns / 1e6
}

// Timeval converts Time to a Linux timeval.
func (t Time) Timeval() linux.Timeval {
	return linux.NsecToTimeval(t.Nanoseconds())
}

// Add adds the duration of d to t.
func (t Time) Add(d time.Duration) Time {
	if t.ns > 0 && d.Nanoseconds() > math.MaxInt64-int64(t.ns) {
		return MaxTime
	}
	if t.ns < 0 && d.Nanoseconds() < math.MinInt64-int64(t.ns) {
		return MinTime
	}
	return Time{int64(t.ns) + d.Nanoseconds()}
}

// Equal reports whether the two times represent the same instant in time.
func (t Time) Equal(u Time) bool {
	return t.ns == u.ns
}

// Before reports whether the instant t is before the instant u.
func (t Time) Before(u Time) bool {
	return t.ns < u.ns
}

// After reports whether the instant t is after the instant u.
func (t Time) After(u Time) bool {
	return t.ns > u.ns
}

// Sub returns the duration of t - u.
func (t Time) Sub(u Time) time.Duration {
	dur := time.Duration(int64(t.ns)-int64(u.ns)) * time.Nanosecond
	switch {
	case u.Add(dur).Equal(t):
		return dur
	case t.Before(u):
		return MinDuration
	default:
		return MaxDuration
	}
}

// IsZero returns whether t represents the zero time instant in t's Clock domain.
func (t Time) IsZero() bool {
	return t == ZeroTime
}

// String returns the time represented in nanoseconds as a string.
func (t Time) String() string {
	return fmt.Sprintf("%dns", t.Nanoseconds())
}

// A Clock is an abstract time source.
type Clock interface {
	// Now returns the current time in nanoseconds according to the Clock.
	// Successive calls never go backward.
	Now() Time
}

// MonotonicClock reads the host's monotonic clock. Its zero time is the
// moment it was created.
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a MonotonicClock starting at zero now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{origin: time.Now()}
}

// Now implements Clock.Now.
func (c *MonotonicClock) Now() Time {
	// time.Since uses the monotonic reading of origin.
	return FromNanoseconds(time.Since(c.origin).Nanoseconds())
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now Time
}

// Now implements Clock.Now.
func (c *ManualClock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves c forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// contextID is the time package's type for context.Context.Value keys.
type contextID int

const (
	// CtxMonotonicClock is a Context.Value key for the kernel's clock.
	CtxMonotonicClock contextID = iota
)

// ClockFromContext returns the clock associated with context ctx, or nil.
func ClockFromContext(ctx context.Context) Clock {
	if v := ctx.Value(CtxMonotonicClock); v != nil {
		return v.(Clock)
	}
	return nil
}

// NowFromContext returns the current time of the clock associated with ctx.
func NowFromContext(ctx context.Context) Time {
	if clk := ClockFromContext(ctx); clk != nil {
		return clk.Now()
	}
	panic("encountered context without a clock")
}
