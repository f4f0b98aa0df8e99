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

// Package contexttest builds a test context.Context.
package contexttest

import (
	stdcontext "context"
	"testing"

	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/sentry/ktime"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
)

// DefaultFrames is the size of the physical memory created by Context.
const DefaultFrames = 256

// Context returns a Context that may be used in tests. It logs to tb at
// debug level, and carries a ktime.ManualClock and a MemoryFile of
// DefaultFrames frames that is destroyed when the test ends.
func Context(tb testing.TB) context.Context {
	return WithFrames(tb, DefaultFrames)
}

// WithFrames is like Context, but with a MemoryFile of the given size.
func WithFrames(tb testing.TB, frames uint64) context.Context {
	tb.Helper()
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: frames})
	if err != nil {
		tb.Fatalf("creating physical memory: %v", err)
	}
	tb.Cleanup(func() {
		if err := mf.Destroy(); err != nil {
			tb.Errorf("destroying physical memory: %v", err)
		}
	})
	// Test usage of context.Background is fine.
	return &testContext{
		Context: context.WithLogger(stdcontext.Background(), &log.BasicLogger{
			Level:   log.Debug,
			Emitter: &log.TestEmitter{TestLogger: tb},
		}),
		mf:    mf,
		clock: &ktime.ManualClock{},
	}
}

type testContext struct {
	context.Context
	mf    *pgalloc.MemoryFile
	clock *ktime.ManualClock
}

// Value implements context.Context.
func (t *testContext) Value(key any) any {
	switch key {
	case pgalloc.CtxMemoryFile:
		return t.mf
	case ktime.CtxMonotonicClock:
		return t.clock
	default:
		return t.Context.Value(key)
	}
}

// MemoryFile returns the MemoryFile carried by a Context from this package.
func MemoryFile(ctx context.Context) *pgalloc.MemoryFile {
	return pgalloc.MemoryFileFromContext(ctx)
}

// Clock returns the ManualClock carried by a Context from this package.
func Clock(ctx context.Context) *ktime.ManualClock {
	return ktime.ClockFromContext(ctx).(*ktime.ManualClock)
}
