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

package pgalloc

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/hostarch"
)

func newTestMemoryFile(t *testing.T, frames uint64) *MemoryFile {
	t.Helper()
	mf, err := NewMemoryFile(MemoryFileOpts{Frames: frames})
	if err != nil {
		t.Fatalf("NewMemoryFile failed: %v", err)
	}
	t.Cleanup(func() {
		if err := mf.Destroy(); err != nil {
			t.Errorf("Destroy failed: %v", err)
		}
	})
	return mf
}

func TestNewMemoryFileRejectsEmpty(t *testing.T) {
	if _, err := NewMemoryFile(MemoryFileOpts{}); err == nil {
		t.Errorf("NewMemoryFile with no frames succeeded")
	}
}

func TestAllocateUntilExhausted(t *testing.T) {
	mf := newTestMemoryFile(t, 4)

	var got []FrameNumber
	for i := 0; i < 4; i++ {
		fn, err := mf.Allocate()
		if err != nil {
			t.Fatalf("Allocate #%d failed: %v", i, err)
		}
		got = append(got, fn)
	}
	want := []FrameNumber{DefaultBaseFrame, DefaultBaseFrame + 1, DefaultBaseFrame + 2, DefaultBaseFrame + 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("allocated frames mismatch (-want +got):\n%s", diff)
	}
	if _, err := mf.Allocate(); err != ErrOutOfMemory {
		t.Errorf("Allocate on exhausted memory got err %v, want %v", err, ErrOutOfMemory)
	}
	if got, want := mf.FreeFrames(), uint64(0); got != want {
		t.Errorf("FreeFrames = %d, want %d", got, want)
	}

	mf.Free(want[2])
	fn, err := mf.Allocate()
	if err != nil {
		t.Fatalf("Allocate after Free failed: %v", err)
	}
	if fn != want[2] {
		t.Errorf("Allocate after Free got %#x, want the freed frame %#x", fn, want[2])
	}
}

func TestAllocateZeroes(t *testing.T) {
	mf := newTestMemoryFile(t, 1)

	fn, err := mf.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	b := mf.MapInternal(fn)
	if b.Len() != hostarch.PageSize {
		t.Fatalf("MapInternal length = %d, want %d", b.Len(), hostarch.PageSize)
	}
	for i := range b.ToSlice() {
		b.ToSlice()[i] = 0xa5
	}
	mf.Free(fn)

	fn, err = mf.Allocate()
	if err != nil {
		t.Fatalf("second Allocate failed: %v", err)
	}
	for i, v := range mf.MapInternal(fn).ToSlice() {
		if v != 0 {
			t.Fatalf("byte %d of reallocated frame = %#x, want 0", i, v)
		}
	}
}

func TestFreeUnallocatedPanics(t *testing.T) {
	mf := newTestMemoryFile(t, 2)
	fn, err := mf.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	mf.Free(fn)

	defer func() {
		if recover() == nil {
			t.Errorf("double Free did not panic")
		}
	}()
	mf.Free(fn)
}

func TestBaseFrame(t *testing.T) {
	mf, err := NewMemoryFile(MemoryFileOpts{Frames: 1, BaseFrame: 0x100})
	if err != nil {
		t.Fatalf("NewMemoryFile failed: %v", err)
	}
	defer mf.Destroy()

	fn, err := mf.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if fn != 0x100 {
		t.Errorf("Allocate got %#x, want 0x100", fn)
	}
	if got, want := fn.Addr(), uint64(0x100000); got != want {
		t.Errorf("Addr got %#x, want %#x", got, want)
	}
}

func TestConcurrentAllocate(t *testing.T) {
	const (
		workers   = 8
		perWorker = 16
	)
	mf := newTestMemoryFile(t, workers*perWorker)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[FrameNumber]bool)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				fn, err := mf.Allocate()
				if err != nil {
					t.Errorf("Allocate failed: %v", err)
					return
				}
				mu.Lock()
				if seen[fn] {
					t.Errorf("frame %#x allocated twice", fn)
				}
				seen[fn] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if got, want := mf.UsedFrames(), uint64(workers*perWorker); got != want {
		t.Errorf("UsedFrames = %d, want %d", got, want)
	}
}

func TestMemoryFileFromContext(t *testing.T) {
	mf := newTestMemoryFile(t, 1)
	ctx := context.Background()
	if got := MemoryFileFromContext(ctx); got != nil {
		t.Errorf("MemoryFileFromContext on empty context = %p, want nil", got)
	}
	ctx = context.WithValue(ctx, CtxMemoryFile, mf)
	if got := MemoryFileFromContext(ctx); got != mf {
		t.Errorf("MemoryFileFromContext = %p, want %p", got, mf)
	}
}
