// Copyright 2026 The gVisor Authors.
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

// Package pgalloc contains the physical memory of the machine and the
// allocator that hands it out one page frame at a time.
package pgalloc

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
	"gvisor.dev/uvm/pkg/abi/linux/errno"
	"gvisor.dev/uvm/pkg/bitmap"
	"gvisor.dev/uvm/pkg/errors"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/safemem"
)

// ErrOutOfMemory is returned by Allocate when every frame is in use.
var ErrOutOfMemory = errors.New(errno.ENOMEM, "out of physical frames")

// FrameNumber is a physical frame number: the physical address of a frame
// shifted right by hostarch.PageShift.
type FrameNumber uint64

// Addr returns the physical address of the first byte of the frame.
func (fn FrameNumber) Addr() uint64 {
	return uint64(fn) << hostarch.PageShift
}

// DefaultBaseFrame is the first frame number handed out when
// MemoryFileOpts.BaseFrame is unset. It corresponds to physical address
// 0x80000000, where RAM starts on the RISC-V virt machine.
const DefaultBaseFrame FrameNumber = 0x80000

// MemoryFileOpts provides options to NewMemoryFile.
type MemoryFileOpts struct {
	// Frames is the number of page frames of physical memory.
	Frames uint64

	// BaseFrame is the frame number of the first frame. Frame numbers below
	// BaseFrame are never allocated, so a zeroed page table entry can never
	// name a live frame.
	BaseFrame FrameNumber
}

// MemoryFile is the physical memory of the machine. Its bytes live in an
// anonymous host mapping; the kernel reads and writes them directly through
// MapInternal.
//
// MemoryFile is shared by every address space. All allocations and frees
// are serialized by mu.
type MemoryFile struct {
	opts MemoryFileOpts

	// arena is the host mapping backing physical memory. arena is immutable
	// until Destroy.
	arena []byte

	mu sync.Mutex

	// used has one bit per frame, set while the frame is allocated.
	//
	// used is protected by mu.
	used bitmap.Bitmap

	// hint is the index at which the next search for a free frame starts.
	//
	// hint is protected by mu.
	hint uint32
}

// NewMemoryFile creates a MemoryFile with opts.Frames frames of zeroed
// physical memory.
func NewMemoryFile(opts MemoryFileOpts) (*MemoryFile, error) {
	if opts.Frames == 0 {
		return nil, fmt.Errorf("physical memory must have at least one frame")
	}
	if opts.Frames > uint64(bitmap.MaxBitEntryLimit) {
		return nil, fmt.Errorf("%d frames exceeds the limit of %d", opts.Frames, bitmap.MaxBitEntryLimit)
	}
	if opts.BaseFrame == 0 {
		opts.BaseFrame = DefaultBaseFrame
	}
	size := int(opts.Frames) * hostarch.PageSize
	// Host pages may be larger than ours; round the mapping up so that the
	// length is acceptable to mmap.
	if hp := unix.Getpagesize(); size%hp != 0 {
		size += hp - size%hp
	}
	arena, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("failed to map %d bytes of physical memory: %w", size, err)
	}
	log.Debugf("Physical memory: %d frames at PFN %#x, host mapping %#x bytes", opts.Frames, opts.BaseFrame, size)
	return &MemoryFile{
		opts:  opts,
		arena: arena,
		used:  bitmap.New(uint32(opts.Frames)),
	}, nil
}

// Destroy releases the host mapping. The MemoryFile and every Block obtained
// from it must not be used afterward.
func (f *MemoryFile) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.arena == nil {
		return nil
	}
	err := unix.Munmap(f.arena)
	f.arena = nil
	return err
}

// Allocate returns a zeroed frame owned by the caller, or ErrOutOfMemory.
func (f *MemoryFile) Allocate() (FrameNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, err := f.used.FirstZero(f.hint)
	if err != nil && f.hint != 0 {
		idx, err = f.used.FirstZero(0)
	}
	if err != nil {
		return 0, ErrOutOfMemory
	}
	f.used.Add(idx)
	f.hint = idx + 1
	if f.hint >= f.used.Size() {
		f.hint = 0
	}
	clear(f.frameSliceLocked(idx))
	return f.opts.BaseFrame + FrameNumber(idx), nil
}

// Free returns fn to the allocator.
//
// Preconditions: fn was returned by Allocate and has not been freed since.
func (f *MemoryFile) Free(fn FrameNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexLocked(fn)
	if !f.used.Contains(idx) {
		panic(fmt.Sprintf("frame %#x freed while not allocated", fn))
	}
	f.used.Remove(idx)
}

// MapInternal returns the kernel's view of the bytes of frame fn.
//
// Preconditions: fn is allocated.
func (f *MemoryFile) MapInternal(fn FrameNumber) safemem.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexLocked(fn)
	if !f.used.Contains(idx) {
		panic(fmt.Sprintf("frame %#x accessed while not allocated", fn))
	}
	return safemem.BlockFromSafeSlice(f.frameSliceLocked(idx))
}

// TotalFrames returns the number of frames of physical memory.
func (f *MemoryFile) TotalFrames() uint64 {
	return f.opts.Frames
}

// UsedFrames returns the number of frames currently allocated.
func (f *MemoryFile) UsedFrames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(f.used.GetNumOnes())
}

// FreeFrames returns the number of frames available to Allocate.
func (f *MemoryFile) FreeFrames() uint64 {
	return f.TotalFrames() - f.UsedFrames()
}

// Preconditions: f.mu must be locked.
func (f *MemoryFile) indexLocked(fn FrameNumber) uint32 {
	if fn < f.opts.BaseFrame || uint64(fn-f.opts.BaseFrame) >= f.opts.Frames {
		panic(fmt.Sprintf("frame %#x outside physical memory [%#x, %#x)", fn, f.opts.BaseFrame, f.opts.BaseFrame+FrameNumber(f.opts.Frames)))
	}
	return uint32(fn - f.opts.BaseFrame)
}

// Preconditions: f.mu must be locked.
func (f *MemoryFile) frameSliceLocked(idx uint32) []byte {
	off := int(idx) * hostarch.PageSize
	return f.arena[off : off+hostarch.PageSize : off+hostarch.PageSize]
}
