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

// Package mm provides the virtual address spaces of user tasks.
//
// Lock order:
//
//	mm.mappingMu
//	  pgalloc.MemoryFile.mu
package mm

import (
	"fmt"
	"sync"

	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/ring0/pagetables"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
)

// MemoryManager implements a virtual address space.
//
// A MemoryManager is owned by exactly one task. Its mutex lets observers such
// as the maps listing read it while the owner runs.
type MemoryManager struct {
	// mf is the physical memory frames are allocated from. mf is
	// immutable.
	mf *pgalloc.MemoryFile

	// mappingMu is analogous to Linux's struct mm_struct::mmap_sem.
	mappingMu sync.RWMutex

	// pt maps every page of vmas and of the heap to its frame, and nothing
	// else. Each frame named by a leaf entry of pt is owned by this
	// MemoryManager.
	//
	// pt is protected by mappingMu.
	pt *pagetables.PageTables

	// vmas is the set of mappings created by MMap. The heap is not a member.
	//
	// vmas is protected by mappingMu.
	vmas vmaSet

	// brk is the heap: brk.Start is its fixed origin and brk.End the current
	// program break. The pages [brk.Start, roundup(brk.End)) are mapped
	// read-write.
	//
	// brk is protected by mappingMu.
	brk hostarch.AddrRange

	// released is set by Release.
	//
	// released is protected by mappingMu.
	released bool
}

// NewMemoryManager returns a new, empty MemoryManager whose pages are
// allocated from mf.
func NewMemoryManager(mf *pgalloc.MemoryFile) *MemoryManager {
	return &MemoryManager{
		mf:   mf,
		pt:   pagetables.New(pagetables.NewRuntimeAllocator()),
		vmas: newVMASet(),
	}
}

// Token returns the value that would be loaded into satp to activate mm.
func (mm *MemoryManager) Token() uint64 {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.pt.Token()
}

// VMAs returns a snapshot of the mappings created by MMap, in address order.
func (mm *MemoryManager) VMAs() []VMA {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.vmas.snapshot()
}

// Heap returns the heap range [origin, break).
func (mm *MemoryManager) Heap() hostarch.AddrRange {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.brk
}

// VirtualMemorySize returns the number of bytes in the mm's address space,
// heap included.
func (mm *MemoryManager) VirtualMemorySize() uint64 {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.vmas.span() + uint64(mm.heapPagesLocked().Length())
}

// ResidentPages returns the number of frames mapped by mm.
func (mm *MemoryManager) ResidentPages() uint64 {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	var n uint64
	mm.pt.Visit(func(hostarch.PageNumber, pagetables.PTE) bool {
		n++
		return true
	})
	return n
}

// Release tears down the address space: every frame is returned to the
// MemoryFile and the page tables are emptied. mm must not be used afterward,
// except that further calls to Release are no-ops.
func (mm *MemoryManager) Release(ctx context.Context) {
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()
	if mm.released {
		return
	}
	mm.released = true

	var frames []pgalloc.FrameNumber
	mm.pt.Visit(func(_ hostarch.PageNumber, pte pagetables.PTE) bool {
		frames = append(frames, pgalloc.FrameNumber(pte.Frame()))
		return true
	})
	mm.pt.Release()
	for _, fn := range frames {
		mm.mf.Free(fn)
	}
	mm.vmas.clear()
	mm.brk = hostarch.AddrRange{Start: mm.brk.Start, End: mm.brk.Start}
	ctx.Debugf("Released address space %#x: %d frames freed", mm.pt.Token(), len(frames))
}

// heapPagesLocked returns the page-aligned range backing the heap.
//
// Preconditions: mm.mappingMu must be locked.
func (mm *MemoryManager) heapPagesLocked() hostarch.AddrRange {
	return hostarch.AddrRange{Start: mm.brk.Start, End: mm.brk.End.MustRoundUp()}
}

// mapPagesLocked allocates and maps one frame for each page of ar. If a frame
// cannot be allocated, mapPagesLocked stops and returns the error along with
// the prefix of ar that was mapped.
//
// Preconditions: mm.mappingMu must be locked for writing. ar is page-aligned
// and no page of ar is mapped.
func (mm *MemoryManager) mapPagesLocked(ar hostarch.AddrRange, perms hostarch.AccessType) (hostarch.AddrRange, error) {
	opts := pagetables.MapOpts{AccessType: perms, User: true}
	done := hostarch.AddrRange{Start: ar.Start, End: ar.Start}
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		fn, err := mm.mf.Allocate()
		if err != nil {
			return done, err
		}
		if err := mm.pt.Map(addr.PageNumber(), uint64(fn), opts); err != nil {
			mm.mf.Free(fn)
			return done, err
		}
		done.End = addr + hostarch.PageSize
	}
	return done, nil
}

// unmapPagesLocked unmaps every page of ar and frees its frame.
//
// Preconditions: mm.mappingMu must be locked for writing. ar is page-aligned
// and every page of ar is mapped.
func (mm *MemoryManager) unmapPagesLocked(ar hostarch.AddrRange) {
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		pte, err := mm.pt.Unmap(addr.PageNumber())
		if err != nil {
			panic(fmt.Sprintf("unmapping page %#x: %v", addr, err))
		}
		mm.mf.Free(pgalloc.FrameNumber(pte.Frame()))
	}
}
