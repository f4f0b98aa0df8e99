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

package mm

import (
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/hostarch"
)

// checkUserRange returns [addr, addr+length) rounded up to whole pages, or
// ErrInvalidRange if it wraps or leaves the user address space.
//
// Preconditions: addr is page-aligned.
func checkUserRange(addr hostarch.Addr, length uint64) (hostarch.AddrRange, error) {
	ar, ok := addr.ToRange(length)
	if !ok {
		return hostarch.AddrRange{}, ErrInvalidRange
	}
	ar, ok = ar.PageRoundUp()
	if !ok || ar.End > hostarch.MaxUserAddress {
		return hostarch.AddrRange{}, ErrInvalidRange
	}
	return ar, nil
}

// MMap creates an anonymous mapping of [addr, addr+length), rounded up to
// whole pages, with the access given by prot, a combination of
// linux.PROT_READ, linux.PROT_WRITE and linux.PROT_EXEC. Every page is
// backed by a fresh zeroed frame and is accessible from user mode.
//
// Argument errors are reported before anything is changed. If physical
// memory runs out partway, MMap returns pgalloc.ErrOutOfMemory and the pages
// mapped so far remain mapped. They are recorded as a vma like any other
// mapping, so later calls see them as existing and MUnmap can free them.
func (mm *MemoryManager) MMap(ctx context.Context, addr hostarch.Addr, length uint64, prot uint64) error {
	if !addr.IsPageAligned() {
		return ErrUnaligned
	}
	if prot&^linux.PROT_MASK != 0 {
		return ErrInvalidPermission
	}
	if prot&linux.PROT_MASK == 0 {
		return ErrEmptyPermission
	}
	if length == 0 {
		return nil
	}
	ar, err := checkUserRange(addr, length)
	if err != nil {
		return err
	}
	perms := linux.ProtToAccessType(prot)

	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()

	if mm.vmas.overlaps(ar) || mm.heapPagesLocked().Overlaps(ar) {
		return ErrOverlapExisting
	}
	done, err := mm.mapPagesLocked(ar, perms)
	if done.Length() != 0 {
		mm.vmas.insert(&vma{
			ar:    done,
			perms: perms,
			hint:  vmaHintAnon,
		})
	}
	if err != nil {
		ctx.Warningf("mmap %v: %v after mapping %v", ar, err, done)
		return err
	}
	ctx.Debugf("mmap %v %v", ar, perms)
	return nil
}

// MUnmap removes the mappings of [addr, addr+length), rounded up to whole
// pages, and frees their frames. Every page in the range must belong to a
// mapping created by MMap; otherwise MUnmap returns ErrNotMapped and changes
// nothing.
func (mm *MemoryManager) MUnmap(ctx context.Context, addr hostarch.Addr, length uint64) error {
	if !addr.IsPageAligned() {
		return ErrUnaligned
	}
	if length == 0 {
		return nil
	}
	ar, err := checkUserRange(addr, length)
	if err != nil {
		return ErrNotMapped
	}

	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()

	if !mm.vmas.covers(ar) {
		return ErrNotMapped
	}
	mm.unmapPagesLocked(ar)
	mm.vmas.remove(ar)
	ctx.Debugf("munmap %v", ar)
	return nil
}

// BrkSetup sets mm's heap origin and program break to addr, discarding any
// existing heap.
func (mm *MemoryManager) BrkSetup(ctx context.Context, addr hostarch.Addr) error {
	if !addr.IsPageAligned() {
		return ErrUnaligned
	}
	if addr >= hostarch.MaxUserAddress {
		return ErrInvalidRange
	}

	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()

	if heap := mm.heapPagesLocked(); heap.Length() != 0 {
		mm.unmapPagesLocked(heap)
	}
	mm.brk = hostarch.AddrRange{Start: addr, End: addr}
	ctx.Debugf("heap origin %#x", addr)
	return nil
}

// Brk returns the current program break.
func (mm *MemoryManager) Brk() hostarch.Addr {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.brk.End
}

// Sbrk moves the program break by delta bytes and returns its previous value.
// Heap pages are mapped read-write as the break grows past a page boundary
// and unmapped as it shrinks back.
//
// Sbrk(0) returns the break unchanged. On failure the break and the heap
// mappings are left exactly as they were: growth that would overlap a
// mapping or run out of memory is undone before returning.
func (mm *MemoryManager) Sbrk(ctx context.Context, delta int64) (hostarch.Addr, error) {
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()

	old := mm.brk.End
	newBrk := old + hostarch.Addr(delta)
	switch {
	case delta < 0 && (newBrk > old || newBrk < mm.brk.Start):
		return old, ErrBelowHeapOrigin
	case delta > 0 && (newBrk < old || newBrk > hostarch.MaxUserAddress):
		return old, ErrInvalidRange
	}

	oldPages := mm.heapPagesLocked()
	newPages := hostarch.AddrRange{Start: mm.brk.Start, End: newBrk.MustRoundUp()}
	switch {
	case newPages.End > oldPages.End:
		grow := hostarch.AddrRange{Start: oldPages.End, End: newPages.End}
		if mm.vmas.overlaps(grow) {
			return old, ErrOverlapExisting
		}
		if done, err := mm.mapPagesLocked(grow, hostarch.ReadWrite); err != nil {
			mm.unmapPagesLocked(done)
			return old, err
		}
	case newPages.End < oldPages.End:
		mm.unmapPagesLocked(hostarch.AddrRange{Start: newPages.End, End: oldPages.End})
	}
	mm.brk.End = newBrk
	if delta != 0 {
		ctx.Debugf("sbrk(%d): break %#x -> %#x", delta, old, newBrk)
	}
	return old, nil
}
