// Copyright 2019 The gVisor Authors.
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

package pagetables

import (
	"fmt"
)

// visitor is used for range iteration.
type visitor interface {
	// visit is called on each leaf entry in the range. Entries are visited
	// in address order. If visit returns false, the walk stops.
	visit(start uintptr, pte *PTE) bool

	// requiresAlloc indicates that invalid entries should be visited, with
	// intermediate tables allocated on the way down.
	requiresAlloc() bool
}

// Walker walks page tables.
type Walker struct {
	// pageTables are the tables to walk.
	pageTables *PageTables

	// visitor is the set of arguments.
	visitor visitor
}

// iterateRange iterates over all appropriate levels of page tables for the
// given range.
//
// If requiresAlloc is true, then visit is called on every leaf entry in the
// range, valid or not; otherwise only valid entries are visited and empty
// tables are skipped.
//
// Lower level tables that are empty once their part of the range has been
// walked are returned to the Allocator, so that the structure never holds an
// empty subtree.
//
// Precondition: start must be page-aligned.
// Precondition: start must be less than or equal to end.
// Precondition: end must not exceed maxAddr.
func (w *Walker) iterateRange(start, end uintptr) {
	if start%pteSize != 0 {
		panic(fmt.Sprintf("unaligned start: %#x", start))
	}
	if start > end {
		panic(fmt.Sprintf("start > end (%#x > %#x)", start, end))
	}
	if end > maxAddr {
		panic(fmt.Sprintf("end %#x beyond table limit %#x", end, uintptr(maxAddr)))
	}
	w.walkPUDs(w.pageTables.root, start, end)
}

// next returns the next address quantized by the given size.
func next(start, size uintptr) uintptr {
	start &= ^(size - 1)
	start += size
	return start
}

// addrEnd returns the next size boundary after addr, or end if that comes
// first.
func addrEnd(addr, end, size uintptr) uintptr {
	n := next(addr, size)
	if n < addr || n > end {
		return end
	}
	return n
}

// walkPTEs iterates over leaf entries in [start, end).
//
// Returns false if the visitor stopped the walk.
func (w *Walker) walkPTEs(entries *PTEs, start, end uintptr) bool {
	for start < end {
		entry := &entries[(start&pteMask)>>pteShift]
		if entry.Valid() || w.visitor.requiresAlloc() {
			if !w.visitor.visit(start, entry) {
				return false
			}
		}
		start += pteSize
	}
	return true
}

// walkPMDs iterates over the PMD entries in the given range.
func (w *Walker) walkPMDs(pmdEntries *PTEs, start, end uintptr) bool {
	for start < end {
		nextBoundary := addrEnd(start, end, pmdSize)
		pmdEntry := &pmdEntries[(start&pmdMask)>>pmdShift]
		var pteEntries *PTEs
		if !pmdEntry.Valid() {
			if !w.visitor.requiresAlloc() {
				// Skip over this entry.
				start = nextBoundary
				continue
			}

			// Allocate a new pte table.
			pteEntries = w.pageTables.Allocator.NewPTEs()
			pmdEntry.setPageTable(w.pageTables, pteEntries)
		} else {
			pteEntries = w.pageTables.Allocator.LookupPTEs(pmdEntry.Frame())
		}

		ok := w.walkPTEs(pteEntries, start, nextBoundary)

		// Check if we no longer need this page.
		if pteEntries.empty() {
			pmdEntry.Clear()
			w.pageTables.Allocator.FreePTEs(pteEntries)
		}
		if !ok {
			return false
		}
		start = nextBoundary
	}
	return true
}

// walkPUDs iterates over the PUD (root) entries in the given range.
func (w *Walker) walkPUDs(pudEntries *PTEs, start, end uintptr) bool {
	for start < end {
		nextBoundary := addrEnd(start, end, pudSize)
		pudEntry := &pudEntries[(start&pudMask)>>pudShift]
		var pmdEntries *PTEs
		if !pudEntry.Valid() {
			if !w.visitor.requiresAlloc() {
				// Skip over this entry.
				start = nextBoundary
				continue
			}

			// Allocate a new pmd table.
			pmdEntries = w.pageTables.Allocator.NewPTEs()
			pudEntry.setPageTable(w.pageTables, pmdEntries)
		} else {
			pmdEntries = w.pageTables.Allocator.LookupPTEs(pudEntry.Frame())
		}

		ok := w.walkPMDs(pmdEntries, start, nextBoundary)

		if pmdEntries.empty() {
			pudEntry.Clear()
			w.pageTables.Allocator.FreePTEs(pmdEntries)
		}
		if !ok {
			return false
		}
		start = nextBoundary
	}
	return true
}

// empty returns true iff no entry is valid.
func (ptes *PTEs) empty() bool {
	for i := range ptes {
		if ptes[i].Valid() {
			return false
		}
	}
	return true
}
