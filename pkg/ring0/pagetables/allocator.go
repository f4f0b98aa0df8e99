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

package pagetables

import (
	"fmt"
)

// Allocator is used to allocate and map PTEs.
//
// Note that allocators may be called concurrently.
type Allocator interface {
	// NewPTEs returns a new set of PTEs and their physical address.
	NewPTEs() *PTEs

	// PhysicalFor gives the physical frame number for the given PTEs.
	PhysicalFor(ptes *PTEs) uint64

	// LookupPTEs looks up PTEs by physical frame number.
	LookupPTEs(physical uint64) *PTEs

	// FreePTEs marks a set of PTEs a freed, although they may not be available
	// for use again until Recycle is called, below.
	FreePTEs(ptes *PTEs)

	// Recycle makes freed PTEs available for use again.
	Recycle()
}

// RuntimeAllocator is a trivial allocator that backs tables with the Go heap.
//
// Tables are named by small integer handles standing in for physical frame
// numbers. Handle 0 is never used, so a cleared entry never names a table.
type RuntimeAllocator struct {
	// next is the next unused handle.
	next uint64

	// used is the set of PTEs that have been allocated, by handle.
	used map[uint64]*PTEs

	// handles is the reverse of used.
	handles map[*PTEs]uint64

	// pool is the set of free-to-use PTEs.
	pool []*PTEs

	// freed is the set of recently-freed PTEs.
	freed []*PTEs
}

// NewRuntimeAllocator returns an allocator that uses runtime allocation.
func NewRuntimeAllocator() *RuntimeAllocator {
	return &RuntimeAllocator{
		next:    1,
		used:    make(map[uint64]*PTEs),
		handles: make(map[*PTEs]uint64),
	}
}

// Recycle returns freed pages to the pool.
func (r *RuntimeAllocator) Recycle() {
	r.pool = append(r.pool, r.freed...)
	r.freed = r.freed[:0]
}

// Drain empties the pool.
func (r *RuntimeAllocator) Drain() {
	r.Recycle()
	for i, ptes := range r.pool {
		// Zap the entry in the underlying array to ensure that it can be
		// properly garbage collected.
		r.pool[i] = nil
		delete(r.handles, ptes)
	}
	r.pool = r.pool[:0]
}

// Live returns the number of tables currently in use.
func (r *RuntimeAllocator) Live() int {
	return len(r.used)
}

// NewPTEs implements Allocator.NewPTEs.
//
// Note that the "physical" frame numbers here are only handles.
func (r *RuntimeAllocator) NewPTEs() *PTEs {
	var ptes *PTEs
	if n := len(r.pool); n > 0 {
		ptes = r.pool[n-1]
		r.pool[n-1] = nil
		r.pool = r.pool[:n-1]
		*ptes = PTEs{}
	} else {
		ptes = new(PTEs)
		r.handles[ptes] = r.next
		r.next++
	}
	r.used[r.handles[ptes]] = ptes
	return ptes
}

// PhysicalFor returns the handle for the given PTEs.
func (r *RuntimeAllocator) PhysicalFor(ptes *PTEs) uint64 {
	h, ok := r.handles[ptes]
	if !ok {
		panic(fmt.Sprintf("PTEs %p were not allocated by this allocator", ptes))
	}
	return h
}

// LookupPTEs implements Allocator.LookupPTEs.
func (r *RuntimeAllocator) LookupPTEs(physical uint64) *PTEs {
	ptes, ok := r.used[physical]
	if !ok {
		panic(fmt.Sprintf("no table with handle %#x", physical))
	}
	return ptes
}

// FreePTEs implements Allocator.FreePTEs.
func (r *RuntimeAllocator) FreePTEs(ptes *PTEs) {
	delete(r.used, r.PhysicalFor(ptes))
	r.freed = append(r.freed, ptes)
}
